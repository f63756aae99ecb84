package breaker

import (
	"errors"
	"sync"
	"time"
)

type state uint8

const (
	closed state = iota + 1
	open
	halfOpen
)

var ErrOpen = errors.New("circuit breaker is open")

// Breaker trips after the failure rate over the last recordLength calls
// reaches percentile, stays open for timeout, then lets calls through in
// half-open state until recoveryRequests consecutive successes close it.
type Breaker struct {
	mu sync.Mutex

	state           state
	lastAttemptedAt time.Time

	recordLength     int
	timeout          time.Duration
	percentile       float64
	recoveryRequests int

	// ring buffer of call outcomes, true = failed
	buffer []bool
	pos    int

	successCount int
}

func New(recordLength int, timeout time.Duration, percentile float64, recoveryRequests int) *Breaker {
	return &Breaker{
		state:            closed,
		recordLength:     recordLength,
		timeout:          timeout,
		percentile:       percentile,
		buffer:           make([]bool, recordLength),
		recoveryRequests: recoveryRequests,
	}
}

func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	if b.state == open {
		if time.Since(b.lastAttemptedAt) <= b.timeout {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = halfOpen
		b.successCount = 0
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer[b.pos] = err != nil
	b.pos = (b.pos + 1) % b.recordLength

	if b.state == halfOpen {
		if err != nil {
			b.state = open
			b.successCount = 0
			b.lastAttemptedAt = time.Now()
			return err
		}
		b.successCount++
		if b.successCount > b.recoveryRequests {
			b.reset()
		}
		return err
	}

	fails := 0
	for _, failed := range b.buffer {
		if failed {
			fails++
		}
	}
	if float64(fails)/float64(b.recordLength) >= b.percentile {
		b.state = open
		b.successCount = 0
		b.lastAttemptedAt = time.Now()
	}

	return err
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *Breaker) reset() {
	for i := range b.buffer {
		b.buffer[i] = false
	}
	b.successCount = 0
	b.pos = 0
	b.state = closed
}
