package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/internal/repository"
	"github.com/openshelf/lending-service/internal/service"
)

// fakeLoanRepo keeps the ledger rules of the postgres repository: a
// checkout only succeeds while copies remain, a return only while the
// available count is below the total.
type fakeLoanRepo struct {
	repository.Repository

	mu    sync.Mutex
	books map[int64]model.Book
	loans map[string]model.Loan
}

func newFakeLoanRepo(books ...model.Book) *fakeLoanRepo {
	r := &fakeLoanRepo{
		books: make(map[int64]model.Book),
		loans: make(map[string]model.Loan),
	}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeLoanRepo) CreateLoan(_ context.Context, userID, bookID int64, dueDate time.Time) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[bookID]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	if book.AvailableCopies <= 0 {
		return model.Loan{}, errs.ErrNoCopiesAvailable
	}
	book.AvailableCopies--
	r.books[bookID] = book

	loan := model.Loan{
		LoanUid:      uuid.NewString(),
		UserID:       userID,
		BookID:       bookID,
		Status:       model.LoanStatusActive,
		CheckedOutAt: time.Now().UTC(),
		DueDate:      dueDate,
	}
	r.loans[loan.LoanUid] = loan
	return loan, nil
}

func (r *fakeLoanRepo) ReturnLoan(_ context.Context, userID int64, loanUid string) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[loanUid]
	if !ok || loan.UserID != userID {
		return model.Loan{}, errs.ErrNotFound
	}
	if loan.Status != model.LoanStatusActive {
		return model.Loan{}, errs.ErrAlreadyReturned
	}
	book := r.books[loan.BookID]
	if book.AvailableCopies >= book.TotalCopies {
		return model.Loan{}, errs.ErrOverReturn
	}
	book.AvailableCopies++
	r.books[loan.BookID] = book

	loan.Status = model.LoanStatusReturned
	r.loans[loanUid] = loan
	return loan, nil
}

func (r *fakeLoanRepo) GetBook(_ context.Context, id int64) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return book, nil
}

func (r *fakeLoanRepo) GetLoans(_ context.Context, userID int64) ([]model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var loans []model.Loan
	for _, loan := range r.loans {
		if loan.UserID == userID {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

type captureEnqueuer struct {
	mu     sync.Mutex
	events []model.LoanEvent
}

func (q *captureEnqueuer) Enqueue(event model.LoanEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func (q *captureEnqueuer) all() []model.LoanEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.LoanEvent(nil), q.events...)
}

func TestLoanService_Checkout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeLoanRepo(model.Book{ID: 1, TotalCopies: 2, AvailableCopies: 2})
	queue := &captureEnqueuer{}
	svc := service.NewLoanService(repo, queue, zap.NewExample().Named("test"))

	loan, err := svc.Checkout(ctx, 7, model.CreateLoanRequest{BookID: 1})
	require.NoError(t, err)
	require.Equal(t, model.LoanStatusActive, loan.Status)

	// unspecified dueDays falls back to two weeks
	require.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 14), loan.DueDate, time.Minute)

	events := queue.all()
	require.Len(t, events, 1)
	require.Equal(t, model.LoanEventCheckout, events[0].Type)
	require.Equal(t, loan.LoanUid, events[0].LoanUid)

	_, err = svc.Checkout(ctx, 7, model.CreateLoanRequest{BookID: 404})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLoanService_ConcurrentCheckoutLastCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeLoanRepo(model.Book{ID: 1, TotalCopies: 1, AvailableCopies: 1})
	svc := service.NewLoanService(repo, &captureEnqueuer{}, zap.NewExample().Named("test"))

	const attempts = 8
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, int64(i+1), model.CreateLoanRequest{BookID: 1})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	success := 0
	for err := range errCh {
		if err == nil {
			success++
		} else {
			require.ErrorIs(t, err, errs.ErrNoCopiesAvailable)
		}
	}
	require.Equal(t, 1, success)

	book, err := repo.GetBook(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, book.AvailableCopies)
}

func TestLoanService_ReturnTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeLoanRepo(model.Book{ID: 1, TotalCopies: 1, AvailableCopies: 1})
	queue := &captureEnqueuer{}
	svc := service.NewLoanService(repo, queue, zap.NewExample().Named("test"))

	loan, err := svc.Checkout(ctx, 7, model.CreateLoanRequest{BookID: 1})
	require.NoError(t, err)

	returned, err := svc.Return(ctx, 7, loan.LoanUid)
	require.NoError(t, err)
	require.Equal(t, model.LoanStatusReturned, returned.Status)

	_, err = svc.Return(ctx, 7, loan.LoanUid)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)

	book, err := repo.GetBook(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, book.TotalCopies, book.AvailableCopies)

	events := queue.all()
	require.Len(t, events, 2)
	require.Equal(t, model.LoanEventReturn, events[1].Type)
}

func TestLoanService_GetLoansJoinsBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeLoanRepo(
		model.Book{ID: 1, Title: "Dune", TotalCopies: 3, AvailableCopies: 3},
		model.Book{ID: 2, Title: "Hyperion", TotalCopies: 1, AvailableCopies: 1},
	)
	svc := service.NewLoanService(repo, &captureEnqueuer{}, zap.NewExample().Named("test"))

	_, err := svc.Checkout(ctx, 7, model.CreateLoanRequest{BookID: 1})
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, 7, model.CreateLoanRequest{BookID: 2})
	require.NoError(t, err)

	items, err := svc.GetLoans(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, item.Loan.BookID, item.Book.ID)
		require.NotEmpty(t, item.Book.Title)
	}
}
