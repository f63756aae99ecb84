package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/internal/repository"
)

const defaultLoanDays = 14

type LoanService struct {
	log      *zap.Logger
	repo     repository.Repository
	enqueuer Enqueuer
}

func NewLoanService(repo repository.Repository, enqueuer Enqueuer, log *zap.Logger) *LoanService {
	return &LoanService{
		log:      log,
		repo:     repo,
		enqueuer: enqueuer,
	}
}

func (s *LoanService) Checkout(ctx context.Context, userID int64, req model.CreateLoanRequest) (model.Loan, error) {
	days := req.DueDays
	if days == 0 {
		days = defaultLoanDays
	}
	dueDate := time.Now().UTC().AddDate(0, 0, days)

	loan, err := s.repo.CreateLoan(ctx, userID, req.BookID, dueDate)
	if err != nil {
		return model.Loan{}, err
	}

	s.publish(model.LoanEvent{
		Type:    model.LoanEventCheckout,
		LoanUid: loan.LoanUid,
		BookID:  loan.BookID,
		UserID:  loan.UserID,
		At:      loan.CheckedOutAt,
	})
	return loan, nil
}

func (s *LoanService) Return(ctx context.Context, userID int64, loanUid string) (model.Loan, error) {
	loan, err := s.repo.ReturnLoan(ctx, userID, loanUid)
	if err != nil {
		return model.Loan{}, err
	}

	s.publish(model.LoanEvent{
		Type:    model.LoanEventReturn,
		LoanUid: loan.LoanUid,
		BookID:  loan.BookID,
		UserID:  loan.UserID,
		At:      time.Now().UTC(),
	})
	return loan, nil
}

// GetLoans joins every loan with its book, fetching books concurrently.
func (s *LoanService) GetLoans(ctx context.Context, userID int64) ([]model.GetLoanResponse, error) {
	loans, err := s.repo.GetLoans(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]model.GetLoanResponse, len(loans))
	gg, ctx := errgroup.WithContext(ctx)
	for i := range loans {
		i := i
		gg.Go(func() error {
			book, err := s.repo.GetBook(ctx, loans[i].BookID)
			if err != nil {
				return err
			}
			items[i] = model.GetLoanResponse{Loan: loans[i], Book: book}
			return nil
		})
	}
	if err := gg.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *LoanService) GetLoan(ctx context.Context, userID int64, loanUid string) (model.GetLoanResponse, error) {
	loan, err := s.repo.GetLoan(ctx, userID, loanUid)
	if err != nil {
		return model.GetLoanResponse{}, err
	}
	book, err := s.repo.GetBook(ctx, loan.BookID)
	if err != nil {
		return model.GetLoanResponse{}, err
	}
	return model.GetLoanResponse{Loan: loan, Book: book}, nil
}

// publish is best effort: the loan is already committed, a broker
// outage must not fail the request.
func (s *LoanService) publish(event model.LoanEvent) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.Enqueue(event); err != nil {
		s.log.Error("enqueue loan event",
			zap.String("loanUid", event.LoanUid), zap.Error(err))
	}
}
