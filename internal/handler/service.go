package handler

import (
	"context"

	"github.com/openshelf/lending-service/internal/model"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=service_mocks

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID int64) error
}

type BookService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetBookStats(ctx context.Context, bookID int64) (model.BookStats, error)
}

type LoanService interface {
	Checkout(ctx context.Context, userID int64, req model.CreateLoanRequest) (model.Loan, error)
	Return(ctx context.Context, userID int64, loanUid string) (model.Loan, error)
	GetLoans(ctx context.Context, userID int64) ([]model.GetLoanResponse, error)
	GetLoan(ctx context.Context, userID int64, loanUid string) (model.GetLoanResponse, error)
}
