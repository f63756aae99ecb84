package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/internal/repository"
)

type BookService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewBookService(repo repository.Repository, log *zap.Logger) *BookService {
	return &BookService{
		log:  log,
		repo: repo,
	}
}

func (s *BookService) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.CreateBook(ctx, req)
}

func (s *BookService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, search, page, size)
}

func (s *BookService) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

func (s *BookService) GetBookStats(ctx context.Context, bookID int64) (model.BookStats, error) {
	return s.repo.GetBookStats(ctx, bookID)
}

func (s *BookService) ApplyLoanEvent(ctx context.Context, event model.LoanEvent) error {
	return s.repo.ApplyLoanEvent(ctx, event)
}
