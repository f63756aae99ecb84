package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
)

type Books interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("isbn", "title", "author", "total_copies", "available_copies").
		Values(req.ISBN, req.Title, req.Author, req.TotalCopies, req.TotalCopies).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.ErrDuplicate
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error) {
	q := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies").
		From(booksTableName).
		OrderBy("id")

	if search != "" {
		pattern := fmt.Sprintf("%%%s%%", search)
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
			sq.Eq{"isbn": search},
		})
	}
	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: len(books),
		},
		Items: books,
	}, nil
}

// UpdateBook changes metadata and the total copy count in one statement.
// The available count moves by the same delta as the total, guarded so it
// cannot drop below zero while copies are checked out.
func (r *repository) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	q := `
update books
    set title = $2,
        author = $3,
        available_copies = available_copies + ($4 - total_copies),
        total_copies = $4
where id = $1 and available_copies + ($4 - total_copies) >= 0
returning *`

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, id, req.Title, req.Author, req.TotalCopies); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetBook(ctx, id); getErr != nil {
				return model.Book{}, getErr
			}
			return model.Book{}, errs.ErrTotalBelowLoaned
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrBookLoaned
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// checkout decrements the available count only while it is positive.
// The database serializes concurrent attempts on the row, so two
// checkouts can never both take the last copy.
func checkout(ctx context.Context, db sqlx.ExtContext, bookID int64) error {
	q := `
update books
    set available_copies = available_copies - 1
where id = $1 and available_copies > 0`

	res, err := db.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := bookExists(ctx, db, bookID); err != nil {
			return err
		}
		return errs.ErrNoCopiesAvailable
	}
	return nil
}

// bookReturn increments the available count only while it is below the
// total, guarding against duplicate returns and corrupted counters.
func bookReturn(ctx context.Context, db sqlx.ExtContext, bookID int64) error {
	q := `
update books
    set available_copies = available_copies + 1
where id = $1 and available_copies < total_copies`

	res, err := db.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := bookExists(ctx, db, bookID); err != nil {
			return err
		}
		return errs.ErrOverReturn
	}
	return nil
}

func bookExists(ctx context.Context, db sqlx.ExtContext, bookID int64) error {
	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists,
		`select exists(select 1 from books where id = $1)`, bookID); err != nil {
		return err
	}
	if !exists {
		return errs.ErrNotFound
	}
	return nil
}
