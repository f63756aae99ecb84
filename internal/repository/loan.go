package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
)

type Loans interface {
	CreateLoan(ctx context.Context, userID, bookID int64, dueDate time.Time) (model.Loan, error)
	ReturnLoan(ctx context.Context, userID int64, loanUid string) (model.Loan, error)
	GetLoans(ctx context.Context, userID int64) ([]model.Loan, error)
	GetLoan(ctx context.Context, userID int64, loanUid string) (model.Loan, error)
}

// CreateLoan takes a copy off the shelf and records the loan in one
// transaction, so a failed insert puts the copy back.
func (r *repository) CreateLoan(ctx context.Context, userID, bookID int64, dueDate time.Time) (model.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Loan{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := checkout(ctx, tx, bookID); err != nil {
		return model.Loan{}, err
	}

	query, args, err := qb.Insert(loansTableName).
		Columns("loan_uid", "user_id", "book_id", "status", "checked_out_at", "due_date").
		Values(uuid.New(), userID, bookID, model.LoanStatusActive, time.Now().UTC(), dueDate).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
		r.log.Error("CreateLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// ReturnLoan flips the loan to RETURNED (only from ACTIVE, so a second
// return of the same loan fails) and puts the copy back on the shelf.
func (r *repository) ReturnLoan(ctx context.Context, userID int64, loanUid string) (model.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Loan{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	q := `
update loans
    set status = 'RETURNED', returned_at = now()
where loan_uid = $1 and user_id = $2 and status = 'ACTIVE'
returning *`

	var loan model.Loan
	if err := tx.GetContext(ctx, &loan, q, loanUid, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetLoan(ctx, userID, loanUid); getErr != nil {
				return model.Loan{}, getErr
			}
			return model.Loan{}, errs.ErrAlreadyReturned
		}
		return model.Loan{}, err
	}

	if err := bookReturn(ctx, tx, loan.BookID); err != nil {
		return model.Loan{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) GetLoans(ctx context.Context, userID int64) ([]model.Loan, error) {
	query, args, err := qb.Select("id", "loan_uid", "user_id", "book_id", "status", "checked_out_at", "due_date", "returned_at").
		From(loansTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("checked_out_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) GetLoan(ctx context.Context, userID int64, loanUid string) (model.Loan, error) {
	query, args, err := qb.Select("id", "loan_uid", "user_id", "book_id", "status", "checked_out_at", "due_date", "returned_at").
		From(loansTableName).
		Where(sq.Eq{"loan_uid": loanUid, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}
