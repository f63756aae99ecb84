package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/openshelf/lending-service/internal/model"
)

type Stats interface {
	ApplyLoanEvent(ctx context.Context, event model.LoanEvent) error
	GetBookStats(ctx context.Context, bookID int64) (model.BookStats, error)
}

func (r *repository) ApplyLoanEvent(ctx context.Context, event model.LoanEvent) error {
	checkouts, returns := 0, 0
	switch event.Type {
	case model.LoanEventCheckout:
		checkouts = 1
	case model.LoanEventReturn:
		returns = 1
	default:
		return errors.Errorf("unknown loan event type %q", event.Type)
	}

	q := `
insert into loan_stats (book_id, checkouts, returns)
values ($1, $2, $3)
on conflict (book_id) do update
    set checkouts = loan_stats.checkouts + excluded.checkouts,
        returns   = loan_stats.returns + excluded.returns`

	_, err := r.db.ExecContext(ctx, q, event.BookID, checkouts, returns)
	return err
}

func (r *repository) GetBookStats(ctx context.Context, bookID int64) (model.BookStats, error) {
	query, args, err := qb.Select("book_id", "checkouts", "returns").
		From(loanStatsTableName).
		Where(sq.Eq{"book_id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.BookStats{}, err
	}

	var stats model.BookStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BookStats{BookID: bookID}, nil
		}
		return model.BookStats{}, err
	}
	return stats, nil
}
