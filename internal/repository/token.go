package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
)

type Tokens interface {
	StoreRefreshToken(ctx context.Context, token model.RefreshToken) error
	ConsumeRefreshToken(ctx context.Context, jti, tokenHash string) (int64, error)
	RevokeRefreshToken(ctx context.Context, jti string) error
	RevokeUserTokens(ctx context.Context, userID int64) error
}

func (r *repository) StoreRefreshToken(ctx context.Context, token model.RefreshToken) error {
	query, args, err := qb.Insert(refreshTokensTableName).
		Columns("jti", "user_id", "token_hash", "expires_at").
		Values(token.JTI, token.UserID, token.TokenHash, token.ExpiresAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("StoreRefreshToken", zap.Error(err))
		return errors.Wrap(err, "StoreRefreshToken")
	}
	return nil
}

// ConsumeRefreshToken invalidates one refresh token and reports its
// owner. The revoked/expiry guards make rotation a compare-and-set:
// of two concurrent refreshes with the same token exactly one wins,
// the other gets ErrInvalidToken.
func (r *repository) ConsumeRefreshToken(ctx context.Context, jti, tokenHash string) (int64, error) {
	q := `
update refresh_tokens
    set revoked = true
where jti = $1 and token_hash = $2 and not revoked and expires_at > now()
returning user_id`

	var userID int64
	if err := r.db.QueryRowContext(ctx, q, jti, tokenHash).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrInvalidToken
		}
		return 0, err
	}
	return userID, nil
}

func (r *repository) RevokeRefreshToken(ctx context.Context, jti string) error {
	query, args, err := qb.Update(refreshTokensTableName).
		Set("revoked", true).
		Where(sq.Eq{"jti": jti, "revoked": false}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrInvalidToken
	}
	return nil
}

func (r *repository) RevokeUserTokens(ctx context.Context, userID int64) error {
	query, args, err := qb.Update(refreshTokensTableName).
		Set("revoked", true).
		Where(sq.Eq{"user_id": userID, "revoked": false}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
