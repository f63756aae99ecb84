package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
)

type Users interface {
	CreateUser(ctx context.Context, email, passwordHash string, role model.Role) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
}

func (r *repository) CreateUser(ctx context.Context, email, passwordHash string, role model.Role) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("email", "password_hash", "role").
		Values(email, passwordHash, role).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, errs.ErrDuplicate
		}
		return model.User{}, errors.Wrap(err, "CreateUser")
	}
	return user, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	query, args, err := qb.Select("id", "email", "password_hash", "role", "created_at").
		From(usersTableName).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) GetUser(ctx context.Context, id int64) (model.User, error) {
	query, args, err := qb.Select("id", "email", "password_hash", "role", "created_at").
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}
