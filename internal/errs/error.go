package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrOverReturn        = errors.New("available copies would exceed total copies")
	ErrAlreadyReturned   = errors.New("loan already returned")
	ErrTotalBelowLoaned  = errors.New("total copies below checked-out copies")
	ErrBookLoaned        = errors.New("book has loans")

	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)
