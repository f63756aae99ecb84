package model

import (
	"time"
)

type Role = string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

type Book struct {
	ID              int64  `json:"id" db:"id"`
	ISBN            string `json:"isbn" db:"isbn"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

type Loan struct {
	ID           int64      `json:"-" db:"id"`
	LoanUid      string     `json:"loanUid" db:"loan_uid"`
	UserID       int64      `json:"userId" db:"user_id"`
	BookID       int64      `json:"bookId" db:"book_id"`
	Status       LoanStatus `json:"status" db:"status"`
	CheckedOutAt time.Time  `json:"checkedOutAt" db:"checked_out_at"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
}

type GetLoanResponse struct {
	Loan Loan `json:"loan"`
	Book Book `json:"book"`
}

// RefreshToken is the server-side state of one refresh-token chain.
// TokenHash keeps the raw token out of the database.
type RefreshToken struct {
	JTI       string    `db:"jti"`
	UserID    int64     `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Revoked   bool      `db:"revoked"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type BookStats struct {
	BookID    int64 `json:"bookId" db:"book_id"`
	Checkouts int   `json:"checkouts" db:"checkouts"`
	Returns   int   `json:"returns" db:"returns"`
}

type LoanEventType string

const (
	LoanEventCheckout LoanEventType = "CHECKOUT"
	LoanEventReturn   LoanEventType = "RETURN"
)

type LoanEvent struct {
	Type    LoanEventType `json:"type"`
	LoanUid string        `json:"loanUid"`
	BookID  int64         `json:"bookId"`
	UserID  int64         `json:"userId"`
	At      time.Time     `json:"at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateBookRequest struct {
	ISBN        string `json:"isbn" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	TotalCopies int    `json:"totalCopies" validate:"gte=0"`
}

type UpdateBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	TotalCopies int    `json:"totalCopies" validate:"gte=0"`
}

type CreateLoanRequest struct {
	BookID  int64 `json:"bookId" validate:"required"`
	DueDays int   `json:"dueDays" validate:"omitempty,gte=1,lte=60"`
}
