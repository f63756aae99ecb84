package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/pkg/auth"
)

func userFromContext(c echo.Context) (int64, error) {
	id, _, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
	}
	return id, nil
}

// Checkout godoc
//
//	@Summary	Check out a book copy
//	@Tags		loans
//	@Accept		json
//	@Param		input	body	model.CreateLoanRequest	true	"loan"
//	@Success	201	{object}	model.Loan
//	@Failure	409	{object}	echo.HTTPError	"no copies available"
//	@Router		/api/v1/loans [post]
func (h *Handler) Checkout(c echo.Context) error {
	userID, err := userFromContext(c)
	if err != nil {
		return err
	}
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	loan, err := h.loanSvc.Checkout(c.Request().Context(), userID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// Return godoc
//
//	@Summary	Return a checked-out book
//	@Tags		loans
//	@Param		loanUid	path	string	true	"loan uid"
//	@Success	200	{object}	model.Loan
//	@Failure	409	{object}	echo.HTTPError	"already returned"
//	@Router		/api/v1/loans/{loanUid}/return [post]
func (h *Handler) Return(c echo.Context) error {
	userID, err := userFromContext(c)
	if err != nil {
		return err
	}
	loanUid := c.Param("loanUid")

	loan, err := h.loanSvc.Return(c.Request().Context(), userID, loanUid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) GetLoans(c echo.Context) error {
	userID, err := userFromContext(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.GetLoans(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetLoan(c echo.Context) error {
	userID, err := userFromContext(c)
	if err != nil {
		return err
	}
	loan, err := h.loanSvc.GetLoan(c.Request().Context(), userID, c.Param("loanUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}
