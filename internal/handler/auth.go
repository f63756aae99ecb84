package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/lending-service/internal/model"
)

// Register godoc
//
//	@Summary	Register a new member account
//	@Tags		auth
//	@Accept		json
//	@Param		input	body	model.RegisterRequest	true	"credentials"
//	@Success	201		{object}	model.User
//	@Router		/api/v1/register [post]
func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authSvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// Login godoc
//
//	@Summary	Exchange credentials for a token pair
//	@Tags		auth
//	@Accept		json
//	@Param		input	body	model.LoginRequest	true	"credentials"
//	@Success	200		{object}	model.TokenPair
//	@Failure	401		{object}	echo.HTTPError
//	@Router		/api/v1/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.authSvc.Login(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh godoc
//
//	@Summary	Rotate a refresh token
//	@Tags		auth
//	@Accept		json
//	@Param		input	body	model.RefreshRequest	true	"refresh token"
//	@Success	200		{object}	model.TokenPair
//	@Failure	401		{object}	echo.HTTPError
//	@Router		/api/v1/refresh [post]
func (h *Handler) Refresh(c echo.Context) error {
	var req model.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.authSvc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Logout(c echo.Context) error {
	var req model.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authSvc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll godoc
//
//	@Summary	End every session of the authenticated user
//	@Tags		auth
//	@Security	BearerAuth
//	@Success	204
//	@Router		/api/v1/logout/all [post]
func (h *Handler) LogoutAll(c echo.Context) error {
	userID, err := userFromContext(c)
	if err != nil {
		return err
	}
	if err := h.authSvc.LogoutAll(c.Request().Context(), userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
