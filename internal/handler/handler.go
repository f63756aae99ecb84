package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/pkg/auth"
	md "github.com/openshelf/lending-service/pkg/middleware"
	"github.com/openshelf/lending-service/pkg/validate"
	_ "github.com/openshelf/lending-service/swagger"
)

type Handler struct {
	authSvc AuthService
	bookSvc BookService
	loanSvc LoanService
	jwtCfg  auth.Config
	log     *zap.Logger
}

func New(authSvc AuthService, bookSvc BookService, loanSvc LoanService, jwtCfg auth.Config, log *zap.Logger) *Handler {
	return &Handler{
		authSvc: authSvc,
		bookSvc: bookSvc,
		loanSvc: loanSvc,
		jwtCfg:  jwtCfg,
		log:     log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/refresh", h.Refresh)
	api.POST("/logout", h.Logout)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)

	authMW := md.JwtAuthentication([]byte(h.jwtCfg.Secret))

	api.POST("/logout/all", h.LogoutAll, authMW)

	librarian := api.Group("/books", authMW, md.RequireRole(auth.RoleLibrarian))
	librarian.POST("", h.CreateBook)
	librarian.PUT("/:id", h.UpdateBook)
	librarian.DELETE("/:id", h.DeleteBook)
	librarian.GET("/:id/stats", h.GetBookStats)

	loans := api.Group("/loans", authMW)
	loans.POST("", h.Checkout)
	loans.GET("", h.GetLoans)
	loans.GET("/:loanUid", h.GetLoan)
	loans.POST("/:loanUid/return", h.Return)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps domain errors onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicate),
		errors.Is(err, errs.ErrNoCopiesAvailable),
		errors.Is(err, errs.ErrOverReturn),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrTotalBelowLoaned),
		errors.Is(err, errs.ErrBookLoaned):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidCredentials),
		errors.Is(err, errs.ErrInvalidToken),
		errors.Is(err, errs.ErrExpiredToken),
		errors.Is(err, errs.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
