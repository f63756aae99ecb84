package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openshelf/lending-service/internal/model"
)

func bookID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	return id, nil
}

// ListBooks godoc
//
//	@Summary	Search the catalog by title, author or ISBN
//	@Tags		books
//	@Param		search	query	string	false	"search term"
//	@Param		page	query	int		false	"page"
//	@Param		size	query	int		false	"page size"
//	@Success	200	{object}	model.ListBooks
//	@Router		/api/v1/books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		err  error
		page int
		size int
	)
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil || page < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("page is invalid"))
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if size, err = strconv.Atoi(sizeParam); err != nil || size < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("size is invalid"))
		}
	}

	books, err := h.bookSvc.ListBooks(ctx, c.QueryParam("search"), page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	book, err := h.bookSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// CreateBook godoc
//
//	@Summary	Add a book to the catalog (librarian only)
//	@Tags		books
//	@Accept		json
//	@Param		input	body	model.CreateBookRequest	true	"book"
//	@Success	201	{object}	model.Book
//	@Failure	409	{object}	echo.HTTPError
//	@Router		/api/v1/books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	book, err := h.bookSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	book, err := h.bookSvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	if err := h.bookSvc.DeleteBook(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetBookStats(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	stats, err := h.bookSvc.GetBookStats(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
