package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/library"
)

type libraryApi struct {
	*base
	svc library.Service
}

func registerLibraryAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := libraryApi{base: b, svc: b.svcs.Library}

	lg := g.Group("/library", jwt)
	lg.GET("/books", api.queryBooks)
	lg.POST("/books", api.createBook, adminMiddleware())
	lg.GET("/books/:id", api.retrieveBook)
	lg.PUT("/books/:id", api.updateBook, adminMiddleware())
	lg.DELETE("/books/:id", api.destroyBook, adminMiddleware())

	lg.GET("/issues", api.queryIssues)
	lg.POST("/issues", api.issue, adminMiddleware())
	lg.GET("/issues/:id", api.retrieveIssue)
	lg.POST("/issues/:id/return", api.returnBook, adminMiddleware())

	lg.GET("/settings", api.settings, adminMiddleware())
	lg.PUT("/settings", api.saveSettings, adminMiddleware())
	lg.GET("/stats", api.stats, adminMiddleware())
}

func (api *libraryApi) createBook(ctx echo.Context) error {
	var data library.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	book, err := api.svc.CreateBook(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, book)
}

func (api *libraryApi) queryBooks(ctx echo.Context) error {
	filter := new(library.BookFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	books, err := api.svc.QueryBooks(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	if books == nil {
		books = []library.Book{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *libraryApi) retrieveBook(ctx echo.Context) error {
	book, err := api.svc.GetBook(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *libraryApi) updateBook(ctx echo.Context) error {
	var data library.UpdateBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBook")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	book, err := api.svc.UpdateBook(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *libraryApi) destroyBook(ctx echo.Context) error {
	if err := api.svc.DeleteBook(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting book")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *libraryApi) issue(ctx echo.Context) error {
	var data library.NewIssue
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIssue")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	is, err := api.svc.Issue(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "issuing book")
	}
	return ctx.JSON(http.StatusCreated, is)
}

// queryIssues lists every issue to admins; other users only get their own.
func (api *libraryApi) queryIssues(ctx echo.Context) error {
	filter := new(library.IssueFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() {
		filter.UserID = ctxUsr.ID
	}

	issues, err := api.svc.QueryIssues(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying issues")
	}
	if issues == nil {
		issues = []library.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *libraryApi) retrieveIssue(ctx echo.Context) error {
	is, err := api.svc.GetIssue(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting issue")
	}
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() && is.UserID != ctxUsr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, is)
}

func (api *libraryApi) returnBook(ctx echo.Context) error {
	is, err := api.svc.Return(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "returning book")
	}
	return ctx.JSON(http.StatusOK, is)
}

func (api *libraryApi) settings(ctx echo.Context) error {
	s, err := api.svc.Settings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting library settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *libraryApi) saveSettings(ctx echo.Context) error {
	var data library.Settings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Settings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.SaveSettings(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving library settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *libraryApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing library stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
