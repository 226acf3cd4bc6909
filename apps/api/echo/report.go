package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/report"
)

type reportApi struct {
	*base
	svc report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := reportApi{base: b, svc: b.svcs.Report}

	rg := g.Group("/reports", jwt, adminMiddleware())
	rg.GET("/overview", api.overview)
	rg.GET("/academic", api.academic)
	rg.GET("/financial", api.financial)
	rg.GET("/attendance", api.attendance)
}

func (api *reportApi) bindFilter(ctx echo.Context) (report.Filter, error) {
	var filter report.Filter
	if err := bindFilter(ctx, &filter); err != nil {
		return filter, err
	}
	filter.Class = core.CleanString(filter.Class)
	filter.From = core.CleanString(filter.From)
	filter.To = core.CleanString(filter.To)
	return filter, api.validate.Struct(filter)
}

func (api *reportApi) overview(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Overview(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building overview report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) academic(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Academic(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building academic report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) financial(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Financial(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building financial report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) attendance(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Attendance(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
