package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/settings"
)

type settingsApi struct {
	*base
	svc settings.Service
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := settingsApi{base: b, svc: b.svcs.Settings}

	sg := g.Group("/settings", jwt)
	sg.GET("", api.retrieve)
	sg.PUT("", api.save)
	sg.DELETE("", api.reset)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	prefs, err := api.svc.Get(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "getting preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *settingsApi) save(ctx echo.Context) error {
	var data settings.Preferences
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Preferences")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	prefs, err := api.svc.Save(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *settingsApi) reset(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	prefs, err := api.svc.Reset(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "resetting preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}
