package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
)

type teacherApi struct {
	*base
	svc teacher.Service
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := teacherApi{base: b, svc: b.svcs.Teacher}

	tg := g.Group("/teachers", jwt)
	tg.GET("", api.query, portalMiddleware(user.RoleAdmin, user.RoleTeacher))
	tg.POST("", api.create, adminMiddleware())
	tg.GET("/stats", api.stats, adminMiddleware())
	tg.GET("/me", api.me, portalMiddleware(user.RoleTeacher))
	tg.GET("/:id", api.retrieve, adminMiddleware())
	tg.PUT("/:id", api.update, adminMiddleware())
	tg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *teacherApi) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *teacherApi) query(ctx echo.Context) error {
	filter := new(teacher.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	teachers, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []teacher.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *teacherApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing teacher stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *teacherApi) me(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting teacher profile")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) update(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}

	var data teacher.UpdateTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err = data.Validate(t, api.validate); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}
