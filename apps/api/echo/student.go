package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

type studentApi struct {
	*base
	svc student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := studentApi{base: b, svc: b.svcs.Student}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, portalMiddleware(user.RoleAdmin, user.RoleTeacher))
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/stats", api.stats, adminMiddleware())
	sg.GET("/me", api.me, portalMiddleware(user.RoleStudent))

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/attendance", api.attendance)
	dg.GET("/fees", api.fees)
	dg.GET("/results", api.results)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	students, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing student stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *studentApi) me(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting student profile")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.readableStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(ctx.Request().Context(), s, api.validate, api.svc); err != nil {
		return err
	}

	s, err = api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) attendance(ctx echo.Context) error {
	s, err := api.readableStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	filter := new(attendance.QueryFilter)
	if err = bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	summary, err := api.svcs.Attendance.StudentSummary(ctx.Request().Context(), s, filter)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *studentApi) fees(ctx echo.Context) error {
	s, err := api.readableStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	fees, err := api.svcs.Fee.Query(ctx.Request().Context(), &fee.QueryFilter{StudentIDs: []string{s.ID}}, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *studentApi) results(ctx echo.Context) error {
	s, err := api.readableStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	final, err := api.svcs.Exam.FinalMarks(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "computing final marks")
	}
	return ctx.JSON(http.StatusOK, final)
}
