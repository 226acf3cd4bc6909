package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/user"
)

type attendanceApi struct {
	*base
	svc attendance.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := attendanceApi{base: b, svc: b.svcs.Attendance}
	staff := portalMiddleware(user.RoleAdmin, user.RoleTeacher)

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.query)
	ag.POST("", api.mark, staff)
	ag.POST("/mark-all-present", api.markAllPresent, staff)
	ag.GET("/stats", api.stats, staff)
	ag.GET("/:id", api.retrieve, staff)
	ag.DELETE("/:id", api.destroy, adminMiddleware())

	tg := ag.Group("/teachers", adminMiddleware())
	tg.GET("", api.queryTeachers)
	tg.POST("", api.markTeachers)
	tg.GET("/stats", api.teacherStats)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.BulkMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Mark(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) markAllPresent(ctx echo.Context) error {
	var data attendance.MarkAllPresent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAllPresent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.MarkAllPresent(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking all present")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

// query lists every record to staff; students and parents only get their own or their children's.
func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	sc, err := api.studentScope(ctx, ctxUsr)
	if err != nil {
		return err
	}
	ids, ok := sc.restrict(filter.StudentIDs)
	if !ok {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	filter.StudentIDs = ids

	recs, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	stats, err := api.svc.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) markTeachers(ctx echo.Context) error {
	var data attendance.BulkTeacherMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkTeacherMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.MarkTeachers(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking teacher attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) queryTeachers(ctx echo.Context) error {
	filter := new(attendance.TeacherQueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	recs, err := api.svc.QueryTeachers(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying teacher attendance")
	}
	if recs == nil {
		recs = []attendance.TeacherRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) teacherStats(ctx echo.Context) error {
	filter := new(attendance.TeacherQueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	stats, err := api.svc.TeacherStats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing teacher attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
