package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/exam"
	"github.com/trezcool/campus/core/user"
)

type examApi struct {
	*base
	svc exam.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := examApi{base: b, svc: b.svcs.Exam}
	staff := portalMiddleware(user.RoleAdmin, user.RoleTeacher)

	eg := g.Group("/exams", jwt)
	eg.GET("/schedules", api.querySchedules)
	eg.POST("/schedules", api.createSchedule, adminMiddleware())
	eg.DELETE("/schedules/:id", api.destroySchedule, adminMiddleware())
	eg.GET("/marks", api.queryMarks)
	eg.POST("/marks", api.enterMarks, staff)
	eg.GET("/results", api.classResults, staff)
}

func (api *examApi) createSchedule(ctx echo.Context) error {
	var data exam.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSchedule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

// querySchedules lists every schedule to staff; students and parents only get their classes'.
func (api *examApi) querySchedules(ctx echo.Context) error {
	filter := new(exam.ScheduleFilter)
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

	classes := []string{filter.Class}
	if !sc.all {
		classes = sc.classes()
		if filter.Class != "" {
			if !core.ContainsString(classes, filter.Class) {
				return ctx.JSON(http.StatusOK, []exam.Schedule{})
			}
			classes = []string{filter.Class}
		}
	}

	ordering := bindOrdering(ctx)
	schedules := make([]exam.Schedule, 0)
	for _, class := range classes {
		f := *filter
		f.Class = class
		res, err := api.svc.QuerySchedules(ctx.Request().Context(), &f, ordering)
		if err != nil {
			return errors.Wrap(err, "querying exam schedules")
		}
		schedules = append(schedules, res...)
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *examApi) destroySchedule(ctx echo.Context) error {
	if err := api.svc.DeleteSchedule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting exam schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) enterMarks(ctx echo.Context) error {
	var data exam.BulkMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarks")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	marks, err := api.svc.EnterMarks(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "entering marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *examApi) queryMarks(ctx echo.Context) error {
	filter := new(exam.MarksFilter)
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
		return ctx.JSON(http.StatusOK, []exam.Marks{})
	}
	filter.StudentIDs = ids

	marks, err := api.svc.QueryMarks(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	if marks == nil {
		marks = []exam.Marks{}
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *examApi) classResults(ctx echo.Context) error {
	class := core.CleanString(ctx.QueryParam("class"))
	results, err := api.svc.ClassResults(ctx.Request().Context(), class)
	if err != nil {
		return errors.Wrap(err, "computing class results")
	}
	if results == nil {
		results = []exam.FinalMarks{}
	}
	return ctx.JSON(http.StatusOK, results)
}
