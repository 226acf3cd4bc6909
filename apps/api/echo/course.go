package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
)

type courseApi struct {
	*base
	svc course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := courseApi{base: b, svc: b.svcs.Course}
	staff := portalMiddleware(user.RoleAdmin, user.RoleTeacher)

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.POST("/:id/enroll", api.enroll, adminMiddleware())
	cg.POST("/:id/assignments", api.createAssignment, staff)
	cg.POST("/:id/materials", api.createMaterial, staff)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id", api.retrieveAssignment)
	ag.PUT("/:id", api.updateAssignment, staff)
	ag.DELETE("/:id", api.destroyAssignment, staff)
	ag.POST("/:id/submissions", api.submit, portalMiddleware(user.RoleStudent))
	ag.GET("/:id/submissions", api.submissions)

	g.DELETE("/materials/:id", api.destroyMaterial, jwt, staff)
	g.PUT("/submissions/:id/grade", api.grade, jwt, staff)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
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
	if !sc.all {
		if filter.Classes = sc.classes(); len(filter.Classes) == 0 {
			return ctx.JSON(http.StatusOK, []course.Course{})
		}
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// readableCourse returns the course `id` if the context user is staff, or studies in (or has a child in) it.
func (api *courseApi) readableCourse(ctx echo.Context, id string) (course.Course, studentScope, error) {
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return course.Course{}, studentScope{}, errors.Wrap(err, "getting course")
	}
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return course.Course{}, studentScope{}, err
	}
	sc, err := api.studentScope(ctx, ctxUsr)
	if err != nil {
		return course.Course{}, studentScope{}, err
	}
	if sc.all || core.ContainsString(sc.classes(), c.Class) {
		return c, sc, nil
	}
	for _, sid := range c.EnrolledStudents {
		if sc.has(sid) {
			return c, sc, nil
		}
	}
	return course.Course{}, studentScope{}, errHttpNotFound
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, _, err := api.readableCourse(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	d, err := api.svc.Detail(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseApi) update(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(c, api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.Enroll
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enroll")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	var data course.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.CreateAssignment(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseApi) retrieveAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	if _, _, err = api.readableCourse(ctx, a.CourseID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseApi) updateAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	var data course.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(a, api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	a, err = api.svc.UpdateAssignment(ctx.Request().Context(), a, data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseApi) destroyAssignment(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) createMaterial(ctx echo.Context) error {
	var data course.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.CreateMaterial(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) destroyMaterial(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteMaterial(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) submit(ctx echo.Context) error {
	var data course.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// submissions lists every submission of the assignment to its course's staff;
// students and parents only get their own or their children's.
func (api *courseApi) submissions(ctx echo.Context) error {
	c := ctx.Request().Context()
	a, err := api.svc.GetAssignment(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	crs, sc, err := api.readableCourse(ctx, a.CourseID)
	if err != nil {
		return err
	}

	filter := new(course.SubmissionFilter)
	if err = bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()
	filter.AssignmentID = a.ID
	filter.CourseID = ""

	if sc.all {
		ctxUsr, err := api.ctxUser(ctx)
		if err != nil {
			return err
		}
		ok, err := api.svc.CanManage(c, crs, ctxUsr)
		if err != nil {
			return errors.Wrap(err, "checking course teacher")
		}
		if !ok {
			return errHttpForbidden
		}
	} else {
		ids, ok := sc.restrict(filter.StudentIDs)
		if !ok {
			return ctx.JSON(http.StatusOK, []course.Submission{})
		}
		filter.StudentIDs = ids
	}

	subs, err := api.svc.Submissions(c, filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []course.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseApi) grade(ctx echo.Context) error {
	var data course.Grade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.GradeSubmission(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
