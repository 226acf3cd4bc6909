package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
)

type timetableApi struct {
	*base
	svc timetable.Service
}

func registerTimetableAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := timetableApi{base: b, svc: b.svcs.Timetable}

	tg := g.Group("/timetables", jwt)
	tg.GET("", api.query, portalMiddleware(user.RoleAdmin, user.RoleTeacher))
	tg.PUT("", api.save, adminMiddleware())
	tg.GET("/me", api.mine)
	tg.GET("/:kind/:owner", api.retrieveByOwner)
	tg.GET("/:id", api.retrieve, adminMiddleware())
	tg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *timetableApi) save(ctx echo.Context) error {
	var data timetable.SaveTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveTimetable")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tt, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *timetableApi) query(ctx echo.Context) error {
	filter := new(timetable.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	tts, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying timetables")
	}
	if tts == nil {
		tts = []timetable.Timetable{}
	}
	return ctx.JSON(http.StatusOK, tts)
}

func (api *timetableApi) retrieve(ctx echo.Context) error {
	tt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *timetableApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting timetable")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// emptyTimetable is returned when an owner has no timetable saved yet.
func emptyTimetable(kind, ownerKey string) timetable.Timetable {
	return timetable.Timetable{Kind: kind, OwnerKey: ownerKey, Entries: []timetable.Entry{}}
}

func (api *timetableApi) getOrEmpty(ctx echo.Context, kind, ownerKey string) (timetable.Timetable, error) {
	tt, err := api.svc.GetByOwner(ctx.Request().Context(), kind, ownerKey)
	if err != nil {
		if errors.Cause(err) == timetable.ErrNotFound {
			return emptyTimetable(kind, ownerKey), nil
		}
		return timetable.Timetable{}, errors.Wrap(err, "getting timetable")
	}
	return tt, nil
}

// mine returns the teacher's own timetable, the student's class timetable,
// or one timetable per class of the parent's children.
func (api *timetableApi) mine(ctx echo.Context) error {
	c := ctx.Request().Context()
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	if ctxUsr.IsTeacher() {
		t, err := api.svcs.Teacher.GetByUserID(c, ctxUsr.ID)
		if err != nil {
			if errors.Cause(err) == teacher.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "getting teacher profile")
		}
		tt, err := api.getOrEmpty(ctx, timetable.KindTeacher, t.ID)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, tt)
	}

	sc, err := api.studentScope(ctx, ctxUsr)
	if err != nil {
		return err
	}
	if ctxUsr.IsStudent() {
		if len(sc.students) == 0 {
			return errHttpNotFound
		}
		tt, err := api.getOrEmpty(ctx, timetable.KindClass, sc.students[0].Class)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, tt)
	}
	if ctxUsr.IsParent() {
		tts := make([]timetable.Timetable, 0)
		for _, class := range sc.classes() {
			tt, err := api.getOrEmpty(ctx, timetable.KindClass, class)
			if err != nil {
				return err
			}
			tts = append(tts, tt)
		}
		return ctx.JSON(http.StatusOK, tts)
	}
	return errHttpForbidden
}

// retrieveByOwner lets staff read any timetable; students and parents only read their classes'.
func (api *timetableApi) retrieveByOwner(ctx echo.Context) error {
	kind := core.CleanString(ctx.Param("kind"), true /* lower */)
	owner := core.CleanString(ctx.Param("owner"))
	if kind != timetable.KindTeacher && kind != timetable.KindClass {
		return errHttpNotFound
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() && !ctxUsr.IsTeacher() {
		if kind != timetable.KindClass {
			return errHttpForbidden
		}
		sc, err := api.studentScope(ctx, ctxUsr)
		if err != nil {
			return err
		}
		if !core.ContainsString(sc.classes(), owner) {
			return errHttpForbidden
		}
	}

	tt, err := api.getOrEmpty(ctx, kind, owner)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tt)
}
