package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

type parentApi struct {
	*base
	svc parent.Service
}

func registerParentAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := parentApi{base: b, svc: b.svcs.Parent}

	pg := g.Group("/parents", jwt)
	pg.GET("", api.query, adminMiddleware())
	pg.POST("", api.create, adminMiddleware())
	pg.GET("/me", api.me, portalMiddleware(user.RoleParent))

	dg := pg.Group("/:id", api.ctxParentOrAdminMiddleware)
	dg.GET("", api.retrieve)
	dg.GET("/children", api.children)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *parentApi) create(ctx echo.Context) error {
	var data parent.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating parent")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *parentApi) query(ctx echo.Context) error {
	filter := new(parent.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	parents, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	if parents == nil {
		parents = []parent.Parent{}
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (api *parentApi) me(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.GetByUserID(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting parent profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) retrieve(ctx echo.Context) error {
	p, err := ctxParentObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) children(ctx echo.Context) error {
	p, err := ctxParentObject(ctx)
	if err != nil {
		return err
	}
	children, err := api.svcs.Student.Children(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "getting children")
	}
	if children == nil {
		children = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *parentApi) update(ctx echo.Context) error {
	p, err := ctxParentObject(ctx)
	if err != nil {
		return err
	}

	var data parent.UpdateParent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateParent")
	}
	if err = data.Validate(p, api.validate); err != nil {
		return err
	}

	p, err = api.svc.Update(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) destroy(ctx echo.Context) error {
	p, err := ctxParentObject(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *parentApi) ctxParentOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := api.ctxUser(ctx)
		if err != nil {
			return err
		}

		p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == parent.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding parent by ID")
		}
		if !(ctxUsr.IsAdmin() || p.UserID == ctxUsr.ID) {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, p)
		return next(ctx)
	}
}

func ctxParentObject(ctx echo.Context) (parent.Parent, error) {
	if obj, ok := ctx.Get(contextObjectKey).(parent.Parent); ok {
		return obj, nil
	}
	return parent.Parent{}, errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
}
