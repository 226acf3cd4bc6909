package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/fee"
)

type feeApi struct {
	*base
	svc fee.Service
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := feeApi{base: b, svc: b.svcs.Fee}

	fg := g.Group("/fees", jwt)
	fg.GET("", api.query)
	fg.POST("", api.create, adminMiddleware())
	fg.GET("/overdue", api.overdue, adminMiddleware())
	fg.GET("/stats", api.stats, adminMiddleware())
	fg.POST("/reminders", api.sendReminders, adminMiddleware())
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update, adminMiddleware())
	fg.DELETE("/:id", api.destroy, adminMiddleware())
	fg.POST("/:id/payments", api.pay)
}

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) query(ctx echo.Context) error {
	filter := new(fee.QueryFilter)
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
	if ctxUsr.IsTeacher() && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}
	ids, ok := sc.restrict(filter.StudentIDs)
	if !ok {
		return ctx.JSON(http.StatusOK, []fee.Fee{})
	}
	filter.StudentIDs = ids

	fees, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) overdue(ctx echo.Context) error {
	fees, err := api.svc.Overdue(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing overdue fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) stats(ctx echo.Context) error {
	filter := new(fee.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	stats, err := api.svc.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing fee stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *feeApi) sendReminders(ctx echo.Context) error {
	n, err := api.svc.SendReminders(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sending fee reminders")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

// readableFee returns the fee `id` if the context user is an admin, its student or the student's parent.
func (api *feeApi) readableFee(ctx echo.Context, id string) (fee.Fee, error) {
	f, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "getting fee")
	}
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return fee.Fee{}, err
	}
	if ctxUsr.IsAdmin() {
		return f, nil
	}
	if ctxUsr.IsTeacher() {
		return fee.Fee{}, errHttpForbidden
	}
	sc, err := api.studentScope(ctx, ctxUsr)
	if err != nil {
		return fee.Fee{}, err
	}
	if !sc.has(f.StudentID) {
		return fee.Fee{}, errHttpNotFound
	}
	return f, nil
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	f, err := api.readableFee(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) update(ctx echo.Context) error {
	var data fee.UpdateFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *feeApi) pay(ctx echo.Context) error {
	f, err := api.readableFee(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data fee.NewPayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	f, err = api.svc.Pay(ctx.Request().Context(), f.ID, data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "paying fee")
	}
	return ctx.JSON(http.StatusOK, f)
}
