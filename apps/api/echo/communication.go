package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/user"
)

type communicationApi struct {
	*base
	svc communication.Service
}

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

func registerCommunicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base) {
	api := communicationApi{base: b, svc: b.svcs.Communication}
	staff := portalMiddleware(user.RoleAdmin, user.RoleTeacher)

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.queryAnnouncements)
	ag.POST("", api.createAnnouncement, staff)
	ag.GET("/:id", api.retrieveAnnouncement)
	ag.PUT("/:id", api.updateAnnouncement, staff)
	ag.DELETE("/:id", api.destroyAnnouncement, staff)
	ag.POST("/:id/read", api.readAnnouncement)

	mg := g.Group("/messages", jwt)
	mg.GET("", api.queryMessages)
	mg.POST("", api.sendMessage)
	mg.GET("/conversations", api.conversations)
	mg.POST("/conversations/:id/read", api.readConversation)
	mg.POST("/:id/read", api.readMessage)

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.queryNotifications)
	ng.POST("", api.notify, adminMiddleware())
	ng.POST("/read", api.readNotifications)
	ng.DELETE("/:id", api.destroyNotification)

	g.GET("/unread-counts", api.unreadCounts, jwt)
}

func (api *communicationApi) createAnnouncement(ctx echo.Context) error {
	var data communication.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.CreateAnnouncement(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *communicationApi) queryAnnouncements(ctx echo.Context) error {
	filter := new(communication.AnnouncementFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	v, err := api.viewer(ctx)
	if err != nil {
		return err
	}
	as, err := api.svc.Announcements(ctx.Request().Context(), v, filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if as == nil {
		as = []communication.Announcement{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *communicationApi) retrieveAnnouncement(ctx echo.Context) error {
	v, err := api.viewer(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.GetAnnouncement(ctx.Request().Context(), ctx.Param("id"), v)
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *communicationApi) updateAnnouncement(ctx echo.Context) error {
	v, err := api.viewer(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.GetAnnouncement(ctx.Request().Context(), ctx.Param("id"), v)
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}

	var data communication.UpdateAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err = data.Validate(a, api.validate); err != nil {
		return err
	}

	a, err = api.svc.UpdateAnnouncement(ctx.Request().Context(), a, data, v.User)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *communicationApi) destroyAnnouncement(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAnnouncement(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *communicationApi) readAnnouncement(ctx echo.Context) error {
	v, err := api.viewer(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkAnnouncementRead(ctx.Request().Context(), ctx.Param("id"), v); err != nil {
		return errors.Wrap(err, "marking announcement as read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Announcement marked as read."})
}

func (api *communicationApi) sendMessage(ctx echo.Context) error {
	var data communication.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.SendMessage(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// queryMessages only ever lists messages sent or received by the context user.
func (api *communicationApi) queryMessages(ctx echo.Context) error {
	filter := new(communication.MessageFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	filter.UserID = ctxUsr.ID

	msgs, err := api.svc.Messages(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []communication.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *communicationApi) conversations(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	convs, err := api.svc.Conversations(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "listing conversations")
	}
	if convs == nil {
		convs = []communication.Conversation{}
	}
	return ctx.JSON(http.StatusOK, convs)
}

func (api *communicationApi) readMessage(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkMessageRead(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "marking message as read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Message marked as read."})
}

func (api *communicationApi) readConversation(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkConversationRead(ctx.Request().Context(), ctx.Param("id"), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking conversation as read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *communicationApi) notify(ctx echo.Context) error {
	var data communication.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ns, err := api.svc.Notify(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "sending notifications")
	}
	return ctx.JSON(http.StatusCreated, ns)
}

func (api *communicationApi) queryNotifications(ctx echo.Context) error {
	filter := new(communication.NotificationFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	filter.UserID = ctxUsr.ID

	ns, err := api.svc.Notifications(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ns == nil {
		ns = []communication.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

// readNotifications marks the listed notifications as read, or all of them when no id is given.
func (api *communicationApi) readNotifications(ctx echo.Context) error {
	var data MarkReadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkReadRequest")
	}

	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkNotificationsRead(ctx.Request().Context(), ctxUsr, core.CleanStrings(data.IDs)...)
	if err != nil {
		return errors.Wrap(err, "marking notifications as read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *communicationApi) destroyNotification(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteNotification(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *communicationApi) unreadCounts(ctx echo.Context) error {
	v, err := api.viewer(ctx)
	if err != nil {
		return err
	}
	counts, err := api.svc.UnreadCounts(ctx.Request().Context(), v)
	if err != nil {
		return errors.Wrap(err, "counting unread items")
	}
	return ctx.JSON(http.StatusOK, counts)
}
