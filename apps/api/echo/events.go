package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const eventsKeepAlive = 25 * time.Second

type eventApi struct {
	*base
	broker core.EventBroker
}

// registerEventAPI streams data change events as server-sent events.
// EventSource cannot set headers, so `jwt` reads the token from the query string.
func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, b *base, broker core.EventBroker) {
	api := eventApi{base: b, broker: broker}
	g.GET("/events", api.stream, jwt)
}

func (api *eventApi) stream(ctx echo.Context) error {
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}

	var topics []string
	if t := ctx.QueryParam("topics"); t != "" {
		topics = core.CleanStrings(strings.Split(t, ","), true /* lower */)
	}

	c := ctx.Request().Context()
	events, err := api.broker.Subscribe(c, topics...)
	if err != nil {
		return errors.Wrap(err, "subscribing to events")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(eventsKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-c.Done():
			return nil
		case <-ticker.C:
			if _, err = fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if !evt.VisibleTo(ctxUsr.ID, ctxUsr.Roles) {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				api.logger.Error("encoding event", err, map[string]interface{}{"topic": evt.Topic})
				continue
			}
			if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Topic, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
