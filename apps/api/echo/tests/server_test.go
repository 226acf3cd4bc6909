package tests

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
)

func newTestServices(conf *core.Config) (core.Logger, *shared.Services) {
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)
	return logger, shared.NewServices(conf, logger, repos, emailsvc.NewConsoleServiceMock(conf, logger), broker)
}

func Test_server_healthz(t *testing.T) {
	logger, svcs := newTestServices(conf)
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		wantBody string
	}{
		{
			name:     "no dependency",
			checks:   map[string]HealthCheck{},
			wantCode: http.StatusOK,
			wantBody: fmt.Sprintf(`{"status":"ok","build":%q,"services":{}}`, conf.Build),
		},
		{
			name:     "all up",
			checks:   map[string]HealthCheck{"database": ok, "redis": ok},
			wantCode: http.StatusOK,
			wantBody: fmt.Sprintf(`{"status":"ok","build":%q,"services":{"database":"ok","redis":"ok"}}`, conf.Build),
		},
		{
			name:     "degraded",
			checks:   map[string]HealthCheck{"database": ok, "redis": down},
			wantCode: http.StatusServiceUnavailable,
			wantBody: fmt.Sprintf(`{"status":"degraded","build":%q,"services":{"database":"ok","redis":"unavailable"}}`, conf.Build),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(conf, logger, svcs, tt.checks)
			req, rec := newRequest(http.MethodGet, "/healthz")
			srv.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func Test_server_rateLimit(t *testing.T) {
	resetDB(t)

	limited := *conf
	limited.Server.RateLimitPerMinute = 2
	logger, svcs := newTestServices(&limited)
	srv := newServer(&limited, logger, svcs)

	body := marchallObj(t, LoginRequest{Username: "ghost", Password: "boo"})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, rec := newRequest(http.MethodPost, "/api/users/login", body)
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func Test_server_requestLogsOmitQuery(t *testing.T) {
	logger, svcs := newTestServices(conf)
	validate, translator := shared.NewValidator()
	var out bytes.Buffer
	srv := NewServer(ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Services:     svcs,
		Broker:       broker,
		ReqLogOutput: &out,
	})

	req, rec := newRequest(http.MethodGet, "/api/events?token=s3cr3t-t0k3n")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, out.String(), `"path":"/api/events"`)
	assert.NotContains(t, out.String(), "s3cr3t-t0k3n")
}
