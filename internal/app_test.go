package internal

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"extci/internal/apitest"
	"extci/internal/env"
	"extci/internal/errmsg"
	"extci/internal/jobs"
	"extci/internal/models"
	"extci/internal/operators"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

type nopDispatcher struct{}

func (nopDispatcher) Submit(context.Context, models.Job) error { return nil }
func (nopDispatcher) Cancel(context.Context, string) error     { return nil }

func testApp() *fiber.App {
	return NewApp(Deps{
		Jobs:          jobs.NewMemoryStore(),
		Submitter:     nopDispatcher{},
		Canceler:      nopDispatcher{},
		Auth:          operators.NewAuth("secret", operators.NewMemoryStore()),
		WebhookSecret: "hook-secret",
	})
}

func TestPingAndVersion(t *testing.T) {
	env.VERSION = "0.1.0"
	app := testApp()

	body, status := apitest.Do(t, app, apitest.Request{Method: http.MethodGet, Path: "/ci/ping"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "PONG", string(body))

	body, status = apitest.Do(t, app, apitest.Request{Method: http.MethodGet, Path: "/ci/version"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "v0.1.0", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	body, status := apitest.Do(t, testApp(), apitest.Request{Method: http.MethodGet, Path: "/ci/metrics"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, strings.Contains(string(body), "extci_queue_depth"))
}

func TestDrainModeRejectsWebhooks(t *testing.T) {
	env.Cfg.DrainMode = true
	defer func() { env.Cfg.DrainMode = false }()

	body, status := apitest.Do(t, testApp(), apitest.Request{Method: http.MethodPost, Path: "/ci/github/push", Body: []byte(`{}`)})
	apitest.ResponseErrorCheck(t, errmsg.Draining, body, status)
}
