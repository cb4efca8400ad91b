package swagger

import (
	"encoding/json"
	"net/http"
	"testing"

	"extci/internal/apitest"
	"extci/internal/env"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

func TestDocIsServedWithVersion(t *testing.T) {
	env.VERSION = "1.2.3"

	app := fiber.New()
	Register(app)

	resp, status := apitest.Do(t, app, apitest.Request{Method: http.MethodGet, Path: "/ci/docs/doc.json"})
	require.Equal(t, http.StatusOK, status, string(resp))

	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(resp, &doc))
	require.Equal(t, "1.2.3", doc.Info.Version)
	require.Contains(t, doc.Paths, "/ci/github/push")
	require.Contains(t, doc.Paths, "/ci/jobs/{id}/cancel")
}
