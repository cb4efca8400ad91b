// Package apitest drives fiber apps in handler tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"extci/internal/errmsg"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

// Request is one call against the app under test.
type Request struct {
	Method  string
	Path    string
	Body    []byte
	Token   string
	Headers map[string]string
}

func Do(t *testing.T, app *fiber.App, r Request) (bodyBytes []byte, statusCode int) {
	t.Helper()

	req, err := http.NewRequest(r.Method, r.Path, bytes.NewBuffer(r.Body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if r.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.Token))
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	res, err := app.Test(req, fiber.TestConfig{Timeout: 30 * time.Second})
	require.NoError(t, err)
	defer res.Body.Close()

	bodyBytes, err = io.ReadAll(res.Body)
	require.NoError(t, err)

	return bodyBytes, res.StatusCode
}

func ResponseErrorCheck(t *testing.T, serr errmsg.StatusError, bodyBytes []byte, statusCode int) {
	t.Helper()

	require.Equal(t, serr.StatusCode, statusCode)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(bodyBytes, &body))
	require.Equal(t, serr.Message, body.Message)
}

// MustJSON encodes v or fails the test.
func MustJSON(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
