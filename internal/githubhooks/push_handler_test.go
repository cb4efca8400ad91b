package githubhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"extci/internal/apitest"
	"extci/internal/dispatch"
	"extci/internal/errmsg"
	"extci/internal/metrics"
	"extci/internal/models"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "test-secret"
	testDeliveryID = "delivery-123"
	testRef        = "refs/heads/main"
	testCommitSHA  = "abcdef1234567890abcdef1234567890abcdef12"
)

type recorder struct {
	mu   sync.Mutex
	jobs []models.Job
	err  error
}

func (r *recorder) Submit(_ context.Context, job models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newApp(sub Submitter) *fiber.App {
	h := NewHandler(testSecret, sub)
	h.NewID = func() string { return "job-1" }

	app := fiber.New()
	Routes(app.Group("/ci"), h)
	return app
}

func pushBody(t *testing.T, message string, deleted bool) []byte {
	t.Helper()

	return apitest.MustJSON(t, map[string]any{
		"ref":     testRef,
		"after":   testCommitSHA,
		"deleted": deleted,
		"repository": map[string]any{
			"full_name": "rucaptcha/rucaptcha",
			"clone_url": "https://github.com/rucaptcha/rucaptcha.git",
		},
		"head_commit": map[string]any{
			"id":        testCommitSHA,
			"message":   message,
			"timestamp": time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"author":    map[string]string{"name": "Coder", "email": "coder@example.com"},
		},
	})
}

func signedHeaders(body []byte, event string) map[string]string {
	return map[string]string{
		"X-GitHub-Event":      event,
		"X-GitHub-Delivery":   testDeliveryID,
		"X-Hub-Signature-256": computeSignature(testSecret, body),
	}
}

func post(t *testing.T, app *fiber.App, body []byte, headers map[string]string) ([]byte, int) {
	return apitest.Do(t, app, apitest.Request{
		Method:  http.MethodPost,
		Path:    "/ci/github/push",
		Body:    body,
		Headers: headers,
	})
}

func TestPushQueuesJob(t *testing.T) {
	rec := &recorder{}
	app := newApp(rec)

	body := pushBody(t, "fix bug", false)
	resp, status := post(t, app, body, signedHeaders(body, "push"))
	require.Equal(t, http.StatusAccepted, status, string(resp))

	var accepted pushAccepted
	require.NoError(t, json.Unmarshal(resp, &accepted))
	require.Equal(t, "job-1", accepted.JobID)

	require.Len(t, rec.jobs, 1)
	job := rec.jobs[0]
	require.Equal(t, testRef, job.Ref)
	require.Equal(t, testCommitSHA, job.SHA)
	require.Equal(t, "fix bug", job.Message)
	require.Equal(t, "rucaptcha/rucaptcha", job.Repository)
	require.Equal(t, "https://github.com/rucaptcha/rucaptcha.git", job.CloneURL)
	require.Equal(t, testDeliveryID, job.DeliveryID)
	require.Equal(t, "Coder", job.Author.Name)
	require.Equal(t, models.JobStatusQueued, job.Status)
}

func TestPushWithSkipMarkerQueuesNothing(t *testing.T) {
	rec := &recorder{}
	app := newApp(rec)

	body := pushBody(t, "docs update [skip ci]", false)
	_, status := post(t, app, body, signedHeaders(body, "push"))

	require.Equal(t, http.StatusNoContent, status)
	require.Empty(t, rec.jobs)
}

func TestBranchDeletionQueuesNothing(t *testing.T) {
	rec := &recorder{}
	app := newApp(rec)

	body := apitest.MustJSON(t, map[string]any{
		"ref":     testRef,
		"after":   "0000000000000000000000000000000000000000",
		"deleted": true,
	})
	_, status := post(t, app, body, signedHeaders(body, "push"))

	require.Equal(t, http.StatusNoContent, status)
	require.Empty(t, rec.jobs)
}

func TestNonPushEventIgnored(t *testing.T) {
	rec := &recorder{}
	app := newApp(rec)

	body := []byte(`{"zen":"Keep it logically awesome."}`)
	_, status := post(t, app, body, signedHeaders(body, "ping"))

	require.Equal(t, http.StatusNoContent, status)
	require.Empty(t, rec.jobs)
}

func TestPushRejectsBadSignature(t *testing.T) {
	rec := &recorder{}
	app := newApp(rec)

	body := pushBody(t, "fix bug", false)
	headers := signedHeaders(body, "push")
	headers["X-Hub-Signature-256"] = fmt.Sprintf("sha256=%x", []byte("nope"))

	resp, status := post(t, app, body, headers)
	apitest.ResponseErrorCheck(t, errmsg.GitHubSignatureInvalid, resp, status)
	require.Empty(t, rec.jobs)
}

// rejectedWebhooks reads the rejected outcome of the webhook counter.
func rejectedWebhooks(t *testing.T) float64 {
	t.Helper()

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "extci_webhooks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == "rejected" {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestPushRequiresHeaders(t *testing.T) {
	app := newApp(&recorder{})
	body := pushBody(t, "fix bug", false)
	before := rejectedWebhooks(t)

	resp, status := post(t, app, body, map[string]string{})
	apitest.ResponseErrorCheck(t, errmsg.GitHubSignatureMissing, resp, status)

	headers := signedHeaders(body, "push")
	delete(headers, "X-GitHub-Delivery")
	resp, status = post(t, app, body, headers)
	apitest.ResponseErrorCheck(t, errmsg.GitHubDeliveryMissing, resp, status)

	headers = signedHeaders(body, "push")
	delete(headers, "X-GitHub-Event")
	resp, status = post(t, app, body, headers)
	apitest.ResponseErrorCheck(t, errmsg.GitHubEventMissing, resp, status)

	require.Equal(t, before+3, rejectedWebhooks(t))
}

func TestPushRejectsMalformedPayload(t *testing.T) {
	app := newApp(&recorder{})

	before := rejectedWebhooks(t)

	body := []byte(`{"ref": 42}`)
	resp, status := post(t, app, body, signedHeaders(body, "push"))
	apitest.ResponseErrorCheck(t, errmsg.GitHubInvalidPayload, resp, status)
	require.Equal(t, before+1, rejectedWebhooks(t))
}

func TestPushWhenQueueIsFull(t *testing.T) {
	app := newApp(&recorder{err: dispatch.ErrQueueFull})

	body := pushBody(t, "fix bug", false)
	resp, status := post(t, app, body, signedHeaders(body, "push"))
	apitest.ResponseErrorCheck(t, errmsg.JobQueueFull, resp, status)
}

func TestPushWithoutSecret(t *testing.T) {
	h := NewHandler("  ", &recorder{})
	app := fiber.New()
	Routes(app.Group("/ci"), h)

	body := pushBody(t, "fix bug", false)
	resp, status := post(t, app, body, signedHeaders(body, "push"))
	apitest.ResponseErrorCheck(t, errmsg.GitHubSecretNotConfigured, resp, status)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte("payload")
	sig := computeSignature(testSecret, payload)

	require.True(t, verifySignature(testSecret, sig, payload))
	require.True(t, verifySignature(testSecret, "SHA256="+sig[len(signaturePrefix):], payload))
	require.False(t, verifySignature("other", sig, payload))
	require.False(t, verifySignature(testSecret, sig[len(signaturePrefix):], payload))
}
