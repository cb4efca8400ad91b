package githubhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"extci/internal/dispatch"
	"extci/internal/errmsg"
	"extci/internal/events"
	"extci/internal/logging"
	"extci/internal/metrics"
	"extci/internal/models"
	"extci/internal/trigger"
	"extci/internal/utils"

	webhook "github.com/go-playground/webhooks/v6/github"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GitHub header keys and values that drive webhook validation.
const (
	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
	deliveryHeader  = "X-GitHub-Delivery"
	signaturePrefix = "sha256="
)

// Submitter accepts jobs for execution.
type Submitter interface {
	Submit(ctx context.Context, job models.Job) error
}

type Handler struct {
	Secret string
	Jobs   Submitter
	// NewID generates job ids; nil uses random UUIDs.
	NewID func() string

	log *logrus.Entry
}

func NewHandler(secret string, jobs Submitter) *Handler {
	return &Handler{
		Secret: strings.TrimSpace(secret),
		Jobs:   jobs,
		NewID:  uuid.NewString,
		log:    logging.Component("githubhooks"),
	}
}

type pushAccepted struct {
	JobID string `json:"jobId"`
}

// push validates a GitHub push hook and queues a job for its head commit.
//
//	@Summary	Receive a GitHub push webhook
//	@Tags		github
//	@Accept		json
//	@Produce	json
//	@Param		X-GitHub-Event		header	string	true	"event name"
//	@Param		X-GitHub-Delivery	header	string	true	"delivery id"
//	@Param		X-Hub-Signature-256	header	string	true	"payload HMAC"
//	@Success	202	{object}	pushAccepted
//	@Success	204
//	@Failure	400	{object}	errmsg._GitHubInvalidPayload
//	@Failure	401	{object}	errmsg._GitHubSignatureInvalid
//	@Failure	503	{object}	errmsg._JobQueueFull
//	@Router		/ci/github/push [post]
func (h *Handler) push(c fiber.Ctx) error {
	if h.Secret == "" {
		return utils.StatusError(c, errmsg.GitHubSecretNotConfigured)
	}

	payload := c.Body()

	signature := strings.TrimSpace(c.Get(signatureHeader))
	if signature == "" {
		metrics.Webhook("rejected")
		return utils.StatusError(c, errmsg.GitHubSignatureMissing)
	}

	if !verifySignature(h.Secret, signature, payload) {
		metrics.Webhook("rejected")
		return utils.StatusError(c, errmsg.GitHubSignatureInvalid)
	}

	deliveryID := strings.TrimSpace(c.Get(deliveryHeader))
	if deliveryID == "" {
		metrics.Webhook("rejected")
		return utils.StatusError(c, errmsg.GitHubDeliveryMissing)
	}

	eventType := strings.TrimSpace(c.Get(eventHeader))
	if eventType == "" {
		metrics.Webhook("rejected")
		return utils.StatusError(c, errmsg.GitHubEventMissing)
	}

	// ping and every other hook are acknowledged without action
	if eventType != string(webhook.PushEvent) {
		metrics.Webhook("ignored")
		return c.SendStatus(fiber.StatusNoContent)
	}

	evt, err := ParsePush(deliveryID, payload)
	if err != nil {
		metrics.Webhook("rejected")
		return utils.StatusError(c, errmsg.GitHubInvalidPayload)
	}

	log := h.log.WithFields(logrus.Fields{"delivery": deliveryID, "ref": evt.Ref, "sha": evt.SHA})

	decision := trigger.Decide(evt)
	metrics.Webhook(decision.String())

	switch decision {
	case trigger.Skip:
		log.Info("push skipped by commit message")
		return c.SendStatus(fiber.StatusNoContent)
	case trigger.Ignore:
		log.Debug("push has nothing to build")
		return c.SendStatus(fiber.StatusNoContent)
	}

	job := models.NewJob(h.NewID(), evt)
	if err := h.Jobs.Submit(c.RequestCtx(), job); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull), errors.Is(err, dispatch.ErrStopped):
			log.WithError(err).Warn("push not queued")
			return utils.StatusError(c, errmsg.JobQueueFull)
		default:
			return utils.StatusError(c, errmsg.InternalServerError(err))
		}
	}

	events.Em.PushReceived(evt, job.ID)
	log.WithField("job", job.ID).Info("push accepted")

	return c.Status(fiber.StatusAccepted).JSON(pushAccepted{JobID: job.ID})
}

// verifySignature compares a payload MAC against the expected secret-derived value.
func verifySignature(secret, signature string, payload []byte) bool {
	normalized := strings.ToLower(signature)
	if !strings.HasPrefix(normalized, signaturePrefix) {
		return false
	}

	expected := computeSignature(secret, payload)
	return hmac.Equal([]byte(expected), []byte(normalized))
}

// computeSignature renders the GitHub sha256= prefixed HMAC in hex form.
func computeSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// ParsePush decodes a GitHub push payload into a PushEvent.
func ParsePush(deliveryID string, payload []byte) (models.PushEvent, error) {
	var pl webhook.PushPayload
	if err := json.Unmarshal(payload, &pl); err != nil {
		return models.PushEvent{}, err
	}
	return convertPush(deliveryID, pl)
}

// convertPush normalises the webhook payload into a PushEvent.
func convertPush(deliveryID string, pl webhook.PushPayload) (models.PushEvent, error) {
	evt := models.PushEvent{
		DeliveryID: deliveryID,
		Ref:        strings.TrimSpace(pl.Ref),
		SHA:        strings.TrimSpace(pl.After),
		Repository: pl.Repository.FullName,
		CloneURL:   pl.Repository.CloneURL,
		Deleted:    pl.Deleted,
	}
	if evt.Ref == "" {
		return evt, errors.New("missing ref")
	}
	if evt.Deleted {
		return evt, nil
	}

	if id := strings.TrimSpace(pl.HeadCommit.ID); id != "" {
		evt.SHA = id
	}
	if evt.SHA == "" {
		return evt, errors.New("missing head commit")
	}

	evt.HeadCommit = models.CommitRef{
		Message: pl.HeadCommit.Message,
		Author: models.CommitAuthor{
			Name:  strings.TrimSpace(pl.HeadCommit.Author.Name),
			Email: strings.TrimSpace(pl.HeadCommit.Author.Email),
		},
	}

	if ts := strings.TrimSpace(pl.HeadCommit.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return evt, err
		}
		evt.HeadCommit.Timestamp = parsed
	}

	return evt, nil
}
