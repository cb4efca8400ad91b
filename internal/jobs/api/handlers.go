package api

import (
	"context"
	"errors"
	"os"
	"strconv"

	"extci/internal/dispatch"
	"extci/internal/errmsg"
	"extci/internal/events"
	"extci/internal/jobs"
	"extci/internal/models"
	"extci/internal/operators"
	"extci/internal/utils"
	"extci/internal/ws"

	"github.com/gofiber/fiber/v3"
)

const maxListLimit = 200

// Canceler stops queued or running jobs.
type Canceler interface {
	Cancel(ctx context.Context, id string) error
}

type Handlers struct {
	Store    jobs.Store
	Canceler Canceler
}

// list returns recent jobs, newest first.
//
//	@Summary	List jobs
//	@Tags		jobs
//	@Produce	json
//	@Param		ref		query		string	false	"full git ref"
//	@Param		status	query		string	false	"job status"
//	@Param		limit	query		int		false	"max results"
//	@Success	200		{array}		models.Job
//	@Failure	400		{object}	errmsg._JobInvalidFilter
//	@Router		/ci/jobs [get]
func (h *Handlers) list(c fiber.Ctx) error {
	filter := jobs.ListFilter{
		Ref:    c.Query("ref"),
		Status: models.JobStatus(c.Query("status")),
		Limit:  50,
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return utils.StatusError(c, errmsg.JobInvalidFilter)
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return utils.StatusError(c, errmsg.JobInvalidFilter)
		}
		filter.Limit = limit
	}

	list, err := h.Store.List(c.RequestCtx(), filter)
	if err != nil {
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}
	return c.JSON(list)
}

// get returns one job with its step results.
//
//	@Summary	Get a job
//	@Tags		jobs
//	@Produce	json
//	@Param		id	path		string	true	"job id"
//	@Success	200	{object}	models.Job
//	@Failure	404	{object}	errmsg._JobNotFound
//	@Router		/ci/jobs/{id} [get]
func (h *Handlers) get(c fiber.Ctx) error {
	job, serr := h.lookup(c)
	if serr != errmsg.EmptyStatusError {
		return utils.StatusError(c, serr)
	}
	return c.JSON(job)
}

// log returns the job log as plain text.
//
//	@Summary	Download a job log
//	@Tags		jobs
//	@Produce	plain
//	@Param		id	path	string	true	"job id"
//	@Success	200
//	@Failure	404	{object}	errmsg._JobNotFound
//	@Router		/ci/jobs/{id}/log [get]
func (h *Handlers) log(c fiber.Ctx) error {
	job, serr := h.lookup(c)
	if serr != errmsg.EmptyStatusError {
		return utils.StatusError(c, serr)
	}

	if job.LogPath == "" {
		return utils.StatusError(c, errmsg.JobLogUnavailable)
	}

	data, err := os.ReadFile(job.LogPath)
	if errors.Is(err, os.ErrNotExist) {
		return utils.StatusError(c, errmsg.JobLogUnavailable)
	}
	if err != nil {
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(data)
}

// follow upgrades to a websocket and tails the job log until it finishes.
func (h *Handlers) follow(c fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.Store.Get(c.RequestCtx(), id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return utils.StatusError(c, errmsg.JobNotFound)
		}
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}

	return ws.Stream(c, func(ctx context.Context, w *ws.LogWriter) error {
		return jobs.Tail(ctx, h.Store, id, w, w)
	})
}

// cancel stops a queued or running job.
//
//	@Summary	Cancel a job
//	@Tags		jobs
//	@Security	BearerAuth
//	@Param		id	path	string	true	"job id"
//	@Success	202
//	@Failure	401	{object}	errmsg._OperatorNoToken
//	@Failure	404	{object}	errmsg._JobNotFound
//	@Failure	409	{object}	errmsg._JobAlreadyFinished
//	@Router		/ci/jobs/{id}/cancel [post]
func (h *Handlers) cancel(c fiber.Ctx) error {
	id := c.Params("id")

	err := h.Canceler.Cancel(c.RequestCtx(), id)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return utils.StatusError(c, errmsg.JobNotFound)
	case errors.Is(err, dispatch.ErrJobFinished):
		return utils.StatusError(c, errmsg.JobAlreadyFinished)
	case err != nil:
		return utils.StatusError(c, errmsg.InternalServerError(err))
	}

	events.Em.JobCancelRequested(operators.Current(c).Username, id)
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *Handlers) lookup(c fiber.Ctx) (*models.Job, errmsg.StatusError) {
	job, err := h.Store.Get(c.RequestCtx(), c.Params("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		return nil, errmsg.JobNotFound
	}
	if err != nil {
		return nil, errmsg.InternalServerError(err)
	}
	return job, errmsg.EmptyStatusError
}
