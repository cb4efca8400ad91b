package events

import "extci/internal/models"

// PushReceived records a push that produced a job.
func (e *Emitter) PushReceived(evt models.PushEvent, jobID string) {
	if e == nil {
		return
	}

	e.Emit(models.Event{
		Action: "github.push.received",

		ActorRole: ActorGitHub,
		ActorID:   evt.DeliveryID,

		TargetType: TargetCommit,
		TargetID:   evt.SHA,

		Props: map[string]any{
			"ref":     evt.Ref,
			"message": evt.HeadCommit.Message,
			"jobId":   jobID,
		},
	})
}

// JobQueued records a job accepted by the dispatcher.
func (e *Emitter) JobQueued(job models.Job) {
	if e == nil {
		return
	}

	e.Emit(jobEvent("job.queued", job, nil))
}

// JobStarted records the beginning of a run.
func (e *Emitter) JobStarted(job models.Job) {
	if e == nil {
		return
	}

	e.Emit(jobEvent("job.started", job, nil))
}

// JobStepFinished records a completed, failed or skipped step.
func (e *Emitter) JobStepFinished(job models.Job, step models.StepResult) {
	if e == nil {
		return
	}

	props := map[string]any{
		"step":   step.Name,
		"kind":   string(step.Kind),
		"status": string(step.Status),
	}
	if step.ExitCode != nil {
		props["exitCode"] = *step.ExitCode
	}
	if step.StartedAt != nil && step.FinishedAt != nil {
		props["duration"] = step.FinishedAt.Sub(*step.StartedAt).Seconds()
	}

	e.Emit(jobEvent("job.step_finished", job, props))
}

// JobFinished records the terminal status of a job.
func (e *Emitter) JobFinished(job models.Job) {
	if e == nil {
		return
	}

	props := map[string]any{}
	if job.StartedAt != nil && job.FinishedAt != nil {
		props["duration"] = job.FinishedAt.Sub(*job.StartedAt).Seconds()
	}

	switch job.Status {
	case models.JobStatusSuccess:
		e.Emit(jobEvent("job.passed", job, props))
	case models.JobStatusCanceled:
		e.Emit(jobEvent("job.canceled", job, props))
	default:
		props["failure"] = string(job.Failure)
		props["error"] = job.Error
		e.Emit(jobEvent("job.failed", job, props))
	}
}

func jobEvent(action string, job models.Job, props map[string]any) models.Event {
	if props == nil {
		props = map[string]any{}
	}
	props["sha"] = job.SHA
	props["ref"] = job.Ref

	return models.Event{
		Action:     action,
		ActorID:    ActorSystem,
		ActorRole:  ActorSystem,
		TargetID:   job.ID,
		TargetType: TargetJob,
		Props:      props,
	}
}
