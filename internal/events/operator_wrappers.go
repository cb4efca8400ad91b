package events

import "extci/internal/models"

const TargetOperator = "operator"

func (e *Emitter) OperatorLogin(username string) {
	if e == nil {
		return
	}

	e.Emit(operatorEvent("operator.login", username, username, nil))
}

// JobCancelRequested records an operator asking to stop a job.
func (e *Emitter) JobCancelRequested(username, jobID string) {
	if e == nil {
		return
	}

	e.Emit(operatorEvent("job.cancel_requested", username, jobID, map[string]any{"jobId": jobID}))
}

func operatorEvent(action, username, target string, props map[string]any) models.Event {
	targetType := TargetOperator
	if target != username {
		targetType = TargetJob
	}

	return models.Event{
		Action:     action,
		ActorID:    username,
		ActorRole:  TargetOperator,
		TargetID:   target,
		TargetType: targetType,
		Props:      props,
	}
}
