package events

import (
	"context"
	"time"

	"extci/internal/models"
)

const (
	ActorSystem = "system"
	ActorGitHub = "github"
)

const (
	TargetJob    = "job"
	TargetCommit = "git_commit"
)

func (e *Emitter) Emit(evt models.Event) {
	evt.TimeStamp = time.Now().UTC()
	if evt.Props == nil {
		evt.Props = map[string]any{}
	}
	evt.Props["deployment"] = e.deployment

	select {
	case e.buf <- evt:
	default:
		ctx, cancel := context.WithTimeout(
			context.Background(),
			2*time.Second,
		)
		defer cancel()

		_ = e.sink.InsertOne(ctx, evt)
	}
}
