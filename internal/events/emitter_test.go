package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"extci/internal/models"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) sink() Sink {
	return Sink{
		InsertOne: func(_ context.Context, evt models.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, evt)
			return nil
		},
		InsertMany: func(_ context.Context, evts []models.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, evts...)
			return nil
		},
	}
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Action
	}
	return out
}

func TestEmitterFlushesOnClose(t *testing.T) {
	rec := &recordingSink{}
	em := NewEmitterWithSink(rec.sink(), "test", Config{Buffer: 10, BatchSize: 100, FlushEvery: time.Hour})

	job := models.Job{ID: "job-1", SHA: "abc", Ref: "refs/heads/main", Status: models.JobStatusQueued}
	em.JobQueued(job)
	em.JobStarted(job)

	job.Status = models.JobStatusFailure
	job.Failure = models.FailureCompile
	em.JobFinished(job)

	em.Close()

	require.Equal(t, []string{"job.queued", "job.started", "job.failed"}, rec.actions())
	require.Equal(t, "compile", rec.events[2].Props["failure"])
	require.Equal(t, "test", rec.events[0].Props["deployment"])
	require.Equal(t, TargetJob, rec.events[0].TargetType)
}

func TestEmitterFlushesOnBatchSize(t *testing.T) {
	rec := &recordingSink{}
	em := NewEmitterWithSink(rec.sink(), "test", Config{Buffer: 10, BatchSize: 2, FlushEvery: time.Hour})
	defer em.Close()

	job := models.Job{ID: "job-2"}
	em.JobQueued(job)
	em.JobStarted(job)

	require.Eventually(t, func() bool {
		return len(rec.actions()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var em *Emitter
	em.JobQueued(models.Job{})
	em.JobFinished(models.Job{})
	em.PushReceived(models.PushEvent{}, "")
	em.Close()
}
