package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"extci/internal/models"

	"github.com/stretchr/testify/require"
)

type lines struct {
	mu     sync.Mutex
	got    []string
	status []string
}

func (l *lines) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, string(p))
	return len(p), nil
}

func (l *lines) WriteStatus(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = append(l.status, level+": "+message)
}

func (l *lines) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.got...)
}

func TestTailFollowsRunningJob(t *testing.T) {
	PollInterval = 10 * time.Millisecond

	ctx := context.Background()
	store := NewMemoryStore()
	job := models.Job{ID: "j1", Status: models.JobStatusQueued}
	require.NoError(t, store.Create(ctx, job))

	out := &lines{}
	done := make(chan error, 1)
	go func() { done <- Tail(ctx, store, "j1", out, out) }()

	path := filepath.Join(t.TempDir(), "j1.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	job.Status = models.JobStatusRunning
	job.LogPath = path
	require.NoError(t, store.Update(ctx, job))

	_, err = f.WriteString("compiling\npart")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(out.Lines()) == 1 }, 5*time.Second, 5*time.Millisecond)

	_, err = f.WriteString("ial line\nlast")
	require.NoError(t, err)

	job.Status = models.JobStatusSuccess
	require.NoError(t, store.Update(ctx, job))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not stop after the job finished")
	}

	require.Equal(t, []string{"compiling", "partial line", "last"}, out.Lines())
	require.Contains(t, out.status, "info: log stream starting")
}

func TestTailFinishedWithoutLog(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, models.Job{ID: "j2", Status: models.JobStatusCanceled}))

	out := &lines{}
	require.ErrorIs(t, Tail(ctx, store, "j2", out, out), ErrNoLog)
}

func TestTailUnknownJob(t *testing.T) {
	out := &lines{}
	require.ErrorIs(t, Tail(context.Background(), NewMemoryStore(), "nope", out, out), ErrNotFound)
}

func TestTailStopsOnCancel(t *testing.T) {
	PollInterval = 10 * time.Millisecond

	store := NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), models.Job{ID: "j3", Status: models.JobStatusQueued}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := &lines{}
	require.ErrorIs(t, Tail(ctx, store, "j3", out, out), context.DeadlineExceeded)
}
