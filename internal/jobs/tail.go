package jobs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var ErrNoLog = errors.New("job finished without a log")

// StatusWriter receives out-of-band stream notices.
type StatusWriter interface {
	WriteStatus(level, message string)
}

// PollInterval is how often Tail checks for new output.
var PollInterval = 200 * time.Millisecond

// Tail streams the log of job id line by line to w until the job finishes
// or ctx is canceled. It waits for queued jobs to start.
func Tail(ctx context.Context, store Store, id string, w io.Writer, sw StatusWriter) error {
	sw.WriteStatus("info", "waiting for log file")

	file, err := waitForLog(ctx, store, id)
	if err != nil {
		return err
	}
	defer file.Close()

	sw.WriteStatus("info", "log stream starting")

	t := &tailer{r: bufio.NewReader(file), w: w}
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if err := t.drain(); err != nil {
			return err
		}

		job, err := store.Get(context.Background(), id)
		if err == nil && job.Status.Done() {
			if err := t.drain(); err != nil {
				return err
			}
			return t.flush()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func waitForLog(ctx context.Context, store Store, id string) (*os.File, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		job, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if job.LogPath != "" {
			file, err := os.Open(job.LogPath)
			if err == nil {
				return file, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
		}
		if job.Status.Done() {
			return nil, ErrNoLog
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type tailer struct {
	r       *bufio.Reader
	w       io.Writer
	partial []byte
}

// drain writes every complete line available right now. A trailing line
// without a newline is held until it is completed.
func (t *tailer) drain() error {
	for {
		line, err := t.r.ReadBytes('\n')
		t.partial = append(t.partial, line...)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}
}

func (t *tailer) flush() error {
	if len(t.partial) == 0 {
		return nil
	}
	_, err := t.w.Write(bytes.TrimRight(t.partial, "\r\n"))
	t.partial = t.partial[:0]
	return err
}
