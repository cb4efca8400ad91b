package models

import (
	"time"
)

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusSuccess  JobStatus = "success"
	JobStatusFailure  JobStatus = "failure"
	JobStatusCanceled JobStatus = "canceled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailure, JobStatusCanceled:
		return true
	}
	return false
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSuccess, JobStatusFailure, JobStatusCanceled:
		return true
	}
	return false
}

// FailureKind classifies why a job failed.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureProvisioning FailureKind = "provisioning"
	FailureCompile      FailureKind = "compile"
	FailureTest         FailureKind = "test"
)

type StepKind string

const (
	StepKindSetup   StepKind = "setup"
	StepKindCompile StepKind = "compile"
	StepKindTest    StepKind = "test"
)

type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusPassed  StepStatus = "passed"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

type StepResult struct {
	Name       string     `bson:"name" json:"name"`
	Kind       StepKind   `bson:"kind" json:"kind"`
	Status     StepStatus `bson:"status" json:"status"`
	ExitCode   *int       `bson:"exitCode,omitempty" json:"exitCode,omitempty"`
	StartedAt  *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt *time.Time `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
	Error      string     `bson:"error,omitempty" json:"error,omitempty"`
}

type Job struct {
	ID         string       `bson:"id" json:"id"`
	DeliveryID string       `bson:"deliveryId,omitempty" json:"deliveryId,omitempty"`
	Repository string       `bson:"repository,omitempty" json:"repository,omitempty"`
	CloneURL   string       `bson:"cloneUrl,omitempty" json:"cloneUrl,omitempty"`
	Ref        string       `bson:"ref" json:"ref"`
	SHA        string       `bson:"sha" json:"sha"`
	Message    string       `bson:"message" json:"message"`
	Author     CommitAuthor `bson:"author" json:"author"`

	Status   JobStatus    `bson:"status" json:"status"`
	Failure  FailureKind  `bson:"failure,omitempty" json:"failure,omitempty"`
	Steps    []StepResult `bson:"steps" json:"steps"`
	CacheKey string       `bson:"cacheKey,omitempty" json:"cacheKey,omitempty"`
	CacheHit bool         `bson:"cacheHit" json:"cacheHit"`
	LogPath  string       `bson:"logPath" json:"logPath"`
	Error    string       `bson:"error,omitempty" json:"error,omitempty"`

	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	StartedAt  *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt *time.Time `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}

// NewJob seeds a queued job from a push event.
func NewJob(id string, evt PushEvent) Job {
	return Job{
		ID:         id,
		DeliveryID: evt.DeliveryID,
		Repository: evt.Repository,
		CloneURL:   evt.CloneURL,
		Ref:        evt.Ref,
		SHA:        evt.SHA,
		Message:    evt.HeadCommit.Message,
		Author:     evt.HeadCommit.Author,
		Status:     JobStatusQueued,
		Steps:      []StepResult{},
		CreatedAt:  time.Now().UTC(),
	}
}

// Succeeded reports whether the job finished successfully.
func (j Job) Succeeded() bool {
	return j.Status == JobStatusSuccess
}

// Step returns the step result with the given name.
func (j *Job) Step(name string) (*StepResult, bool) {
	for i := range j.Steps {
		if j.Steps[i].Name == name {
			return &j.Steps[i], true
		}
	}
	return nil, false
}
