package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid job state transition")

// JobState is a step of the per-request job lifecycle.
type JobState string

const (
	StateReceived    JobState = "received"
	StateValidated   JobState = "validated"
	StateStored      JobState = "stored"
	StateTransformed JobState = "transformed"
	StateResponded   JobState = "responded"
	StateFailed      JobState = "failed"
)

var transitions = map[JobState][]JobState{
	StateReceived:    {StateValidated, StateFailed},
	StateValidated:   {StateStored, StateFailed},
	StateStored:      {StateTransformed, StateFailed},
	StateTransformed: {StateResponded, StateFailed},
}

// Job represents the work of a single upload. It is owned by the request
// that created it and describes every temp file that request allocated.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`    // original client filename
	SourcePath string    `json:"source_path"` // uploaded bytes
	ResultPath string    `json:"result_path"` // empty until transformed
	Format     string    `json:"format"`
	Quality    string    `json:"quality"`
	State      JobState  `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewJob creates a job in the received state with a fresh random ID.
func NewJob(filename string) *Job {
	return &Job{
		ID:        uuid.New(),
		Filename:  filename,
		State:     StateReceived,
		CreatedAt: time.Now(),
	}
}

// Advance moves the job to next if the lifecycle allows it.
func (j *Job) Advance(next JobState) error {
	for _, allowed := range transitions[j.State] {
		if allowed == next {
			j.State = next
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
}

// Terminal reports whether the job reached responded or failed.
func (j *Job) Terminal() bool {
	return j.State == StateResponded || j.State == StateFailed
}

// Paths returns the temp paths currently held by the job.
func (j *Job) Paths() []string {
	paths := make([]string, 0, 2)
	if j.SourcePath != "" {
		paths = append(paths, j.SourcePath)
	}
	if j.ResultPath != "" {
		paths = append(paths, j.ResultPath)
	}

	return paths
}
