package buildpipeline

import "time"

// Stage describes a step of building one unit.
type Stage string

const (
	// StageLoad reads and resolves the unit file.
	StageLoad Stage = "load"
	// StageGenerate builds the descriptors.
	StageGenerate Stage = "generate"
	// StageEmit renders LLVM IR.
	StageEmit Stage = "emit"
	// StageWrite writes the .ll file.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusCached indicates the result came from the build cache.
	StatusCached Status = "cached"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a unit (or for the whole build when File is empty).
type Event struct {
	File        string
	Stage       Stage
	Status      Status
	Err         error
	Elapsed     time.Duration
	Descriptors int // set on StatusDone and StatusCached
}

// Finished reports whether the unit reached a terminal state.
func (e Event) Finished() bool {
	switch e.Status {
	case StatusDone, StatusCached, StatusError:
		return e.File != ""
	default:
		return false
	}
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
