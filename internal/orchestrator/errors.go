package orchestrator

import "errors"

var (
	// ErrEmptyTopic is returned by Start when the topic is empty or blank.
	ErrEmptyTopic = errors.New("orchestrator: topic is empty")

	// ErrRunInProgress is returned by Start when a run is active and the
	// orchestrator is configured to reject rather than supersede.
	ErrRunInProgress = errors.New("orchestrator: a run is already in progress")

	// ErrSuperseded is the result of a run invalidated by a later Start or
	// by Reset. Its outputs were discarded.
	ErrSuperseded = errors.New("orchestrator: run superseded")

	// ErrDuplicateStage is returned when a stage result is appended twice.
	ErrDuplicateStage = errors.New("orchestrator: stage already completed")

	// ErrUnknownStage is returned for stage IDs absent from the registry.
	ErrUnknownStage = errors.New("orchestrator: unknown stage")
)

// GenerationError reports that a stage's generation call failed. Error
// returns the underlying message unchanged so observers can surface it
// verbatim.
type GenerationError struct {
	Stage StageID
	Err   error
}

// NewGenerationError wraps err as a failure of stage.
func NewGenerationError(stage StageID, err error) *GenerationError {
	return &GenerationError{Stage: stage, Err: err}
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage named by a GenerationError in err's chain.
func FailedStage(err error) (StageID, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Stage, true
	}
	return "", false
}
