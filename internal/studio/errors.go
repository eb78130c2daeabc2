package studio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy               = errors.New("a generation is already running")
	ErrJobNotFound        = errors.New("job not found in the active run")
	ErrNoImages           = errors.New("job has no composed images")
	ErrVideoPromptPending = errors.New("video description is still being generated")
	ErrNoVideoPrompt      = errors.New("video description is unavailable")
	ErrVideoInFlight      = errors.New("video is already being generated")
	ErrNotSettled         = errors.New("run has not completed successfully")
	ErrInvalidDisplay     = errors.New("display is not available for this job")
	ErrUnknownTier        = errors.New("unknown video tier")
	ErrClosed             = errors.New("studio is closed")
)

// ValidationError lists the selections that must be made before generating.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required selections: " + strings.Join(e.Missing, ", ")
}

// CompositionError reports a failed composition. Angle is empty when every
// angle for the model failed.
type CompositionError struct {
	Model string
	Angle Angle
	Err   error
}

func (e *CompositionError) Error() string {
	switch {
	case e.Angle != "" && e.Err != nil:
		return fmt.Sprintf("composition failed for %s (%s): %v", e.Model, e.Angle, e.Err)
	case e.Angle != "":
		return fmt.Sprintf("composition failed for %s (%s)", e.Model, e.Angle)
	case e.Err != nil:
		return fmt.Sprintf("composition failed for %s: %v", e.Model, e.Err)
	default:
		return fmt.Sprintf("composition failed for %s", e.Model)
	}
}

func (e *CompositionError) Unwrap() error { return e.Err }
