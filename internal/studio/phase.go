package studio

import (
	"fmt"
	"slices"
)

// Phase is the run-level state. Only image composition blocks; cutout,
// description and video are tracked per job.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseLoadingImage Phase = "loading-image"
	PhaseSuccess      Phase = "success"
	PhaseError        Phase = "error"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseLoadingImage, PhaseError},
	PhaseLoadingImage: {PhaseSuccess, PhaseError, PhaseIdle},
	PhaseSuccess:      {PhaseLoadingImage, PhaseError, PhaseIdle},
	PhaseError:        {PhaseLoadingImage, PhaseError, PhaseIdle},
}

// CanGenerate gates the Generate control.
func (p Phase) CanGenerate() bool {
	return p != PhaseLoadingImage
}

// Settled reports whether composition finished for the current run.
func (p Phase) Settled() bool {
	return p == PhaseSuccess || p == PhaseError
}

func (p Phase) to(next Phase) (Phase, error) {
	if !slices.Contains(phaseTransitions[p], next) {
		return p, fmt.Errorf("invalid phase transition %s -> %s", p, next)
	}
	return next, nil
}
