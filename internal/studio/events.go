package studio

import "fashion-studio/internal/gemini"

type EventKind string

const (
	EventJobComposed      EventKind = "job.composed"
	EventJobFailed        EventKind = "job.failed"
	EventCutoutReady      EventKind = "job.cutout"
	EventVideoPromptReady EventKind = "job.video_prompt"
	EventVideoReady       EventKind = "video.ready"
	EventVideoFailed      EventKind = "video.failed"
	EventRunSettled       EventKind = "run.settled"
)

// Event reports a state change of the active run. Job holds a copy of the job
// after the change; Phase is set for EventRunSettled.
type Event struct {
	Kind  EventKind
	RunID uint64
	Job   Job
	Tier  gemini.VideoTier
	Phase Phase
}
