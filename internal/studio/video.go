package studio

import (
	"fmt"
	"time"

	"fashion-studio/internal/gemini"
)

type pollLimits struct {
	maxAttempts int
	maxDuration time.Duration
}

// advanceVideo moves a pending slot forward by one poll result. Slots that are
// not pending come back unchanged. A poll error counts as an attempt but does
// not resolve the slot.
func advanceVideo(slot VideoSlot, op gemini.Operation, pollErr error, now time.Time, lim pollLimits, resolve func(string) string) VideoSlot {
	if slot.State != VideoPending {
		return slot
	}
	slot.Attempts++

	switch {
	case pollErr != nil:
		slot.Progress = "retrying: " + pollErr.Error()
	case op.Done && op.Error == "" && op.VideoURI != "":
		slot.State = VideoDone
		slot.ResultURL = resolve(op.VideoURI)
		slot.Operation = ""
		slot.Error = ""
		slot.Progress = ""
	case op.Done:
		slot.State = VideoFailed
		slot.Operation = ""
		slot.Progress = ""
		slot.Error = op.Error
		if slot.Error == "" {
			slot.Error = "video job finished without a video"
		}
		if op.VideoURI != "" {
			slot.DirectLink = resolve(op.VideoURI)
		}
	default:
		slot.Progress = op.Progress
	}

	if slot.State != VideoPending {
		return slot
	}
	if lim.maxAttempts > 0 && slot.Attempts >= lim.maxAttempts {
		return timedOut(slot, fmt.Sprintf("video generation timed out after %d polls", slot.Attempts))
	}
	if lim.maxDuration > 0 && !slot.SubmittedAt.IsZero() && now.Sub(slot.SubmittedAt) >= lim.maxDuration {
		return timedOut(slot, fmt.Sprintf("video generation timed out after %s", lim.maxDuration))
	}
	return slot
}

func timedOut(slot VideoSlot, msg string) VideoSlot {
	slot.State = VideoFailed
	slot.Operation = ""
	slot.Progress = ""
	slot.Error = msg
	slot.DirectLink = ""
	return slot
}
