package studio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fashion-studio/internal/gemini"
)

func TestAdvanceVideo(t *testing.T) {
	submitted := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	resolve := func(uri string) string { return uri + "?key=k" }
	pending := VideoSlot{State: VideoPending, Operation: "op", SubmittedAt: submitted}

	tests := []struct {
		name    string
		slot    VideoSlot
		op      gemini.Operation
		pollErr error
		now     time.Time
		limits  pollLimits
		want    VideoSlot
	}{
		{
			name: "resolved slot is untouched",
			slot: VideoSlot{State: VideoDone, ResultURL: "https://v"},
			op:   gemini.Operation{Done: true, Error: "late failure"},
			want: VideoSlot{State: VideoDone, ResultURL: "https://v"},
		},
		{
			name: "still running",
			slot: pending,
			op:   gemini.Operation{Name: "op", Progress: "40%"},
			want: VideoSlot{State: VideoPending, Operation: "op", SubmittedAt: submitted, Attempts: 1, Progress: "40%"},
		},
		{
			name:    "transient error keeps pending",
			slot:    pending,
			pollErr: errors.New("EOF"),
			want:    VideoSlot{State: VideoPending, Operation: "op", SubmittedAt: submitted, Attempts: 1, Progress: "retrying: EOF"},
		},
		{
			name: "done",
			slot: pending,
			op:   gemini.Operation{Done: true, VideoURI: "https://v"},
			want: VideoSlot{State: VideoDone, ResultURL: "https://v?key=k", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name: "failed with salvage link",
			slot: pending,
			op:   gemini.Operation{Done: true, Error: "boom", VideoURI: "https://v"},
			want: VideoSlot{State: VideoFailed, Error: "boom", DirectLink: "https://v?key=k", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name: "failed without link",
			slot: pending,
			op:   gemini.Operation{Done: true, Error: "boom"},
			want: VideoSlot{State: VideoFailed, Error: "boom", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name: "done without video",
			slot: pending,
			op:   gemini.Operation{Done: true},
			want: VideoSlot{State: VideoFailed, Error: "video job finished without a video", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name:   "attempt limit",
			slot:   pending,
			op:     gemini.Operation{Name: "op"},
			limits: pollLimits{maxAttempts: 1},
			want:   VideoSlot{State: VideoFailed, Error: "video generation timed out after 1 polls", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name:   "duration limit",
			slot:   pending,
			op:     gemini.Operation{Name: "op"},
			now:    submitted.Add(11 * time.Minute),
			limits: pollLimits{maxDuration: 10 * time.Minute},
			want:   VideoSlot{State: VideoFailed, Error: "video generation timed out after 10m0s", SubmittedAt: submitted, Attempts: 1},
		},
		{
			name:   "completion wins over limit",
			slot:   pending,
			op:     gemini.Operation{Done: true, VideoURI: "https://v"},
			limits: pollLimits{maxAttempts: 1},
			want:   VideoSlot{State: VideoDone, ResultURL: "https://v?key=k", SubmittedAt: submitted, Attempts: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			if now.IsZero() {
				now = submitted.Add(time.Minute)
			}
			got := advanceVideo(tt.slot, tt.op, tt.pollErr, now, tt.limits, resolve)
			assert.Equal(t, tt.want, got)
		})
	}
}
