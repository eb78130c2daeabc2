package studio

import (
	"slices"
	"strings"
	"time"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
)

type Angle string

const (
	AngleFront        Angle = "front"
	AngleSide         Angle = "side"
	AngleThreeQuarter Angle = "three-quarter"
)

var DefaultAngles = []Angle{AngleFront, AngleSide, AngleThreeQuarter}

type AngleImage struct {
	Angle Angle
	Image asset.Asset
}

type JobStatus string

const (
	JobComposing JobStatus = "composing"
	JobComposed  JobStatus = "composed"
	JobFailed    JobStatus = "failed"
)

// VideoState tags a VideoSlot.
type VideoState string

const (
	VideoIdle       VideoState = "idle"
	VideoSubmitting VideoState = "submitting"
	VideoPending    VideoState = "pending"
	VideoDone       VideoState = "done"
	VideoFailed     VideoState = "failed"
)

// VideoSlot tracks one video request of a job. Operation is set only while
// pending; ResultURL only when done; DirectLink only when a failed job still
// produced a downloadable file.
type VideoSlot struct {
	State       VideoState
	Operation   string
	ResultURL   string
	DirectLink  string
	Error       string
	Progress    string
	Attempts    int
	SubmittedAt time.Time
}

func (v VideoSlot) Loading() bool {
	return v.State == VideoSubmitting || v.State == VideoPending
}

// Display names what the UI currently shows for a job.
type Display string

const (
	DisplayRepresentative Display = "representative"
	DisplayCutout         Display = "cutout"
	DisplayPreview        Display = "video:preview"
	DisplayFinal          Display = "video:final"
)

func AngleDisplay(a Angle) Display {
	return Display("angle:" + string(a))
}

// Job is the generation work for one model within a run.
type Job struct {
	ID     string
	RunID  uint64
	Model  catalog.Item
	Status JobStatus
	Error  string

	Images         []AngleImage
	Representative *AngleImage

	Cutout      *asset.Asset
	CutoutError string
	CuttingOut  bool

	VideoPrompt      string
	DescriptionError string
	Describing       bool

	Preview VideoSlot
	Final   VideoSlot

	Display Display
}

func (j *Job) slot(tier gemini.VideoTier) *VideoSlot {
	if tier == gemini.TierFinal {
		return &j.Final
	}
	return &j.Preview
}

// Video returns the slot of tier.
func (j Job) Video(tier gemini.VideoTier) VideoSlot {
	return *j.slot(tier)
}

func (j Job) clone() Job {
	j.Images = slices.Clone(j.Images)
	if j.Representative != nil {
		rep := *j.Representative
		j.Representative = &rep
	}
	if j.Cutout != nil {
		c := *j.Cutout
		j.Cutout = &c
	}
	return j
}

// keepMonotonic restores fields of old that a patch must never unset.
func keepMonotonic(old, next Job) Job {
	next.ID = old.ID
	next.RunID = old.RunID
	next.Model = old.Model
	if len(next.Images) < len(old.Images) {
		next.Images = old.Images
	}
	if old.Representative != nil {
		next.Representative = old.Representative
	}
	if old.Cutout != nil {
		next.Cutout = old.Cutout
	}
	if old.VideoPrompt != "" {
		next.VideoPrompt = old.VideoPrompt
	}
	return next
}

// pickRepresentative prefers the front angle, else the first image.
func pickRepresentative(images []AngleImage) AngleImage {
	for _, img := range images {
		if img.Angle == AngleFront {
			return img
		}
	}
	return images[0]
}

func displayAvailable(j Job, d Display) bool {
	switch {
	case d == DisplayRepresentative:
		return j.Representative != nil
	case d == DisplayCutout:
		return j.Cutout != nil
	case d == DisplayPreview:
		return j.Preview.State == VideoDone
	case d == DisplayFinal:
		return j.Final.State == VideoDone
	case strings.HasPrefix(string(d), "angle:"):
		angle := Angle(strings.TrimPrefix(string(d), "angle:"))
		return slices.ContainsFunc(j.Images, func(img AngleImage) bool { return img.Angle == angle })
	}
	return false
}

// ParseTier maps a user-facing tier name to a backend tier.
func ParseTier(value string) (gemini.VideoTier, error) {
	switch gemini.VideoTier(strings.ToLower(strings.TrimSpace(value))) {
	case "", gemini.TierPreview:
		return gemini.TierPreview, nil
	case gemini.TierFinal:
		return gemini.TierFinal, nil
	}
	return "", ErrUnknownTier
}

// ParseAngles converts configured angle names, dropping blanks and duplicates.
func ParseAngles(names []string) []Angle {
	out := make([]Angle, 0, len(names))
	for _, n := range names {
		a := Angle(strings.ToLower(strings.TrimSpace(n)))
		if a == "" || slices.Contains(out, a) {
			continue
		}
		out = append(out, a)
	}
	return out
}
