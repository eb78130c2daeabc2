package gemini

import "fashion-studio/internal/asset"

// VideoTier selects the Veo model used for a video job.
type VideoTier string

const (
	TierPreview VideoTier = "preview"
	TierFinal   VideoTier = "final"
)

// LabeledImage is an image part preceded by a short caption so the model can
// tell references apart.
type LabeledImage struct {
	Label string
	Image asset.Asset
}

// ComposeRequest produces one camera angle of a photoshoot.
type ComposeRequest struct {
	Prompt      string
	Images      []LabeledImage
	AspectRatio string

	// Angle is logged with the call; it is not sent to the backend.
	Angle string
}

type DescribeRequest struct {
	Prompt string
	Images []asset.Asset
}

type VideoRequest struct {
	Prompt      string
	Seed        asset.Asset
	Tier        VideoTier
	AspectRatio string
}

// Operation is the decoded state of a long-running video job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
	Progress string
}
