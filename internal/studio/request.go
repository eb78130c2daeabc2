package studio

import (
	"fmt"
	"strings"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/prompt"
)

const (
	composeAspectRatio = "3:4"
	videoAspectRatio   = "9:16"
)

// jobPlan is the fully built work for one model. Every plan owns its slices.
type jobPlan struct {
	model    catalog.Item
	composes []composeCall
}

type composeCall struct {
	angle Angle
	req   gemini.ComposeRequest
}

func validate(sel catalog.Selections) error {
	var missing []string
	if len(sel.Products) == 0 {
		missing = append(missing, "product")
	}
	if len(sel.Models) == 0 {
		missing = append(missing, "model")
	}
	if sel.Pose == nil {
		missing = append(missing, "pose")
	} else if sel.Pose.Custom && strings.TrimSpace(sel.PosePrompt) == "" {
		missing = append(missing, "pose prompt")
	}
	if sel.Scene == nil && strings.TrimSpace(sel.Color) == "" {
		missing = append(missing, "scene or color")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func buildPlans(sel catalog.Selections, angles []Angle) ([]jobPlan, error) {
	if err := validate(sel); err != nil {
		return nil, err
	}

	plans := make([]jobPlan, 0, len(sel.Models))
	for _, model := range sel.Models {
		plan := jobPlan{model: model}
		for _, angle := range angles {
			plan.composes = append(plan.composes, composeCall{
				angle: angle,
				req: gemini.ComposeRequest{
					Prompt:      prompt.Compose(composeInput(sel, model, angle)),
					Images:      referenceImages(sel, model),
					AspectRatio: composeAspectRatio,
					Angle:       string(angle),
				},
			})
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func composeInput(sel catalog.Selections, model catalog.Item, angle Angle) prompt.ComposeInput {
	in := prompt.ComposeInput{
		Angle:        string(angle),
		ModelName:    model.Name,
		Products:     itemNames(sel.Products),
		Accessories:  itemNames(sel.Accessories),
		Color:        sel.Color,
		IdentityLock: sel.IdentityLock != nil && !sel.IdentityLock.IsZero(),
	}
	if sel.Scene != nil {
		in.SceneName = sel.Scene.Name
	}
	if sel.Pose != nil {
		in.PoseName = sel.Pose.Name
		in.PosePrompt = sel.Pose.Prompt
		if sel.Pose.Custom {
			in.PosePrompt = sel.PosePrompt
		}
	}
	return in
}

// referenceImages orders the parts as model, products, accessories, scene and
// finally the identity lock.
func referenceImages(sel catalog.Selections, model catalog.Item) []gemini.LabeledImage {
	images := make([]gemini.LabeledImage, 0, 3+len(sel.Products)+len(sel.Accessories))
	images = append(images, gemini.LabeledImage{
		Label: fmt.Sprintf("Model reference (%s):", model.Name),
		Image: model.Image,
	})
	for i, p := range sel.Products {
		images = append(images, gemini.LabeledImage{
			Label: fmt.Sprintf("Product %d (%s):", i+1, p.Name),
			Image: p.Image,
		})
	}
	for i, a := range sel.Accessories {
		images = append(images, gemini.LabeledImage{
			Label: fmt.Sprintf("Accessory %d (%s):", i+1, a.Name),
			Image: a.Image,
		})
	}
	if sel.Scene != nil {
		images = append(images, gemini.LabeledImage{
			Label: fmt.Sprintf("Scene (%s):", sel.Scene.Name),
			Image: sel.Scene.Image,
		})
	}
	if sel.IdentityLock != nil && !sel.IdentityLock.IsZero() {
		images = append(images, gemini.LabeledImage{
			Label: "Identity reference (keep this exact person):",
			Image: *sel.IdentityLock,
		})
	}
	return images
}

func describeRequest(sel catalog.Selections, job Job) gemini.DescribeRequest {
	in := prompt.DescribeInput{
		ModelName:   job.Model.Name,
		Products:    itemNames(sel.Products),
		Accessories: itemNames(sel.Accessories),
		Color:       sel.Color,
	}
	if sel.Scene != nil {
		in.SceneName = sel.Scene.Name
	}
	if sel.Pose != nil {
		in.PoseName = sel.Pose.Name
	}

	req := gemini.DescribeRequest{Prompt: prompt.Describe(in)}
	if job.Representative != nil {
		req.Images = append(req.Images, job.Representative.Image)
	}
	return req
}

func videoRequest(job Job, tier gemini.VideoTier) gemini.VideoRequest {
	return gemini.VideoRequest{
		Prompt:      job.VideoPrompt,
		Seed:        job.Representative.Image,
		Tier:        tier,
		AspectRatio: videoAspectRatio,
	}
}

func itemNames(items []catalog.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
