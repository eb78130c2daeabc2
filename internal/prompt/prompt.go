// Package prompt holds the instruction text sent to the generation backend.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

const CutoutInstruction = `TASK: Background removal.
- Keep the person, garments and accessories exactly as they are.
- Remove everything else and return the subject on a fully transparent background (PNG with alpha).
- Do not re-light, re-pose, crop or restyle the subject.
- Images only. No text, no JSON.`

const IsolateInstruction = `TASK: Model reference cleanup.
- Keep the person's identity, face, body shape, skin tone and hair exactly.
- Replace the background with a seamless neutral light-grey studio backdrop.
- Full body, standing, even soft lighting, no props.
- Images only. No text, no JSON.`

// ComposeInput describes one camera angle of a photoshoot.
type ComposeInput struct {
	Angle        string
	ModelName    string
	Products     []string
	Accessories  []string
	SceneName    string
	Color        string
	PoseName     string
	PosePrompt   string
	IdentityLock bool
}

type DescribeInput struct {
	ModelName   string
	Products    []string
	Accessories []string
	SceneName   string
	Color       string
	PoseName    string
}

var angleDirections = map[string][]string{
	"front": {
		"Camera faces the model straight on at chest height",
		"Full body in frame, garments fully visible",
	},
	"side": {
		"Camera at 90 degrees to the model, true profile",
		"Show garment silhouette and drape from the side",
	},
	"three-quarter": {
		"Camera rotated about 45 degrees from front",
		"Keep face partially visible, emphasise garment depth",
	},
	"back": {
		"Camera behind the model",
		"Show back construction of the garments",
	},
}

// Compose builds the instruction for one angle. Reference images are attached
// by the caller in the order model, products, accessories, scene, identity.
func Compose(in ComposeInput) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Fashion photoshoot compositing. Dress the model in the referenced products and stage the shot.\n\n")

	b.WriteString("REFERENCES:\n")
	b.WriteString("- Model: " + orUnnamed(in.ModelName) + " (keep this person's identity, face and body exactly)\n")
	for i, p := range in.Products {
		b.WriteString(fmt.Sprintf("- Product %d: %s (reproduce cut, fabric, color and print exactly)\n", i+1, p))
	}
	for _, a := range in.Accessories {
		b.WriteString("- Accessory: " + a + "\n")
	}
	if in.IdentityLock {
		b.WriteString("- Identity reference: the final attached image shows the same person from a previous shoot; the face must match it.\n")
	}
	b.WriteString("\n")

	b.WriteString("SETTING:\n")
	switch {
	case strings.TrimSpace(in.SceneName) != "":
		b.WriteString("- Scene: " + in.SceneName + " (use the attached scene image as the environment)\n")
	case strings.TrimSpace(in.Color) != "":
		b.WriteString("- Seamless studio backdrop in solid color " + in.Color + "\n")
	}
	b.WriteString("\n")

	b.WriteString("POSE:\n")
	if name := strings.TrimSpace(in.PoseName); name != "" {
		b.WriteString("- " + name + "\n")
	}
	if p := strings.TrimSpace(in.PosePrompt); p != "" {
		b.WriteString("- " + p + "\n")
	}
	b.WriteString("\n")

	if dirs, ok := angleDirections[strings.ToLower(in.Angle)]; ok {
		writeSection(&b, "CAMERA ("+in.Angle+")", dirs)
		b.WriteString("\n")
	}

	writeSection(&b, "QUALITY", []string{
		"Editorial fashion campaign lighting",
		"Tack-sharp garments, natural skin texture",
		"No text, logos or watermarks that are not on the products",
	})
	b.WriteString("\nOUTPUT RULES:\n- Return exactly 1 image.\n- Images only. No text, no JSON.\n")

	return strings.TrimSpace(b.String())
}

// Describe asks for a short runway motion description used as a video prompt.
func Describe(in DescribeInput) string {
	var b strings.Builder
	b.WriteString("You are writing a prompt for an image-to-video model. The attached images are frames of one fashion shoot.\n")
	b.WriteString("Describe in 2-4 sentences a short runway-style clip: how the model walks or turns, how the garments move, camera motion and lighting.\n")
	b.WriteString("Keep identity and outfit unchanged. Return plain text only.\n\nCONTEXT:\n")
	b.WriteString("- Model: " + orUnnamed(in.ModelName) + "\n")
	if len(in.Products) > 0 {
		b.WriteString("- Wearing: " + strings.Join(in.Products, ", ") + "\n")
	}
	if len(in.Accessories) > 0 {
		b.WriteString("- Accessories: " + strings.Join(in.Accessories, ", ") + "\n")
	}
	switch {
	case strings.TrimSpace(in.SceneName) != "":
		b.WriteString("- Scene: " + in.SceneName + "\n")
	case strings.TrimSpace(in.Color) != "":
		b.WriteString("- Backdrop color: " + in.Color + "\n")
	}
	if strings.TrimSpace(in.PoseName) != "" {
		b.WriteString("- Starting pose: " + in.PoseName + "\n")
	}
	return strings.TrimSpace(b.String())
}

// CatalogItem builds the prompt for a generated catalog entry.
func CatalogItem(kind, name, description string) (string, string) {
	description = strings.TrimSpace(description)
	if description == "" {
		description = name
	}

	switch strings.ToLower(kind) {
	case "model":
		return "Full-body fashion model photo on a neutral light-grey studio backdrop, standing, even lighting. " + description, "3:4"
	case "scene":
		return "Empty photoshoot location with no people, wide framing, natural light. " + description, "16:9"
	case "accessory":
		return "Single fashion accessory product shot on a white background. " + description, "1:1"
	default:
		return "Single garment product shot, flat lay on a white background. " + description, "1:1"
	}
}

// NormalizeAspectRatio returns "W:H" or "" when value is not a ratio.
func NormalizeAspectRatio(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
}

func orUnnamed(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
