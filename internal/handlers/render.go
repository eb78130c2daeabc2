package handlers

import (
	"errors"
	"fmt"
	"strings"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/studio"
)

const helpText = "👗 Fashion Studio\n\n" +
	"Build a shoot from your catalog and get on-model photos and short videos.\n\n" +
	"Add items by sending a photo with the caption \"<kind> <name>\", e.g. \"product Denim jacket\".\n" +
	"Kinds: product, model, scene, accessory.\n\n" +
	"/catalog - list your items\n" +
	"/pick - open the picker, or /pick product 1 2; model 5; scene 7; pose 1\n" +
	"/pick color navy - backdrop color instead of a scene\n" +
	"/pick prompt <text> - description for the Custom pose\n" +
	"/image <kind> <name>: <description> - generate a new item\n" +
	"/delete <kind> <id> - remove an item\n" +
	"/generate - compose the shoot\n" +
	"/status - progress of the current run\n" +
	"/video <n> [final] - render a video of result n\n" +
	"/lock <n|off> - keep the face of result n for the next run\n" +
	"/save - save the run to the lookbook\n" +
	"/lookbook - list saved runs\n" +
	"/reset - start over"

var kindOrder = []catalog.Kind{
	catalog.KindProduct,
	catalog.KindModel,
	catalog.KindScene,
	catalog.KindPose,
	catalog.KindAccessory,
}

func catalogText(store *catalog.Store) string {
	picks := store.Picks()

	var b strings.Builder
	b.WriteString("📚 Catalog\n")
	for _, kind := range kindOrder {
		items := store.List(kind)
		fmt.Fprintf(&b, "\n%s (%d)\n", strings.ToUpper(string(kind)[:1])+string(kind)[1:], len(items))
		if len(items) == 0 {
			b.WriteString("  none\n")
		}
		for _, item := range items {
			mark := " "
			if isPicked(picks, item) {
				mark = "✅"
			}
			fmt.Fprintf(&b, "%s #%d %s", mark, item.ID, item.Name)
			if item.IsCustom {
				b.WriteString(" (custom)")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func pickerSummary(store *catalog.Store) string {
	sel := store.Resolve()

	var b strings.Builder
	b.WriteString("🧵 Current selection\n")
	fmt.Fprintf(&b, "Products: %s\n", orNone(names(sel.Products)))
	fmt.Fprintf(&b, "Models: %s\n", orNone(names(sel.Models)))
	switch {
	case sel.Scene != nil:
		fmt.Fprintf(&b, "Scene: %s\n", sel.Scene.Name)
	case sel.Color != "":
		fmt.Fprintf(&b, "Color: %s\n", sel.Color)
	default:
		b.WriteString("Scene: none\n")
	}
	pose := "none"
	if sel.Pose != nil {
		pose = sel.Pose.Name
		if sel.Pose.Custom && sel.PosePrompt != "" {
			pose += ": " + sel.PosePrompt
		}
	}
	fmt.Fprintf(&b, "Pose: %s\n", pose)
	fmt.Fprintf(&b, "Accessories: %s", orNone(names(sel.Accessories)))
	if sel.IdentityLock != nil {
		b.WriteString("\n🔒 Identity locked")
	}
	return b.String()
}

func statusText(snap studio.Snapshot) string {
	if snap.Phase == studio.PhaseIdle && len(snap.Jobs) == 0 {
		return "Nothing generated yet. Pick items and run /generate."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %d: %s\n", snap.RunID, phaseLabel(snap.Phase))
	if snap.Error != "" {
		fmt.Fprintf(&b, "⚠️ %s\n", snap.Error)
	}
	for i, job := range snap.Jobs {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, jobStatusLine(job))
	}
	return strings.TrimRight(b.String(), "\n")
}

func phaseLabel(p studio.Phase) string {
	switch p {
	case studio.PhaseLoadingImage:
		return "composing"
	case studio.PhaseSuccess:
		return "done"
	case studio.PhaseError:
		return "failed"
	}
	return "idle"
}

func jobStatusLine(job studio.Job) string {
	var b strings.Builder
	b.WriteString(job.Model.Name)
	switch job.Status {
	case studio.JobComposing:
		b.WriteString(": composing…")
		return b.String()
	case studio.JobFailed:
		fmt.Fprintf(&b, ": failed (%s)", job.Error)
		return b.String()
	}

	fmt.Fprintf(&b, ": %d angle(s)", len(job.Images))
	switch {
	case job.CuttingOut:
		b.WriteString(", cutout…")
	case job.Cutout != nil:
		b.WriteString(", cutout ready")
	}
	for _, tier := range []gemini.VideoTier{gemini.TierPreview, gemini.TierFinal} {
		if line := videoLine(tier, job.Video(tier)); line != "" {
			b.WriteString("\n   " + line)
		}
	}
	return b.String()
}

func videoLine(tier gemini.VideoTier, slot studio.VideoSlot) string {
	switch slot.State {
	case studio.VideoSubmitting:
		return fmt.Sprintf("%s video: submitting", tier)
	case studio.VideoPending:
		if slot.Progress != "" {
			return fmt.Sprintf("%s video: rendering (%s)", tier, slot.Progress)
		}
		return fmt.Sprintf("%s video: rendering", tier)
	case studio.VideoDone:
		return fmt.Sprintf("%s video: ready", tier)
	case studio.VideoFailed:
		return fmt.Sprintf("%s video: failed (%s)", tier, slot.Error)
	}
	return ""
}

func jobCaption(n int, job studio.Job, angle studio.Angle) string {
	return fmt.Sprintf("%d. %s · %s", n, job.Model.Name, angle)
}

func lookbookText(entries []studio.LookbookEntry) string {
	if len(entries) == 0 {
		return "The lookbook is empty. Use /save after a successful run."
	}

	var b strings.Builder
	b.WriteString("📖 Lookbook\n")
	for i, e := range entries {
		composed := 0
		for _, job := range e.Jobs {
			if job.Status == studio.JobComposed {
				composed++
			}
		}
		fmt.Fprintf(&b, "\n%d. %s · %s · %d look(s)", i+1, e.SavedAt.Format("Jan 2 15:04"), orNone(names(e.Selections.Products)), composed)
	}
	return b.String()
}

func settledText(snap studio.Snapshot) string {
	composed := 0
	for _, job := range snap.Jobs {
		if job.Status == studio.JobComposed {
			composed++
		}
	}
	if snap.Phase == studio.PhaseError {
		return "❌ " + orDefault(snap.Error, "Generation failed.")
	}
	text := fmt.Sprintf("✅ %d of %d look(s) ready.", composed, len(snap.Jobs))
	if composed > 0 {
		text += " Use the buttons or /video <n> for a video, /save to keep them."
	}
	return text
}

// userMessage turns an error into text that can be shown in chat.
func userMessage(err error) string {
	var validation *studio.ValidationError
	var invalid *asset.InvalidAssetError
	switch {
	case errors.As(err, &validation):
		return "Pick these first: " + strings.Join(validation.Missing, ", ") + "."
	case errors.As(err, &invalid):
		return "That file is not a usable image."
	case errors.Is(err, studio.ErrBusy):
		return "A generation is already running. Check /status."
	case errors.Is(err, studio.ErrJobNotFound):
		return "That result is not part of the current run."
	case errors.Is(err, studio.ErrNoImages):
		return "That look has no images yet."
	case errors.Is(err, studio.ErrVideoPromptPending):
		return "The video description is still being written. Try again in a moment."
	case errors.Is(err, studio.ErrNoVideoPrompt):
		return "No video description is available for that look."
	case errors.Is(err, studio.ErrVideoInFlight):
		return "That video is already rendering."
	case errors.Is(err, studio.ErrNotSettled):
		return "Only a finished, successful run can be saved."
	case errors.Is(err, studio.ErrUnknownTier):
		return "Video tier must be preview or final."
	case errors.Is(err, studio.ErrClosed):
		return "The studio is shutting down. Try again shortly."
	case errors.Is(err, catalog.ErrNotFound):
		return "That catalog item does not exist."
	}
	return err.Error()
}

func names(items []catalog.Item) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return strings.Join(out, ", ")
}

func orNone(s string) string {
	return orDefault(s, "none")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
