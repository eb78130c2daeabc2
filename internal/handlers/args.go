package handlers

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/studio"
)

// parsePick applies /pick arguments to p. Segments are separated by ';', for
// example "product 1 2; model 3; scene 5; pose 1; color navy; prompt arms crossed".
// "none" clears a scene, color, pose or list.
func parsePick(args string, p catalog.Picks) (catalog.Picks, error) {
	for _, seg := range strings.Split(args, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, rest, _ := strings.Cut(seg, " ")
		rest = strings.TrimSpace(rest)
		none := strings.EqualFold(rest, "none")

		switch strings.ToLower(key) {
		case "color", "colour":
			p.Color = rest
			if none {
				p.Color = ""
			}
			continue
		case "prompt":
			p.PosePrompt = rest
			if none {
				p.PosePrompt = ""
			}
			continue
		}

		kind, err := catalog.ParseKind(key)
		if err != nil {
			return p, err
		}
		var ids []int64
		if !none {
			if ids, err = parseIDs(rest); err != nil {
				return p, err
			}
			if len(ids) == 0 {
				return p, fmt.Errorf("%s needs at least one id", kind)
			}
		}

		switch kind {
		case catalog.KindProduct:
			p.ProductIDs = ids
		case catalog.KindModel:
			p.ModelIDs = ids
		case catalog.KindAccessory:
			p.AccessoryIDs = ids
		case catalog.KindScene, catalog.KindPose:
			if len(ids) > 1 {
				return p, fmt.Errorf("only one %s can be picked", kind)
			}
			var id int64
			if len(ids) == 1 {
				id = ids[0]
			}
			if kind == catalog.KindScene {
				p.SceneID = id
			} else {
				p.PoseID = id
			}
		}
	}
	return p, nil
}

func parseIDs(value string) ([]int64, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ' ' || r == ',' })
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimPrefix(f, "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		out = append(out, id)
	}
	return out, nil
}

// parseCaption reads "<kind> <name>" from a photo caption.
func parseCaption(caption string) (catalog.Kind, string, error) {
	key, name, _ := strings.Cut(strings.TrimSpace(caption), " ")
	kind, err := catalog.ParseKind(key)
	if err != nil {
		return "", "", err
	}
	if kind == catalog.KindPose {
		return "", "", errors.New("poses are added with /image pose <name>: <description>")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.New("name is missing")
	}
	return kind, name, nil
}

// parseImageArgs reads "<kind> <name>: <description>".
func parseImageArgs(args string) (catalog.Kind, string, string, error) {
	head, description, found := strings.Cut(args, ":")
	if !found {
		return "", "", "", errors.New("use /image <kind> <name>: <description>")
	}
	key, name, _ := strings.Cut(strings.TrimSpace(head), " ")
	kind, err := catalog.ParseKind(key)
	if err != nil {
		return "", "", "", err
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return "", "", "", errors.New("name and description are required")
	}
	return kind, name, description, nil
}

// parseVideoArgs reads "<n> [preview|final]".
func parseVideoArgs(args string) (int, gemini.VideoTier, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, "", errors.New("use /video <n> [final]")
	}
	n, err := parseIndex(fields[0])
	if err != nil {
		return 0, "", err
	}
	tier := gemini.TierPreview
	if len(fields) == 2 {
		if tier, err = studio.ParseTier(fields[1]); err != nil {
			return 0, "", err
		}
	}
	return n, tier, nil
}

func parseIndex(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(value), "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return n, nil
}

// parseDelete reads "<kind> <id>".
func parseDelete(args string) (catalog.Kind, int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, errors.New("use /delete <kind> <id>")
	}
	kind, err := catalog.ParseKind(fields[0])
	if err != nil {
		return "", 0, err
	}
	ids, err := parseIDs(fields[1])
	if err != nil {
		return "", 0, err
	}
	return kind, ids[0], nil
}

// jobAt returns the n-th job (1-based) of a snapshot.
func jobAt(snap studio.Snapshot, n int) (studio.Job, error) {
	if n < 1 || n > len(snap.Jobs) {
		return studio.Job{}, fmt.Errorf("%w: #%d", studio.ErrJobNotFound, n)
	}
	return snap.Jobs[n-1], nil
}

func jobNumber(snap studio.Snapshot, jobID string) int {
	return slices.IndexFunc(snap.Jobs, func(j studio.Job) bool { return j.ID == jobID }) + 1
}
