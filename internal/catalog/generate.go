package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/prompt"
)

// Generator is the slice of the generation backend used to create items.
type Generator interface {
	GenerateImage(ctx context.Context, text string, aspectRatio string) (asset.Asset, error)
	IsolateSubject(ctx context.Context, img asset.Asset) (asset.Asset, error)
}

// Create generates a new custom item from a text description.
func (s *Store) Create(ctx context.Context, gen Generator, kind Kind, name, description string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, errors.New("name is required")
	}
	if kind == KindPose {
		return s.Add(Item{Kind: KindPose, Name: name, Prompt: strings.TrimSpace(description), IsCustom: true}), nil
	}

	text, aspectRatio := prompt.CatalogItem(string(kind), name, description)
	img, err := gen.GenerateImage(ctx, text, aspectRatio)
	if err != nil {
		return Item{}, fmt.Errorf("generate %s image: %w", kind, err)
	}
	return s.Add(Item{Kind: kind, Name: name, Image: img, IsCustom: true}), nil
}

// Upload adds a user-supplied image. Model photos are first isolated on a
// neutral background; if that fails the original upload is kept.
func (s *Store) Upload(ctx context.Context, gen Generator, kind Kind, name string, img asset.Asset) (Item, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, false, errors.New("name is required")
	}
	if img.IsZero() {
		return Item{}, false, &asset.InvalidAssetError{Source: name, Err: errors.New("empty payload")}
	}

	isolated := false
	if kind == KindModel && gen != nil {
		if out, err := gen.IsolateSubject(ctx, img); err == nil {
			img = out
			isolated = true
		}
	}
	return s.Add(Item{Kind: kind, Name: name, Image: img, IsCustom: true}), isolated, nil
}

// Promote stores a generated image as a new custom item.
func (s *Store) Promote(kind Kind, name string, img asset.Asset) (Item, error) {
	if kind == KindPose {
		return Item{}, errors.New("poses cannot be promoted from images")
	}
	if img.IsZero() {
		return Item{}, errors.New("nothing to promote")
	}
	if strings.TrimSpace(name) == "" {
		name = "Generated " + string(kind)
	}
	return s.Add(Item{Kind: kind, Name: name, Image: img, IsCustom: true}), nil
}
