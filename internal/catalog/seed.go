package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"fashion-studio/internal/asset"
)

type seedFile struct {
	Products    []seedItem `yaml:"products"`
	Models      []seedItem `yaml:"models"`
	Scenes      []seedItem `yaml:"scenes"`
	Accessories []seedItem `yaml:"accessories"`
	Poses       []seedItem `yaml:"poses"`
}

type seedItem struct {
	Name   string `yaml:"name"`
	Image  string `yaml:"image"`
	Prompt string `yaml:"prompt"`
	Custom bool   `yaml:"custom"`
}

// LoadFile adds the items listed in a YAML seed file. Image paths are
// relative to the file. It returns the number of items added.
func (s *Store) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	groups := []struct {
		kind  Kind
		items []seedItem
	}{
		{KindProduct, seed.Products},
		{KindModel, seed.Models},
		{KindScene, seed.Scenes},
		{KindAccessory, seed.Accessories},
		{KindPose, seed.Poses},
	}

	var pending []Item
	for _, g := range groups {
		for _, si := range g.items {
			if si.Name == "" {
				return 0, fmt.Errorf("%s entry without name in %s", g.kind, path)
			}
			item := Item{Kind: g.kind, Name: si.Name, Prompt: si.Prompt, Custom: si.Custom}
			if si.Image != "" {
				imgPath := si.Image
				if !filepath.IsAbs(imgPath) {
					imgPath = filepath.Join(base, imgPath)
				}
				img, err := asset.FromFile(imgPath)
				if err != nil {
					return 0, err
				}
				item.Image = img
			} else if g.kind != KindPose {
				return 0, fmt.Errorf("%s %q has no image", g.kind, si.Name)
			}
			pending = append(pending, item)
		}
	}

	for _, item := range pending {
		s.Add(item)
	}
	return len(pending), nil
}
