// Package catalog keeps the selectable products, models, scenes, accessories
// and poses together with the user's current picks.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"fashion-studio/internal/asset"
)

type Kind string

const (
	KindProduct   Kind = "product"
	KindModel     Kind = "model"
	KindScene     Kind = "scene"
	KindAccessory Kind = "accessory"
	KindPose      Kind = "pose"
)

var ErrNotFound = errors.New("catalog item not found")

func ParseKind(value string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "accessories" {
		v = "accessory"
	}
	k := Kind(strings.TrimSuffix(v, "s"))
	switch k {
	case KindProduct, KindModel, KindScene, KindAccessory, KindPose:
		return k, nil
	}
	return "", fmt.Errorf("unknown catalog kind %q", value)
}

// Item is one selectable entry. Prompt and Custom are only used by poses.
type Item struct {
	ID       int64
	Kind     Kind
	Name     string
	Image    asset.Asset
	IsCustom bool
	Prompt   string
	Custom   bool
}

// Picks is the current selection by ID.
type Picks struct {
	ProductIDs   []int64
	ModelIDs     []int64
	SceneID      int64
	Color        string
	PoseID       int64
	PosePrompt   string
	AccessoryIDs []int64
	IdentityLock *asset.Asset
}

// Selections is Picks resolved into items.
type Selections struct {
	Products     []Item
	Models       []Item
	Scene        *Item
	Color        string
	Pose         *Item
	PosePrompt   string
	Accessories  []Item
	IdentityLock *asset.Asset
}

func (s Selections) Clone() Selections {
	out := s
	out.Products = slices.Clone(s.Products)
	out.Models = slices.Clone(s.Models)
	out.Accessories = slices.Clone(s.Accessories)
	if s.Scene != nil {
		scene := *s.Scene
		out.Scene = &scene
	}
	if s.Pose != nil {
		pose := *s.Pose
		out.Pose = &pose
	}
	if s.IdentityLock != nil {
		lock := *s.IdentityLock
		out.IdentityLock = &lock
	}
	return out
}

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Item
	order  []int64
	picks  Picks
}

// NewStore returns a store seeded with the built-in poses.
func NewStore() *Store {
	s := &Store{items: make(map[int64]Item)}
	for _, p := range defaultPoses {
		s.Add(p)
	}
	return s
}

var defaultPoses = []Item{
	{Kind: KindPose, Name: "Standing", Prompt: "Standing upright, weight on one leg, arms relaxed"},
	{Kind: KindPose, Name: "Walking", Prompt: "Mid-stride runway walk toward the camera"},
	{Kind: KindPose, Name: "Hands on hips", Prompt: "Confident stance with both hands on hips"},
	{Kind: KindPose, Name: "Custom", Custom: true},
}

// Add stores item under a new ID and returns it.
func (s *Store) Add(item Item) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item.ID = s.nextID
	item.Name = strings.TrimSpace(item.Name)
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return item
}

func (s *Store) Get(id int64) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	return item, ok
}

// List returns the items of kind in insertion order; an empty kind lists all.
func (s *Store) List(kind Kind) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if kind != "" && item.Kind != kind {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Delete removes an item and drops it from the picks.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(v int64) bool { return v == id })

	p := &s.picks
	p.ProductIDs = slices.DeleteFunc(p.ProductIDs, func(v int64) bool { return v == id })
	p.ModelIDs = slices.DeleteFunc(p.ModelIDs, func(v int64) bool { return v == id })
	p.AccessoryIDs = slices.DeleteFunc(p.AccessoryIDs, func(v int64) bool { return v == id })
	if p.SceneID == id {
		p.SceneID = 0
	}
	if p.PoseID == id {
		p.PoseID = 0
	}
	return nil
}

func (s *Store) Picks() Picks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePicks(s.picks)
}

// SetPicks replaces the picks after checking that every ID names an item of
// the right kind.
func (s *Store) SetPicks(p Picks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	check := func(kind Kind, ids ...int64) error {
		for _, id := range ids {
			if id == 0 {
				continue
			}
			item, ok := s.items[id]
			if !ok || item.Kind != kind {
				return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
			}
		}
		return nil
	}

	for _, err := range []error{
		check(KindProduct, p.ProductIDs...),
		check(KindModel, p.ModelIDs...),
		check(KindAccessory, p.AccessoryIDs...),
		check(KindScene, p.SceneID),
		check(KindPose, p.PoseID),
	} {
		if err != nil {
			return err
		}
	}

	p.ProductIDs = dedupe(p.ProductIDs)
	p.ModelIDs = dedupe(p.ModelIDs)
	p.AccessoryIDs = dedupe(p.AccessoryIDs)
	p.Color = strings.TrimSpace(p.Color)
	if p.IdentityLock == nil {
		p.IdentityLock = s.picks.IdentityLock
	}
	s.picks = clonePicks(p)
	return nil
}

// SetIdentityLock sets or, with nil, clears the identity reference.
func (s *Store) SetIdentityLock(img *asset.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img == nil {
		s.picks.IdentityLock = nil
		return
	}
	lock := *img
	s.picks.IdentityLock = &lock
}

// Resolve turns the picks into items. IDs that no longer resolve are skipped.
func (s *Store) Resolve() Selections {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.picks
	sel := Selections{
		Color:      p.Color,
		PosePrompt: strings.TrimSpace(p.PosePrompt),
	}
	sel.Products = s.resolveLocked(p.ProductIDs)
	sel.Models = s.resolveLocked(p.ModelIDs)
	sel.Accessories = s.resolveLocked(p.AccessoryIDs)
	if item, ok := s.items[p.SceneID]; ok {
		sel.Scene = &item
	}
	if item, ok := s.items[p.PoseID]; ok {
		sel.Pose = &item
	}
	if p.IdentityLock != nil {
		lock := *p.IdentityLock
		sel.IdentityLock = &lock
	}
	return sel
}

func (s *Store) resolveLocked(ids []int64) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

func clonePicks(p Picks) Picks {
	p.ProductIDs = slices.Clone(p.ProductIDs)
	p.ModelIDs = slices.Clone(p.ModelIDs)
	p.AccessoryIDs = slices.Clone(p.AccessoryIDs)
	return p
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
