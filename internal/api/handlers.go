package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/studio"
)

func (s *Server) state() stateResponse {
	snap := s.studio.Snapshot()
	return stateResponse{
		RunID:       snap.RunID,
		Phase:       string(snap.Phase),
		Error:       snap.Error,
		CanGenerate: snap.Phase.CanGenerate(),
		Jobs:        toJobs(snap.Jobs),
		Picks:       toPicks(s.catalog.Picks()),
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, s.state())
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if _, err := s.studio.Generate(s.catalog.Resolve()); err != nil {
		s.fail(w, err)
		return
	}
	s.json(w, http.StatusAccepted, s.state())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.studio.StartOver()
	s.json(w, http.StatusOK, s.state())
}

type videoRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) requestVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	tier, err := studio.ParseTier(req.Tier)
	if err != nil {
		s.fail(w, err)
		return
	}

	jobID := chi.URLParam(r, "id")
	if err := s.studio.RequestVideo(jobID, tier); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJob(w, http.StatusAccepted, jobID)
}

type displayRequest struct {
	Display string `json:"display"`
}

func (s *Server) setDisplay(w http.ResponseWriter, r *http.Request) {
	var req displayRequest
	if err := decode(r, &req); err != nil || req.Display == "" {
		s.error(w, http.StatusBadRequest, "bad_request", "display required")
		return
	}

	jobID := chi.URLParam(r, "id")
	if err := s.studio.SetDisplay(jobID, studio.Display(req.Display)); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJob(w, http.StatusOK, jobID)
}

func (s *Server) lockIdentity(w http.ResponseWriter, r *http.Request) {
	img, err := s.studio.IdentityLockFrom(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.catalog.SetIdentityLock(&img)
	s.json(w, http.StatusOK, toPicks(s.catalog.Picks()))
}

func (s *Server) clearIdentity(w http.ResponseWriter, r *http.Request) {
	s.catalog.SetIdentityLock(nil)
	s.json(w, http.StatusOK, toPicks(s.catalog.Picks()))
}

type promoteRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	// Source is "representative" (default), "cutout" or an angle name.
	Source string `json:"source"`
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind, err := catalog.ParseKind(req.Kind)
	if err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	job, err := s.studio.Job(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	img, err := promoteSource(job, req.Source)
	if err != nil {
		s.fail(w, err)
		return
	}

	item, err := s.catalog.Promote(kind, req.Name, img)
	if err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.json(w, http.StatusCreated, toItem(item))
}

func promoteSource(job studio.Job, source string) (asset.Asset, error) {
	switch source {
	case "", "representative":
		if job.Representative != nil {
			return job.Representative.Image, nil
		}
	case "cutout":
		if job.Cutout != nil {
			return *job.Cutout, nil
		}
	default:
		for _, img := range job.Images {
			if string(img.Angle) == source {
				return img.Image, nil
			}
		}
	}
	return asset.Asset{}, fmt.Errorf("%w: %s", studio.ErrNoImages, orDefault(source, "representative"))
}

func (s *Server) writeJob(w http.ResponseWriter, status int, jobID string) {
	job, err := s.studio.Job(jobID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.json(w, status, toJob(job))
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, toCatalog(s.catalog))
}

func (s *Server) kind(w http.ResponseWriter, r *http.Request) (catalog.Kind, bool) {
	kind, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return "", false
	}
	return kind, true
}

type uploadResponse struct {
	Item     itemResponse `json:"item"`
	Isolated bool         `json:"isolated"`
}

// uploadItem accepts a multipart form with name and image fields. Poses take
// a prompt field instead of an image.
func (s *Server) uploadItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kind(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(asset.MaxBytes); err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}

	if kind == catalog.KindPose {
		p := strings.TrimSpace(r.FormValue("prompt"))
		if p == "" {
			s.error(w, http.StatusBadRequest, "bad_request", "prompt required")
			return
		}
		item := s.catalog.Add(catalog.Item{Kind: kind, Name: name, Prompt: p, IsCustom: true})
		s.json(w, http.StatusCreated, uploadResponse{Item: toItem(item)})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", "image required")
		return
	}
	defer file.Close()

	img, err := asset.FromReader(file, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, err)
		return
	}

	item, isolated, err := s.catalog.Upload(r.Context(), s.gen, kind, name, img)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("catalog item uploaded", "kind", kind, "id", item.ID, "isolated", isolated)
	s.json(w, http.StatusCreated, uploadResponse{Item: toItem(item), Isolated: isolated})
}

type generateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) generateItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kind(w, r)
	if !ok {
		return
	}
	var req generateItemRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		s.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	if s.gen == nil {
		s.error(w, http.StatusServiceUnavailable, "unavailable", "image generation is not configured")
		return
	}

	item, err := s.catalog.Create(r.Context(), s.gen, kind, req.Name, req.Description)
	if err != nil {
		s.error(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}
	s.json(w, http.StatusCreated, toItem(item))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kind(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}

	item, found := s.catalog.Get(id)
	if !found || item.Kind != kind {
		s.fail(w, catalog.ErrNotFound)
		return
	}
	if err := s.catalog.Delete(id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setPicks(w http.ResponseWriter, r *http.Request) {
	var req picksRequest
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	err := s.catalog.SetPicks(catalog.Picks{
		ProductIDs:   req.ProductIDs,
		ModelIDs:     req.ModelIDs,
		SceneID:      req.SceneID,
		Color:        req.Color,
		PoseID:       req.PoseID,
		PosePrompt:   req.PosePrompt,
		AccessoryIDs: req.AccessoryIDs,
	})
	if errors.Is(err, catalog.ErrNotFound) {
		s.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.json(w, http.StatusOK, toPicks(s.catalog.Picks()))
}

func (s *Server) listLookbook(w http.ResponseWriter, r *http.Request) {
	entries := s.studio.Lookbook()
	out := make([]lookbookEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLookbookEntry(e))
	}
	s.json(w, http.StatusOK, out)
}

func (s *Server) saveLookbook(w http.ResponseWriter, r *http.Request) {
	entry, err := s.studio.SaveLookbook()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.json(w, http.StatusCreated, toLookbookEntry(entry))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
