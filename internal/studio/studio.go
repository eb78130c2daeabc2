// Package studio orchestrates a photoshoot run: composition per model and
// angle, the derived cutout and video description, and the video jobs.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
)

// Backend is the generation service used by the studio.
type Backend interface {
	ComposeImage(ctx context.Context, req gemini.ComposeRequest) (asset.Asset, error)
	Cutout(ctx context.Context, img asset.Asset) (asset.Asset, error)
	DescribeForVideo(ctx context.Context, req gemini.DescribeRequest) (string, error)
	StartVideo(ctx context.Context, req gemini.VideoRequest) (string, error)
	PollVideo(ctx context.Context, name string) (gemini.Operation, error)
	VideoURL(uri string) string
}

type Options struct {
	Backend Backend
	Logger  *slog.Logger

	Angles       []Angle
	AngleRetries int
	// AutoVideo starts the preview video on its own for single-model runs.
	AutoVideo     bool
	MaxConcurrent int

	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollDuration time.Duration

	LookbookMax int

	// OnEvent is called from worker goroutines and must be safe for
	// concurrent use.
	OnEvent func(Event)
	Now     func() time.Time
}

type Studio struct {
	backend      Backend
	logger       *slog.Logger
	angles       []Angle
	angleRetries int
	autoVideo    bool
	limits       pollLimits
	onEvent      func(Event)
	now          func() time.Time

	sem      *semaphore.Weighted
	results  *results
	poller   *poller
	lookbook *lookbook

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed so that no worker is added once Close is waiting.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(opts Options) (*Studio, error) {
	if opts.Backend == nil {
		return nil, errors.New("studio: backend is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	angles := opts.Angles
	if len(angles) == 0 {
		angles = DefaultAngles
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 6
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lookbookMax := opts.LookbookMax
	if lookbookMax <= 0 {
		lookbookMax = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Studio{
		backend:      opts.Backend,
		logger:       logger,
		angles:       append([]Angle(nil), angles...),
		angleRetries: max(opts.AngleRetries, 0),
		autoVideo:    opts.AutoVideo,
		limits:       pollLimits{maxAttempts: opts.MaxPollAttempts, maxDuration: opts.MaxPollDuration},
		onEvent:      opts.OnEvent,
		now:          now,
		sem:          semaphore.NewWeighted(int64(maxConcurrent)),
		results:      newResults(),
		lookbook:     &lookbook{max: lookbookMax},
		ctx:          ctx,
		cancel:       cancel,
	}
	s.poller = &poller{
		interval: interval,
		pending:  s.results.pendingVideos,
		poll:     s.pollVideo,
	}
	return s, nil
}

// Generate validates sel and starts a run in the background. The returned
// snapshot shows the new jobs in the composing state.
func (s *Studio) Generate(sel catalog.Selections) (Snapshot, error) {
	if s.isClosed() {
		return s.results.snapshot(), ErrClosed
	}
	plans, err := buildPlans(sel, s.angles)
	if err != nil {
		s.results.reject(err)
		return s.results.snapshot(), err
	}

	models := make([]catalog.Item, 0, len(plans))
	for _, p := range plans {
		models = append(models, p.model)
	}
	run, jobs, err := s.results.begin(sel, models, uuid.NewString)
	if err != nil {
		return s.results.snapshot(), err
	}

	s.logger.Info("run started", "run", run, "models", len(models), "angles", len(s.angles))

	single := len(plans) == 1
	var composing sync.WaitGroup
	composing.Add(len(plans))
	workers := make([]func(), 0, len(plans)+1)
	for i, plan := range plans {
		jobID := jobs[i].ID
		workers = append(workers, func() { s.runJob(run, jobID, plan, single, composing.Done) })
	}
	workers = append(workers, func() {
		composing.Wait()
		if phase, ok := s.results.settle(run); ok {
			s.logger.Info("run settled", "run", run, "phase", phase)
			s.emit(Event{Kind: EventRunSettled, RunID: run, Phase: phase})
		}
	})
	if err := s.spawn(workers...); err != nil {
		return s.results.snapshot(), err
	}

	return s.results.snapshot(), nil
}

func (s *Studio) runJob(run uint64, jobID string, plan jobPlan, single bool, composed func()) {
	logger := s.logger.With("run", run, "job", jobID, "model", plan.model.Name)

	images := s.compose(logger, plan)
	if len(images) == 0 {
		cerr := &CompositionError{Model: plan.model.Name}
		defer composed()
		job, ok := s.results.patch(run, jobID, func(j *Job) {
			j.Status = JobFailed
			j.Error = cerr.Error()
		})
		if ok {
			logger.Warn("job failed", "err", cerr)
			s.emit(Event{Kind: EventJobFailed, RunID: run, Job: job})
		}
		return
	}

	rep := pickRepresentative(images)
	job, ok := s.results.patch(run, jobID, func(j *Job) {
		j.Status = JobComposed
		j.Images = images
		j.Representative = &rep
		j.CuttingOut = true
		j.Describing = true
	})
	if !ok {
		composed()
		logger.Debug("discarding composition for stale run")
		return
	}
	logger.Info("job composed", "images", len(images), "representative", rep.Angle)
	s.emit(Event{Kind: EventJobComposed, RunID: run, Job: job})
	composed()

	var g errgroup.Group
	g.Go(func() error {
		s.cutout(logger, run, job)
		return nil
	})
	g.Go(func() error {
		if s.describe(logger, run, job) && single && s.autoVideo {
			if err := s.requestVideo(run, jobID, gemini.TierPreview); err != nil {
				logger.Warn("automatic preview video not started", "err", err)
			}
		}
		return nil
	})
	_ = g.Wait()
}

// compose renders every angle concurrently and keeps the successful ones in
// angle order.
func (s *Studio) compose(logger *slog.Logger, plan jobPlan) []AngleImage {
	out := make([]*AngleImage, len(plan.composes))

	var g errgroup.Group
	g.SetLimit(len(plan.composes))
	for i, call := range plan.composes {
		g.Go(func() error {
			img, err := s.composeAngle(call)
			if err != nil {
				logger.Warn("angle failed", "err", &CompositionError{Model: plan.model.Name, Angle: call.angle, Err: err})
				return nil
			}
			out[i] = &AngleImage{Angle: call.angle, Image: img}
			return nil
		})
	}
	_ = g.Wait()

	images := make([]AngleImage, 0, len(out))
	for _, img := range out {
		if img != nil {
			images = append(images, *img)
		}
	}
	return images
}

func (s *Studio) composeAngle(call composeCall) (asset.Asset, error) {
	var lastErr error
	for attempt := 0; attempt <= s.angleRetries; attempt++ {
		img, err := withSlot(s, func(ctx context.Context) (asset.Asset, error) {
			return s.backend.ComposeImage(ctx, call.req)
		})
		if err == nil {
			return img, nil
		}
		lastErr = err
		if s.ctx.Err() != nil {
			break
		}
	}
	return asset.Asset{}, lastErr
}

func (s *Studio) cutout(logger *slog.Logger, run uint64, job Job) {
	img, err := withSlot(s, func(ctx context.Context) (asset.Asset, error) {
		return s.backend.Cutout(ctx, job.Representative.Image)
	})

	updated, ok := s.results.patch(run, job.ID, func(j *Job) {
		j.CuttingOut = false
		if err != nil {
			j.CutoutError = err.Error()
			return
		}
		j.Cutout = &img
	})
	if !ok {
		return
	}
	if err != nil {
		logger.Warn("cutout failed", "err", err)
		return
	}
	s.emit(Event{Kind: EventCutoutReady, RunID: run, Job: updated})
}

// describe reports whether a video prompt was stored.
func (s *Studio) describe(logger *slog.Logger, run uint64, job Job) bool {
	sel, ok := s.results.selections(run)
	if !ok {
		return false
	}

	text, err := withSlot(s, func(ctx context.Context) (string, error) {
		return s.backend.DescribeForVideo(ctx, describeRequest(sel, job))
	})

	updated, ok := s.results.patch(run, job.ID, func(j *Job) {
		j.Describing = false
		if err != nil {
			j.DescriptionError = err.Error()
			return
		}
		j.VideoPrompt = text
	})
	if !ok {
		return false
	}
	if err != nil {
		logger.Warn("video description failed", "err", err)
		return false
	}
	s.emit(Event{Kind: EventVideoPromptReady, RunID: run, Job: updated})
	return true
}

// RequestVideo submits a video job for tier on a job of the active run.
func (s *Studio) RequestVideo(jobID string, tier gemini.VideoTier) error {
	if tier != gemini.TierPreview && tier != gemini.TierFinal {
		return ErrUnknownTier
	}
	return s.requestVideo(s.results.current(), jobID, tier)
}

func (s *Studio) requestVideo(run uint64, jobID string, tier gemini.VideoTier) error {
	var (
		reqErr error
		req    gemini.VideoRequest
	)
	_, ok := s.results.patch(run, jobID, func(j *Job) {
		slot := j.slot(tier)
		switch {
		case slot.Loading():
			reqErr = ErrVideoInFlight
		case j.Representative == nil:
			reqErr = ErrNoImages
		case j.VideoPrompt == "" && j.Describing:
			reqErr = ErrVideoPromptPending
		case j.VideoPrompt == "":
			reqErr = ErrNoVideoPrompt
			*slot = VideoSlot{State: VideoFailed, Error: "video description unavailable: " + j.DescriptionError}
		default:
			*slot = VideoSlot{State: VideoSubmitting}
			req = videoRequest(*j, tier)
		}
	})
	if !ok {
		return ErrJobNotFound
	}
	if reqErr != nil {
		return reqErr
	}

	if err := s.spawn(func() { s.submitVideo(run, jobID, req) }); err != nil {
		s.results.patch(run, jobID, func(j *Job) {
			if slot := j.slot(tier); slot.State == VideoSubmitting {
				*slot = VideoSlot{State: VideoIdle}
			}
		})
		return err
	}
	return nil
}

func (s *Studio) submitVideo(run uint64, jobID string, req gemini.VideoRequest) {
	logger := s.logger.With("run", run, "job", jobID, "tier", req.Tier)

	handle, err := withSlot(s, func(ctx context.Context) (string, error) {
		return s.backend.StartVideo(ctx, req)
	})

	now := s.now()
	job, ok := s.results.patch(run, jobID, func(j *Job) {
		slot := j.slot(req.Tier)
		if slot.State != VideoSubmitting {
			return
		}
		if err != nil {
			*slot = VideoSlot{State: VideoFailed, Error: "video submission failed: " + err.Error()}
			return
		}
		*slot = VideoSlot{State: VideoPending, Operation: handle, SubmittedAt: now}
	})
	if !ok {
		logger.Debug("discarding video submission for stale run")
		return
	}
	if err != nil {
		logger.Warn("video submission failed", "err", err)
		s.emit(Event{Kind: EventVideoFailed, RunID: run, Job: job, Tier: req.Tier})
		return
	}

	logger.Info("video submitted", "operation", handle)
	s.poller.kick()
}

func (s *Studio) pollVideo(t pendingVideo) {
	op, err := withSlot(s, func(ctx context.Context) (gemini.Operation, error) {
		return s.backend.PollVideo(ctx, t.operation)
	})
	if s.ctx.Err() != nil {
		return
	}

	now := s.now()
	var resolved VideoState
	job, ok := s.results.patch(t.run, t.jobID, func(j *Job) {
		slot := j.slot(t.tier)
		if slot.State != VideoPending || slot.Operation != t.operation {
			return
		}
		*slot = advanceVideo(*slot, op, err, now, s.limits, s.backend.VideoURL)
		resolved = slot.State
	})
	if !ok {
		s.logger.Debug("discarding video poll for stale run", "run", t.run, "job", t.jobID)
		return
	}

	logger := s.logger.With("run", t.run, "job", t.jobID, "tier", t.tier)
	switch resolved {
	case VideoDone:
		logger.Info("video ready")
		s.emit(Event{Kind: EventVideoReady, RunID: t.run, Job: job, Tier: t.tier})
	case VideoFailed:
		slot := job.slot(t.tier)
		logger.Warn("video failed", "err", slot.Error, "salvage", slot.DirectLink != "")
		s.emit(Event{Kind: EventVideoFailed, RunID: t.run, Job: job, Tier: t.tier})
	case VideoPending:
		if err != nil {
			logger.Debug("video poll failed, retrying next tick", "err", err)
		}
	}
}

// SetDisplay switches what a job shows.
func (s *Studio) SetDisplay(jobID string, d Display) error {
	var derr error
	_, ok := s.results.patch(s.results.current(), jobID, func(j *Job) {
		if !displayAvailable(*j, d) {
			derr = fmt.Errorf("%w: %s", ErrInvalidDisplay, d)
			return
		}
		j.Display = d
	})
	if !ok {
		return ErrJobNotFound
	}
	return derr
}

// Job returns a copy of a job in the active run.
func (s *Studio) Job(jobID string) (Job, error) {
	job, ok := s.results.job(jobID)
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// IdentityLockFrom returns a job's representative image for use as an
// identity reference in later runs.
func (s *Studio) IdentityLockFrom(jobID string) (asset.Asset, error) {
	job, err := s.Job(jobID)
	if err != nil {
		return asset.Asset{}, err
	}
	if job.Representative == nil {
		return asset.Asset{}, ErrNoImages
	}
	return job.Representative.Image, nil
}

// StartOver abandons the active run. Work still in flight for it is dropped
// when it completes. The lookbook is kept.
func (s *Studio) StartOver() {
	run := s.results.reset()
	s.logger.Info("start over", "run", run)
}

func (s *Studio) Snapshot() Snapshot {
	return s.results.snapshot()
}

// SaveLookbook stores the active run once composition succeeded.
func (s *Studio) SaveLookbook() (LookbookEntry, error) {
	snap := s.results.snapshot()
	if snap.Phase != PhaseSuccess {
		return LookbookEntry{}, ErrNotSettled
	}

	entry := LookbookEntry{
		ID:         uuid.NewString(),
		SavedAt:    s.now(),
		Selections: snap.Selections,
		Jobs:       snap.Jobs,
	}
	s.lookbook.add(entry)
	s.logger.Info("lookbook saved", "entry", entry.ID, "jobs", len(entry.Jobs))
	return entry, nil
}

// Lookbook lists saved entries, newest first.
func (s *Studio) Lookbook() []LookbookEntry {
	return s.lookbook.list()
}

// Wait blocks until no composition, derivation or submission is running.
// Video polling is not waited for.
func (s *Studio) Wait() {
	s.wg.Wait()
}

// Close stops polling and cancels outstanding backend calls. Later calls to
// Generate and RequestVideo return ErrClosed.
func (s *Studio) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.poller.stop()
	s.cancel()
	s.wg.Wait()
}

// spawn starts fns as tracked workers unless the studio is closed.
func (s *Studio) spawn(fns ...func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.wg.Add(len(fns))
	for _, fn := range fns {
		go func() {
			defer s.wg.Done()
			fn()
		}()
	}
	return nil
}

func (s *Studio) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Studio) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// withSlot runs fn while holding one unit of the backend concurrency budget.
func withSlot[T any](s *Studio, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return zero, err
	}
	defer s.sem.Release(1)
	return fn(s.ctx)
}
