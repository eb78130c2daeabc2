package studio

import (
	"slices"
	"sync"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
)

// Snapshot is a deep copy of the run state.
type Snapshot struct {
	RunID      uint64
	Phase      Phase
	Error      string
	Selections catalog.Selections
	Jobs       []Job
}

// results owns the run state. Every asynchronous completion goes through
// patch, which drops updates addressed to a run that is no longer active.
type results struct {
	mu    sync.Mutex
	run   uint64
	phase Phase
	err   string
	sel   catalog.Selections
	jobs  []Job
	index map[string]int
}

func newResults() *results {
	return &results{phase: PhaseIdle, index: make(map[string]int)}
}

// begin opens a new run with one composing job per model.
func (r *results) begin(sel catalog.Selections, models []catalog.Item, newID func() string) (uint64, []Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.CanGenerate() {
		return 0, nil, ErrBusy
	}
	phase, err := r.phase.to(PhaseLoadingImage)
	if err != nil {
		return 0, nil, err
	}

	r.run++
	r.phase = phase
	r.err = ""
	r.sel = sel.Clone()
	r.jobs = make([]Job, 0, len(models))
	r.index = make(map[string]int, len(models))
	for _, m := range models {
		job := Job{
			ID:      newID(),
			RunID:   r.run,
			Model:   m,
			Status:  JobComposing,
			Preview: VideoSlot{State: VideoIdle},
			Final:   VideoSlot{State: VideoIdle},
			Display: DisplayRepresentative,
		}
		r.index[job.ID] = len(r.jobs)
		r.jobs = append(r.jobs, job)
	}
	return r.run, cloneJobs(r.jobs), nil
}

// reject records a validation failure. An active composition is left alone.
func (r *results) reject(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseLoadingImage {
		return
	}
	if phase, terr := r.phase.to(PhaseError); terr == nil {
		r.phase = phase
		r.err = err.Error()
	}
}

// patch applies fn to a copy of the job and stores it with the monotonic
// fields restored. It reports false for stale runs or unknown jobs.
func (r *results) patch(run uint64, jobID string, fn func(*Job)) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run != r.run {
		return Job{}, false
	}
	i, ok := r.index[jobID]
	if !ok {
		return Job{}, false
	}

	old := r.jobs[i]
	next := old.clone()
	fn(&next)
	r.jobs[i] = keepMonotonic(old, next)
	return r.jobs[i].clone(), true
}

func (r *results) current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

func (r *results) job(jobID string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[jobID]
	if !ok {
		return Job{}, false
	}
	return r.jobs[i].clone(), true
}

func (r *results) selections(run uint64) (catalog.Selections, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run != r.run {
		return catalog.Selections{}, false
	}
	return r.sel.Clone(), true
}

// settle closes composition for run. The run succeeds when any job produced
// images and fails only when every job failed.
func (r *results) settle(run uint64) (Phase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run != r.run || r.phase != PhaseLoadingImage {
		return r.phase, false
	}

	next := PhaseError
	for _, j := range r.jobs {
		if j.Status == JobComposed {
			next = PhaseSuccess
			break
		}
	}
	if next == PhaseError {
		r.err = "every model failed to compose"
	}
	r.phase, _ = r.phase.to(next)
	return r.phase, true
}

// reset abandons the current run. Bumping the run counter makes every
// in-flight completion stale.
func (r *results) reset() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.run++
	r.phase = PhaseIdle
	r.err = ""
	r.sel = catalog.Selections{}
	r.jobs = nil
	r.index = make(map[string]int)
	return r.run
}

type pendingVideo struct {
	run       uint64
	jobID     string
	tier      gemini.VideoTier
	operation string
}

func (r *results) pendingVideos() []pendingVideo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []pendingVideo
	for _, j := range r.jobs {
		for _, tier := range []gemini.VideoTier{gemini.TierPreview, gemini.TierFinal} {
			slot := j.slot(tier)
			if slot.State == VideoPending && slot.Operation != "" {
				out = append(out, pendingVideo{run: r.run, jobID: j.ID, tier: tier, operation: slot.Operation})
			}
		}
	}
	return out
}

func (r *results) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		RunID:      r.run,
		Phase:      r.phase,
		Error:      r.err,
		Selections: r.sel.Clone(),
		Jobs:       cloneJobs(r.jobs),
	}
}

func cloneJobs(jobs []Job) []Job {
	out := slices.Clone(jobs)
	for i := range out {
		out[i] = out[i].clone()
	}
	return out
}
