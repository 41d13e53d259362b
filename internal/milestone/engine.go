package milestone

import (
	"math"
	"time"

	"sortit/internal/progress"
	"sortit/internal/session"
)

// DefaultXPPerMilestone is awarded for each completed milestone unless the
// caller overrides it.
const DefaultXPPerMilestone = 100

// Engine decides, per conversational turn, whether the student has just
// satisfied the current milestone for an algorithm. It mutates only the
// progress record handed to it; persistence and locking belong to the caller.
type Engine struct {
	registry Registry
	now      func() time.Time
}

// NewEngine builds an engine over an immutable registry.
func NewEngine(registry Registry) *Engine {
	return &Engine{
		registry: registry,
		now:      time.Now,
	}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() Registry {
	return e.registry
}

// Input is the per-turn evaluation contract. Messages are the session's
// ordered chat messages; only the latest student message is inspected.
type Input struct {
	Messages       []session.Message
	Progress       *progress.Record
	Algorithm      string
	XPPerMilestone int // 0 means DefaultXPPerMilestone
}

// Result reports the outcome of one evaluation.
type Result struct {
	Hit             *Definition // the milestone just completed, or nil
	XPAwarded       int
	PercentComplete int // 0..100
}

// Evaluate checks whether the current milestone (first non-done in registry
// order) has just been satisfied, and if so marks it done, timestamps it and
// awards XP. At most one milestone completes per call; later milestones are
// never checked, so progression cannot skip ahead regardless of message
// content.
func (e *Engine) Evaluate(in Input) Result {
	xpPerMilestone := in.XPPerMilestone
	if xpPerMilestone <= 0 {
		xpPerMilestone = DefaultXPPerMilestone
	}

	e.EnsureInitialized(in.Progress, in.Algorithm)
	defs := e.registry.DefinitionsFor(in.Algorithm)

	// Find the first non-done milestone in registry order, not record order.
	// Statuses whose key is missing from the registry are skipped.
	var current *Definition
	var state *progress.Milestone
	for i := range defs {
		if st := in.Progress.FindMilestone(defs[i].Key); st != nil && st.Status != progress.StatusDone {
			current = &defs[i]
			state = st
			break
		}
	}

	if current == nil {
		// Everything done, including the degenerate empty-registry case.
		in.Progress.IsCompleted = true
		return Result{PercentComplete: 100}
	}

	last := session.LatestByRole(in.Messages, session.RoleStudent)
	if last == nil {
		// Nothing to test the detection pattern against.
		return Result{PercentComplete: percentComplete(in.Progress, defs)}
	}

	turns := eligibleTurns(in.Progress)
	turnsOK := current.MinTurns == 0 || turns >= current.MinTurns
	patternOK := current.Detect != nil && current.Detect.MatchString(last.Content)

	if turnsOK && patternOK {
		completedAt := e.now()
		state.Status = progress.StatusDone
		state.CompletedAt = &completedAt
		state.XPAwarded = xpPerMilestone

		in.Progress.IsCompleted = in.Progress.AllDone()
		return Result{
			Hit:             current,
			XPAwarded:       xpPerMilestone,
			PercentComplete: percentComplete(in.Progress, defs),
		}
	}

	return Result{PercentComplete: percentComplete(in.Progress, defs)}
}

// EnsureInitialized lazily populates the record's milestone statuses from the
// registry, in registry order. Idempotent: an already-populated record is left
// untouched even if the registry has since changed.
func (e *Engine) EnsureInitialized(r *progress.Record, algorithm string) {
	if len(r.Milestones) > 0 {
		return
	}
	defs := e.registry.DefinitionsFor(algorithm)
	if len(defs) == 0 {
		return
	}
	r.Milestones = make([]progress.Milestone, len(defs))
	for i, d := range defs {
		r.Milestones[i] = progress.Milestone{
			Key:    d.Key,
			Title:  d.Title,
			Status: progress.StatusPending,
		}
	}
}

// eligibleTurns returns the pacing metric used for turn gating: the number of
// quality turns counted by the caller. The engine only reads it.
func eligibleTurns(r *progress.Record) int {
	return r.QualityTurns
}

// percentComplete is round-half-up of done/total, with a denominator floor of
// 1 so an algorithm with no registered milestones reads as 0%.
func percentComplete(r *progress.Record, defs []Definition) int {
	total := len(defs)
	if total < 1 {
		total = 1
	}
	return int(math.Round(float64(r.DoneCount()) / float64(total) * 100))
}
