package deob

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/iancoleman/orderedmap"
	"github.com/t14raptor/go-fast/ast"
)

// Registry holds the set of known targets in registration order.
type Registry struct {
	targets   *orderedmap.OrderedMap
	defaultID string
	log       *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to the
// default.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{targets: orderedmap.New(), log: log}
}

// Register adds a target; overwriting an existing id is allowed but logged.
func (r *Registry) Register(t *Target) {
	if t == nil || t.Meta.ID == "" {
		return
	}
	if _, exists := r.targets.Get(t.Meta.ID); exists {
		r.log.Warn("overwriting registered target", slog.String("id", t.Meta.ID))
	}
	r.targets.Set(t.Meta.ID, t)
}

// Unregister removes a target and reports whether it was present. Removing
// the default clears it.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.targets.Get(id); !ok {
		return false
	}
	r.targets.Delete(id)
	if r.defaultID == id {
		r.defaultID = ""
	}
	return true
}

// Get looks a target up by id.
func (r *Registry) Get(id string) (*Target, bool) {
	v, ok := r.targets.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Target), true
}

// Has reports whether a target id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.targets.Get(id)
	return ok
}

// List returns the registered ids in registration order.
func (r *Registry) List() []string {
	return r.targets.Keys()
}

// GetAll returns the targets in registration order.
func (r *Registry) GetAll() []*Target {
	keys := r.targets.Keys()
	out := make([]*Target, 0, len(keys))
	for _, k := range keys {
		v, _ := r.targets.Get(k)
		out = append(out, v.(*Target))
	}
	return out
}

// SetDefault names the target used when detection is inconclusive.
func (r *Registry) SetDefault(id string) error {
	if !r.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	r.defaultID = id
	return nil
}

// Default returns the default target, or nil if none is set.
func (r *Registry) Default() *Target {
	if r.defaultID == "" {
		return nil
	}
	t, _ := r.Get(r.defaultID)
	return t
}

// Match pairs a target with its detection result.
type Match struct {
	Target *Target
	Result Detection
}

// Detect probes every target and returns matches sorted by descending
// confidence. Targets without a probe or with zero confidence are omitted;
// per-target failures (errors and panics alike) are swallowed and logged.
func (r *Registry) Detect(tree *ast.Program) []Match {
	var matches []Match
	for _, t := range r.GetAll() {
		if t.Detect == nil {
			continue
		}
		result, err := r.detectOne(t, tree)
		if err != nil {
			r.log.Warn("target detection failed",
				slog.String("id", t.Meta.ID), slog.String("error", err.Error()))
			continue
		}
		if result.Confidence <= 0 {
			continue
		}
		if result.Confidence > 1 {
			result.Confidence = 1
		}
		matches = append(matches, Match{Target: t, Result: result})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Result.Confidence > matches[j].Result.Confidence
	})
	return matches
}

func (r *Registry) detectOne(t *Target, tree *ast.Program) (result Detection, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrDetection, t.Meta.ID, rec)
		}
	}()
	result, err = t.Detect(tree)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrDetection, t.Meta.ID, err)
	}
	return result, err
}

// Resolve picks the target for a run. An explicit id must exist; in auto
// mode, the best detection wins if it clears the threshold, otherwise the
// default target (which may be nil) is returned.
func (r *Registry) Resolve(tree *ast.Program, explicit string, threshold float64) (*Target, error) {
	if explicit != "" && explicit != "auto" {
		t, ok := r.Get(explicit)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, explicit)
		}
		return t, nil
	}
	matches := r.Detect(tree)
	if len(matches) > 0 && matches[0].Result.Confidence >= threshold {
		best := matches[0]
		r.log.Debug("detection selected target",
			slog.String("id", best.Target.Meta.ID),
			slog.Float64("confidence", best.Result.Confidence))
		return best.Target, nil
	}
	return r.Default(), nil
}
