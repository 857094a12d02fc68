// Package features holds the named on/off switches transformers can be gated
// behind. Reads are lock-free; updates replace the whole state, so a flag
// flipped at runtime is seen by the next lookup.
package features

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/km-arc/go-kernel/framework/config"
)

// Set is a collection of declared features and their state.
// It implements transformers.FeatureChecker and transformers.FeatureCatalog.
type Set struct {
	mu     sync.Mutex
	state  atomic.Pointer[map[string]bool]
	logger *slog.Logger
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger used to report state changes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Set with the given features declared and enabled.
func New(enabled []string, opts ...Option) *Set {
	s := &Set{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	state := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if name = normalize(name); name != "" {
			state[name] = true
		}
	}
	s.state.Store(&state)
	return s
}

// FromConfig builds a Set from cfg. The feature file is applied first, then
// the enabled list, then the disabled list.
func FromConfig(cfg config.FeaturesConfig, opts ...Option) (*Set, error) {
	s := New(nil, opts...)
	if cfg.File != "" {
		fromFile, err := config.LoadFeatureFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("features: %w", err)
		}
		for name, enabled := range fromFile {
			s.Declare(name, enabled)
		}
	}
	s.Enable(cfg.Enabled...)
	s.Disable(cfg.Disabled...)
	return s, nil
}

// Declare makes name known with the given state.
func (s *Set) Declare(name string, enabled bool) {
	s.update(enabled, name)
}

// Enable declares and enables the named features.
func (s *Set) Enable(names ...string) {
	s.update(true, names...)
}

// Disable declares and disables the named features.
func (s *Set) Disable(names ...string) {
	s.update(false, names...)
}

func (s *Set) update(enabled bool, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.state.Load()
	next := make(map[string]bool, len(old)+len(names))
	for name, state := range old {
		next[name] = state
	}
	changed := false
	for _, name := range names {
		name = normalize(name)
		if name == "" {
			continue
		}
		if state, known := next[name]; known && state == enabled {
			continue
		}
		next[name] = enabled
		changed = true
		s.logger.Info("feature toggled", "feature", name, "enabled", enabled)
	}
	if changed {
		s.state.Store(&next)
	}
}

// IsFeatureEnabled reports whether name is declared and enabled.
func (s *Set) IsFeatureEnabled(name string) bool {
	return (*s.state.Load())[normalize(name)]
}

// HasFeature reports whether name is declared, enabled or not.
func (s *Set) HasFeature(name string) bool {
	_, ok := (*s.state.Load())[normalize(name)]
	return ok
}

// Names returns all declared features, sorted.
func (s *Set) Names() []string {
	state := *s.state.Load()
	out := make([]string, 0, len(state))
	for name := range state {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Snapshot returns a copy of the current state.
func (s *Set) Snapshot() map[string]bool {
	state := *s.state.Load()
	out := make(map[string]bool, len(state))
	for name, enabled := range state {
		out[name] = enabled
	}
	return out
}

func normalize(name string) string {
	return strings.TrimSpace(name)
}
