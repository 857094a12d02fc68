package transformers

import (
	"cmp"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Kind tells how an entry produces its result.
type Kind string

const (
	// KindHandWritten delegates to a Transformer instance.
	KindHandWritten Kind = "handwritten"
	// KindSynthesized calls the target class constructor with the source.
	KindSynthesized Kind = "synthesized"
)

// Entry is one registered adapter. Entries are immutable once registered.
type Entry struct {
	meta   Metadata
	kind   Kind
	name   string
	key    entryKey
	seq    int
	invoke func(source any) (any, error)
}

// Metadata returns the parsed declaration of the entry.
func (e *Entry) Metadata() Metadata { return e.meta }

// Kind returns the invocation strategy of the entry.
func (e *Entry) Kind() Kind { return e.kind }

// Name describes the adapter behind the entry.
func (e *Entry) Name() string { return e.name }

func (e *Entry) String() string {
	return fmt.Sprintf("%s %s", e.name, e.meta)
}

// entryKey identifies an adapter for deduplication. identity is the adapter
// value for hand-written entries and the synthesized class otherwise.
type entryKey struct {
	kind     Kind
	identity any
	source   reflect.Type
	target   reflect.Type
}

type pairKey struct {
	source reflect.Type
	target reflect.Type
}

// snapshot is a read-only view of the index. Register replaces the whole
// snapshot; readers never observe a partially built one.
type snapshot struct {
	byTarget map[reflect.Type][]*Entry
	byKey    map[entryKey]*Entry
	next     int

	// pairKey -> []*Entry ordered for that runtime source type, ungated
	ordered sync.Map
}

func (s *snapshot) candidates(source, target reflect.Type) []*Entry {
	key := pairKey{source: source, target: target}
	if cached, ok := s.ordered.Load(key); ok {
		return cached.([]*Entry)
	}

	type ranked struct {
		entry *Entry
		level int
		depth int
	}
	var matches []ranked
	for _, entry := range s.byTarget[target] {
		declared := entry.meta.Source
		switch {
		case source == declared:
			matches = append(matches, ranked{entry: entry})
		case !source.AssignableTo(declared):
		case declared.Kind() == reflect.Interface:
			// An interface embedding another has strictly more methods.
			matches = append(matches, ranked{entry: entry, level: 2, depth: declared.NumMethod()})
		default:
			matches = append(matches, ranked{entry: entry, level: 1})
		}
	}
	slices.SortStableFunc(matches, func(a, b ranked) int {
		return cmp.Or(
			cmp.Compare(a.entry.meta.Priority, b.entry.meta.Priority),
			cmp.Compare(a.level, b.level),
			cmp.Compare(b.depth, a.depth),
			cmp.Compare(a.entry.seq, b.entry.seq),
		)
	})

	out := make([]*Entry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	actual, _ := s.ordered.LoadOrStore(key, out)
	return actual.([]*Entry)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFeatureCatalog lets Parse reject features the catalog does not know.
func WithFeatureCatalog(catalog FeatureChecker) RegistryOption {
	return func(r *Registry) { r.catalog = catalog }
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry indexes adapters by target type.
type Registry struct {
	writeMu sync.Mutex
	current atomic.Pointer[snapshot]

	catalog FeatureChecker
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&snapshot{
		byTarget: make(map[reflect.Type][]*Entry),
		byKey:    make(map[entryKey]*Entry),
	})
	return r
}

// Register adds a hand-written transformer. Registering the same transformer
// with the same metadata again is a no-op.
func (r *Registry) Register(t Transformer) error {
	if isNil(t) {
		return invalid("adapter", "nil transformer")
	}
	decl := Declaration{Source: t.Source(), Target: t.Target(), Priority: t.Priority()}
	if gated, ok := t.(FeatureGated); ok {
		decl.Feature = gated.RequiredFeature()
	}
	meta, err := Parse(decl, r.catalog)
	if err != nil {
		return fmt.Errorf("register %s: %w", adapterName(t), err)
	}

	return r.add(&Entry{
		meta:   meta,
		kind:   KindHandWritten,
		name:   adapterName(t),
		key:    entryKey{kind: KindHandWritten, identity: identityOf(t), source: meta.Source, target: meta.Target},
		invoke: t.Make,
	})
}

func (r *Registry) add(entry *Entry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.current.Load()
	if existing, ok := old.byKey[entry.key]; ok {
		if existing.meta == entry.meta {
			return nil
		}
		return fmt.Errorf("register %s: %w", entry.name,
			invalid("metadata", "already registered as %s", existing.meta))
	}

	next := &snapshot{
		byTarget: make(map[reflect.Type][]*Entry, len(old.byTarget)+1),
		byKey:    make(map[entryKey]*Entry, len(old.byKey)+1),
		next:     old.next + 1,
	}
	for target, entries := range old.byTarget {
		next.byTarget[target] = entries
	}
	for key, e := range old.byKey {
		next.byKey[key] = e
	}

	entry.seq = old.next
	target := entry.meta.Target
	next.byTarget[target] = append(slices.Clip(old.byTarget[target]), entry)
	next.byKey[entry.key] = entry

	r.current.Store(next)
	r.logger.Debug("transformer registered",
		"adapter", entry.name,
		"kind", string(entry.kind),
		"source", entry.meta.Source.String(),
		"target", entry.meta.Target.String(),
		"priority", entry.meta.Priority,
		"feature", entry.meta.Feature,
	)
	return nil
}

// CandidatesFor returns the entries able to turn a value of sourceType into
// targetType, in the order they must be tried. Entries whose feature is not
// enabled in features are left out; a nil features disables every gated entry.
func (r *Registry) CandidatesFor(sourceType, targetType reflect.Type, features FeatureChecker) []*Entry {
	if sourceType == nil || targetType == nil {
		return nil
	}
	ordered := r.current.Load().candidates(sourceType, targetType)

	out := make([]*Entry, 0, len(ordered))
	for _, entry := range ordered {
		if entry.meta.Feature != "" && (features == nil || !features.IsFeatureEnabled(entry.meta.Feature)) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.current.Load().byKey)
}

// EntryInfo is a printable description of a registry entry.
type EntryInfo struct {
	Adapter  string `json:"adapter"`
	Kind     Kind   `json:"kind"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
	Feature  string `json:"feature,omitempty"`
}

// Entries lists all entries grouped by target, in resolution order.
func (r *Registry) Entries() []EntryInfo {
	snap := r.current.Load()
	all := make([]*Entry, 0, len(snap.byKey))
	for _, e := range snap.byKey {
		all = append(all, e)
	}
	slices.SortFunc(all, func(a, b *Entry) int {
		return cmp.Or(
			strings.Compare(a.meta.Target.String(), b.meta.Target.String()),
			cmp.Compare(a.meta.Priority, b.meta.Priority),
			cmp.Compare(a.seq, b.seq),
		)
	})

	out := make([]EntryInfo, len(all))
	for i, e := range all {
		out[i] = EntryInfo{
			Adapter:  e.name,
			Kind:     e.kind,
			Source:   e.meta.Source.String(),
			Target:   e.meta.Target.String(),
			Priority: e.meta.Priority,
			Feature:  e.meta.Feature,
		}
	}
	return out
}

func identityOf(t Transformer) any {
	if reflect.TypeOf(t).Comparable() {
		return t
	}
	// Not usable as a map key; every registration is distinct.
	return new(byte)
}

func adapterName(t Transformer) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", t)
}
