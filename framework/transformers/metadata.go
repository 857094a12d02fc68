package transformers

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// DefaultPriority is used when a declaration leaves Priority unset.
// Lower values win.
const DefaultPriority = 100

// Declaration is the declarative record attached to an adapter or to a class
// that should get a synthesized adapter.
//
//	transformers.Declaration{
//	    Source:   reflect.TypeFor[*Order](),
//	    Target:   reflect.TypeFor[*Invoice](),
//	    Priority: 10,
//	}
type Declaration struct {
	Source reflect.Type
	Target reflect.Type
	// Priority 0 means unset and resolves to DefaultPriority.
	Priority int
	// Feature, when set, must be enabled for the adapter to be a candidate.
	Feature string
}

// Metadata is the parsed, immutable form of a Declaration.
type Metadata struct {
	Source   reflect.Type
	Target   reflect.Type
	Priority int
	Feature  string
}

func (m Metadata) String() string {
	s := fmt.Sprintf("%v -> %v (priority %d", m.Source, m.Target, m.Priority)
	if m.Feature != "" {
		s += ", feature " + m.Feature
	}
	return s + ")"
}

// FeatureChecker answers whether a named feature is currently enabled.
type FeatureChecker interface {
	IsFeatureEnabled(name string) bool
}

// FeatureCatalog is optionally implemented by a FeatureChecker that knows the
// full set of declared features, enabled or not.
type FeatureCatalog interface {
	HasFeature(name string) bool
}

// FeatureFunc adapts a function to FeatureChecker.
type FeatureFunc func(name string) bool

func (f FeatureFunc) IsFeatureEnabled(name string) bool { return f(name) }

// Parse validates decl and returns its Metadata. catalog may be nil; when it
// implements FeatureCatalog the required feature must be known to it.
func Parse(decl Declaration, catalog FeatureChecker) (Metadata, error) {
	if decl.Source == nil {
		return Metadata{}, invalid("source", "missing source type")
	}
	if decl.Target == nil {
		return Metadata{}, invalid("target", "missing target type")
	}
	if decl.Source == decl.Target {
		return Metadata{}, invalid("target", "source and target are both %v", decl.Source)
	}

	priority := decl.Priority
	if priority == 0 {
		priority = DefaultPriority
	}

	feature := strings.TrimSpace(decl.Feature)
	if feature != "" {
		if strings.IndexFunc(feature, unicode.IsSpace) >= 0 {
			return Metadata{}, invalid("feature", "%q contains whitespace", feature)
		}
		if known, ok := catalog.(FeatureCatalog); ok && !known.HasFeature(feature) {
			return Metadata{}, invalid("feature", "unknown feature %q", feature)
		}
	}

	return Metadata{
		Source:   decl.Source,
		Target:   decl.Target,
		Priority: priority,
		Feature:  feature,
	}, nil
}
