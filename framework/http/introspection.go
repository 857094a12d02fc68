package http

import (
	"net/http"

	"github.com/km-arc/go-kernel/framework/transformers"
)

// EntryLister lists the adapters known to a transformer registry.
type EntryLister interface {
	Entries() []transformers.EntryInfo
}

// FeatureLister exposes the state of every declared feature.
type FeatureLister interface {
	Snapshot() map[string]bool
}

// transformerView is an EntryInfo plus whether its feature gate is open.
type transformerView struct {
	transformers.EntryInfo
	Enabled bool `json:"enabled"`
}

// TransformersHandler serves the registry contents in resolution order.
// An entry is enabled when it has no feature or its feature is on.
func TransformersHandler(registry EntryLister, features transformers.FeatureChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := registry.Entries()
		out := make([]transformerView, len(entries))
		for i, e := range entries {
			enabled := e.Feature == "" || (features != nil && features.IsFeatureEnabled(e.Feature))
			out[i] = transformerView{EntryInfo: e, Enabled: enabled}
		}
		NewResponse(w).Success(out)
	}
}

// FeaturesHandler serves declared features and their state.
func FeaturesHandler(features FeatureLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if features == nil {
			NewResponse(w).Success(map[string]bool{})
			return
		}
		NewResponse(w).Success(features.Snapshot())
	}
}
