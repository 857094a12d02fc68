// Package transformers turns an instance of one type into an instance of
// another type without the caller knowing which adapter did the work.
//
// # Adapters
//
// Hand-written adapters implement Transformer (or use NewFunc). Classes whose
// adapter would only call their constructor get one synthesized:
//
//	func NewInvoice(o *Order) (*Invoice, error) {
//	    if o.IsDraft() {
//	        return nil, transformers.ErrNotApplicable // let others try
//	    }
//	    return &Invoice{Order: o}, nil
//	}
//
//	r := transformers.NewRegistry()
//	transformers.RegisterAuto(r, transformers.Declaration{Priority: 10}, NewInvoice)
//
// # Resolution
//
//	engine := transformers.NewEngine(r,
//	    transformers.WithWirer(c),        // *container.Container
//	    transformers.WithFeatures(flags), // *features.Set
//	)
//	invoice, ok, err := transformers.As[*Invoice](engine, order)
//
// Candidates for the runtime type of the source are tried by ascending
// priority, then exact source matches, other assignable concrete types and
// interface matches (interfaces with more methods first), then in
// registration order. The first non-nil result is wired and cached for the
// lifetime of the source. A nil result from every candidate is cached as
// well and reported as (nil, false, nil). An adapter error aborts the
// resolution; lower priority candidates are not tried.
//
// # Feature gates
//
// A Declaration (or a FeatureGated transformer) may name a feature. The
// adapter only becomes a candidate while the engine's FeatureChecker reports
// the feature enabled; gating is evaluated on every lookup.
//
// # Caching
//
// Pointer sources are tracked in an identity table keyed by the source's type
// and a weak pointer to it, so the cache itself never keeps a source alive.
// Results are held until the source is collected. A result that points back
// at its source keeps that source reachable; such types should embed
// Composable, which keeps results and any explicitly attached components in
// the source's own table. Plain values have no identity and are never cached.
package transformers
