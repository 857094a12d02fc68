package transformers

import (
	"errors"
	"fmt"
	"reflect"
)

// RegisterAuto synthesizes an adapter for class C from its constructor and
// registers it like a hand-written one. The constructor is the only place for
// custom logic: it returns ErrNotApplicable to decline a source instance, and
// any other error fails the transformation.
//
// decl.Source defaults to S and decl.Target defaults to C. A class may carry a
// single declaration per (source, target) pair; repeating the same
// registration is a no-op.
//
//	func NewInvoice(o *Order) (*Invoice, error) {
//	    if o.IsDraft() {
//	        return nil, transformers.ErrNotApplicable
//	    }
//	    return &Invoice{Order: o}, nil
//	}
//
//	transformers.RegisterAuto(r, transformers.Declaration{Priority: 10}, NewInvoice)
func RegisterAuto[S, C any](r *Registry, decl Declaration, ctor func(S) (C, error)) error {
	class := reflect.TypeFor[C]()
	param := reflect.TypeFor[S]()
	name := "auto(" + class.String() + ")"

	if ctor == nil {
		return fmt.Errorf("register %s: %w", name, invalid("constructor", "nil constructor"))
	}
	if decl.Source == nil {
		decl.Source = param
	}
	if decl.Target == nil {
		decl.Target = class
	}
	if !decl.Source.AssignableTo(param) {
		return fmt.Errorf("register %s: %w", name,
			invalid("source", "%v cannot be passed to a constructor taking %v", decl.Source, param))
	}
	if !class.AssignableTo(decl.Target) {
		return fmt.Errorf("register %s: %w", name,
			invalid("target", "%v is not assignable to %v", class, decl.Target))
	}

	meta, err := Parse(decl, r.catalog)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	return r.add(&Entry{
		meta:   meta,
		kind:   KindSynthesized,
		name:   name,
		key:    entryKey{kind: KindSynthesized, identity: class, source: meta.Source, target: meta.Target},
		invoke: synthesize(ctor),
	})
}

func synthesize[S, C any](ctor func(S) (C, error)) func(any) (any, error) {
	return func(source any) (any, error) {
		typed, ok := source.(S)
		if !ok {
			return nil, fmt.Errorf("transformers: source %T is not a %v", source, reflect.TypeFor[S]())
		}
		result, err := ctor(typed)
		if errors.Is(err, ErrNotApplicable) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if isNil(result) {
			return nil, nil
		}
		return result, nil
	}
}
