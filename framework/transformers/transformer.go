package transformers

import (
	"fmt"
	"reflect"
)

// Transformer converts instances of Source into instances of Target.
//
// Make returns (nil, nil) or ErrNotApplicable to decline a particular source
// instance; the next candidate is tried. Any other error aborts the whole
// transformation.
//
//	type orderToInvoice struct{}
//
//	func (orderToInvoice) Source() reflect.Type { return reflect.TypeFor[*Order]() }
//	func (orderToInvoice) Target() reflect.Type { return reflect.TypeFor[*Invoice]() }
//	func (orderToInvoice) Priority() int        { return transformers.DefaultPriority }
//	func (orderToInvoice) Make(src any) (any, error) {
//	    return &Invoice{Order: src.(*Order)}, nil
//	}
type Transformer interface {
	Source() reflect.Type
	Target() reflect.Type
	Priority() int
	Make(source any) (any, error)
}

// FeatureGated is implemented by transformers that only participate while a
// named feature is enabled.
type FeatureGated interface {
	RequiredFeature() string
}

// FuncOption configures a Func transformer.
type FuncOption func(*funcSettings)

type funcSettings struct {
	priority int
	feature  string
}

// WithPriority overrides DefaultPriority for a Func transformer.
func WithPriority(priority int) FuncOption {
	return func(s *funcSettings) { s.priority = priority }
}

// WithFeature gates a Func transformer behind a feature.
func WithFeature(name string) FuncOption {
	return func(s *funcSettings) { s.feature = name }
}

// Func is a hand-written transformer backed by a plain function.
type Func[S, T any] struct {
	fn       func(S) (T, error)
	priority int
	feature  string
}

// NewFunc wraps fn as a Transformer from S to T.
//
//	r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
//	    return &orderBillable{o}, nil
//	}, transformers.WithPriority(50)))
func NewFunc[S, T any](fn func(S) (T, error), opts ...FuncOption) *Func[S, T] {
	settings := funcSettings{priority: DefaultPriority}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Func[S, T]{fn: fn, priority: settings.priority, feature: settings.feature}
}

func (f *Func[S, T]) Source() reflect.Type    { return reflect.TypeFor[S]() }
func (f *Func[S, T]) Target() reflect.Type    { return reflect.TypeFor[T]() }
func (f *Func[S, T]) Priority() int           { return f.priority }
func (f *Func[S, T]) RequiredFeature() string { return f.feature }

// Make implements Transformer.
func (f *Func[S, T]) Make(source any) (any, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("transformers: nil function for %v", f.Target())
	}
	typed, ok := source.(S)
	if !ok {
		return nil, fmt.Errorf("transformers: source %T is not a %v", source, f.Source())
	}
	result, err := f.fn(typed)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *Func[S, T]) String() string {
	return fmt.Sprintf("func(%v) %v", f.Source(), f.Target())
}
