package transformers

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// Wirer populates the dependency injection points of a freshly created
// instance. It must be idempotent.
type Wirer interface {
	Wire(instance any) (any, error)
}

// WirerFunc adapts a function to Wirer.
type WirerFunc func(instance any) (any, error)

func (f WirerFunc) Wire(instance any) (any, error) { return f(instance) }

// Option configures an Engine.
type Option func(*Engine)

// WithWirer sets the collaborator that wires produced instances.
func WithWirer(wirer Wirer) Option {
	return func(e *Engine) { e.wirer = wirer }
}

// WithFeatures sets the collaborator that answers feature gate queries.
func WithFeatures(features FeatureChecker) Option {
	return func(e *Engine) { e.features = features }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine resolves transform requests against a Registry.
// An Engine is safe for concurrent use.
type Engine struct {
	registry *Registry
	wirer    Wirer
	features FeatureChecker
	logger   *slog.Logger
	cache    instanceCache
}

// NewEngine creates an engine over registry.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine resolves against.
func (e *Engine) Registry() *Registry { return e.registry }

// Transform converts instance into target.
//
// It returns (nil, nil) when instance is nil or no candidate produced a
// result. Instances already assignable to target are returned unchanged.
// Results, including "no result", are cached per source instance. An error
// means a candidate failed or the produced instance could not be wired.
func (e *Engine) Transform(instance any, target reflect.Type) (any, error) {
	if target == nil {
		return nil, errors.New("transformers: nil target type")
	}
	if isNil(instance) {
		return nil, nil
	}

	sourceType := reflect.TypeOf(instance)
	if sourceType.AssignableTo(target) {
		return instance, nil
	}

	if table := e.cache.lookup(instance, false); table != nil {
		if value, ok := table.get(target); ok {
			return value, nil
		}
	}

	result, err := e.resolve(instance, sourceType, target)
	if err != nil {
		return nil, err
	}

	if table := e.cache.lookup(instance, true); table != nil {
		table.put(target, result)
	}
	return result, nil
}

func (e *Engine) resolve(instance any, sourceType, target reflect.Type) (any, error) {
	candidates := e.registry.CandidatesFor(sourceType, target, e.features)
	for _, candidate := range candidates {
		value, err := invoke(candidate, instance)
		if err != nil {
			return nil, &AdapterError{Source: sourceType, Target: target, Adapter: candidate.name, Err: err}
		}
		if value == nil {
			e.logger.Debug("transformer declined",
				"adapter", candidate.name,
				"source", sourceType.String(),
				"target", target.String(),
			)
			continue
		}
		if !reflect.TypeOf(value).AssignableTo(target) {
			return nil, &AdapterError{
				Source:  sourceType,
				Target:  target,
				Adapter: candidate.name,
				Err:     fmt.Errorf("produced %T", value),
			}
		}

		wired, err := e.wire(value)
		if err != nil {
			return nil, fmt.Errorf("transformers: wire %T: %w", value, err)
		}
		e.logger.Debug("transformer applied",
			"adapter", candidate.name,
			"source", sourceType.String(),
			"target", target.String(),
		)
		return wired, nil
	}

	e.logger.Debug("no transformer applicable",
		"source", sourceType.String(),
		"target", target.String(),
		"candidates", len(candidates),
	)
	return nil, nil
}

func (e *Engine) wire(value any) (any, error) {
	if e.wirer == nil {
		return value, nil
	}
	wired, err := e.wirer.Wire(value)
	if err != nil {
		return nil, err
	}
	if isNil(wired) {
		return value, nil
	}
	return wired, nil
}

// invoke runs a candidate and folds its decline signals into a nil result.
// Panics are reported as ErrAdapterPanic.
func invoke(entry *Entry, source any) (value any, err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		value = nil
		err = fmt.Errorf("%w: %v", ErrAdapterPanic, recovered)
	}()

	value, err = entry.invoke(source)
	if errors.Is(err, ErrNotApplicable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isNil(value) {
		return nil, nil
	}
	return value, nil
}

// As transforms instance into T.
//
//	invoice, ok, err := transformers.As[*Invoice](engine, order)
func As[T any](e *Engine, instance any) (T, bool, error) {
	var zero T
	value, err := e.Transform(instance, reflect.TypeFor[T]())
	if err != nil || value == nil {
		return zero, false, err
	}
	typed, ok := value.(T)
	return typed, ok, nil
}

// Is reports whether instance can be transformed into T.
func Is[T any](e *Engine, instance any) (bool, error) {
	_, ok, err := As[T](e, instance)
	return ok, err
}

// Make is like As but reports a missing result as ErrNoTransformer.
func Make[T any](e *Engine, instance any) (T, error) {
	value, ok, err := As[T](e, instance)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, fmt.Errorf("%w: %T to %v", ErrNoTransformer, instance, reflect.TypeFor[T]())
	}
	return value, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
