package transformers_test

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-kernel/framework/transformers"
)

var (
	invoiceType  = reflect.TypeFor[*Invoice]()
	billableType = reflect.TypeFor[Billable]()
)

func newEngine(t *testing.T, r *transformers.Registry, opts ...transformers.Option) *transformers.Engine {
	t.Helper()
	return transformers.NewEngine(r, opts...)
}

// ── Short circuits ────────────────────────────────────────────────────────────

func TestTransform_NilInstance(t *testing.T) {
	var calls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (*Invoice, error) {
		calls.Add(1)
		return &Invoice{Order: o}, nil
	})))
	e := newEngine(t, r)

	got, err := e.Transform(nil, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)

	var typedNil *Order
	got, err = e.Transform(typedNil, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, calls.Load())
}

func TestTransform_IdentityShortCircuit(t *testing.T) {
	var calls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(i *Invoice) (Billable, error) {
		calls.Add(1)
		return &Receipt{From: "x"}, nil
	})))
	e := newEngine(t, r)

	inv := &Invoice{Order: &Order{ID: "1"}}
	got, err := e.Transform(inv, billableType)
	require.NoError(t, err)
	assert.Same(t, inv, got)
	assert.Zero(t, calls.Load(), "no adapter may run for an instance already of the target type")
}

func TestTransform_NilTargetType(t *testing.T) {
	e := newEngine(t, transformers.NewRegistry())
	_, err := e.Transform(&Order{}, nil)
	assert.Error(t, err)
}

// ── Caching ───────────────────────────────────────────────────────────────────

func TestTransform_NoCandidate_CachesNoResult(t *testing.T) {
	var calls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (*Invoice, error) {
		calls.Add(1)
		return nil, nil
	})))
	e := newEngine(t, r)

	order := &Order{ID: "7"}
	got, err := e.Transform(order, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = e.Transform(order, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), calls.Load(), "the cached no-result must not re-walk the candidates")
}

func TestTransform_NothingRegistered(t *testing.T) {
	e := newEngine(t, transformers.NewRegistry())
	got, err := e.Transform(&Order{}, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransform_ValueSourcesAreNotCached(t *testing.T) {
	var calls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(id string) (*Receipt, error) {
		calls.Add(1)
		return &Receipt{From: id}, nil
	})))
	e := newEngine(t, r)

	first, ok, err := transformers.As[*Receipt](e, "A-1")
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := transformers.As[*Receipt](e, "A-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), calls.Load())
}

type Envelope struct {
	Header Header
	Body   string
}

type Header struct {
	Route string
}

func TestTransform_SharedAddressSourcesCachedSeparately(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(*Envelope) (*Receipt, error) {
		return nil, nil
	})))
	require.NoError(t, r.Register(transformers.NewFunc(func(h *Header) (*Receipt, error) {
		return &Receipt{From: h.Route}, nil
	})))
	e := newEngine(t, r)

	env := &Envelope{Header: Header{Route: "inner"}}
	_, ok, err := transformers.As[*Receipt](e, env)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := transformers.As[*Receipt](e, &env.Header)
	require.NoError(t, err)
	require.True(t, ok, "the header must not see the envelope's cached no-result")
	assert.Equal(t, "inner", got.From)
}

func TestTransform_CachedResultSurvivesGC(t *testing.T) {
	c := &counting{}
	w := &recordingWirer{}
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{}, c.invoice))
	e := newEngine(t, r, transformers.WithWirer(w))

	order := &Order{ID: "gc"}
	first, err := transformers.Make[*Invoice](e, order)
	require.NoError(t, err)
	firstAddr := fmt.Sprintf("%p", first)
	first = nil

	runtime.GC()
	runtime.GC()

	second, err := transformers.Make[*Invoice](e, order)
	require.NoError(t, err)
	assert.Equal(t, firstAddr, fmt.Sprintf("%p", second))
	assert.Equal(t, int64(1), c.calls.Load())
	assert.Equal(t, int64(1), w.calls.Load())
	runtime.KeepAlive(order)
}

// ── Priorities ────────────────────────────────────────────────────────────────

func TestTransform_HigherPrecedenceWins(t *testing.T) {
	var firstCalls, secondCalls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		secondCalls.Add(1)
		return &Receipt{From: "second"}, nil
	}, transformers.WithPriority(2))))
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		firstCalls.Add(1)
		return &Receipt{From: "first"}, nil
	}, transformers.WithPriority(1))))
	e := newEngine(t, r)

	got, err := transformers.Make[Billable](e, &Order{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "RCP-first", got.BillingID())
	assert.Equal(t, int64(1), firstCalls.Load())
	assert.Zero(t, secondCalls.Load())
}

func TestTransform_DeclineFallsThroughAndWires(t *testing.T) {
	wirer := &recordingWirer{}
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return nil, nil
	}, transformers.WithPriority(1))))
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return &Invoice{Order: o}, nil
	}, transformers.WithPriority(2))))
	e := newEngine(t, r, transformers.WithWirer(wirer))

	got, ok, err := transformers.As[Billable](e, &Order{ID: "9"})
	require.NoError(t, err)
	require.True(t, ok)
	inv, isInvoice := got.(*Invoice)
	require.True(t, isInvoice)
	assert.True(t, inv.Wired)
	assert.Equal(t, int64(1), wirer.calls.Load())
}

func TestTransform_SynthesizedNotApplicableFallsThrough(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r,
		transformers.Declaration{Target: billableType, Priority: 1},
		func(o *Order) (*Invoice, error) { return nil, transformers.ErrNotApplicable },
	))
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return &Receipt{From: o.ID}, nil
	}, transformers.WithPriority(5))))
	e := newEngine(t, r)

	got, err := transformers.Make[Billable](e, &Order{ID: "3"})
	require.NoError(t, err)
	assert.Equal(t, "RCP-3", got.BillingID())
}

// ── Failures ──────────────────────────────────────────────────────────────────

func TestTransform_AdapterFailureAbortsResolution(t *testing.T) {
	var fallbackCalls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return nil, errBroken
	}, transformers.WithPriority(1))))
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		fallbackCalls.Add(1)
		return &Receipt{}, nil
	}, transformers.WithPriority(2))))
	e := newEngine(t, r)

	_, err := e.Transform(&Order{}, billableType)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)

	var adapterErr *transformers.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, billableType, adapterErr.Target)
	assert.Zero(t, fallbackCalls.Load())
}

func TestTransform_SynthesizedFailurePropagates(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{},
		func(o *Order) (*Invoice, error) { return nil, fmt.Errorf("load order %s: %w", o.ID, errBroken) },
	))
	e := newEngine(t, r)

	_, err := e.Transform(&Order{ID: "5"}, invoiceType)
	assert.ErrorIs(t, err, errBroken)
}

func TestTransform_AdapterPanicBecomesError(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (*Invoice, error) {
		panic("boom")
	})))
	e := newEngine(t, r)

	_, err := e.Transform(&Order{}, invoiceType)
	assert.ErrorIs(t, err, transformers.ErrAdapterPanic)
}

func TestTransform_FailuresAreNotCached(t *testing.T) {
	var calls atomic.Int64
	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (*Invoice, error) {
		if calls.Add(1) == 1 {
			return nil, errBroken
		}
		return &Invoice{Order: o}, nil
	})))
	e := newEngine(t, r)

	order := &Order{}
	_, err := e.Transform(order, invoiceType)
	require.ErrorIs(t, err, errBroken)

	got, err := e.Transform(order, invoiceType)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestTransform_WireFailure(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{},
		func(o *Order) (*Invoice, error) { return &Invoice{Order: o}, nil },
	))
	wirer := transformers.WirerFunc(func(instance any) (any, error) {
		return nil, errors.New("missing binding")
	})
	e := newEngine(t, r, transformers.WithWirer(wirer))

	_, err := e.Transform(&Order{}, invoiceType)
	assert.ErrorContains(t, err, "missing binding")
}

func TestMake_NoTransformer(t *testing.T) {
	e := newEngine(t, transformers.NewRegistry())
	_, err := transformers.Make[*Invoice](e, &Order{})
	assert.ErrorIs(t, err, transformers.ErrNoTransformer)
}

func TestIs(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{}, (&counting{}).invoice))
	e := newEngine(t, r)

	ok, err := transformers.Is[*Invoice](e, &Order{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = transformers.Is[*Invoice](e, &Order{Draft: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

// ── Feature gates ─────────────────────────────────────────────────────────────

func TestTransform_FeatureGateReevaluatedPerCall(t *testing.T) {
	flags := featureFlags{"billing": false}
	var mu sync.Mutex
	checker := transformers.FeatureFunc(func(name string) bool {
		mu.Lock()
		defer mu.Unlock()
		return flags[name]
	})

	r := transformers.NewRegistry()
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return &Receipt{From: "gated"}, nil
	}, transformers.WithPriority(1), transformers.WithFeature("billing"))))
	require.NoError(t, r.Register(transformers.NewFunc(func(o *Order) (Billable, error) {
		return &Receipt{From: "plain"}, nil
	}, transformers.WithPriority(2))))
	e := newEngine(t, r, transformers.WithFeatures(checker))

	got, err := transformers.Make[Billable](e, &Order{})
	require.NoError(t, err)
	assert.Equal(t, "RCP-plain", got.BillingID())

	mu.Lock()
	flags["billing"] = true
	mu.Unlock()

	got, err = transformers.Make[Billable](e, &Order{})
	require.NoError(t, err)
	assert.Equal(t, "RCP-gated", got.BillingID())
}

// ── Invoice scenario ──────────────────────────────────────────────────────────

func TestTransform_InvoiceScenario(t *testing.T) {
	ctor := &counting{}
	wirer := &recordingWirer{}
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{
		Source:   reflect.TypeFor[*Order](),
		Target:   invoiceType,
		Priority: 10,
	}, ctor.invoice))
	e := newEngine(t, r, transformers.WithWirer(wirer))

	draft := &Order{ID: "D", Draft: true}
	got, err := e.Transform(draft, invoiceType)
	require.NoError(t, err)
	assert.Nil(t, got)

	final := &Order{ID: "F"}
	first, err := transformers.Make[*Invoice](e, final)
	require.NoError(t, err)
	assert.True(t, first.Wired)
	assert.Same(t, final, first.Order)

	second, err := transformers.Make[*Invoice](e, final)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(2), ctor.calls.Load(), "one call for the draft, one for the final order")
	assert.Equal(t, int64(1), wirer.calls.Load())
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestTransform_ConcurrentCallersAgree(t *testing.T) {
	r := transformers.NewRegistry()
	require.NoError(t, transformers.RegisterAuto(r, transformers.Declaration{Target: billableType},
		func(o *Order) (*Invoice, error) { return &Invoice{Order: o}, nil },
	))
	e := newEngine(t, r)

	orders := make([]*Order, 8)
	for i := range orders {
		orders[i] = &Order{ID: fmt.Sprint(i)}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 64; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			order := orders[g%len(orders)]
			got, err := transformers.Make[Billable](e, order)
			if err != nil {
				errs <- err
				return
			}
			if got.BillingID() != "INV-"+order.ID {
				errs <- fmt.Errorf("order %s: got %s", order.ID, got.BillingID())
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, order := range orders {
		first, err := transformers.Make[Billable](e, order)
		require.NoError(t, err)
		second, err := transformers.Make[Billable](e, order)
		require.NoError(t, err)
		assert.Same(t, first, second)
	}
}
