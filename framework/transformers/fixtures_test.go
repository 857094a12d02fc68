package transformers_test

import (
	"errors"
	"sync/atomic"

	"github.com/km-arc/go-kernel/framework/transformers"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Order struct {
	ID    string
	Draft bool
}

func (o *Order) IsDraft() bool { return o.Draft }

type Invoice struct {
	Order *Order
	Wired bool
}

type Billable interface {
	BillingID() string
}

func (i *Invoice) BillingID() string { return "INV-" + i.Order.ID }

type Identified interface {
	IsDraft() bool
}

type Receipt struct {
	From string
}

func (r *Receipt) BillingID() string { return "RCP-" + r.From }

// counting wraps a constructor and counts its invocations.
type counting struct {
	calls atomic.Int64
}

func (c *counting) invoice(o *Order) (*Invoice, error) {
	c.calls.Add(1)
	if o.IsDraft() {
		return nil, transformers.ErrNotApplicable
	}
	return &Invoice{Order: o}, nil
}

// recordingWirer marks invoices as wired and counts calls.
type recordingWirer struct {
	calls atomic.Int64
}

func (w *recordingWirer) Wire(instance any) (any, error) {
	w.calls.Add(1)
	if inv, ok := instance.(*Invoice); ok {
		inv.Wired = true
	}
	return instance, nil
}

type featureFlags map[string]bool

func (f featureFlags) IsFeatureEnabled(name string) bool { return f[name] }
func (f featureFlags) HasFeature(name string) bool {
	_, ok := f[name]
	return ok
}

var errBroken = errors.New("broken adapter")
