package transformers

import (
	"fmt"
	"reflect"
	"sync"
)

// Composable gives a type its own component table. Embed it to let instances
// carry explicitly attached components and to keep transform results next to
// the instance instead of in the shared identity table.
//
//	type Order struct {
//	    transformers.Composable
//	    ID string
//	}
//
//	order.Attach(&auditTrail{})
//	trail, ok, err := transformers.As[*auditTrail](engine, order)
//
// A Composable must not be copied after first use.
type Composable struct {
	once  sync.Once
	table *componentTable
}

func (c *Composable) components() *componentTable {
	c.once.Do(func() {
		c.table = newComponentTable()
	})
	return c.table
}

// Attach stores component under its own dynamic type.
func (c *Composable) Attach(component any) {
	if component == nil {
		return
	}
	c.components().put(reflect.TypeOf(component), component)
}

// AttachAs stores component under target, which it must be assignable to.
func (c *Composable) AttachAs(target reflect.Type, component any) error {
	if target == nil {
		return fmt.Errorf("transformers: attach: nil target type")
	}
	if component == nil {
		return fmt.Errorf("transformers: attach %v: nil component", target)
	}
	if !reflect.TypeOf(component).AssignableTo(target) {
		return fmt.Errorf("transformers: attach: %T is not assignable to %v", component, target)
	}
	c.components().put(target, component)
	return nil
}

// Component returns what is stored for target, attached or transformed.
// A cached "no result" reports (nil, true).
func (c *Composable) Component(target reflect.Type) (any, bool) {
	return c.components().get(target)
}
