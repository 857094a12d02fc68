package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// injectTag marks fields Wire populates: `inject:"abstract"` resolves the
// named abstract, `inject:""` the TypeKey of the field type. Appending
// ",optional" leaves the field zero when nothing is bound.
const injectTag = "inject"

// Wire populates the `inject` tagged fields of a struct pointer from the
// container, as if the object had been built by a factory. Fields that are
// already set are left alone, so wiring twice is harmless. Anything other
// than a non-nil struct pointer is returned untouched.
//
//	type Invoice struct {
//	    Mailer Mailer `inject:"mailer"`
//	    Clock  Clock  `inject:",optional"`
//	}
//
//	inv, err := c.Wire(&Invoice{})
func (c *Container) Wire(instance any) (any, error) {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return instance, nil
	}
	if err := c.wireStruct(rv.Elem()); err != nil {
		return nil, fmt.Errorf("wire %T: %w", instance, err)
	}
	return instance, nil
}

func (c *Container) wireStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, tagged := field.Tag.Lookup(injectTag)
		if !tagged {
			if field.Anonymous && field.Type.Kind() == reflect.Struct && field.IsExported() {
				if err := c.wireStruct(v.Field(i)); err != nil {
					return err
				}
			}
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: unexported field cannot be injected", field.Name)
		}

		target := v.Field(i)
		if !target.IsZero() {
			continue
		}

		abstract, optional := parseInjectTag(tag)
		if abstract == "" {
			abstract = typeKey(field.Type)
		}

		dep, err := c.TryMake(abstract)
		if errors.Is(err, ErrNotBound) && optional {
			continue
		}
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		dv := reflect.ValueOf(dep)
		if !dv.IsValid() {
			continue
		}
		if !dv.Type().AssignableTo(field.Type) {
			return fmt.Errorf("field %s: [%s] resolved to %T, not assignable to %v", field.Name, abstract, dep, field.Type)
		}
		target.Set(dv)
	}
	return nil
}

func parseInjectTag(tag string) (abstract string, optional bool) {
	name, opts, _ := strings.Cut(tag, ",")
	return strings.TrimSpace(name), strings.TrimSpace(opts) == "optional"
}
