package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized reports the first pointer, interface, map or func
// field of the struct s points to that is still nil. Fields tagged
// `wire:"-"` are skipped, they are set up after injection.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("struct is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("wire") == "-" {
			continue
		}

		switch fv := v.Field(i); fv.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
			if fv.IsNil() {
				return errors.Errorf("field %s is not initialized", field.Name)
			}
		default:
		}
	}

	return nil
}
