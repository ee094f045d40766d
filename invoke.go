package callsched

import (
	"fmt"
	"reflect"
	"unsafe"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// call is a handler bound to its receiver and arguments, checked once at
// schedule time so that each firing is a plain invocation.
type call struct {
	fn   reflect.Value
	in   []reflect.Value
	fast func() error
}

// bindCall validates handler against self and args and prepares the
// invocation. self, when non-nil, is passed ahead of args, which is how a
// method expression such as (*T).Run receives its receiver.
func bindCall(handler, self any, args []any) (*call, error) {
	if handler == nil {
		return nil, errNotFunction
	}
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, errNotFunction
	}

	params := args
	if self != nil {
		params = append([]any{self}, args...)
	}

	// Common shapes skip reflection entirely.
	if len(params) == 0 {
		switch h := handler.(type) {
		case func():
			return &call{fn: fn, fast: func() error { h(); return nil }}, nil
		case func() error:
			return &call{fn: fn, fast: h}, nil
		}
	}

	in, err := bindParams(fn.Type(), params)
	if err != nil {
		return nil, err
	}
	return &call{fn: fn, in: in}, nil
}

func bindParams(ft reflect.Type, params []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(params) < n-1 {
			return nil, signatureMismatch(ft, len(params))
		}
	} else if len(params) != n {
		return nil, signatureMismatch(ft, len(params))
	}

	in := make([]reflect.Value, len(params))
	for i, p := range params {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := argValue(p, pt)
		if err != nil {
			return nil, invalidArgument(fmt.Sprintf("argument %d: %v", i, err))
		}
		in[i] = v
	}
	return in, nil
}

func argValue(p any, pt reflect.Type) (reflect.Value, error) {
	if p == nil {
		switch pt.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", pt)
	}
	v := reflect.ValueOf(p)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	// Untyped numbers from config files arrive as int or float64.
	if isNumber(v.Kind()) && isNumber(pt.Kind()) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), pt)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func signatureMismatch(ft reflect.Type, got int) error {
	return invalidArgument(fmt.Sprintf("args do not match handler signature %s: got %d values", ft, got))
}

// invoke runs the handler. A non-nil trailing error result is returned.
func (c *call) invoke() error {
	if c.fast != nil {
		return c.fast()
	}
	out := c.fn.Call(c.in)
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if !last.Type().Implements(errorType) || isNilValue(last) {
		return nil
	}
	return last.Interface().(error)
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// handlerKey identifies a handler for cancellation. Func values are not
// comparable in Go, so a handler is keyed by the address of its func value:
// every use of a top-level function or method expression shares one key,
// while each evaluation of a method value or capturing closure is distinct.
func handlerKey(handler any) (unsafe.Pointer, bool) {
	if handler == nil {
		return nil, false
	}
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, false
	}
	// A func value is a single pointer to its closure record.
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return *(*unsafe.Pointer)(p.UnsafePointer()), true
}
