package callsched

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Handlers maps handler names used in schedule files to functions.
type Handlers map[string]any

// Spec keys recognised by DecodeSpec.
const (
	KeyHandler  = "handler"
	KeyArgs     = "args"
	KeySelf     = "self"
	KeyOffset   = "offset"
	KeyInterval = "interval"
)

// DecodeSpec builds a Spec from a loosely typed object such as a decoded YAML
// or JSON document.
//
//   - handler: a function, or the name of one in handlers. Required.
//   - offset: milliseconds after midnight as a number, a Go duration string
//     ("90m"), or a clock time "HH:MM" / "HH:MM:SS". Required.
//   - interval: milliseconds or a duration string. Default 0 (once).
//   - args: a sequence. Default empty.
//   - self: any value.
//
// Errors wrap ErrInvalidArgument and are checked in the order handler,
// offset, interval, args.
func DecodeSpec(raw map[string]any, handlers Handlers) (Spec, error) {
	var spec Spec

	if err := checkKeys(raw); err != nil {
		return spec, err
	}

	h, err := resolveHandler(raw[KeyHandler], handlers)
	if err != nil {
		return spec, err
	}
	spec.Handler = h

	v, ok := raw[KeyOffset]
	if !ok {
		return spec, errOffsetNaN
	}
	if spec.DailyOffset, ok = parseOffset(v); !ok {
		return spec, errOffsetNaN
	}

	if v, ok := raw[KeyInterval]; ok && v != nil {
		if spec.Interval, ok = parseDuration(v); !ok {
			return spec, errIntervalNaN
		}
	}

	if v, ok := raw[KeyArgs]; ok && v != nil {
		if spec.Args, ok = toSlice(v); !ok {
			return spec, errArgsNotArray
		}
	}

	spec.Self = raw[KeySelf]
	return spec, nil
}

func checkKeys(raw map[string]any) error {
	var unknown []string
	for k := range raw {
		switch k {
		case KeyHandler, KeyArgs, KeySelf, KeyOffset, KeyInterval:
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return invalidArgument("unknown field " + strings.Join(unknown, ", "))
}

func resolveHandler(v any, handlers Handlers) (any, error) {
	if name, ok := v.(string); ok {
		h, found := handlers[name]
		if !found {
			return nil, invalidArgument(fmt.Sprintf("handler is not a function: unknown handler %q", name))
		}
		v = h
	}
	if _, ok := handlerKey(v); !ok {
		return nil, errNotFunction
	}
	return v, nil
}

func parseOffset(v any) (time.Duration, bool) {
	if s, ok := v.(string); ok {
		if d, ok := parseClock(s); ok {
			return d, true
		}
	}
	return parseDuration(v)
}

// parseClock reads "HH:MM" or "HH:MM:SS" as a time after midnight.
func parseClock(s string) (time.Duration, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// parseDuration accepts a number of milliseconds or a Go duration string.
func parseDuration(v any) (time.Duration, bool) {
	switch x := v.(type) {
	case time.Duration:
		return x, true
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(x))
		return d, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(rv.Int()) * time.Millisecond, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(rv.Uint()) * time.Millisecond, true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return time.Duration(f * float64(time.Millisecond)), true
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
