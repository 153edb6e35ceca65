package extension

import (
	"fmt"
	"math"
	"reflect"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// invokePlugin calls a resolved plugin value as a constructor with the
// configured arguments. A non-empty kwds map is appended as a final
// map[string]any argument; constructors that want keyword-style
// configuration declare a trailing map parameter.
func invokePlugin(plugin any, args []any, kwds map[string]any) (any, error) {
	fn := reflect.ValueOf(plugin)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotInvokable, plugin)
	}

	callArgs := args
	if len(kwds) > 0 {
		callArgs = make([]any, 0, len(args)+1)
		callArgs = append(callArgs, args...)
		callArgs = append(callArgs, kwds)
	}
	return callFunc(fn, callArgs)
}

// callMethod reflectively invokes the named method on an extension value.
func callMethod(recv any, method string, args []any) (any, error) {
	if recv == nil {
		return nil, fmt.Errorf("%w: %s on nil value", ErrUnknownMethod, method)
	}
	m := reflect.ValueOf(recv).MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s on %T", ErrUnknownMethod, method, recv)
	}
	return callFunc(m, args)
}

// callFunc invokes fn with the given arguments, adapting each argument to
// the corresponding parameter type. Variadic functions receive the spare
// arguments through the variadic parameter.
func callFunc(fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	numIn := t.NumIn()
	if t.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%w: want at least %d args, got %d", ErrInvokeArgs, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%w: want %d args, got %d", ErrInvokeArgs, numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if t.IsVariadic() && i >= numIn-1 {
			paramType = t.In(numIn - 1).Elem()
		} else {
			paramType = t.In(i)
		}

		v, err := prepareArgForCall(arg, paramType)
		if err != nil {
			return nil, fmt.Errorf("%w: arg %d: %w", ErrInvokeArgs, i, err)
		}
		in[i] = v
	}

	return splitResults(fn.Call(in))
}

// splitResults maps a reflective call's results onto the (value, error)
// convention: plugins may return nothing, a single value, a single error,
// or a value plus a trailing error.
func splitResults(results []reflect.Value) (any, error) {
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := asError(results[0]); ok {
			return nil, err
		}
		return results[0].Interface(), nil
	default:
		if err, ok := asError(results[len(results)-1]); ok && err != nil {
			return nil, err
		}
		return results[0].Interface(), nil
	}
}

// asError reports whether the result is error-typed, and unwraps it
// (possibly to a nil error).
func asError(v reflect.Value) (error, bool) {
	if !v.Type().Implements(errType) {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil, true
		}
	}
	return v.Interface().(error), true
}

// prepareArgForCall attempts to make the argument `arg` compatible with
// `targetType`. Handles nil arguments for nillable parameter types and
// numeric values that arrive as float64 (JSON/YAML decoded input).
func prepareArgForCall(arg any, targetType reflect.Type) (reflect.Value, error) {
	if arg == nil {
		k := targetType.Kind()
		if k >= reflect.Chan && k <= reflect.Slice || k == reflect.Interface || k == reflect.Ptr {
			return reflect.Zero(targetType), nil
		}
		return reflect.Value{}, fmt.Errorf("nil argument provided for non-nillable type %s", targetType)
	}

	argVal := reflect.ValueOf(arg)
	argType := argVal.Type()

	// Direct assignability check first
	if argType.AssignableTo(targetType) {
		return argVal, nil
	}

	// Common case: JSON number (float64) needs to be converted to int/uint etc.
	if argType.Kind() == reflect.Float64 {
		if k := targetType.Kind(); k >= reflect.Int && k <= reflect.Uint64 {
			return convertFloatArg(argVal.Float(), targetType)
		}
	}

	return reflect.Value{}, fmt.Errorf("type mismatch: cannot assign %s to %s", argType, targetType)
}

// convertFloatArg converts a decoded float64 into the integer parameter
// type. Fractional values and values the target kind cannot hold are
// rejected, never truncated or wrapped.
func convertFloatArg(f float64, targetType reflect.Type) (reflect.Value, error) {
	if f != math.Trunc(f) {
		return reflect.Value{}, fmt.Errorf("cannot assign non-integer float64 (%f) to integer type %s", f, targetType)
	}
	zero := reflect.Zero(targetType)
	switch k := targetType.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64:
		if f >= float64(math.MinInt64) && f < float64(math.MaxInt64) && !zero.OverflowInt(int64(f)) {
			return reflect.ValueOf(int64(f)).Convert(targetType), nil
		}
	case k >= reflect.Uint && k <= reflect.Uint64:
		if f >= 0 && f < float64(math.MaxUint64) && !zero.OverflowUint(uint64(f)) {
			return reflect.ValueOf(uint64(f)).Convert(targetType), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("float64 value %f out of range for %s", f, targetType)
}
