package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToIRValue converts a decoded Go value (from encoding/json, yaml.v3, or
// hand-built maps) into an IRValue. nil becomes IRNull; floats are rejected.
func ToIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IRInt(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			iv, err := ToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = iv
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			iv, err := ToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = iv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToObject converts a plain map into an IRObject. A nil map yields nil.
func ToObject(m map[string]any) (IRObject, error) {
	if m == nil {
		return nil, nil
	}
	v, err := ToIRValue(m)
	if err != nil {
		return nil, err
	}
	return v.(IRObject), nil
}

// FromIRValue converts an IRValue back into plain Go values:
// string, int64, bool, []any, map[string]any, or nil.
func FromIRValue(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = FromIRValue(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = FromIRValue(elem)
		}
		return out
	default:
		return nil
	}
}

// Normalize rewrites decoded values into the plain shapes reducers expect
// (int -> int64, nested maps -> map[string]any). Floats are rejected.
func Normalize(v any) (any, error) {
	iv, err := ToIRValue(v)
	if err != nil {
		return nil, err
	}
	return FromIRValue(iv), nil
}
