package ir

// Clone deep-copies plain data: maps, slices and IR containers are copied,
// scalars are returned as-is. Other types are returned unchanged, so callers
// holding structs with pointers keep sharing them.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case IRObject:
		if val == nil {
			return val
		}
		out := make(IRObject, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	case IRArray:
		if val == nil {
			return val
		}
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

func cloneValue(v IRValue) IRValue {
	if v == nil {
		return nil
	}
	return Clone(v).(IRValue)
}

// CloneMap is Clone specialised for map states, suitable for engine.WithSnapshot.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return Clone(m).(map[string]any)
}
