package config

// Merge combines items left to right into a single value.
//
// The first item is cloned as the running value. Each following item is
// combined with it:
//   - map with map: keys are overlaid (basic) or merged recursively
//   - list with list: concatenated, then de-duplicated
//   - map or list with anything else: replaced only when force is set
//   - scalar with anything: replaced when force is set, when the item is
//     textual, or when the running value is nil
//   - nil items replace the running value only when force is set
//
// Merge never fails. Merging a single item returns a copy of it.
func Merge(items []any, force, basic bool) any {
	if len(items) == 0 {
		return nil
	}

	value := cloneValue(Normalize(items[0]))
	for _, item := range items[1:] {
		value = mergeValue(value, cloneValue(Normalize(item)), force, basic)
	}
	return value
}

// MergeMaps merges maps left to right and always returns a non-nil map.
func MergeMaps(maps []map[string]any, force, basic bool) map[string]any {
	items := make([]any, 0, len(maps))
	for _, m := range maps {
		if m == nil {
			m = map[string]any{}
		}
		items = append(items, m)
	}
	if result, ok := Merge(items, force, basic).(map[string]any); ok {
		return result
	}
	return map[string]any{}
}

// mergeValue combines two normalized, already-cloned values.
func mergeValue(value, item any, force, basic bool) any {
	switch current := value.(type) {
	case map[string]any:
		itemMap, ok := item.(map[string]any)
		if !ok {
			if force {
				return item
			}
			return current
		}
		if basic {
			for key, val := range itemMap {
				current[key] = val
			}
			return current
		}
		return deepMerge(current, itemMap, force)

	case []any:
		itemList, ok := item.([]any)
		if !ok {
			if force {
				return item
			}
			return current
		}
		return uniq(append(current, itemList...))

	default:
		if item == nil {
			if force {
				return nil
			}
			return value
		}
		if force || value == nil || isTextual(item) {
			return item
		}
		return value
	}
}

// deepMerge recursively merges src into dst, applying the merge rules per key.
func deepMerge(dst, src map[string]any, force bool) map[string]any {
	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}
		dst[key] = mergeValue(dstVal, srcVal, force, false)
	}
	return dst
}

// uniq removes duplicate list elements, keeping first occurrences.
func uniq(list []any) []any {
	result := make([]any, 0, len(list))
	for _, item := range list {
		dup := false
		for _, seen := range result {
			if valuesEqual(seen, item) {
				dup = true
				break
			}
		}
		if !dup {
			result = append(result, item)
		}
	}
	return result
}

// cloneValue creates a deep copy of a normalized value.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	default:
		return val
	}
}

// cloneMap creates a deep copy of a map.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}

// valuesEqual compares two normalized values for deep equality.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, v := range va {
			other, ok := vb[k]
			if !ok || !valuesEqual(v, other) {
				return false
			}
		}
		return true
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		if isMap(b) || isList(b) {
			return false
		}
		return a == b
	}
}
