package symbolic

import (
	"reflect"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Resolve recursively replaces every Variable found in value with the
// concrete result recorded for it in results.
//
// Slices and maps are rewritten element by element while preserving their
// shape. All other values are returned untouched. The recursion depth is
// bounded by the nesting depth of the value, not by the number of results.
//
// Returns an UnresolvedError if a Variable has no entry in results.
func Resolve(value any, results Results) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Variable:
		res, ok := results[v]
		if !ok {
			return nil, UnresolvedError{Variable: v}
		}
		return res, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice:
		return resolveSlice(rv, results)
	case reflect.Map:
		return resolveMap(rv, results)
	}
	return value, nil
}

// Rebuilds the slice with every element resolved.
// If a resolved element no longer fits the slice's element type the result
// is widened to []any instead.
func resolveSlice(rv reflect.Value, results Results) (any, error) {
	elems := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		res, err := Resolve(rv.Index(i).Interface(), results)
		if err != nil {
			return nil, err
		}
		elems[i] = res
	}

	out := reflect.MakeSlice(rv.Type(), len(elems), len(elems))
	for i, elem := range elems {
		if !assignable(elem, rv.Type().Elem()) {
			return elems, nil
		}
		out.Index(i).Set(toValue(elem, rv.Type().Elem()))
	}
	return out.Interface(), nil
}

// Rebuilds the map with every key and value resolved.
// If a resolved entry no longer fits the map's type the result is widened to
// map[any]any instead.
func resolveMap(rv reflect.Value, results Results) (any, error) {
	type entry struct{ key, val any }
	entries := make([]entry, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		key, err := Resolve(iter.Key().Interface(), results)
		if err != nil {
			return nil, err
		}
		val, err := Resolve(iter.Value().Interface(), results)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, val: val})
	}

	widened := false
	for _, e := range entries {
		if !assignable(e.key, rv.Type().Key()) || !assignable(e.val, rv.Type().Elem()) {
			widened = true
			break
		}
	}
	if widened {
		out := make(map[any]any, len(entries))
		for _, e := range entries {
			out[e.key] = e.val
		}
		return out, nil
	}

	out := reflect.MakeMapWithSize(rv.Type(), len(entries))
	for _, e := range entries {
		out.SetMapIndex(toValue(e.key, rv.Type().Key()), toValue(e.val, rv.Type().Elem()))
	}
	return out.Interface(), nil
}

func toValue(value any, t reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(value)
}

func assignable(value any, to reflect.Type) bool {
	if value == nil {
		switch to.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return true
		}
		return false
	}
	return reflect.TypeOf(value).AssignableTo(to)
}

// Variables returns every Variable referenced anywhere inside value, in
// ascending order and without duplicates.
func Variables(value any) []Variable {
	seen := map[Variable]bool{}
	collect(value, seen)
	vars := maps.Keys(seen)
	slices.Sort(vars)
	return vars
}

func collect(value any, seen map[Variable]bool) {
	switch v := value.(type) {
	case nil:
		return
	case Variable:
		seen[v] = true
		return
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			collect(rv.Index(i).Interface(), seen)
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			collect(iter.Key().Interface(), seen)
			collect(iter.Value().Interface(), seen)
		}
	}
}
