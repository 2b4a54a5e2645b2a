package declopt

// Values is the mutable values record shared between the parser and user
// callbacks (spec.md §3.2). It is single-owner: the parser exposes it to
// callbacks during parsing, and the caller receives ownership once parsing
// completes. It is never safe to share between goroutines without external
// synchronization, matching the cooperative single-task model of spec.md §5.
type Values struct {
	data   map[string]any
	isset  map[string]bool
	parent *Values
}

// newValues creates an all-undefined values record for every key in s.
func newValues(s Schema) *Values {
	return newValuesWithParent(s, nil)
}

// newValuesWithParent is like newValues but links the record to parent, the
// outer values record of the command that is about to parse a nested
// schema (spec.md §4.4 rule 3).
func newValuesWithParent(s Schema, parent *Values) *Values {
	v := &Values{data: make(map[string]any, s.Len()), isset: make(map[string]bool, s.Len()), parent: parent}
	for _, k := range s.Keys() {
		opt := s.MustGet(k)
		if opt.Kind.isValueBearing() {
			v.data[k] = Undefined
		}
	}
	return v
}

// Get returns the value for key k and whether k is a known key at all.
func (v *Values) Get(k string) (any, bool) {
	val, ok := v.data[k]
	return val, ok
}

// isSet reports whether k has been explicitly assigned (command line, env,
// default, or fallback) as opposed to still holding the Undefined sentinel.
func (v *Values) isSet(k string) bool {
	if v.isset[k] {
		return true
	}
	val, ok := v.data[k]
	return ok && !IsUndefined(val)
}

// set assigns val to k and marks it as set.
func (v *Values) set(k string, val any) {
	v.data[k] = val
	v.isset[k] = true
}

// appendArray appends val to the array currently stored at k (creating it
// if absent), and marks k as set.
func (v *Values) appendArray(k string, val any) {
	cur, ok := v.data[k]
	var arr []any
	if ok {
		if a, isArr := cur.([]any); isArr {
			arr = a
		}
	}
	arr = append(arr, val)
	v.set(k, arr)
}

// Parent exposes the outer values record to a nested command parse, per
// spec.md §4.4 rule 3 ("the outer values record exposed to the nested
// parser's callbacks via a parent link").
func (v *Values) Parent() *Values { return v.parent }

// Keys returns every key known to this record, which holds only the
// schema's value-bearing keys (help/version keys are absent), in no
// particular order.
func (v *Values) Keys() []string {
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	return keys
}

// Equal reports structural equality with other, comparing every key's
// value with the same ordered, array-aware rules Map requirements use
// (valuesEqual). go-cmp calls this automatically instead of reflecting
// into the unexported fields, which is also why it exists: reflect.
// DeepEqual can't special-case the Undefined sentinel or []any arrays the
// way valuesEqual does.
func (v *Values) Equal(other *Values) bool {
	if v == nil || other == nil {
		return v == other
	}
	if len(v.data) != len(other.data) {
		return false
	}
	for k, val := range v.data {
		ov, ok := other.data[k]
		if !ok || !valuesEqual(val, ov) {
			return false
		}
	}
	return true
}
