package declopt

import (
	"context"
	"fmt"
	"strings"
)

// Requirement constructors. These build the recursive predicate tree of
// spec.md §3.3. The tree is validated for self-reference, unknown keys,
// and value-compatibility by the schema validator (validate.go) before any
// parse ever evaluates it.

// Key requires that option k be present (set) in the values record.
func Key(k string) Requirement { return keyReq{key: k} }

// Not negates a requirement.
func Not(r Requirement) Requirement { return notReq{inner: r} }

// All is a conjunction; an empty All is vacuously true.
func All(rs ...Requirement) Requirement { return allReq{items: rs} }

// One is a disjunction; an empty One is vacuously false.
func One(rs ...Requirement) Requirement { return oneReq{items: rs} }

// MapEntry pairs a key with the literal value (or PresentSentinel /
// AbsentSentinel) it must equal.
type MapEntry struct {
	Key   string
	Value any
}

// Map requires every listed key to be present and its coerced value to
// equal the paired literal (or satisfy Present/Absent).
func Map(entries ...MapEntry) Requirement { return mapReq{entries: entries} }

// Predicate wraps an opaque callback; label is used verbatim in
// diagnostics.
func Predicate(label string, fn func(ctx context.Context, v *Values) (bool, error)) Requirement {
	return predicateReq{label: label, fn: fn}
}

type keyReq struct{ key string }

func (r keyReq) eval(_ context.Context, v *Values) (bool, error) {
	return v.isSet(r.key), nil
}

func (r keyReq) render(s Schema) string {
	return "-" + diagName(s, r.key)
}

func (r keyReq) walk(fn func(Requirement)) { fn(r) }

type notReq struct{ inner Requirement }

func (r notReq) eval(ctx context.Context, v *Values) (bool, error) {
	ok, err := r.inner.eval(ctx, v)
	return !ok, err
}

func (r notReq) render(s Schema) string {
	switch inner := r.inner.(type) {
	case keyReq:
		return "no -" + diagName(s, inner.key)
	case mapReq:
		return renderMap(s, inner, "!=")
	default:
		return "not " + r.inner.render(s)
	}
}

func (r notReq) walk(fn func(Requirement)) {
	fn(r)
	r.inner.walk(fn)
}

type allReq struct{ items []Requirement }

func (r allReq) eval(ctx context.Context, v *Values) (bool, error) {
	for _, item := range r.items {
		ok, err := item.eval(ctx, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r allReq) render(s Schema) string {
	if len(r.items) == 0 {
		return ""
	}
	parts := make([]string, len(r.items))
	for i, item := range r.items {
		parts[i] = item.render(s)
	}
	return "(" + strings.Join(parts, " and ") + ")"
}

func (r allReq) walk(fn func(Requirement)) {
	fn(r)
	for _, item := range r.items {
		item.walk(fn)
	}
}

type oneReq struct{ items []Requirement }

func (r oneReq) eval(ctx context.Context, v *Values) (bool, error) {
	for _, item := range r.items {
		ok, err := item.eval(ctx, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (r oneReq) render(s Schema) string {
	if len(r.items) == 0 {
		return ""
	}
	parts := make([]string, len(r.items))
	for i, item := range r.items {
		parts[i] = item.render(s)
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

func (r oneReq) walk(fn func(Requirement)) {
	fn(r)
	for _, item := range r.items {
		item.walk(fn)
	}
}

type mapReq struct{ entries []MapEntry }

func (r mapReq) eval(_ context.Context, v *Values) (bool, error) {
	for _, e := range r.entries {
		switch e.Value.(type) {
		case presentT:
			if !v.isSet(e.Key) {
				return false, nil
			}
			continue
		case absentT:
			if v.isSet(e.Key) {
				return false, nil
			}
			continue
		}
		if !v.isSet(e.Key) {
			return false, nil
		}
		got, _ := v.Get(e.Key)
		if !valuesEqual(got, e.Value) {
			return false, nil
		}
	}
	return true, nil
}

func (r mapReq) render(s Schema) string {
	return renderMap(s, r, "==")
}

func renderMap(s Schema, r mapReq, op string) string {
	parts := make([]string, len(r.entries))
	for i, e := range r.entries {
		parts[i] = fmt.Sprintf("-%s %s %s", diagName(s, e.Key), op, renderLiteral(e.Value))
	}
	return strings.Join(parts, " and ")
}

func renderLiteral(v any) string {
	switch tv := v.(type) {
	case presentT:
		return "<present>"
	case absentT:
		return "<absent>"
	case string:
		return fmt.Sprintf("%q", tv)
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func (r mapReq) walk(fn func(Requirement)) { fn(r) }

type predicateReq struct {
	label string
	fn    func(ctx context.Context, v *Values) (bool, error)
}

func (r predicateReq) eval(ctx context.Context, v *Values) (bool, error) {
	return r.fn(ctx, v)
}

func (r predicateReq) render(Schema) string {
	return r.label
}

func (r predicateReq) walk(fn func(Requirement)) { fn(r) }

// diagName returns the preferred name of key k for diagnostics, falling
// back to the raw key if the schema doesn't know it (should not happen in
// a validated schema, but diagnostics must never panic).
func diagName(s Schema, k string) string {
	if opt, ok := s.Get(k); ok {
		if n := opt.preferredName(); n != "" {
			return strings.TrimLeft(n, "-")
		}
	}
	return k
}

// renderRequires renders the "Option -X requires R." diagnostic form.
func renderRequires(s Schema, ownerKey string, r Requirement) string {
	body := r.render(s)
	if body == "" {
		return fmt.Sprintf("Option -%s requires.", diagName(s, ownerKey))
	}
	return fmt.Sprintf("Option -%s requires %s.", diagName(s, ownerKey), body)
}

// renderRequiredIf renders the "Option -X is required if R." diagnostic form.
func renderRequiredIf(s Schema, ownerKey string, r Requirement) string {
	body := r.render(s)
	if body == "" {
		return fmt.Sprintf("Option -%s is required if.", diagName(s, ownerKey))
	}
	return fmt.Sprintf("Option -%s is required if %s.", diagName(s, ownerKey), body)
}

// valuesEqual implements the ordered, structural equality Map comparisons
// require, including arrays. Numeric operands are normalized to float64
// first: coerced numeric values are always stored as float64, but a Map
// literal is commonly written as a plain int, and a raw == would never
// see those two as equal.
func valuesEqual(a, b any) bool {
	as, aok := a.([]any)
	bs, bok := b.([]any)
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !valuesEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	if an, ok := asFloat64(a); ok {
		if bn, ok := asFloat64(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

// asFloat64 normalizes int and float64 alike so numeric literals written
// either way compare equal against a coerced value.
func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
