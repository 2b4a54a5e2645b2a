package declopt

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// coercer runs the pipeline of spec.md §4.4 "Value coercion (G)" for a
// single scalar parameter of opt, returning the final typed value or an
// *ErrorMessage.
type coercer struct {
	schema Schema
	key    string
	opt    Option
}

func newCoercer(s Schema, key string) coercer {
	return coercer{schema: s, key: key, opt: s.MustGet(key)}
}

// scalar applies trim/case, then either the Parse hook or (for numeric
// options) float parsing with conv rounding, then choices/regex/range
// constraints, in that order (spec.md §4.7 "normalization order: trim ->
// case").
func (c coercer) scalar(ctx context.Context, raw string) (any, *ErrorMessage, error) {
	normalized := raw
	if c.opt.Trim {
		normalized = strings.TrimSpace(normalized)
	}
	switch c.opt.Case {
	case CaseLower:
		normalized = strings.ToLower(normalized)
	case CaseUpper:
		normalized = strings.ToUpper(normalized)
	}

	var value any = normalized
	if c.opt.Parse != nil {
		deferred, err := c.opt.Parse(ctx, normalized)
		if err != nil {
			return nil, c.invalid(normalized, err.Error()), nil
		}
		resolved, err := deferred.Await(ctx)
		if err != nil {
			return nil, c.invalid(normalized, err.Error()), nil
		}
		value = resolved
	} else if isNumericKind(c.opt) {
		f, ok := parseFloat(normalized)
		if !ok {
			// spec.md §9 open question: default to silent NaN unless a
			// range/choices constraint is declared, in which case fire
			// InvalidParameter.
			if c.opt.Range != nil || len(c.opt.Choices) > 0 {
				return nil, c.invalid(normalized, "value must be numeric"), nil
			}
			value = math.NaN()
		} else {
			value = applyConv(f, c.opt.Conv)
		}
	}

	if len(c.opt.Choices) > 0 {
		if !containsChoice(c.opt.Choices, normalized) {
			return nil, c.invalidChoices(normalized), nil
		}
	}
	if c.opt.Regex != "" {
		re, err := regexp.Compile(c.opt.Regex)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid regex on option %q: %w", c.key, err)
		}
		if !re.MatchString(normalized) {
			return nil, c.invalidRegex(normalized), nil
		}
	}
	if c.opt.Range != nil {
		f, ok := value.(float64)
		if ok && !(f >= c.opt.Range.Min && f <= c.opt.Range.Max) {
			return nil, c.invalidRange(normalized), nil
		}
	}

	return value, nil, nil
}

// array coerces one raw array argument into zero or more elements, per
// spec.md §4.4 "For array kinds".
func (c coercer) array(ctx context.Context, raw string) ([]any, *ErrorMessage, error) {
	if c.opt.ParseDelimited != nil {
		deferred, err := c.opt.ParseDelimited(ctx, raw)
		if err != nil {
			return nil, c.invalid(raw, err.Error()), nil
		}
		elems, err := deferred.Await(ctx)
		if err != nil {
			return nil, c.invalid(raw, err.Error()), nil
		}
		return elems, nil, nil
	}

	var parts []string
	if c.opt.Separator != "" {
		parts = strings.Split(raw, c.opt.Separator)
	} else {
		parts = []string{raw}
	}

	out := make([]any, 0, len(parts))
	for _, part := range parts {
		v, errMsg, err := c.scalar(ctx, part)
		if err != nil || errMsg != nil {
			return nil, errMsg, err
		}
		out = append(out, v)
	}
	return out, nil, nil
}

// enforceArrayConstraints applies limit and unique after all elements of
// an array option have been appended across the whole parse, per spec.md
// §4.4/§4.7.
func enforceArrayConstraints(s Schema, key string, elems []any) ([]any, *ErrorMessage) {
	opt := s.MustGet(key)
	if opt.Unique {
		seen := make([]any, 0, len(elems))
		for _, e := range elems {
			dup := false
			for _, s := range seen {
				if valuesEqual(s, e) {
					dup = true
					break
				}
			}
			if !dup {
				seen = append(seen, e)
			}
		}
		elems = seen
	}
	if opt.Limit > 0 && len(elems) > opt.Limit {
		return nil, &ErrorMessage{
			Kind:      TooManyValues,
			OptionKey: key,
			Rendered: fmt.Sprintf("Option -%s has too many values (%d). Should have at most %d.",
				diagName(s, key), len(elems), opt.Limit),
		}
	}
	return elems, nil
}

func (c coercer) invalid(value, detail string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InvalidParameter,
		OptionKey: c.key,
		Rendered:  fmt.Sprintf("Invalid parameter to -%s: %s. %s.", diagName(c.schema, c.key), quoteValue(value), detail),
	}
}

func (c coercer) invalidChoices(value string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InvalidParameter,
		OptionKey: c.key,
		Rendered: fmt.Sprintf("Invalid parameter to -%s: %s. Possible values are {%s}.",
			diagName(c.schema, c.key), quoteValue(value), strings.Join(c.opt.Choices, ", ")),
	}
}

func (c coercer) invalidRegex(value string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InvalidParameter,
		OptionKey: c.key,
		Rendered: fmt.Sprintf("Invalid parameter to -%s: %s. Value must match the regex %s.",
			diagName(c.schema, c.key), quoteValue(value), c.opt.Regex),
	}
}

func (c coercer) invalidRange(value string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InvalidParameter,
		OptionKey: c.key,
		Rendered: fmt.Sprintf("Invalid parameter to -%s: %s. Value must be in the range [%s, %s].",
			diagName(c.schema, c.key), quoteValue(value), formatBound(c.opt.Range.Min), formatBound(c.opt.Range.Max)),
	}
}

func quoteValue(v string) string {
	if _, ok := parseFloat(v); ok {
		return v
	}
	return fmt.Sprintf("%q", v)
}

func formatBound(f float64) string {
	if math.IsInf(f, 1) {
		return "+Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func applyConv(f float64, conv Conv) float64 {
	switch conv {
	case ConvTrunc:
		return math.Trunc(f)
	case ConvRound:
		return math.Round(f)
	case ConvFloor:
		return math.Floor(f)
	case ConvCeil:
		return math.Ceil(f)
	default:
		return f
	}
}

func containsChoice(choices []string, v string) bool {
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}

// isNumericKind reports whether numeric parsing should be attempted for
// opt (spec.md §4.7): an option with Numeric set or with a Range is
// treated as numeric when no custom Parse is given. Choices alone never
// make an option numeric; without Numeric or Range, values stay strings.
func isNumericKind(opt Option) bool {
	return opt.Numeric || opt.Range != nil
}
