package declopt

import (
	"strings"
)

// validateSchema performs the one-shot schema consistency pass of spec.md §4.1,
// executed eagerly by [New]. It returns the first inconsistency found.
func validateSchema(s Schema) ([]string, error) {
	order := s.Keys()

	seenPositional := ""
	seenNames := make(map[string]string) // name -> owning key, across names/negation/marker
	seenLetters := make(map[byte]string) // cluster letter -> owning key

	for _, key := range order {
		opt := s.MustGet(key)

		hasName := false
		for _, n := range opt.Names {
			if n == "" {
				// A gap reserved for help-column alignment, unless inline
				// requires a real name to attach a value to — validateName
				// still runs so that case is caught rather than silently
				// skipped.
				if err := validateName(n, opt); err != nil {
					return nil, &SchemaError{Kind: InvalidNames, OptionKey: key, Detail: err.Error()}
				}
				continue
			}
			hasName = true
			if err := validateName(n, opt); err != nil {
				return nil, &SchemaError{Kind: InvalidNames, OptionKey: key, Detail: err.Error()}
			}
			if owner, dup := seenNames[n]; dup {
				return nil, &SchemaError{Kind: DuplicateName, OptionKey: key,
					Detail: "name " + n + " already used by option " + owner}
			}
			seenNames[n] = key
		}
		for _, n := range opt.Negation {
			if owner, dup := seenNames[n]; dup {
				return nil, &SchemaError{Kind: DuplicateName, OptionKey: key,
					Detail: "negation name " + n + " already used by option " + owner}
			}
			seenNames[n] = key
		}

		if marker, ok := opt.Positional.(string); ok {
			if owner, dup := seenNames[marker]; dup {
				return nil, &SchemaError{Kind: DuplicateName, OptionKey: key,
					Detail: "positional marker " + marker + " already used by option " + owner}
			}
			seenNames[marker] = key
		}
		if positional, ok := opt.Positional.(bool); ok && positional {
			if seenPositional != "" {
				return nil, &SchemaError{Kind: DuplicatePositional, OptionKey: key,
					Detail: "only one option may declare positional=true (already: " + seenPositional + ")"}
			}
			seenPositional = key
		}

		for i := 0; i < len(opt.Cluster); i++ {
			letter := opt.Cluster[i]
			if owner, dup := seenLetters[letter]; dup {
				return nil, &SchemaError{Kind: DuplicateClusterLetter, OptionKey: key,
					Detail: "cluster letter " + string(letter) + " already used by option " + owner}
			}
			seenLetters[letter] = key
		}

		if !hasName {
			if _, isMarker := opt.Positional.(string); !isMarker {
				if positional, ok := opt.Positional.(bool); !ok || !positional {
					return nil, &SchemaError{Kind: MissingName, OptionKey: key,
						Detail: "option without a positional marker must have at least one non-gap name"}
				}
			}
		}

		if dup := firstDuplicate(opt.Choices); dup != "" {
			return nil, &SchemaError{Kind: DuplicateEnum, OptionKey: key, Detail: "duplicate choice: " + dup}
		}

		if opt.Range != nil && opt.Range.Min > opt.Range.Max {
			return nil, &SchemaError{Kind: InvalidRange, OptionKey: key, Detail: "range min exceeds max"}
		}
		if opt.Kind == KindArray && opt.Limit < 0 {
			return nil, &SchemaError{Kind: InvalidLimit, OptionKey: key, Detail: "limit must be >= 0"}
		}
		if opt.Kind == KindFunction {
			if err := validateParamCount(opt.Params); err != nil {
				return nil, &SchemaError{Kind: InvalidParamCount, OptionKey: key, Detail: err.Error()}
			}
		}

		if opt.Requires != nil {
			if err := validateRequirement(s, key, opt.Requires); err != nil {
				return nil, err
			}
		}
		if opt.RequiredIf != nil {
			if err := validateRequirement(s, key, opt.RequiredIf); err != nil {
				return nil, err
			}
		}
	}

	return order, nil
}

func validateName(n string, opt Option) error {
	if n == "" {
		// An empty surface name is permitted only when inline is
		// disallowed, to model a bare positional marker; otherwise it is
		// indistinguishable from a real name an inline value could attach
		// to and so is rejected.
		if opt.Inline == InlineDisallowed {
			return nil
		}
		return errInvalidName(n)
	}
	if strings.ContainsAny(n, "= \t\n") {
		return errInvalidName(n)
	}
	return nil
}

func errInvalidName(n string) error {
	return &nameErr{n: n}
}

type nameErr struct{ n string }

func (e *nameErr) Error() string {
	return "invalid name: " + e.n
}

func validateParamCount(p ParamCount) error {
	if p.Unbounded {
		return nil
	}
	if p.Exact > 0 {
		return nil
	}
	if p.Min < 0 || p.Max < p.Min {
		return &nameErr{n: "invalid parameter count bounds"}
	}
	return nil
}

func validateRequirement(s Schema, ownerKey string, r Requirement) error {
	var walkErr error
	r.walk(func(node Requirement) {
		if walkErr != nil {
			return
		}
		switch n := node.(type) {
		case keyReq:
			if n.key == ownerKey {
				walkErr = &SchemaError{Kind: RequirementSelfReference, OptionKey: ownerKey,
					Detail: "requirement references its own option"}
				return
			}
			target, ok := s.Get(n.key)
			if !ok {
				walkErr = &SchemaError{Kind: UnknownRequirementKey, OptionKey: ownerKey,
					Detail: "unknown key in requirement: " + n.key}
				return
			}
			if !target.Kind.isValueBearing() {
				walkErr = &SchemaError{Kind: NonValuedRequirement, OptionKey: ownerKey,
					Detail: "requirement references non-valued option: " + n.key}
			}
		case mapReq:
			for _, e := range n.entries {
				if e.Key == ownerKey {
					walkErr = &SchemaError{Kind: RequirementSelfReference, OptionKey: ownerKey,
						Detail: "requirement references its own option"}
					return
				}
				target, ok := s.Get(e.Key)
				if !ok {
					walkErr = &SchemaError{Kind: UnknownRequirementKey, OptionKey: ownerKey,
						Detail: "unknown key in requirement: " + e.Key}
					return
				}
				if !target.Kind.isValueBearing() {
					walkErr = &SchemaError{Kind: NonValuedRequirement, OptionKey: ownerKey,
						Detail: "requirement references non-valued option: " + e.Key}
					return
				}
				if !compatibleLiteral(target, e.Value) {
					walkErr = &SchemaError{Kind: IncompatibleRequirementValue, OptionKey: ownerKey,
						Detail: "literal incompatible with declared type of " + e.Key}
				}
			}
		}
	})
	return walkErr
}

// compatibleLiteral checks spec.md §3.3 invariant (iii): a Map requirement's
// literal value must be type-compatible with the referenced option.
func compatibleLiteral(target Option, v any) bool {
	switch v.(type) {
	case presentT, absentT:
		return true
	}
	switch target.Kind {
	case KindFlag:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	default:
		if isNumericKind(target) {
			switch v.(type) {
			case float64, int:
				return true
			default:
				return false
			}
		}
		_, ok := v.(string)
		return ok
	}
}

func firstDuplicate(items []string) string {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return it
		}
		seen[it] = true
	}
	return ""
}

