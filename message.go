package declopt

import "fmt"

// SchemaErrorKind enumerates the validator's failure taxonomy (spec.md §4.1/§7).
type SchemaErrorKind int

const (
	DuplicateName SchemaErrorKind = iota
	DuplicatePositional
	MissingName
	InvalidNames
	DuplicateEnum
	RequirementSelfReference
	UnknownRequirementKey
	NonValuedRequirement
	IncompatibleRequirementValue
	InvalidRange
	InvalidLimit
	InvalidParamCount
	DuplicateClusterLetter
)

func (k SchemaErrorKind) String() string {
	switch k {
	case DuplicateName:
		return "DuplicateName"
	case DuplicatePositional:
		return "DuplicatePositional"
	case MissingName:
		return "MissingName"
	case InvalidNames:
		return "InvalidNames"
	case DuplicateEnum:
		return "DuplicateEnum"
	case RequirementSelfReference:
		return "RequirementSelfReference"
	case UnknownRequirementKey:
		return "UnknownRequirementKey"
	case NonValuedRequirement:
		return "NonValuedRequirement"
	case IncompatibleRequirementValue:
		return "IncompatibleRequirementValue"
	case InvalidRange:
		return "InvalidRange"
	case InvalidLimit:
		return "InvalidLimit"
	case InvalidParamCount:
		return "InvalidParamCount"
	case DuplicateClusterLetter:
		return "DuplicateClusterLetter"
	default:
		return "UnknownSchemaError"
	}
}

// SchemaError is raised at parser-construction time when the schema is
// internally inconsistent. It is always fatal and propagates to the caller
// of [New] immediately (spec.md §7 "Policy").
type SchemaError struct {
	Kind      SchemaErrorKind
	OptionKey string
	Detail    string
}

func (e *SchemaError) Error() string {
	if e.OptionKey == "" {
		return fmt.Sprintf("schema error [%s]: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("schema error [%s] on option %q: %s", e.Kind, e.OptionKey, e.Detail)
}

// ParseErrorKind enumerates the errors a parse can surface (spec.md §7).
type ParseErrorKind int

const (
	UnknownOption ParseErrorKind = iota
	MissingParameter
	InlineNotAccepted
	InlineRequired
	InvalidParameter
	InvalidEnvParameter
	TooManyValues
	ClusterConflict
	Required
	RequirementNotSatisfied
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnknownOption:
		return "UnknownOption"
	case MissingParameter:
		return "MissingParameter"
	case InlineNotAccepted:
		return "InlineNotAccepted"
	case InlineRequired:
		return "InlineRequired"
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidEnvParameter:
		return "InvalidEnvParameter"
	case TooManyValues:
		return "TooManyValues"
	case ClusterConflict:
		return "ClusterConflict"
	case Required:
		return "Required"
	case RequirementNotSatisfied:
		return "RequirementNotSatisfied"
	default:
		return "UnknownParseError"
	}
}

// ErrorMessage is the structured, human-readable diagnostic produced by a
// failed parse (spec.md §6/§7). Rendered is a stable string suitable for
// snapshot testing.
type ErrorMessage struct {
	Kind       ParseErrorKind
	OptionKey  string
	Rendered   string
	Suggestions []string

	// EnvVar/Value are populated for InvalidEnvParameter.
	EnvVar string
	Value  string
}

func (e *ErrorMessage) Error() string { return e.Rendered }

// HelpMessage is the terminal, non-error result of parsing a help option.
type HelpMessage struct {
	// OptionKey is the help option that was triggered.
	OptionKey string
	// Raw is the literal text configured on the option, when any.
	Raw string
}

// VersionMessage is the terminal, non-error result of parsing a version option.
type VersionMessage struct {
	OptionKey string
	Text      string
}

// CompletionMessage is the terminal result of a completion-mode parse
// (spec.md §4.5/§6). A single candidate means "complete unambiguously"; more
// than one means "present the menu".
type CompletionMessage struct {
	Candidates []string
}

// Result is the outcome of [Parser.Parse]. Exactly one of Values, Help,
// Version, Completion, Err is non-nil, matching spec.md §9's "explicit
// result sum type" design note.
type Result struct {
	Values     *Values
	Help       *HelpMessage
	Version    *VersionMessage
	Completion *CompletionMessage
	Err        *ErrorMessage
}

func missingParameter(s Schema, key string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      MissingParameter,
		OptionKey: key,
		Rendered:  fmt.Sprintf("Missing parameter to -%s.", diagName(s, key)),
	}
}

func inlineNotAccepted(s Schema, key string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InlineNotAccepted,
		OptionKey: key,
		Rendered:  fmt.Sprintf("Option -%s does not accept inline parameters.", diagName(s, key)),
	}
}

func inlineRequired(s Schema, key string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      InlineRequired,
		OptionKey: key,
		Rendered:  fmt.Sprintf("Option -%s requires an inline parameter.", diagName(s, key)),
	}
}

func requiredError(s Schema, key string) *ErrorMessage {
	name := diagName(s, key)
	if name == "" {
		return &ErrorMessage{Kind: Required, OptionKey: key, Rendered: "Option is required."}
	}
	return &ErrorMessage{Kind: Required, OptionKey: key, Rendered: fmt.Sprintf("Option -%s is required.", name)}
}

func requirementNotSatisfied(s Schema, key string, rendered string) *ErrorMessage {
	return &ErrorMessage{Kind: RequirementNotSatisfied, OptionKey: key, Rendered: rendered}
}

func unknownOption(name string, suggestions []string) *ErrorMessage {
	msg := fmt.Sprintf("Unknown option: %s.", name)
	if len(suggestions) > 0 {
		msg += fmt.Sprintf(" Did you mean %s?", joinOr(suggestions))
	}
	return &ErrorMessage{Kind: UnknownOption, OptionKey: name, Rendered: msg, Suggestions: suggestions}
}

func clusterConflict(s Schema, key string) *ErrorMessage {
	return &ErrorMessage{
		Kind:      ClusterConflict,
		OptionKey: key,
		Rendered:  fmt.Sprintf("Option -%s requires a parameter and cannot appear inside a cluster except last.", diagName(s, key)),
	}
}

func paramCountError(s Schema, key string, pc ParamCount) *ErrorMessage {
	if pc.Exact > 0 {
		return &ErrorMessage{
			Kind:      MissingParameter,
			OptionKey: key,
			Rendered:  fmt.Sprintf("Wrong number of parameters to option -%s: requires exactly %d.", diagName(s, key), pc.Exact),
		}
	}
	return missingParameter(s, key)
}

func invalidEnvParameter(envVar, value, detail string) *ErrorMessage {
	return &ErrorMessage{
		Kind:     InvalidEnvParameter,
		EnvVar:   envVar,
		Value:    value,
		Rendered: fmt.Sprintf("Invalid value for environment variable %s: %s. %s", envVar, value, detail),
	}
}

func joinOr(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			if i == len(items)-1 {
				out += " or "
			} else {
				out += ", "
			}
		}
		out += it
	}
	return out
}
