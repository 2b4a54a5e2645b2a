package declopt

import "sort"

// ParamShape describes how an option's parameter is rendered in usage text.
type ParamShape int

const (
	// ParamNone is a flag; no parameter is rendered.
	ParamNone ParamShape = iota
	// ParamOne renders "<param>".
	ParamOne
	// ParamMany renders "<param>...".
	ParamMany
	// ParamOptional renders "[<param>]".
	ParamOptional
)

// OptionView is the per-option projection the formatter surface exposes
// (spec.md §4.9): everything an external renderer needs, and nothing about
// how to lay it out.
type OptionView struct {
	Key           string
	PreferredName string
	// Names mirrors the option's declared Names, gaps included, so a
	// column-aligned renderer can reproduce them verbatim.
	Names       []string
	Group       string
	Hide        Hide
	ParamShape  ParamShape
	Description string

	// Constraints is a renderer-agnostic summary of coercion constraints:
	// choices, regex, range, limit, unique — whichever apply.
	Constraints []string

	// DefaultRendered/FallbackRendered hold a best-effort string rendering
	// of literal defaults/fallbacks. Callback-backed ones render as "".
	DefaultRendered  string
	FallbackRendered string

	Required bool
}

// GroupView is one named group of options, in schema-declaration order.
type GroupView struct {
	Name    string
	Options []OptionView
}

// Formatter is the read-only projection of a schema for external renderers
// (spec.md §4.9: "data only; the renderer that turns this into ANSI text is
// external").
type Formatter struct {
	schema Schema
}

// NewFormatter builds a Formatter over s. s need not have been passed to
// [New] first; a Formatter can describe a schema independently of parsing
// it.
func NewFormatter(s Schema) *Formatter {
	return &Formatter{schema: s}
}

// Groups returns every option grouped by Option.Group, in the order each
// group name was first seen while walking the schema in declaration order.
func (f *Formatter) Groups() []GroupView {
	order := []string{}
	byGroup := map[string][]OptionView{}
	for _, key := range f.schema.Keys() {
		opt := f.schema.MustGet(key)
		view := f.view(key, opt)
		if _, seen := byGroup[opt.Group]; !seen {
			order = append(order, opt.Group)
		}
		byGroup[opt.Group] = append(byGroup[opt.Group], view)
	}
	out := make([]GroupView, 0, len(order))
	for _, g := range order {
		out = append(out, GroupView{Name: g, Options: byGroup[g]})
	}
	return out
}

// Option returns the projection for a single key.
func (f *Formatter) Option(key string) (OptionView, bool) {
	opt, ok := f.schema.Get(key)
	if !ok {
		return OptionView{}, false
	}
	return f.view(key, opt), true
}

func (f *Formatter) view(key string, opt Option) OptionView {
	v := OptionView{
		Key:           key,
		PreferredName: opt.preferredName(),
		Names:         opt.Names,
		Group:         opt.Group,
		Hide:          opt.Hide,
		ParamShape:    paramShape(opt),
		Description:   opt.Text,
		Required:      opt.Required,
	}
	v.Constraints = constraintSummary(opt)
	if opt.Default != nil {
		if _, isFunc := opt.Default.(DefaultFunc); !isFunc {
			v.DefaultRendered = renderLiteral(opt.Default)
		}
	}
	if opt.Fallback != nil {
		if _, isFunc := opt.Fallback.(DefaultFunc); !isFunc {
			v.FallbackRendered = renderLiteral(opt.Fallback)
		}
	}
	return v
}

func paramShape(opt Option) ParamShape {
	switch opt.Kind {
	case KindFlag, KindHelp, KindVersion:
		return ParamNone
	case KindArray:
		return ParamMany
	case KindCommand:
		return ParamNone
	case KindFunction:
		if opt.Params.Unbounded {
			return ParamMany
		}
		if opt.Params.Exact == 0 && opt.Params.Min == 0 {
			return ParamOptional
		}
		return ParamOne
	default: // KindSingle
		if opt.Fallback != nil {
			return ParamOptional
		}
		return ParamOne
	}
}

func constraintSummary(opt Option) []string {
	var out []string
	if len(opt.Choices) > 0 {
		out = append(out, "choices={"+joinOr(opt.Choices)+"}")
	}
	if opt.Regex != "" {
		out = append(out, "regex="+opt.Regex)
	}
	if opt.Range != nil {
		out = append(out, "range=["+formatBound(opt.Range.Min)+", "+formatBound(opt.Range.Max)+"]")
	}
	if opt.Limit > 0 {
		out = append(out, "limit="+formatBound(float64(opt.Limit)))
	}
	if opt.Unique {
		out = append(out, "unique")
	}
	return out
}

// UsageEdge is one entry of the requires adjacency list fed to
// [Formatter.UsageGroups]: from requires to.
type UsageEdge struct {
	From string
	To   string
}

// UsageGroup is one bracketed nesting level of the usage-grouping algorithm
// (spec.md §4.9): "if a requires b, then a appears inside the same group as
// b, and b appears outside of a."
type UsageGroup struct {
	Key      string
	Required bool
	Nested   []UsageGroup
}

// UsageGroups computes the bracket nesting for usage rendering. edges
// should list one (From, To) pair per direct `requires` relationship
// between value-bearing options; filter, if non-empty, overrides
// schema-declaration order for tie-breaking among top-level groups.
func (f *Formatter) UsageGroups(edges []UsageEdge, filter []string) []UsageGroup {
	children := map[string][]string{} // To -> [From...] (options that require To)
	hasParent := map[string]bool{}
	for _, e := range edges {
		children[e.To] = append(children[e.To], e.From)
		hasParent[e.From] = true
	}

	order := f.schema.Keys()
	if len(filter) > 0 {
		order = filter
	}
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	sortByRank := func(keys []string) {
		sort.SliceStable(keys, func(i, j int) bool { return rank[keys[i]] < rank[keys[j]] })
	}

	var build func(key string) UsageGroup
	build = func(key string) UsageGroup {
		opt, _ := f.schema.Get(key)
		kids := append([]string(nil), children[key]...)
		sortByRank(kids)
		nested := make([]UsageGroup, 0, len(kids))
		for _, k := range kids {
			nested = append(nested, build(k))
		}
		return UsageGroup{Key: key, Required: opt.Required, Nested: nested}
	}

	var roots []string
	for _, key := range f.schema.Keys() {
		opt := f.schema.MustGet(key)
		if !opt.Kind.isValueBearing() {
			continue
		}
		if !hasParent[key] {
			roots = append(roots, key)
		}
	}
	sortByRank(roots)

	out := make([]UsageGroup, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}
