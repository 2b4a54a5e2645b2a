package declopt

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Parser binds a validated schema and is reusable across many parses
// (spec.md §3.4 "the parser object binds a validated schema and is
// reusable"). Constructing one recursively validates every nested command
// schema too, and pre-builds each nested [Parser] so dispatch never
// re-validates on the hot path.
type Parser struct {
	schema Schema
	idx    *nameIndex

	// positionalKey is the key of the option declared positional=true, or
	// "" if none (spec.md §3.1 "at most one option may be positional
	// without a marker").
	positionalKey string

	// nested holds one fully-built Parser per KindCommand option, keyed by
	// option key. Built eagerly so a deep command tree is validated once,
	// at the root's New call, rather than lazily on first dispatch.
	nested map[string]*Parser
}

// New validates s (spec.md §4.1) and, on success, builds the reusable
// [Parser]: the name/cluster index (§4.3) and, recursively, one nested
// Parser per command option.
func New(s Schema) (*Parser, error) {
	if _, err := validateSchema(s); err != nil {
		return nil, err
	}
	p := &Parser{schema: s, idx: buildNameIndex(s)}
	for _, key := range s.Keys() {
		opt := s.MustGet(key)
		if b, ok := opt.Positional.(bool); ok && b {
			p.positionalKey = key
		}
		if opt.Kind != KindCommand {
			continue
		}
		inner := ensureHelpInjected(opt.Nested)
		nestedParser, err := New(inner)
		if err != nil {
			return nil, err
		}
		if p.nested == nil {
			p.nested = make(map[string]*Parser)
		}
		p.nested[key] = nestedParser
	}
	return p, nil
}

// MustNew is like New but prints the error to stderr and calls os.Exit(1),
// matching the teacher's MustNewParser wrapper.
func MustNew(s Schema) *Parser {
	p, err := New(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
	return p
}

// ParseFlags is the parsing-flags struct of spec.md §4.4.
type ParseFlags struct {
	// ClusterPrefix is the prefix that marks a cluster argument (e.g.
	// "-"). Clustering is disabled when empty.
	ClusterPrefix string

	// ProgramName is used only for diagnostics and usage.
	ProgramName string

	// TermWidth is a width hint for external renderers; neither the parser
	// nor [Formatter] reads it.
	TermWidth int

	// Env is the environment view read for option `env` fallback. Defaults
	// to [OSEnv] when nil.
	Env EnvView
}

// Parse parses a pre-tokenized argument vector against the schema,
// returning exactly one populated field of [Result] (spec.md §9 "explicit
// result sum type").
func (p *Parser) Parse(ctx context.Context, args []string, flags ParseFlags) Result {
	if len(p.nested) > 0 {
		args = RewriteHelpInvocation(args)
	}
	return p.run(ctx, args, false, -1, "", flags, nil)
}

// ParseLine tokenizes line (spec.md §4.2) and parses the result.
func (p *Parser) ParseLine(ctx context.Context, line string, flags ParseFlags) Result {
	return p.Parse(ctx, Tokenize(line), flags)
}

// Complete is the convenience completion wrapper of spec.md §6: it always
// returns a [CompletionMessage], swallowing every error per §4.5 so that
// completion never fails (spec.md §8 "Completion termination").
func (p *Parser) Complete(ctx context.Context, line string, cursor int, flags ParseFlags) *CompletionMessage {
	tokens, cursorIdx, prefix := tokenizeWithCursor(line, cursor)
	res := p.run(ctx, tokens, true, cursorIdx, prefix, flags, nil)
	if res.Completion != nil {
		return res.Completion
	}
	return &CompletionMessage{}
}

// run is the shared entry point for a top-level or nested parse.
func (p *Parser) run(ctx context.Context, tokens []string, completing bool, cursorIdx int, prefix string, flags ParseFlags, parent *Values) Result {
	if flags.Env == nil {
		flags.Env = OSEnv()
	}
	st := &parseState{
		p:          p,
		ctx:        ctx,
		flags:      flags,
		values:     newValuesWithParent(p.schema, parent),
		completing: completing,
		tokens:     tokens,
		cursorIdx:  cursorIdx,
		prefix:     prefix,
	}
	return st.loop()
}

// pendingState tracks the option currently expecting more parameters
// (spec.md §4.4 state variable "pending").
type pendingState struct {
	key          string
	kind         Kind
	consumedOnce bool          // KindSingle
	counter      *paramCounter // KindFunction
	args         []string      // KindFunction, accumulated raw parameters
}

// mustConsumeNext reports whether the very next bare token, whatever it
// looks like, unconditionally belongs to this pending option (spec.md
// §4.4 end-of-input rule 1's "single or function with fixed count").
func (ps *pendingState) mustConsumeNext() bool {
	switch ps.kind {
	case KindSingle:
		return !ps.consumedOnce
	case KindFunction:
		return ps.counter.mustTakeNext()
	default:
		return false
	}
}

// optionalGreedy reports whether this pending option may still absorb bare
// tokens but should yield as soon as a known name is seen (spec.md §4.4
// "pending stays set across subsequent bare tokens until the next known
// name is seen").
func (ps *pendingState) optionalGreedy() bool {
	switch ps.kind {
	case KindArray:
		return true
	case KindFunction:
		return ps.counter.wantsMore() && !ps.counter.mustTakeNext()
	default:
		return false
	}
}

// parseState is the mutable working set for one parse (one call to run).
type parseState struct {
	p          *Parser
	ctx        context.Context
	flags      ParseFlags
	values     *Values
	completing bool
	tokens     []string
	cursorIdx  int
	prefix     string

	pending     *pendingState
	afterMarker bool
	markerKey   string
}

// loop drives the token-by-token state machine of spec.md §4.4.
func (st *parseState) loop() Result {
	i := 0
	for i < len(st.tokens) {
		if st.completing && i == st.cursorIdx {
			return Result{Completion: st.completeHere()}
		}
		tok := st.tokens[i]

		// Rule 1: after-marker mode.
		if st.afterMarker {
			if errMsg := st.feedMarker(tok); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			i++
			continue
		}

		// Mandatory pending consumption: whatever this token is, it belongs
		// to the option awaiting a fixed-count parameter.
		if st.pending != nil && st.pending.mustConsumeNext() {
			if errMsg := st.consumePending(tok); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			if st.pending != nil && st.pending.kind == KindSingle && st.pending.consumedOnce {
				st.pending = nil
			}
			i++
			continue
		}

		// Positional-marker exact match (no inline splitting for markers).
		if marker, ok := st.p.idx.marker[tok]; ok {
			if errMsg := st.closeFunctionPending(); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			st.pending = nil
			st.afterMarker = true
			st.markerKey = marker
			i++
			continue
		}

		// Rule 2: cluster match.
		if names, matched, clusterErr := st.tryExpandCluster(tok); clusterErr != nil {
			if !st.completing {
				return Result{Err: clusterErr}
			}
			i++
			continue
		} else if matched {
			rest := make([]string, 0, len(st.tokens)-1+len(names))
			rest = append(rest, st.tokens[:i]...)
			rest = append(rest, names...)
			rest = append(rest, st.tokens[i+1:]...)
			st.tokens = rest
			continue
		}

		// Bundled short-option value attachment (`-ffile.txt`), supplemented
		// from bassosimone/clip's parseShort: a single cluster letter for a
		// single-valued option followed directly by its value, no `=`
		// required.
		if key, inlineVal, ok := st.tryBundledValue(tok); ok {
			if errMsg := st.closeFunctionPending(); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			st.pending = nil
			if errMsg := st.consumeScalarInto(key, inlineVal); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			i++
			continue
		}

		// Rule 3: name match (possibly with inline value).
		if key, surface, inlineVal, hasInline, ok := st.splitName(tok); ok {
			res, stop := st.dispatchName(key, surface, hasInline, inlineVal, i)
			if stop {
				return res
			}
			if res.Err != nil && !st.completing {
				return res
			}
			i++
			continue
		}

		// Continuation of a greedy pending option (array, or a function past
		// its minimum) that isn't interrupted by a known name.
		if st.pending != nil && st.pending.optionalGreedy() {
			if errMsg := st.consumePending(tok); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			i++
			continue
		}

		// Rule 4: positional fallback. A pending function option that is
		// neither obligated to consume (mustConsumeNext) nor eligible to
		// keep consuming greedily (optionalGreedy) has already received
		// every parameter it declared; close it now so this bare token
		// reaches the positional option instead of being swallowed by the
		// function's Args.
		if st.p.positionalKey != "" {
			if st.pending != nil && st.pending.kind == KindFunction && st.pending.key != st.p.positionalKey {
				if errMsg := st.closeFunctionPending(); errMsg != nil && !st.completing {
					return Result{Err: errMsg}
				}
				st.pending = nil
			}
			if errMsg := st.feedPositional(tok); errMsg != nil && !st.completing {
				return Result{Err: errMsg}
			}
			i++
			continue
		}

		// Rule 5: unknown.
		if !st.completing {
			return Result{Err: unknownOption(tok, st.p.idx.suggestions(tok))}
		}
		i++
	}

	if st.completing {
		return Result{Completion: st.completeHere()}
	}
	return st.finish()
}

// splitName splits tok at the first '=' and looks up the left side in the
// name index. surface is the exact matched surface name, distinct from key
// so callers can tell a negation name from its owning option's key.
func (st *parseState) splitName(tok string) (key, surface, inlineVal string, hasInline, ok bool) {
	left := tok
	if idx := strings.IndexByte(tok, '='); idx >= 0 {
		left = tok[:idx]
		inlineVal = tok[idx+1:]
		hasInline = true
	}
	if k, found := st.p.idx.byName[left]; found {
		return k, left, inlineVal, hasInline, true
	}
	return "", "", "", false, false
}

// tryExpandCluster implements spec.md §4.8: a cluster token is the prefix
// followed by one or more registered cluster letters; every letter but the
// last must belong to a flag option. A token that is itself a registered
// full name is never treated as a cluster (spec.md §8 boundary behaviour).
func (st *parseState) tryExpandCluster(tok string) (names []string, matched bool, clusterErr *ErrorMessage) {
	prefix := st.flags.ClusterPrefix
	if prefix == "" || strings.Contains(tok, "=") || !strings.HasPrefix(tok, prefix) {
		return nil, false, nil
	}
	if _, isName := st.p.idx.byName[tok]; isName {
		return nil, false, nil
	}
	if !st.p.idx.isClusterToken(tok, prefix) {
		return nil, false, nil
	}
	letters := tok[len(prefix):]
	out := make([]string, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		key := st.p.idx.byLetter[letters[i]]
		opt := st.p.schema.MustGet(key)
		if i < len(letters)-1 && opt.Kind != KindFlag {
			return nil, false, clusterConflict(st.p.schema, key)
		}
		out = append(out, opt.preferredName())
	}
	return out, true, nil
}

// tryBundledValue recognizes `-ffile.txt`: a single cluster letter for a
// single-valued option immediately followed by its value, with no `=`
// and without being a full multi-letter cluster itself (spec.md §4.8
// handles the latter; this is the supplemented GNU-style extra form).
func (st *parseState) tryBundledValue(tok string) (key, inlineVal string, ok bool) {
	prefix := st.flags.ClusterPrefix
	if prefix == "" || strings.Contains(tok, "=") || !strings.HasPrefix(tok, prefix) {
		return "", "", false
	}
	if _, isName := st.p.idx.byName[tok]; isName {
		return "", "", false
	}
	rest := tok[len(prefix):]
	if len(rest) < 2 {
		return "", "", false
	}
	k, found := st.p.idx.byLetter[rest[0]]
	if !found {
		return "", "", false
	}
	if st.p.schema.MustGet(k).Kind != KindSingle {
		return "", "", false
	}
	return k, rest[1:], true
}

// dispatchName handles rule 3 for an already-resolved option key. The bool
// return reports whether the whole parse is finished (help/version/command
// results terminate the state machine outright).
func (st *parseState) dispatchName(key, surface string, hasInline bool, inlineVal string, i int) (Result, bool) {
	opt := st.p.schema.MustGet(key)

	if hasInline && opt.Inline == InlineDisallowed {
		return Result{Err: inlineNotAccepted(st.p.schema, key)}, false
	}
	if !hasInline && opt.Inline == InlineRequired && opt.Kind != KindFlag && opt.Kind != KindHelp && opt.Kind != KindVersion {
		return Result{Err: inlineRequired(st.p.schema, key)}, false
	}

	if errMsg := st.closeFunctionPending(); errMsg != nil {
		return Result{Err: errMsg}, false
	}
	st.pending = nil

	switch opt.Kind {
	case KindFlag:
		if hasInline {
			return Result{Err: inlineNotAccepted(st.p.schema, key)}, false
		}
		value := true
		if owner, isNeg := st.p.idx.negations[surface]; isNeg && owner == key {
			value = false
		}
		st.values.set(key, value)
		return Result{}, false

	case KindHelp:
		return Result{Help: &HelpMessage{OptionKey: key, Raw: opt.Text}}, true

	case KindVersion:
		return Result{Version: &VersionMessage{OptionKey: key, Text: opt.Text}}, true

	case KindSingle:
		if hasInline {
			errMsg := st.consumeScalarInto(key, inlineVal)
			return Result{Err: errMsg}, false
		}
		st.pending = &pendingState{key: key, kind: KindSingle}
		return Result{}, false

	case KindArray:
		if hasInline {
			if errMsg := st.consumeArrayToken(key, inlineVal); errMsg != nil {
				return Result{Err: errMsg}, false
			}
			return Result{}, false
		}
		st.pending = &pendingState{key: key, kind: KindArray}
		return Result{}, false

	case KindFunction:
		counter := newParamCounter(opt.Params)
		ps := &pendingState{key: key, kind: KindFunction, counter: counter}
		if hasInline {
			ps.args = append(ps.args, inlineVal)
			counter.take()
		}
		st.pending = ps
		return Result{}, false

	case KindCommand:
		return st.dispatchCommand(key, opt, i)

	default:
		return Result{}, false
	}
}

// dispatchCommand hands the remainder of the token stream to the nested
// parser, per spec.md §4.4 rule 3's command case.
func (st *parseState) dispatchCommand(key string, opt Option, i int) (Result, bool) {
	remaining := RewriteHelpInvocation(st.tokens[i+1:])
	nestedParser := st.p.nested[key]

	nestedCompleting := false
	nestedCursor := -1
	if st.completing && st.cursorIdx > i {
		nestedCompleting = true
		nestedCursor = st.cursorIdx - (i + 1)
	}

	nested := nestedParser.run(st.ctx, remaining, nestedCompleting, nestedCursor, st.prefix, st.flags, st.values)
	if nested.Err != nil || nested.Help != nil || nested.Version != nil || nested.Completion != nil {
		return nested, true
	}

	if opt.Exec != nil {
		if opt.Break {
			if errMsg := materializeDefaults(st.ctx, st.p.schema, st.values); errMsg != nil {
				return Result{Err: errMsg}, true
			}
		}
		ec := &ExecContext{Context: st.ctx, Values: nested.Values, Args: remaining, Completing: st.completing}
		d, err := opt.Exec(ec)
		if err != nil {
			return Result{Err: &ErrorMessage{Kind: InvalidParameter, OptionKey: key,
				Rendered: fmt.Sprintf("Option -%s callback failed: %s.", diagName(st.p.schema, key), err.Error())}}, true
		}
		v, err := d.Await(st.ctx)
		if err != nil {
			return Result{Err: &ErrorMessage{Kind: InvalidParameter, OptionKey: key,
				Rendered: fmt.Sprintf("Option -%s callback failed: %s.", diagName(st.p.schema, key), err.Error())}}, true
		}
		st.values.set(key, v)
	} else {
		st.values.set(key, nested.Values)
	}

	// The nested parser consumed the rest of the stream; truncate so the
	// outer loop terminates cleanly right after this token.
	st.tokens = st.tokens[:i+1]
	return Result{}, false
}

// consumeScalarInto coerces raw through the scalar pipeline and assigns it.
func (st *parseState) consumeScalarInto(key, raw string) *ErrorMessage {
	v, errMsg, err := newCoercer(st.p.schema, key).scalar(st.ctx, raw)
	if err != nil {
		return &ErrorMessage{Kind: InvalidParameter, OptionKey: key, Rendered: err.Error()}
	}
	if errMsg != nil {
		return errMsg
	}
	st.values.set(key, v)
	return nil
}

// consumeArrayToken coerces raw into zero or more elements and appends them,
// then re-applies limit/unique (spec.md §4.7).
func (st *parseState) consumeArrayToken(key, raw string) *ErrorMessage {
	elems, errMsg, err := newCoercer(st.p.schema, key).array(st.ctx, raw)
	if err != nil {
		return &ErrorMessage{Kind: InvalidParameter, OptionKey: key, Rendered: err.Error()}
	}
	if errMsg != nil {
		return errMsg
	}
	for _, e := range elems {
		st.values.appendArray(key, e)
	}
	cur, _ := st.values.Get(key)
	arr, _ := cur.([]any)
	newArr, errMsg2 := enforceArrayConstraints(st.p.schema, key, arr)
	if errMsg2 != nil {
		return errMsg2
	}
	st.values.set(key, newArr)
	return nil
}

// consumePending feeds raw to whichever option is currently pending.
func (st *parseState) consumePending(raw string) *ErrorMessage {
	ps := st.pending
	switch ps.kind {
	case KindSingle:
		if errMsg := st.consumeScalarInto(ps.key, raw); errMsg != nil {
			return errMsg
		}
		ps.consumedOnce = true
		return nil
	case KindArray:
		return st.consumeArrayToken(ps.key, raw)
	case KindFunction:
		ps.args = append(ps.args, raw)
		ps.counter.take()
		return nil
	}
	return nil
}

// feedMarker implements after-marker mode: every remaining token goes to
// the marker option regardless of shape (spec.md §4.4 rule 1).
func (st *parseState) feedMarker(tok string) *ErrorMessage {
	opt := st.p.schema.MustGet(st.markerKey)
	switch opt.Kind {
	case KindSingle:
		return st.consumeScalarInto(st.markerKey, tok)
	default:
		return st.consumeArrayToken(st.markerKey, tok)
	}
}

// feedPositional implements rule 4: a bare token with no matching name is
// consumed by the declared positional option.
func (st *parseState) feedPositional(tok string) *ErrorMessage {
	key := st.p.positionalKey
	if st.pending == nil {
		opt := st.p.schema.MustGet(key)
		if opt.Kind == KindFunction {
			st.pending = &pendingState{key: key, kind: KindFunction, counter: newParamCounter(opt.Params)}
		} else {
			st.pending = &pendingState{key: key, kind: opt.Kind}
		}
	}
	return st.consumePending(tok)
}

// closeFunctionPending finalizes a function option's accumulated
// parameters — invoking Exec — when control moves on to something else
// (a new name, the positional marker, or end of input).
func (st *parseState) closeFunctionPending() *ErrorMessage {
	if st.pending == nil || st.pending.kind != KindFunction {
		return nil
	}
	ps := st.pending
	st.pending = nil
	if !ps.counter.satisfied() {
		return paramCountError(st.p.schema, ps.key, ps.counter.want)
	}
	return st.invokeFunctionExec(ps)
}

func (st *parseState) invokeFunctionExec(ps *pendingState) *ErrorMessage {
	opt := st.p.schema.MustGet(ps.key)
	if opt.Exec == nil {
		return nil
	}
	if opt.Break {
		if errMsg := materializeDefaults(st.ctx, st.p.schema, st.values); errMsg != nil {
			return errMsg
		}
	}
	ec := &ExecContext{Context: st.ctx, Values: st.values, Args: ps.args, Completing: st.completing}
	d, err := opt.Exec(ec)
	if err != nil {
		return &ErrorMessage{Kind: InvalidParameter, OptionKey: ps.key,
			Rendered: fmt.Sprintf("Option -%s callback failed: %s.", diagName(st.p.schema, ps.key), err.Error())}
	}
	if d == nil {
		return nil
	}
	v, err := d.Await(st.ctx)
	if err != nil {
		return &ErrorMessage{Kind: InvalidParameter, OptionKey: ps.key,
			Rendered: fmt.Sprintf("Option -%s callback failed: %s.", diagName(st.p.schema, ps.key), err.Error())}
	}
	st.values.set(ps.key, v)
	return nil
}

// materializeDefaults resolves every still-unset, value-bearing key's
// Default into v, in schema declaration order. It is used both by finish's
// own end-of-input defaults step and, when an option declares Break, to
// give that option's Exec callback a full view of the outer schema's
// defaults before it runs. Defaults backed by a DefaultFunc are fanned out
// through awaitAllAny since nothing orders one option's default callback
// ahead of another's; literal defaults resolve inline.
func materializeDefaults(ctx context.Context, schema Schema, v *Values) *ErrorMessage {
	var pendingKeys []string
	var tasks []awaitTask
	for _, key := range schema.Keys() {
		opt := schema.MustGet(key)
		if !opt.Kind.isValueBearing() || v.isSet(key) || opt.Default == nil {
			continue
		}
		fn, isFunc := opt.Default.(DefaultFunc)
		if !isFunc {
			v.set(key, opt.Default)
			continue
		}
		d, err := fn(ctx)
		if err != nil {
			return &ErrorMessage{Kind: InvalidParameter, OptionKey: key, Rendered: err.Error()}
		}
		pendingKeys = append(pendingKeys, key)
		tasks = append(tasks, awaitTask{key: key, d: d})
	}
	if len(tasks) == 0 {
		return nil
	}
	results, err := awaitAllAny(ctx, tasks)
	if err != nil {
		return &ErrorMessage{Kind: InvalidParameter, Rendered: err.Error()}
	}
	for i, key := range pendingKeys {
		v.set(key, results[i])
	}
	return nil
}

// finalizePending implements end-of-input rule 1.
func (st *parseState) finalizePending() *ErrorMessage {
	ps := st.pending
	st.pending = nil
	opt := st.p.schema.MustGet(ps.key)

	switch ps.kind {
	case KindSingle:
		if ps.consumedOnce {
			return nil
		}
		if opt.Fallback != nil {
			v, err := resolveDefaultLike(st.ctx, opt.Fallback)
			if err != nil {
				return &ErrorMessage{Kind: InvalidParameter, OptionKey: ps.key, Rendered: err.Error()}
			}
			st.values.set(ps.key, v)
			return nil
		}
		return missingParameter(st.p.schema, ps.key)

	case KindFunction:
		if !ps.counter.satisfied() {
			if opt.Fallback != nil {
				v, err := resolveDefaultLike(st.ctx, opt.Fallback)
				if err != nil {
					return &ErrorMessage{Kind: InvalidParameter, OptionKey: ps.key, Rendered: err.Error()}
				}
				st.values.set(ps.key, v)
				return nil
			}
			return paramCountError(st.p.schema, ps.key, ps.counter.want)
		}
		return st.invokeFunctionExec(ps)

	default:
		return nil
	}
}

// finish implements end-of-input processing (spec.md §4.4 "End-of-input
// processing", steps 1-5).
func (st *parseState) finish() Result {
	if st.pending != nil {
		if errMsg := st.finalizePending(); errMsg != nil {
			return Result{Err: errMsg}
		}
	}

	schema := st.p.schema

	// Step 2: environment fallback.
	for _, key := range schema.Keys() {
		opt := schema.MustGet(key)
		if !opt.Kind.isValueBearing() || st.values.isSet(key) || len(opt.Env) == 0 {
			continue
		}
		name, raw, found := firstNonEmpty(st.flags.Env, opt.Env)
		if !found {
			continue
		}
		v, errMsg, err := newCoercer(schema, key).scalar(st.ctx, raw)
		if err != nil {
			return Result{Err: invalidEnvParameter(name, raw, err.Error())}
		}
		if errMsg != nil {
			return Result{Err: invalidEnvParameter(name, raw, errMsg.Rendered)}
		}
		st.values.set(key, v)
	}

	// Step 3: defaults, in schema-declaration order.
	if errMsg := materializeDefaults(st.ctx, schema, st.values); errMsg != nil {
		return Result{Err: errMsg}
	}

	// Step 4: required.
	for _, key := range schema.Keys() {
		opt := schema.MustGet(key)
		if opt.Kind.isValueBearing() && opt.Required && !st.values.isSet(key) {
			return Result{Err: requiredError(schema, key)}
		}
	}

	// Step 5: requirement graph.
	for _, key := range schema.Keys() {
		opt := schema.MustGet(key)
		if opt.Requires != nil && st.values.isSet(key) {
			ok, err := opt.Requires.eval(st.ctx, st.values)
			if err != nil {
				return Result{Err: &ErrorMessage{Kind: RequirementNotSatisfied, OptionKey: key, Rendered: err.Error()}}
			}
			if !ok {
				return Result{Err: requirementNotSatisfied(schema, key, renderRequires(schema, key, opt.Requires))}
			}
		}
		if opt.RequiredIf != nil && !st.values.isSet(key) {
			ok, err := opt.RequiredIf.eval(st.ctx, st.values)
			if err != nil {
				return Result{Err: &ErrorMessage{Kind: RequirementNotSatisfied, OptionKey: key, Rendered: err.Error()}}
			}
			if ok {
				return Result{Err: requirementNotSatisfied(schema, key, renderRequiredIf(schema, key, opt.RequiredIf))}
			}
		}
	}

	return Result{Values: st.values}
}

// completeHere implements spec.md §4.5's candidate rules for the token
// under the cursor.
func (st *parseState) completeHere() *CompletionMessage {
	var tok string
	if st.cursorIdx >= 0 && st.cursorIdx < len(st.tokens) {
		tok = st.tokens[st.cursorIdx]
	}

	// Inline form name=prefix behaves as the parameter case for name.
	if eq := strings.IndexByte(tok, '='); eq >= 0 {
		left := tok[:eq]
		if key, ok := st.p.idx.byName[left]; ok {
			return st.completeParam(key, 0, st.prefix)
		}
		return &CompletionMessage{}
	}

	if st.afterMarker {
		return &CompletionMessage{}
	}

	if st.pending != nil {
		paramIndex := 0
		if st.pending.kind == KindFunction {
			paramIndex = len(st.pending.args)
		}
		return st.completeParam(st.pending.key, paramIndex, st.prefix)
	}

	return st.completeNames()
}

func (st *parseState) completeParam(key string, paramIndex int, prefix string) *CompletionMessage {
	opt := st.p.schema.MustGet(key)
	if opt.Complete != nil {
		cands, err := opt.Complete(st.ctx, st.values, prefix, paramIndex)
		if err != nil {
			return &CompletionMessage{}
		}
		return &CompletionMessage{Candidates: cands}
	}
	if len(opt.Choices) > 0 {
		out := make([]string, 0, len(opt.Choices))
		for _, c := range opt.Choices {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		return &CompletionMessage{Candidates: out}
	}
	return &CompletionMessage{}
}

// completeNames lists every surface name and positional marker matching
// prefix. When nothing matches, it falls back to the nearest names by edit
// distance instead of an empty list — the supplemented completion behavior
// described in SPEC_FULL.md, mirrored from reeflective-flags' completion
// engine.
func (st *parseState) completeNames() *CompletionMessage {
	names := make([]string, 0, len(st.p.idx.byName)+len(st.p.idx.marker))
	for n := range st.p.idx.byName {
		if strings.HasPrefix(n, st.prefix) {
			names = append(names, n)
		}
	}
	for m := range st.p.idx.marker {
		if strings.HasPrefix(m, st.prefix) {
			names = append(names, m)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		names = st.p.idx.suggestions(st.prefix)
	}
	return &CompletionMessage{Candidates: names}
}
