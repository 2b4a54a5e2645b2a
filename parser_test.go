package declopt_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declopt/declopt"
)

func mustParse(t *testing.T, s declopt.Schema, args []string, flags declopt.ParseFlags) declopt.Result {
	t.Helper()
	p, err := declopt.New(s)
	require.NoError(t, err)
	return p.Parse(context.Background(), args, flags)
}

func TestFlagAndNegation(t *testing.T) {
	s := declopt.NewSchema().Add("verbose", declopt.Option{
		Kind: declopt.KindFlag, Names: []string{"-v", "--verbose"}, Negation: []string{"--no-verbose"},
	})

	res := mustParse(t, s, []string{"--verbose"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("verbose")
	assert.Equal(t, true, v)

	res = mustParse(t, s, []string{"--no-verbose"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ = res.Values.Get("verbose")
	assert.Equal(t, false, v)

	res = mustParse(t, s, []string{}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ = res.Values.Get("verbose")
	assert.True(t, declopt.IsUndefined(v))
}

func TestSingleValueSeparateAndInline(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o", "--output"},
	})

	res := mustParse(t, s, []string{"--output", "file.txt"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("output")
	assert.Equal(t, "file.txt", v)

	res = mustParse(t, s, []string{"--output=file.txt"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ = res.Values.Get("output")
	assert.Equal(t, "file.txt", v)
}

func TestSingleMissingParameterAtEndOfInput(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o", "--output"},
	})
	res := mustParse(t, s, []string{"--output"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.MissingParameter, res.Err.Kind)
}

func TestSingleFallbackWhenNoParameterSupplied(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o", "--output"}, Fallback: "fallback.txt",
	})
	res := mustParse(t, s, []string{"--output"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("output")
	assert.Equal(t, "fallback.txt", v)
}

func TestSingleTreatsNextTokenLiterallyEvenIfItLooksLikeAName(t *testing.T) {
	s := declopt.NewSchema().
		Add("output", declopt.Option{Kind: declopt.KindSingle, Names: []string{"-o", "--output"}}).
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-v", "--verbose"}})

	res := mustParse(t, s, []string{"--output", "--verbose"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	out, _ := res.Values.Get("output")
	assert.Equal(t, "--verbose", out)
	verbose, _ := res.Values.Get("verbose")
	assert.True(t, declopt.IsUndefined(verbose))
}

func TestArrayAccumulatesUntilNextKnownName(t *testing.T) {
	s := declopt.NewSchema().
		Add("tag", declopt.Option{Kind: declopt.KindArray, Names: []string{"-t", "--tag"}}).
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-v", "--verbose"}})

	res := mustParse(t, s, []string{"--tag", "a", "b", "c", "--verbose"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	tags, _ := res.Values.Get("tag")
	assert.Equal(t, []any{"a", "b", "c"}, tags)
	v, _ := res.Values.Get("verbose")
	assert.Equal(t, true, v)
}

func TestArraySeparatorSplitsOneArgument(t *testing.T) {
	s := declopt.NewSchema().Add("tag", declopt.Option{
		Kind: declopt.KindArray, Names: []string{"-t", "--tag"}, Separator: ",",
	})
	res := mustParse(t, s, []string{"--tag", "a,b,c"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	tags, _ := res.Values.Get("tag")
	assert.Equal(t, []any{"a", "b", "c"}, tags)
}

func TestArrayUniqueAndLimit(t *testing.T) {
	s := declopt.NewSchema().Add("tag", declopt.Option{
		Kind: declopt.KindArray, Names: []string{"-t"}, Unique: true, Limit: 2,
	})
	res := mustParse(t, s, []string{"-t", "a", "a", "b"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	tags, _ := res.Values.Get("tag")
	assert.Equal(t, []any{"a", "b"}, tags)

	res = mustParse(t, s, []string{"-t", "a", "b", "c"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.TooManyValues, res.Err.Kind)
}

func TestPositionalMarkerConsumesLiterally(t *testing.T) {
	s := declopt.NewSchema().
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-v"}}).
		Add("rest", declopt.Option{Kind: declopt.KindArray, Positional: "--"})

	res := mustParse(t, s, []string{"-v", "--", "-v", "--also-not-a-flag"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("verbose")
	assert.Equal(t, true, v)
	rest, _ := res.Values.Get("rest")
	assert.Equal(t, []any{"-v", "--also-not-a-flag"}, rest)
}

func TestPositionalFallbackForUnnamedOption(t *testing.T) {
	s := declopt.NewSchema().Add("args", declopt.Option{Kind: declopt.KindArray, Positional: true})
	res := mustParse(t, s, []string{"one", "two"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("args")
	assert.Equal(t, []any{"one", "two"}, v)
}

func TestUnknownOptionWithSuggestion(t *testing.T) {
	s := declopt.NewSchema().Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--verbose"}})
	res := mustParse(t, s, []string{"--verbsoe"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.UnknownOption, res.Err.Kind)
	assert.Contains(t, res.Err.Suggestions, "--verbose")
}

func TestClusterExpansionWithTrailingValueConsumer(t *testing.T) {
	s := declopt.NewSchema().
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-v"}, Cluster: "v"}).
		Add("all", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-a"}, Cluster: "a"}).
		Add("output", declopt.Option{Kind: declopt.KindSingle, Names: []string{"-o"}, Cluster: "o"})

	res := mustParse(t, s, []string{"-vao", "out.txt"}, declopt.ParseFlags{ClusterPrefix: "-"})
	require.Nil(t, res.Err)
	verbose, _ := res.Values.Get("verbose")
	all, _ := res.Values.Get("all")
	output, _ := res.Values.Get("output")
	assert.Equal(t, true, verbose)
	assert.Equal(t, true, all)
	assert.Equal(t, "out.txt", output)
}

func TestClusterConflictWhenNonLastLetterNeedsParameter(t *testing.T) {
	s := declopt.NewSchema().
		Add("output", declopt.Option{Kind: declopt.KindSingle, Names: []string{"-o"}, Cluster: "o"}).
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-v"}, Cluster: "v"})

	res := mustParse(t, s, []string{"-ov"}, declopt.ParseFlags{ClusterPrefix: "-"})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.ClusterConflict, res.Err.Kind)
}

func TestBundledShortOptionValue(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o", "--output"}, Cluster: "o",
	})
	res := mustParse(t, s, []string{"-ofile.txt"}, declopt.ParseFlags{ClusterPrefix: "-"})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("output")
	assert.Equal(t, "file.txt", v)
}

func TestFunctionOptionAccumulatesExactParamsAndInvokesExec(t *testing.T) {
	var got []string
	s := declopt.NewSchema().Add("point", declopt.Option{
		Kind:   declopt.KindFunction,
		Names:  []string{"--point"},
		Params: declopt.ParamCount{Exact: 2},
		Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) {
			got = append(got, ec.Args[0]+","+ec.Args[1])
			return declopt.Resolved[any](ec.Args), nil
		},
	})
	res := mustParse(t, s, []string{"--point", "1", "2"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	assert.Equal(t, []string{"1,2"}, got)
}

func TestFunctionOptionWrongParamCount(t *testing.T) {
	s := declopt.NewSchema().Add("point", declopt.Option{
		Kind: declopt.KindFunction, Names: []string{"--point"}, Params: declopt.ParamCount{Exact: 2},
		Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) { return declopt.Resolved[any](nil), nil },
	})
	res := mustParse(t, s, []string{"--point", "1"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.MissingParameter, res.Err.Kind)
}

func TestRepeatedZeroParamFunctionActsAsACounter(t *testing.T) {
	count := 0
	s := declopt.NewSchema().Add("verbose", declopt.Option{
		Kind: declopt.KindFunction, Names: []string{"-v"}, Params: declopt.ParamCount{Exact: 0},
		Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) {
			count++
			return declopt.Resolved[any](count), nil
		},
	})
	res := mustParse(t, s, []string{"-v", "-v", "-v"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	assert.Equal(t, 3, count)
}

// TestZeroParamFunctionYieldsTrailingTokenToPositional mirrors
// example/simple's "-v" (zero-param function) plus "args" (positional
// array) shape: a satisfied, still-pending function option must not
// swallow a bare token that belongs to the positional option.
func TestZeroParamFunctionYieldsTrailingTokenToPositional(t *testing.T) {
	var calls int
	s := declopt.NewSchema().
		Add("verbose", declopt.Option{
			Kind: declopt.KindFunction, Names: []string{"-v"}, Params: declopt.ParamCount{Exact: 0},
			Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) {
				calls++
				return declopt.Resolved[any](nil), nil
			},
		}).
		Add("args", declopt.Option{Kind: declopt.KindArray, Positional: true})

	res := mustParse(t, s, []string{"-v", "example.com"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	assert.Equal(t, 1, calls)
	verbose, _ := res.Values.Get("verbose")
	assert.Nil(t, verbose)
	args, _ := res.Values.Get("args")
	assert.Equal(t, []any{"example.com"}, args)
}

// TestBreakMaterializesOuterDefaultsBeforeExec covers schema.go's Break
// field: a function option's callback must see the outer schema's
// still-unset defaults already in place, not the bare pre-default record.
func TestBreakMaterializesOuterDefaultsBeforeExec(t *testing.T) {
	var seenDuringExec any
	s := declopt.NewSchema().
		Add("format", declopt.Option{Kind: declopt.KindSingle, Names: []string{"--format"}, Default: "json"}).
		Add("run", declopt.Option{
			Kind: declopt.KindFunction, Names: []string{"--run"}, Params: declopt.ParamCount{Exact: 0}, Break: true,
			Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) {
				seenDuringExec, _ = ec.Values.Get("format")
				return declopt.Resolved[any](nil), nil
			},
		})

	res := mustParse(t, s, []string{"--run"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	assert.Equal(t, "json", seenDuringExec)
}

func TestRequiredOptionMissing(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o"}, Required: true,
	})
	res := mustParse(t, s, []string{}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.Required, res.Err.Kind)
}

func TestDefaultsMaterializeInSchemaDeclarationOrder(t *testing.T) {
	s := declopt.NewSchema().
		Add("a", declopt.Option{Kind: declopt.KindSingle, Names: []string{"--a"}, Default: "1"}).
		Add("b", declopt.Option{Kind: declopt.KindSingle, Names: []string{"--b"}, Default: "2"})
	res := mustParse(t, s, []string{}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	a, _ := res.Values.Get("a")
	b, _ := res.Values.Get("b")
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestEnvFallbackWhenOptionAbsent(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o"}, Env: []string{"DECLOPT_TEST_OUTPUT"},
	})
	res := mustParse(t, s, []string{}, declopt.ParseFlags{
		Env: declopt.MapEnv{"DECLOPT_TEST_OUTPUT": "env.txt"},
	})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("output")
	assert.Equal(t, "env.txt", v)
}

func TestCommandLineTakesPriorityOverEnv(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o"}, Env: []string{"DECLOPT_TEST_OUTPUT"},
	})
	res := mustParse(t, s, []string{"-o", "cli.txt"}, declopt.ParseFlags{
		Env: declopt.MapEnv{"DECLOPT_TEST_OUTPUT": "env.txt"},
	})
	require.Nil(t, res.Err)
	v, _ := res.Values.Get("output")
	assert.Equal(t, "cli.txt", v)
}

func TestRequirementGraphRequires(t *testing.T) {
	s := declopt.NewSchema().
		Add("tls", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--tls"}, Requires: declopt.Key("cert")}).
		Add("cert", declopt.Option{Kind: declopt.KindSingle, Names: []string{"--cert"}})

	res := mustParse(t, s, []string{"--tls"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.RequirementNotSatisfied, res.Err.Kind)

	res = mustParse(t, s, []string{"--tls", "--cert", "x.pem"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
}

func TestRequirementGraphRequiredIf(t *testing.T) {
	s := declopt.NewSchema().
		Add("tls", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--tls"}}).
		Add("cert", declopt.Option{Kind: declopt.KindSingle, Names: []string{"--cert"}, RequiredIf: declopt.Key("tls")})

	res := mustParse(t, s, []string{"--tls"}, declopt.ParseFlags{})
	require.NotNil(t, res.Err)
	assert.Equal(t, declopt.RequirementNotSatisfied, res.Err.Kind)

	res = mustParse(t, s, []string{}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
}

func TestNestedCommandDispatch(t *testing.T) {
	nested := declopt.NewSchema().Add("force", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--force"}})
	s := declopt.NewSchema().Add("deploy", declopt.Command([]string{"deploy"}, "deploys the thing", nested))

	res := mustParse(t, s, []string{"deploy", "--force"}, declopt.ParseFlags{})
	require.Nil(t, res.Err)
	inner, ok := res.Values.Get("deploy")
	require.True(t, ok)
	nestedValues, ok := inner.(*declopt.Values)
	require.True(t, ok)
	force, _ := nestedValues.Get("force")
	assert.Equal(t, true, force)
}

func TestNestedCommandAutoInjectsHelp(t *testing.T) {
	nested := declopt.NewSchema().Add("force", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--force"}})
	s := declopt.NewSchema().Add("deploy", declopt.Command([]string{"deploy"}, "deploys the thing", nested))

	res := mustParse(t, s, []string{"deploy", "--help"}, declopt.ParseFlags{})
	require.NotNil(t, res.Help)
}

func TestHelpRewriteFromTrailingHelpToken(t *testing.T) {
	nested := declopt.NewSchema().Add("force", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--force"}})
	s := declopt.NewSchema().Add("deploy", declopt.Command([]string{"deploy"}, "deploys the thing", nested))

	res := mustParse(t, s, []string{"deploy", "help"}, declopt.ParseFlags{})
	require.NotNil(t, res.Help)
}

func TestCompletionOffersNamesMatchingPrefix(t *testing.T) {
	s := declopt.NewSchema().
		Add("verbose", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--verbose"}}).
		Add("version", declopt.Option{Kind: declopt.KindVersion, Names: []string{"--version"}})
	p, err := declopt.New(s)
	require.NoError(t, err)

	msg := p.Complete(context.Background(), "--ver", 5, declopt.ParseFlags{})
	require.NotNil(t, msg)
	assert.ElementsMatch(t, []string{"--verbose", "--version"}, msg.Candidates)
}

func TestCompletionOffersChoicesForPendingOption(t *testing.T) {
	s := declopt.NewSchema().Add("format", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"--format"}, Choices: []string{"text", "json", "toml"},
	})
	p, err := declopt.New(s)
	require.NoError(t, err)

	msg := p.Complete(context.Background(), "--format j", 10, declopt.ParseFlags{})
	require.NotNil(t, msg)
	assert.Equal(t, []string{"json"}, msg.Candidates)
}

func TestCompletionNeverErrors(t *testing.T) {
	s := declopt.NewSchema().Add("output", declopt.Option{
		Kind: declopt.KindSingle, Names: []string{"-o"}, Required: true,
	})
	p, err := declopt.New(s)
	require.NoError(t, err)
	msg := p.Complete(context.Background(), "--nonexistent", 13, declopt.ParseFlags{})
	require.NotNil(t, msg)
}

func TestParseIsDeterministic(t *testing.T) {
	s := declopt.NewSchema().
		Add("tag", declopt.Option{Kind: declopt.KindArray, Names: []string{"-t"}}).
		Add("output", declopt.Option{Kind: declopt.KindSingle, Names: []string{"-o"}, Default: "out.txt"})

	args := []string{"-t", "a", "-t", "b", "-o", "x.txt"}
	first := mustParse(t, s, args, declopt.ParseFlags{})
	second := mustParse(t, s, args, declopt.ParseFlags{})
	require.Nil(t, first.Err)
	require.Nil(t, second.Err)
	if diff := cmp.Diff(first.Values, second.Values); diff != "" {
		t.Fatalf("parse is not deterministic (-first +second):\n%s", diff)
	}
}

func TestSchemaValidationRejectsDuplicateName(t *testing.T) {
	s := declopt.NewSchema().
		Add("a", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--dup"}}).
		Add("b", declopt.Option{Kind: declopt.KindFlag, Names: []string{"--dup"}})
	_, err := declopt.New(s)
	require.Error(t, err)
	var schemaErr *declopt.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, declopt.DuplicateName, schemaErr.Kind)
}

func TestSchemaValidationRejectsSelfReferencingRequirement(t *testing.T) {
	s := declopt.NewSchema().Add("a", declopt.Option{
		Kind: declopt.KindFlag, Names: []string{"-a"}, Requires: declopt.Key("a"),
	})
	_, err := declopt.New(s)
	require.Error(t, err)
	var schemaErr *declopt.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, declopt.RequirementSelfReference, schemaErr.Kind)
}
