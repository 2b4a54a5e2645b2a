package declopt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declopt/declopt"
)

func TestSchemaPreservesDeclarationOrder(t *testing.T) {
	s := declopt.NewSchema().
		Add("zebra", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-z"}}).
		Add("apple", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-a"}}).
		Add("mango", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-m"}})

	require.Equal(t, []string{"zebra", "apple", "mango"}, s.Keys())
	require.Equal(t, 3, s.Len())
}

func TestSchemaAddReplacesWithoutReordering(t *testing.T) {
	s := declopt.NewSchema().
		Add("a", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-a"}}).
		Add("b", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-b"}}).
		Add("a", declopt.Option{Kind: declopt.KindFlag, Names: []string{"-a", "--alpha"}})

	require.Equal(t, []string{"a", "b"}, s.Keys())
	opt, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, []string{"-a", "--alpha"}, opt.Names)
}

func TestSchemaFromMapSortsLexically(t *testing.T) {
	s := declopt.SchemaFromMap(map[string]declopt.Option{
		"zebra": {Kind: declopt.KindFlag, Names: []string{"-z"}},
		"apple": {Kind: declopt.KindFlag, Names: []string{"-a"}},
	})
	require.Equal(t, []string{"apple", "zebra"}, s.Keys())
}

func TestSchemaMustGetPanicsOnUnknownKey(t *testing.T) {
	s := declopt.NewSchema()
	require.Panics(t, func() { s.MustGet("missing") })
}

func TestIsUndefined(t *testing.T) {
	require.True(t, declopt.IsUndefined(declopt.Undefined))
	require.False(t, declopt.IsUndefined("x"))
}
