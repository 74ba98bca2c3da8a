package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllVerbs(t *testing.T) {
	set, err := Parse(`
		create alias aaa -> 000
		create implication bbb -> 111
		remove alias ccc -> 222
		remove implication ddd -> 333
		mass update eee id:1 -fff ~ggg hhh* -> 444 -555
		category iii -> meta
	`)
	require.NoError(t, err)
	require.Equal(t, 6, set.Len())

	actions := set.Actions()
	assert.Equal(t, CreateAlias{Pair{"aaa", "000"}}, actions[0])
	assert.Equal(t, CreateImplication{Pair{"bbb", "111"}}, actions[1])
	assert.Equal(t, RemoveAlias{Pair{"ccc", "222"}}, actions[2])
	assert.Equal(t, RemoveImplication{Pair{"ddd", "333"}}, actions[3])
	assert.Equal(t, MassUpdate{
		Antecedent: []Token{
			{Name: "eee"},
			{Name: "id:1"},
			{Name: "fff", Negated: true},
			{Name: "ggg", Optional: true},
			{Name: "hhh*"},
		},
		Consequent: []Token{{Name: "444"}, {Name: "555", Negated: true}},
	}, actions[4])
	assert.Equal(t, ChangeCategory{Tag: "iii", Category: "meta"}, actions[5])
}

func TestParse_ReferencedTags(t *testing.T) {
	set := MustParse(`
		create alias aaa -> 000
		create implication bbb -> 111
		remove alias ccc -> 222
		remove implication ddd -> 333
		mass update eee id:1 -fff ~ggg hhh* -> 444 -555
		category iii -> meta
	`)

	assert.Equal(t,
		[]string{"000", "111", "222", "333", "444", "aaa", "bbb", "ccc", "ddd", "eee", "iii"},
		set.ReferencedTags())
}

func TestParse_NormalizesCase(t *testing.T) {
	set, err := Parse("CREATE ALIAS Aaa -> Bbb")
	require.NoError(t, err)

	assert.Equal(t, "create alias aaa -> bbb", set.String())
}

func TestParse_Synonyms(t *testing.T) {
	tests := []struct {
		line string
		want Action
	}{
		{"aliasing a -> b", CreateAlias{Pair{"a", "b"}}},
		{"alias a -> b", CreateAlias{Pair{"a", "b"}}},
		{"unaliasing a -> b", RemoveAlias{Pair{"a", "b"}}},
		{"unalias a -> b", RemoveAlias{Pair{"a", "b"}}},
		{"implicating a -> b", CreateImplication{Pair{"a", "b"}}},
		{"implicate a -> b", CreateImplication{Pair{"a", "b"}}},
		{"imply a -> b", CreateImplication{Pair{"a", "b"}}},
		{"unimplicating a -> b", RemoveImplication{Pair{"a", "b"}}},
		{"unimplicate a -> b", RemoveImplication{Pair{"a", "b"}}},
		{"unimply a -> b", RemoveImplication{Pair{"a", "b"}}},
		{"update a -> b", MassUpdate{Antecedent: []Token{{Name: "a"}}, Consequent: []Token{{Name: "b"}}}},
		{"change a -> b", MassUpdate{Antecedent: []Token{{Name: "a"}}, Consequent: []Token{{Name: "b"}}}},
		{"change category a -> Artist", ChangeCategory{Tag: "a", Category: "artist"}},
		{"create   alias a->b", CreateAlias{Pair{"a", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			set, err := Parse(tt.line)
			require.NoError(t, err)
			require.Equal(t, 1, set.Len())
			assert.Equal(t, tt.want, set.Actions()[0])
		})
	}
}

func TestParse_SkipsBlankAndComments(t *testing.T) {
	set, err := Parse("\n# rename\n\r\ncreate alias a -> b\r\n   # trailing\n")
	require.NoError(t, err)

	assert.Equal(t, 1, set.Len())
}

func TestParse_EmptyScript(t *testing.T) {
	set, err := Parse("")
	require.NoError(t, err)

	assert.Zero(t, set.Len())
	assert.Empty(t, set.ReferencedTags())
	assert.Equal(t, "", set.String())
}

func TestParse_CollectsAllErrors(t *testing.T) {
	_, err := Parse("create alias a -> b\nfoo bar\ncreate alias x\nimply c -> d")
	require.Error(t, err)

	var perrs ParseErrors
	require.ErrorAs(t, err, &perrs)
	require.Len(t, perrs, 2)
	assert.Equal(t, 2, perrs[0].Line)
	assert.Equal(t, "foo bar", perrs[0].Text)
	assert.Equal(t, 3, perrs[1].Line)
	assert.Contains(t, err.Error(), "Unparseable line 2: foo bar")
}

func TestParse_RejectsInvalidTagNames(t *testing.T) {
	_, err := Parse("create alias -a -> b")
	require.Error(t, err)

	var perrs ParseErrors
	require.ErrorAs(t, err, &perrs)
	assert.Contains(t, perrs[0].Reason, "invalid tag name")
}

func TestParse_MassUpdateEmptyConsequent(t *testing.T) {
	set, err := Parse("mass update aaa ->")
	require.NoError(t, err)

	mu := set.Actions()[0].(MassUpdate)
	assert.Empty(t, mu.Consequent)
	assert.Equal(t, "mass update aaa ->", set.String())
}

func TestActionSet_RoundTrip(t *testing.T) {
	scripts := []string{
		"create alias aaa -> bbb\nremove implication c -> d",
		"mass update a -b ~c d* -> e -f\ncategory g -> character",
		"imply x -> y\nunalias p -> q\nchange r -> s",
	}

	for _, s := range scripts {
		first := MustParse(s)
		second, err := Parse(first.String())
		require.NoError(t, err)
		assert.Equal(t, first.Actions(), second.Actions())
		assert.Equal(t, first.String(), second.String())
	}
}

func TestActionSet_ActionsOfKind(t *testing.T) {
	set := MustParse("create alias a -> b\nimply c -> d\ncreate alias e -> f")

	aliases := set.ActionsOfKind(KindCreateAlias)
	require.Len(t, aliases, 2)
	assert.Equal(t, "e", aliases[1].(CreateAlias).Antecedent)
	assert.Empty(t, set.ActionsOfKind(KindMassUpdate))
}

func TestToken(t *testing.T) {
	assert.True(t, Token{Name: "id:1"}.IsMetatag())
	assert.False(t, Token{Name: "artist:foo"}.IsMetatag())
	assert.True(t, Token{Name: "foo*"}.IsWildcard())
	assert.True(t, Token{Name: "foo"}.IsPlain())
	assert.False(t, Token{Name: "foo", Optional: true}.IsPlain())
	assert.Equal(t, "-foo", Token{Name: "foo", Negated: true}.String())

	name, value, ok := Token{Name: "id:42"}.Metatag()
	assert.True(t, ok)
	assert.Equal(t, "id", name)
	assert.Equal(t, "42", value)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "create_alias", KindCreateAlias.String())
	assert.Equal(t, "change_category", KindChangeCategory.String())
}

func TestParseIDSelector(t *testing.T) {
	sel, err := ParseIDSelector("7")
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, sel.IDs)

	sel, err = ParseIDSelector("1,2,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, sel.IDs)

	sel, err = ParseIDSelector("4..10")
	require.NoError(t, err)
	assert.Nil(t, sel.IDs)
	assert.Equal(t, int64(4), sel.Min)
	assert.Equal(t, int64(10), sel.Max)

	for _, bad := range []string{"", "x", "1,,2", "0", "9..4", "1..", "-3"} {
		_, err := ParseIDSelector(bad)
		assert.Error(t, err, bad)
	}
}
