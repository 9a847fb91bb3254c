package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitkit/splitkit/internal/store"
)

func TestParseVariants(t *testing.T) {
	variants, err := parseVariants("control=50, treatment=50")
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, store.Variant{ID: "control", Name: "control", Weight: 50}, variants[0])
	assert.Equal(t, store.Variant{ID: "treatment", Name: "treatment", Weight: 50}, variants[1])
}

func TestParseVariants_WithNames(t *testing.T) {
	variants, err := parseVariants("a:Monthly=34,b:Annual=33,c:Lifetime=33")
	require.NoError(t, err)
	require.Len(t, variants, 3)
	assert.Equal(t, "a", variants[0].ID)
	assert.Equal(t, "Monthly", variants[0].Name)
	assert.Equal(t, 34, variants[0].Weight)
}

func TestParseVariants_Invalid(t *testing.T) {
	_, err := parseVariants("control")
	assert.Error(t, err)

	_, err = parseVariants("control=fifty")
	assert.Error(t, err)
}

func TestParseRules(t *testing.T) {
	rules, err := parseRules([]string{
		"country:in:US,CA",
		"subscription:equals:free",
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "country", rules[0].Type)
	assert.Equal(t, store.OpIn, rules[0].Operator)
	assert.Equal(t, []any{"US", "CA"}, rules[0].Value)

	assert.Equal(t, store.OpEquals, rules[1].Operator)
	assert.Equal(t, "free", rules[1].Value)
}

func TestParseRules_InvalidOperator(t *testing.T) {
	_, err := parseRules([]string{"country:matches:US"})
	assert.Error(t, err)
}

func TestParseRules_Malformed(t *testing.T) {
	_, err := parseRules([]string{"country=US"})
	assert.Error(t, err)
}

func TestParseContext(t *testing.T) {
	userCtx, err := parseContext([]string{"country=US", "subscription=free"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"country": "US", "subscription": "free"}, userCtx)

	userCtx, err = parseContext(nil)
	require.NoError(t, err)
	assert.Nil(t, userCtx)

	_, err = parseContext([]string{"country"})
	assert.Error(t, err)
}
