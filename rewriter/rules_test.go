package rewriter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	yaml "gopkg.in/yaml.v3"
)

func TestRulesUnmarshal(t *testing.T) {
	t.Setenv("foo", "FOO")
	{
		var rr Rules
		err := json.Unmarshal([]byte(`[{"match": "foo${env.foo}", "substitution": "${env.foo}"}]`), &rr)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		assert.Len(t, rr, 1)
		assert.Equal(t, rr[0].R.String(), "fooFOO")
		assert.Equal(t, rr[0].S, "FOO")
	}
	{
		var rr Rules
		err := json.Unmarshal([]byte(`{"foo${env.foo}": "${env.foo}"}`), &rr)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		assert.Len(t, rr, 1)
		assert.Equal(t, rr[0].R.String(), "fooFOO")
		assert.Equal(t, rr[0].S, "FOO")
	}
	{
		var rr Rules
		err := yaml.Unmarshal([]byte(`[{"match": "foo${env.foo}", "substitution": "${env.foo}"}]`), &rr)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		assert.Len(t, rr, 1)
		assert.Equal(t, rr[0].R.String(), "fooFOO")
		assert.Equal(t, rr[0].S, "FOO")
	}
	{
		var rr Rules
		err := yaml.Unmarshal([]byte("b: x\na: ${env.unset:-y}\n"), &rr)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		if assert.Len(t, rr, 2) {
			assert.Equal(t, "a", rr[0].R.String())
			assert.Equal(t, "y", rr[0].S)
			assert.Equal(t, "b", rr[1].R.String())
		}
	}
}

func TestRulesUnmarshalErrors(t *testing.T) {
	for _, input := range []string{
		`"just a string"`,
		`[1]`,
		`[{"match": 1, "substitution": "x"}]`,
		`[{"match": "x"}]`,
		`{"x": 1}`,
		`{"(": "x"}`,
	} {
		var rr Rules
		assert.Error(t, json.Unmarshal([]byte(input), &rr), input)
	}
}

func TestRuleSubstitute(t *testing.T) {
	rr, err := newRule(`^foo(?:\+([^@]+))?@example\.com$`, "bar$1@example.com")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "bartag@example.com", RegexpSubstitution(rr).Substitute("foo+tag@example.com"))
	assert.Equal(t, "bar@example.com", RegexpSubstitution(rr).Substitute("foo@example.com"))
	assert.Equal(t, "baz@example.com", RegexpSubstitution(rr).Substitute("baz@example.com"))
}
