package rewriter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	yaml "gopkg.in/yaml.v3"

	"github.com/moriyoshi/mailaddr/internal/expand"
)

type RegexpSubstitution struct {
	R *regexp.Regexp
	S string
}

func (rs RegexpSubstitution) Substitute(s string) string {
	return rs.R.ReplaceAllString(s, rs.S)
}

// Rule rewrites a mailbox given in its mailbox@domain form. The result must
// again be a plain addr-spec.
type Rule RegexpSubstitution

func newRule(match, substitution string) (Rule, error) {
	match = expand.Expand(match, expand.Env)
	substitution = expand.Expand(substitution, expand.Env)
	r, err := regexp.Compile(match)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern %q: %w", match, err)
	}
	return Rule{R: r, S: substitution}, nil
}

func (rr *Rule) UnmarshalStructure(v map[string]interface{}) error {
	if match, ok := v["match"].(string); !ok {
		return fmt.Errorf("key 'match' is not a string")
	} else if substitution, ok := v["substitution"].(string); !ok {
		return fmt.Errorf("key 'substitution' is not a string")
	} else {
		r, err := newRule(match, substitution)
		if err != nil {
			return err
		}
		*rr = r
		return nil
	}
}

func (rr *Rule) UnmarshalJSON(b []byte) error {
	var rule interface{}
	err := json.Unmarshal(b, &rule)
	if err != nil {
		return err
	}

	if rule, ok := rule.(map[string]interface{}); ok {
		return rr.UnmarshalStructure(rule)
	} else {
		return fmt.Errorf("rule is not an object")
	}
}

// Rules are tried in order and the first one that changes a mailbox wins.
// In the mapping form, rules are ordered by pattern.
type Rules []Rule

func (rrs *Rules) UnmarshalJSON(b []byte) error {
	var rules interface{}
	err := json.Unmarshal(b, &rules)
	if err != nil {
		return err
	}
	return rrs.unmarshalInner(rules)
}

func (rrs *Rules) UnmarshalYAML(n *yaml.Node) error {
	var rules interface{}
	err := n.Decode(&rules)
	if err != nil {
		return err
	}
	return rrs.unmarshalInner(rules)
}

func (rrs *Rules) unmarshalInner(rules interface{}) error {
	switch rules := rules.(type) {
	case map[string]interface{}:
		matches := make([]string, 0, len(rules))
		for match := range rules {
			matches = append(matches, match)
		}
		sort.Strings(matches)
		_rrs := make([]Rule, 0, len(rules))
		for _, match := range matches {
			if substitution, ok := rules[match].(string); !ok {
				return fmt.Errorf("value for key %q is not a string", match)
			} else {
				r, err := newRule(match, substitution)
				if err != nil {
					return err
				}
				_rrs = append(_rrs, r)
			}
		}
		*rrs = _rrs
	case []interface{}:
		_rrs := make([]Rule, 0, len(rules))
		for _, r := range rules {
			if r, ok := r.(map[string]interface{}); !ok {
				return fmt.Errorf("rule is not an object")
			} else {
				var rr Rule
				err := rr.UnmarshalStructure(r)
				if err != nil {
					return err
				}
				_rrs = append(_rrs, rr)
			}
		}
		*rrs = _rrs
	case nil:
		*rrs = nil
	default:
		return fmt.Errorf("rules is not an object or an array")
	}
	return nil
}
