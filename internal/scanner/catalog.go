package scanner

import (
	"fmt"
	"slices"
)

// Catalog is an immutable, ordered set of compiled rules together with the
// derived secret-only subset. Safe for concurrent use.
type Catalog struct {
	all     []*compiledRule
	secrets []*compiledRule
}

// NewCatalog validates and compiles rules in the given order. IDs must be
// unique across the whole list.
func NewCatalog(rules ...[]Rule) (*Catalog, error) {
	c := &Catalog{}
	seen := make(map[string]struct{})

	i := 0
	for _, group := range rules {
		for _, r := range group {
			if r.ID == "" {
				return nil, fmt.Errorf("rule %d: ID is required", i)
			}
			if _, dup := seen[r.ID]; dup {
				return nil, fmt.Errorf("rule %s: duplicate ID", r.ID)
			}
			seen[r.ID] = struct{}{}

			r.Extensions = slices.Clone(r.Extensions)
			compiled, err := compileRule(r)
			if err != nil {
				return nil, err
			}

			c.all = append(c.all, compiled)
			if compiled.Secret {
				c.secrets = append(c.secrets, compiled)
			}
			i++
		}
	}

	return c, nil
}

// MustNewCatalog is like NewCatalog but panics on error. Intended for the
// built-in table, which is covered by tests.
func MustNewCatalog(rules ...[]Rule) *Catalog {
	c, err := NewCatalog(rules...)
	if err != nil {
		panic(fmt.Sprintf("scanner: %v", err))
	}
	return c
}

// Rules returns the descriptors in evaluation order.
func (c *Catalog) Rules() []Rule {
	return describe(c.all)
}

// SecretRules returns the secret-detection subset in evaluation order.
func (c *Catalog) SecretRules() []Rule {
	return describe(c.secrets)
}

// Len returns the number of rules in the full catalog.
func (c *Catalog) Len() int {
	return len(c.all)
}

// Lookup returns the descriptor with the given ID.
func (c *Catalog) Lookup(id string) (Rule, bool) {
	for _, r := range c.all {
		if r.ID == id {
			return cloneRule(r.Rule), true
		}
	}
	return Rule{}, false
}

func describe(rules []*compiledRule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = cloneRule(r.Rule)
	}
	return out
}

func cloneRule(r Rule) Rule {
	r.Extensions = slices.Clone(r.Extensions)
	return r
}
