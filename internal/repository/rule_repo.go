package repository

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"unifiedinbox/internal/categorize"
)

var ErrRuleNotFound = errors.New("rule not found")

// RulePatch holds the fields of a partial rule update; nil means unchanged.
type RulePatch struct {
	Type       *categorize.RuleType  `json:"type,omitempty"`
	Condition  *categorize.Condition `json:"condition,omitempty"`
	Value      *string               `json:"value,omitempty"`
	Category   *categorize.Category  `json:"category,omitempty"`
	Confidence *float64              `json:"confidence,omitempty"`
	Enabled    *bool                 `json:"enabled,omitempty"`
}

// Apply returns r with the patch applied. r is not modified.
func (p RulePatch) Apply(r categorize.Rule) categorize.Rule {
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Condition != nil {
		r.Condition = *p.Condition
	}
	if p.Value != nil {
		r.Value = *p.Value
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Confidence != nil {
		r.Confidence = *p.Confidence
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	return r
}

// RuleRepository owns the ordered in-memory rule table. Reads take a
// snapshot under the read lock; writes are serialized. Nothing is persisted.
type RuleRepository struct {
	mu    sync.RWMutex
	rules []categorize.Rule
	seed  []categorize.Rule
}

func NewRuleRepository(seed []categorize.Rule) *RuleRepository {
	r := &RuleRepository{seed: cloneRules(seed)}
	r.rules = cloneRules(seed)
	return r
}

// List returns a copy of the table in evaluation order.
func (r *RuleRepository) List() []categorize.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRules(r.rules)
}

func (r *RuleRepository) Get(id string) (categorize.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.rules[i], nil
	}
	return categorize.Rule{}, ErrRuleNotFound
}

// Add appends rule to the end of the table, assigning an id when empty.
func (r *RuleRepository) Add(rule categorize.Rule) categorize.Rule {
	if rule.ID == "" {
		rule.ID = "rule-" + uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return rule
}

// Update replaces the rule in place so its position in the table is kept.
func (r *RuleRepository) Update(id string, patch RulePatch) (categorize.Rule, error) {
	return r.UpdateFunc(id, func(cur categorize.Rule) (categorize.Rule, error) {
		return patch.Apply(cur), nil
	})
}

// UpdateFunc applies fn to the current rule under the write lock. The rule
// is only replaced when fn returns nil.
func (r *RuleRepository) UpdateFunc(id string, fn func(categorize.Rule) (categorize.Rule, error)) (categorize.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return categorize.Rule{}, ErrRuleNotFound
	}
	next, err := fn(r.rules[i])
	if err != nil {
		return categorize.Rule{}, err
	}
	next.ID = id
	r.rules[i] = next
	return next, nil
}

func (r *RuleRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrRuleNotFound
	}
	r.rules = append(r.rules[:i], r.rules[i+1:]...)
	return nil
}

// Reset restores the table the repository was created with.
func (r *RuleRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = cloneRules(r.seed)
}

// caller holds mu
func (r *RuleRepository) indexOf(id string) int {
	for i := range r.rules {
		if r.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneRules(in []categorize.Rule) []categorize.Rule {
	out := make([]categorize.Rule, len(in))
	copy(out, in)
	return out
}
