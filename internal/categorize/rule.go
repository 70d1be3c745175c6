package categorize

import (
	"errors"
	"fmt"
	"strings"
)

// RuleType selects which part of the email a rule inspects.
type RuleType string

const (
	RuleTypeSender   RuleType = "sender"
	RuleTypeSubject  RuleType = "subject"
	RuleTypeContent  RuleType = "content"
	RuleTypeDomain   RuleType = "domain"
	RuleTypeKeywords RuleType = "keywords"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeSender, RuleTypeSubject, RuleTypeContent, RuleTypeDomain, RuleTypeKeywords:
		return true
	}
	return false
}

// Rule maps a condition on one email field to a category.
type Rule struct {
	ID         string    `json:"id" yaml:"id"`
	Type       RuleType  `json:"type" yaml:"type"`
	Condition  Condition `json:"condition" yaml:"condition"`
	Value      string    `json:"value" yaml:"value"`
	Category   Category  `json:"category" yaml:"category"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Enabled    bool      `json:"enabled" yaml:"enabled"`
}

// ErrInvalidRule is wrapped by every Validate failure.
var ErrInvalidRule = errors.New("invalid rule")

// Validate checks that the rule can only ever produce a label from the
// closed set with a confidence in [0,1].
func (r Rule) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Type)
	}
	if !r.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidRule, r.Condition)
	}
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidRule)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, r.Category)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidRule, r.Confidence)
	}
	return nil
}

// Matches reports whether the rule's condition holds for the email.
// Disabled rules never match.
func (r Rule) Matches(e Email) bool {
	if !r.Enabled {
		return false
	}
	switch r.Type {
	case RuleTypeSender:
		return Evaluate(e.Sender, r.Value, r.Condition)
	case RuleTypeSubject:
		return Evaluate(e.Subject, r.Value, r.Condition)
	case RuleTypeContent:
		return Evaluate(e.Content, r.Value, r.Condition)
	case RuleTypeDomain:
		return Evaluate(SenderDomain(e.Sender), r.Value, r.Condition)
	case RuleTypeKeywords:
		for _, kw := range splitKeywords(r.Value) {
			if Evaluate(e.Content, kw, r.Condition) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (r Rule) describe() string {
	return fmt.Sprintf("Matched rule: %s %s %q", r.Type, r.Condition, r.Value)
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultRules returns a fresh copy of the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "rule-marketing-keywords", Type: RuleTypeKeywords, Condition: ConditionContains,
			Value: "unsubscribe|newsletter|promotion|marketing|offer|deal", Category: CategoryMarketing, Confidence: 0.85, Enabled: true},
		{ID: "rule-noreply-sender", Type: RuleTypeSender, Condition: ConditionContains,
			Value: "noreply", Category: CategoryUpdates, Confidence: 0.8, Enabled: true},
		{ID: "rule-no-reply-sender", Type: RuleTypeSender, Condition: ConditionContains,
			Value: "no-reply", Category: CategoryUpdates, Confidence: 0.8, Enabled: true},
		{ID: "rule-notifications-sender", Type: RuleTypeSender, Condition: ConditionStartsWith,
			Value: "notifications@", Category: CategoryUpdates, Confidence: 0.75, Enabled: true},
		{ID: "rule-transactional-keywords", Type: RuleTypeKeywords, Condition: ConditionContains,
			Value: "invoice|receipt|order confirmation|shipping|delivered", Category: CategoryUpdates, Confidence: 0.8, Enabled: true},
		{ID: "rule-promo-subject", Type: RuleTypeSubject, Condition: ConditionRegex,
			Value: `\b(\d+% off|sale|coupon|discount)\b`, Category: CategoryPromotions, Confidence: 0.8, Enabled: true},
		{ID: "rule-github-domain", Type: RuleTypeDomain, Condition: ConditionEquals,
			Value: "github.com", Category: CategoryUpdates, Confidence: 0.85, Enabled: true},
		{ID: "rule-meeting-subject", Type: RuleTypeSubject, Condition: ConditionRegex,
			Value: `^(invitation|updated invitation|accepted|declined):`, Category: CategoryImportant, Confidence: 0.8, Enabled: true},
	}
}
