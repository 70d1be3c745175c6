package mq

import "time"

// EmailCategorizedPayload is published after an email has been categorized.
// EmailID is empty for ad-hoc API calls that carry no id.
type EmailCategorizedPayload struct {
	EmailID       string    `json:"email_id,omitempty"`
	UserID        int       `json:"user_id,omitempty"`
	Category      string    `json:"category"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason"`
	Source        string    `json:"source"`
	CategorizedAt time.Time `json:"categorized_at"`
}

// RulesChangedPayload announces a mutation of the rule table.
type RulesChangedPayload struct {
	Op        string    `json:"op"`
	RuleID    string    `json:"rule_id"`
	ChangedAt time.Time `json:"changed_at"`
}
