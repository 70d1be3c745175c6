package categorize

import (
	"strings"
	"time"
)

// Result is produced fresh for every classification call.
type Result struct {
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"`
	Reason           string   `json:"reason"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

const awaitingReplyWindow = 24 * time.Hour

var urgentKeywords = []string{"urgent", "asap", "immediate", "deadline", "emergency"}

var socialDomains = []string{"linkedin.com", "facebook.com", "twitter.com", "instagram.com"}

// Categorizer runs the three classification stages in order. The zero value
// is not usable; call New.
type Categorizer struct {
	now func() time.Time
}

type Option func(*Categorizer)

// WithClock overrides the time source used by the awaiting-reply window.
func WithClock(now func() time.Time) Option {
	return func(c *Categorizer) {
		c.now = now
	}
}

func New(opts ...Option) *Categorizer {
	c := &Categorizer{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize is total: every input yields a Result with a valid Category.
// rules are evaluated in slice order and the first enabled match wins.
func (c *Categorizer) Categorize(e Email, rules []Rule) Result {
	if r, ok := c.byMetadata(e); ok {
		return r
	}
	if r, ok := byRules(e, rules); ok {
		return r
	}
	return fallback(e)
}

func (c *Categorizer) byMetadata(e Email) (Result, bool) {
	m := e.Metadata
	if m == nil {
		return Result{}, false
	}

	// Absent sent time leaves the elapsed window undefined; the branch is skipped.
	if m.SentByMe && m.ConversationID != "" && !m.HasReply && m.SentDateTime != nil {
		if c.now().Sub(*m.SentDateTime) > awaitingReplyWindow {
			return Result{
				Category:         CategoryAwaitingReply,
				Confidence:       0.95,
				Reason:           "Sent by you more than 24 hours ago with no reply in the conversation",
				SuggestedActions: []string{"Send follow-up", "Set reminder", "Archive"},
			}, true
		}
	}

	if m.SentToMe && !m.IsCC && (hasUrgentKeyword(e.Subject) || strings.EqualFold(m.Importance, "high")) {
		return Result{
			Category:         CategoryToRespond,
			Confidence:       0.95,
			Reason:           "Sent directly to you with an urgency signal",
			SuggestedActions: []string{"Reply now", "Schedule follow-up", "Mark as important"},
		}, true
	}

	if hasReplyPrefix(e.Subject) && m.IsReply && m.InReplyTo != "" {
		if m.OriginalSentByMe {
			return Result{
				Category:         CategoryImportant,
				Confidence:       0.9,
				Reason:           "Reply to a message you sent",
				SuggestedActions: []string{"Reply", "Star"},
			}, true
		}
		return Result{
			Category:         CategoryFYI,
			Confidence:       0.85,
			Reason:           "Reply in a thread you did not start",
			SuggestedActions: []string{"Mark as read", "Archive"},
		}, true
	}

	switch strings.ToLower(m.Platform) {
	case "slack", "telegram", "whatsapp":
		return Result{
			Category:         CategoryFYI,
			Confidence:       0.8,
			Reason:           "Chat message from " + m.Platform,
			SuggestedActions: []string{"Open in " + m.Platform, "Mark as read"},
		}, true
	case "instagram", "facebook":
		return Result{
			Category:         CategoryMarketing,
			Confidence:       0.85,
			Reason:           "Social notification from " + m.Platform,
			SuggestedActions: []string{"Open in " + m.Platform, "Archive", "Mute notifications"},
		}, true
	}

	return Result{}, false
}

func byRules(e Email, rules []Rule) (Result, bool) {
	for _, rule := range rules {
		if !rule.Matches(e) {
			continue
		}
		return Result{
			Category:         rule.Category,
			Confidence:       rule.Confidence,
			Reason:           rule.describe(),
			SuggestedActions: ActionsFor(string(rule.Category)),
		}, true
	}
	return Result{}, false
}

func fallback(e Email) Result {
	text := e.combinedText()
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			return Result{
				Category:         CategoryToRespond,
				Confidence:       0.7,
				Reason:           "Contains urgent keyword: " + kw,
				SuggestedActions: CategoryToRespond.Actions(),
			}
		}
	}

	if isSocialDomain(SenderDomain(e.Sender)) {
		return Result{
			Category:         CategoryMarketing,
			Confidence:       0.75,
			Reason:           "Sender is a social platform",
			SuggestedActions: CategoryMarketing.Actions(),
		}
	}

	return Result{
		Category:         CategoryFYI,
		Confidence:       0.6,
		Reason:           "Default categorization - no specific rules matched",
		SuggestedActions: CategoryFYI.Actions(),
	}
}

func hasUrgentKeyword(s string) bool {
	s = strings.ToLower(s)
	for _, kw := range urgentKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func hasReplyPrefix(subject string) bool {
	return len(subject) >= 3 && strings.EqualFold(subject[:3], "re:")
}

func isSocialDomain(domain string) bool {
	if domain == "" {
		return false
	}
	for _, d := range socialDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
