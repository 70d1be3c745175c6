// Package categorize implements the inbox categorization decision procedure:
// metadata-first checks, an ordered rule table and a fallback heuristic.
// Every call produces exactly one Result whose category is one of the
// closed Category set.
package categorize

import "strings"

// Category is one of the fixed inbox labels.
type Category string

const (
	CategoryToRespond     Category = "To Respond"
	CategoryAwaitingReply Category = "Awaiting Reply"
	CategoryImportant     Category = "Important"
	CategoryFYI           Category = "FYI"
	CategoryMarketing     Category = "Marketing"
	CategoryUpdates       Category = "Updates"
	CategoryPromotions    Category = "Promotions"
)

type categoryInfo struct {
	color   string
	actions []string
}

// order matters: Categories() returns labels in this order.
var categoryOrder = []Category{
	CategoryToRespond,
	CategoryAwaitingReply,
	CategoryImportant,
	CategoryFYI,
	CategoryMarketing,
	CategoryUpdates,
	CategoryPromotions,
}

var categoryTable = map[Category]categoryInfo{
	CategoryToRespond: {
		color:   "#ef4444",
		actions: []string{"Reply", "Schedule follow-up", "Mark as important"},
	},
	CategoryAwaitingReply: {
		color:   "#f59e0b",
		actions: []string{"Send follow-up", "Set reminder"},
	},
	CategoryImportant: {
		color:   "#8b5cf6",
		actions: []string{"Star", "Reply", "Add to tasks"},
	},
	CategoryFYI: {
		color:   "#3b82f6",
		actions: []string{"Mark as read", "Archive"},
	},
	CategoryMarketing: {
		color:   "#10b981",
		actions: []string{"Unsubscribe", "Archive", "Mark as spam"},
	},
	CategoryUpdates: {
		color:   "#6b7280",
		actions: []string{"Mark as read", "Archive"},
	},
	CategoryPromotions: {
		color:   "#ec4899",
		actions: []string{"View offer", "Unsubscribe", "Archive"},
	},
}

var defaultActions = []string{"Review", "Archive"}

const defaultColor = "#6b7280"

// Categories returns every label in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory resolves a label case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categoryOrder {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// Color returns the hex color shown next to the label.
func (c Category) Color() string {
	if info, ok := categoryTable[c]; ok {
		return info.color
	}
	return defaultColor
}

// Actions returns a fresh copy of the suggested next actions for the label.
func (c Category) Actions() []string {
	info, ok := categoryTable[c]
	if !ok {
		return append([]string(nil), defaultActions...)
	}
	return append([]string(nil), info.actions...)
}

// ActionsFor looks up suggested actions by label name, falling back to a
// generic pair for names outside the closed set.
func ActionsFor(name string) []string {
	c, ok := ParseCategory(name)
	if !ok {
		return append([]string(nil), defaultActions...)
	}
	return c.Actions()
}
