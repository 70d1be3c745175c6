package categorize

import "fmt"

const (
	highConfidenceThreshold = 0.8
	needsReviewThreshold    = 0.7
)

// EnrichedEmail is an input email with its categorization attached.
type EnrichedEmail struct {
	Email
	Result
	CategoryColor string `json:"categoryColor"`
}

type BatchStats struct {
	HighConfidence int              `json:"highConfidence"`
	NeedsReview    int              `json:"needsReview"`
	ByCategory     map[Category]int `json:"byCategory"`
}

type BatchResult struct {
	Processed int             `json:"processed"`
	Emails    []EnrichedEmail `json:"emails"`
	Stats     BatchStats      `json:"stats"`
}

// ProcessBatch categorizes every email independently and returns them in
// input order. A failure on one item is confined to that item, which is
// reported as FYI with zero confidence.
func (c *Categorizer) ProcessBatch(emails []Email, rules []Rule) BatchResult {
	out := BatchResult{
		Emails: make([]EnrichedEmail, 0, len(emails)),
		Stats:  BatchStats{ByCategory: make(map[Category]int)},
	}

	for _, e := range emails {
		res := c.safeCategorize(e, rules)
		out.Emails = append(out.Emails, EnrichedEmail{
			Email:         e,
			Result:        res,
			CategoryColor: res.Category.Color(),
		})

		out.Stats.ByCategory[res.Category]++
		if res.Confidence > highConfidenceThreshold {
			out.Stats.HighConfidence++
		}
		if res.Confidence < needsReviewThreshold {
			out.Stats.NeedsReview++
		}
	}
	out.Processed = len(out.Emails)
	return out
}

func (c *Categorizer) safeCategorize(e Email, rules []Rule) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Category:         CategoryFYI,
				Confidence:       0,
				Reason:           fmt.Sprintf("categorization failed: %v", r),
				SuggestedActions: CategoryFYI.Actions(),
			}
		}
	}()
	return c.Categorize(e, rules)
}
