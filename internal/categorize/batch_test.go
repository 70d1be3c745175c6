package categorize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatch(t *testing.T) {
	emails := []Email{
		{ID: "1", Sender: "deals@store.com", Subject: "50% OFF Sale!", Content: "unsubscribe here"},
		{ID: "2", Sender: "boss@corp.com", Subject: "URGENT: deadline today", Content: "need this now"},
		{ID: "3", Sender: "friend@example.com", Subject: "Lunch?", Content: "thursday?"},
		{ID: "4", Sender: "x@y.com", Subject: "ping", Metadata: &Metadata{SentToMe: true, Importance: "high"}},
	}

	out := newTestCategorizer().ProcessBatch(emails, DefaultRules())

	require.Equal(t, 4, out.Processed)
	require.Len(t, out.Emails, 4)
	for i, e := range out.Emails {
		assert.Equal(t, emails[i].ID, e.ID, "output order must match input")
		assert.Equal(t, e.Category.Color(), e.CategoryColor)
	}

	assert.Equal(t, CategoryMarketing, out.Emails[0].Category)
	assert.Equal(t, CategoryToRespond, out.Emails[1].Category)
	assert.Equal(t, CategoryFYI, out.Emails[2].Category)
	assert.Equal(t, CategoryToRespond, out.Emails[3].Category)

	// 0.85 and 0.95 are high confidence; 0.6 needs review; 0.7 is neither.
	assert.Equal(t, 2, out.Stats.HighConfidence)
	assert.Equal(t, 1, out.Stats.NeedsReview)
	assert.Equal(t, 2, out.Stats.ByCategory[CategoryToRespond])
	assert.Equal(t, 1, out.Stats.ByCategory[CategoryMarketing])
}

func TestProcessBatch_Empty(t *testing.T) {
	out := New().ProcessBatch(nil, DefaultRules())
	assert.Equal(t, 0, out.Processed)
	assert.NotNil(t, out.Emails)
	assert.Empty(t, out.Emails)
}

func TestProcessBatch_IsolatesPanics(t *testing.T) {
	c := New(WithClock(func() time.Time { panic("clock broken") }))
	emails := []Email{
		{ID: "ok", Sender: "a@b.com", Subject: "hello"},
		{ID: "bad", Sender: "me@b.com", Subject: "x", Metadata: &Metadata{
			SentByMe: true, ConversationID: "c", SentDateTime: timePtr(fixedNow),
		}},
	}

	out := c.ProcessBatch(emails, nil)
	require.Len(t, out.Emails, 2)
	assert.Equal(t, CategoryFYI, out.Emails[0].Category)
	assert.Equal(t, 0.6, out.Emails[0].Confidence)
	assert.Equal(t, CategoryFYI, out.Emails[1].Category)
	assert.Equal(t, 0.0, out.Emails[1].Confidence)
	assert.Contains(t, out.Emails[1].Reason, "categorization failed")
	assert.Equal(t, 2, out.Stats.NeedsReview)
}
