package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("awaiting reply")
	assert.True(t, ok)
	assert.Equal(t, CategoryAwaitingReply, c)

	_, ok = ParseCategory("Spam")
	assert.False(t, ok)
}

func TestEveryCategoryHasColorAndActions(t *testing.T) {
	assert.Len(t, Categories(), 7)
	for _, c := range Categories() {
		assert.True(t, c.Valid())
		assert.NotEmpty(t, c.Color())
		assert.GreaterOrEqual(t, len(c.Actions()), 2, c)
		assert.LessOrEqual(t, len(c.Actions()), 3, c)
	}
}

func TestActionsFor(t *testing.T) {
	assert.Equal(t, CategoryMarketing.Actions(), ActionsFor("marketing"))
	assert.Equal(t, []string{"Review", "Archive"}, ActionsFor("Unknown"))

	// callers may mutate the returned slice
	a := ActionsFor("FYI")
	a[0] = "changed"
	assert.NotEqual(t, "changed", CategoryFYI.Actions()[0])
}
