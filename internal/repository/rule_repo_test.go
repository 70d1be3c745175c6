package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifiedinbox/internal/categorize"
)

func sampleRule(id string) categorize.Rule {
	return categorize.Rule{
		ID:         id,
		Type:       categorize.RuleTypeSender,
		Condition:  categorize.ConditionContains,
		Value:      id,
		Category:   categorize.CategoryUpdates,
		Confidence: 0.8,
		Enabled:    true,
	}
}

func TestRuleRepository_ListIsACopy(t *testing.T) {
	repo := NewRuleRepository([]categorize.Rule{sampleRule("a")})

	rules := repo.List()
	rules[0].Value = "mutated"

	got, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Value)
}

func TestRuleRepository_AddAppendsAndAssignsID(t *testing.T) {
	repo := NewRuleRepository([]categorize.Rule{sampleRule("a")})

	r := sampleRule("")
	added := repo.Add(r)
	assert.NotEmpty(t, added.ID)

	rules := repo.List()
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].ID)
	assert.Equal(t, added.ID, rules[1].ID)
}

func TestRuleRepository_UpdateKeepsPosition(t *testing.T) {
	repo := NewRuleRepository([]categorize.Rule{sampleRule("a"), sampleRule("b"), sampleRule("c")})

	disabled := false
	value := "new"
	updated, err := repo.Update("b", RulePatch{Enabled: &disabled, Value: &value})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "new", updated.Value)
	assert.Equal(t, categorize.CategoryUpdates, updated.Category)

	rules := repo.List()
	assert.Equal(t, []string{"a", "b", "c"}, []string{rules[0].ID, rules[1].ID, rules[2].ID})
	assert.Equal(t, "new", rules[1].Value)
}

func TestRuleRepository_NotFound(t *testing.T) {
	repo := NewRuleRepository(nil)

	_, err := repo.Update("missing", RulePatch{})
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, repo.Remove("missing"), ErrRuleNotFound)
	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRuleRepository_RemoveAndReset(t *testing.T) {
	repo := NewRuleRepository([]categorize.Rule{sampleRule("a"), sampleRule("b")})

	require.NoError(t, repo.Remove("a"))
	rules := repo.List()
	require.Len(t, rules, 1)
	assert.Equal(t, "b", rules[0].ID)

	repo.Reset()
	assert.Len(t, repo.List(), 2)
}

func TestRuleRepository_ConcurrentWrites(t *testing.T) {
	repo := NewRuleRepository(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Add(sampleRule(""))
			_ = repo.List()
		}()
	}
	wg.Wait()

	assert.Len(t, repo.List(), 50)
}
