package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		needle   string
		cond     Condition
		want     bool
	}{
		{"contains ignores case", "this is urgent", "URGENT", ConditionContains, true},
		{"contains miss", "hello", "bye", ConditionContains, false},
		{"equals ignores case", "Boss@Corp.com", "boss@corp.com", ConditionEquals, true},
		{"equals requires full string", "boss@corp.com.au", "boss@corp.com", ConditionEquals, false},
		{"starts_with", "Notifications@github.com", "notifications@", ConditionStartsWith, true},
		{"starts_with miss", "hi notifications@", "notifications@", ConditionStartsWith, false},
		{"ends_with", "alerts@EXAMPLE.ORG", "example.org", ConditionEndsWith, true},
		{"regex ignores case", "INVOICE #42", `invoice #\d+`, ConditionRegex, true},
		{"regex miss", "hello", `^bye$`, ConditionRegex, false},
		{"malformed regex never matches", "(((", "(", ConditionRegex, false},
		{"unknown condition", "abc", "abc", Condition("fuzzy"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.haystack, tt.needle, tt.cond))
		})
	}
}

func TestTryCompile(t *testing.T) {
	re, ok := TryCompile("[a-z")
	assert.False(t, ok)
	assert.Nil(t, re)

	re, ok = TryCompile("^sale$")
	assert.True(t, ok)
	assert.True(t, re.MatchString("SALE"))
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "corp.com", SenderDomain("boss@Corp.com"))
	assert.Equal(t, "x.io", SenderDomain("Jane Doe <jane@x.io>"))
	assert.Equal(t, "", SenderDomain("no address here"))
}
