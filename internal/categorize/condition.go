package categorize

import (
	"regexp"
	"strings"
)

// Condition is the string comparison a rule applies to its haystack.
type Condition string

const (
	ConditionContains   Condition = "contains"
	ConditionEquals     Condition = "equals"
	ConditionStartsWith Condition = "starts_with"
	ConditionEndsWith   Condition = "ends_with"
	ConditionRegex      Condition = "regex"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionContains, ConditionEquals, ConditionStartsWith, ConditionEndsWith, ConditionRegex:
		return true
	}
	return false
}

// TryCompile compiles pattern as a case-insensitive regular expression.
// A malformed pattern yields (nil, false); callers treat it as never matching.
func TryCompile(pattern string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

// Evaluate reports whether needle matches haystack under cond.
// All comparisons ignore case. It never panics.
func Evaluate(haystack, needle string, cond Condition) bool {
	switch cond {
	case ConditionContains:
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	case ConditionEquals:
		return strings.EqualFold(haystack, needle)
	case ConditionStartsWith:
		return strings.HasPrefix(strings.ToLower(haystack), strings.ToLower(needle))
	case ConditionEndsWith:
		return strings.HasSuffix(strings.ToLower(haystack), strings.ToLower(needle))
	case ConditionRegex:
		re, ok := TryCompile(needle)
		if !ok {
			return false
		}
		return re.MatchString(haystack)
	default:
		return false
	}
}
