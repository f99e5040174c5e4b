// Package sanitize restricts pasted webform markup to the tags and attributes
// the converter understands.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	webformPolicyOnce sync.Once
	webformPolicy     *bluemonday.Policy

	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	whitespaceRun = regexp.MustCompile(`[\t\n\r ]+`)
)

// Sanitizer cleans webform markup with an allow-list policy.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New returns a sanitizer using the webform allow-list.
func New() *Sanitizer {
	return &Sanitizer{policy: webformSanitizer()}
}

// NewWithPolicy returns a sanitizer for a custom policy, for deployments whose
// webforms use markup beyond the default allow-list.
func NewWithPolicy(policy *bluemonday.Policy) *Sanitizer {
	return &Sanitizer{policy: policy}
}

// Sanitize returns the cleaned markup. Disallowed elements are dropped while
// their text is kept; script and style contents are removed entirely.
func (s *Sanitizer) Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(trimmed))
}

// WebformPolicy builds a fresh copy of the default allow-list so callers can
// extend it before passing it to NewWithPolicy.
func WebformPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()

	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https")

	policy.AllowAttrs("http-equiv", "content").OnElements("meta")
	policy.AllowAttrs("id", "name", "action", "method", "accept-charset", "enctype").OnElements("form")
	policy.AllowAttrs(
		"type", "name", "value", "placeholder", "required", "multiple",
		"checked", "selected", "data-label",
	).OnElements("input")
	policy.AllowAttrs("for").OnElements("label")
	policy.AllowAttrs("name", "placeholder", "required").OnElements("textarea")
	policy.AllowAttrs("id", "class").OnElements("div")
	policy.AllowAttrs("name", "id", "class", "data-label", "hidden", "multiple", "required").OnElements("select")
	policy.AllowAttrs("value", "selected").OnElements("option")
	policy.AllowNoAttrs().OnElements(
		"form", "input", "table", "tbody", "thead", "tr", "td", "th",
		"label", "textarea", "div", "select", "option",
	)

	return policy
}

func webformSanitizer() *bluemonday.Policy {
	webformPolicyOnce.Do(func() {
		webformPolicy = WebformPolicy()
	})
	return webformPolicy
}

// Text strips all markup from a submitted value, collapses whitespace runs
// and trims the result.
func Text(value string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	cleaned := html.UnescapeString(textPolicy.Sanitize(value))
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
