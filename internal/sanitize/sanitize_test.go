package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_RemovesScripts(t *testing.T) {
	s := New()

	out := s.Sanitize(`<form name="Contact" action="https://crm.example.com/capture.php"><script>alert("x")</script><input type="text" name="email"></form>`)

	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert")
	assert.Contains(t, out, `name="Contact"`)
	assert.Contains(t, out, `action="https://crm.example.com/capture.php"`)
	assert.Contains(t, out, `name="email"`)
}

func TestSanitize_StripsUnknownAttributes(t *testing.T) {
	s := New()

	out := s.Sanitize(`<input type="text" name="firstname" onclick="steal()" style="color:red" required>`)

	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "style")
	assert.Contains(t, out, `name="firstname"`)
	assert.Contains(t, out, "required")
}

func TestSanitize_RejectsScriptURLs(t *testing.T) {
	s := New()

	out := s.Sanitize(`<form name="Contact" action="javascript:alert(1)"></form>`)

	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, `name="Contact"`)
}

func TestSanitize_KeepsSelectAndOptions(t *testing.T) {
	s := New()

	out := s.Sanitize(`<select name="salutation" multiple><option value="Mr." selected>Mr.</option></select>`)

	assert.Contains(t, out, "<select")
	assert.Contains(t, out, "multiple")
	assert.Contains(t, out, `value="Mr."`)
	assert.Contains(t, out, "selected")
}

func TestSanitize_DropsDisallowedTagsButKeepsText(t *testing.T) {
	s := New()

	out := s.Sanitize(`<td><span class="x">First Name</span></td>`)

	assert.NotContains(t, out, "span")
	assert.Contains(t, out, "First Name")
}

func TestSanitize_Empty(t *testing.T) {
	s := New()

	assert.Equal(t, "", s.Sanitize(""))
	assert.Equal(t, "", s.Sanitize("   \n\t "))
	assert.Equal(t, "", s.Sanitize("<script>only()</script>"))
}

func TestNewWithPolicy_ExtendsAllowList(t *testing.T) {
	policy := WebformPolicy()
	policy.AllowAttrs("class").OnElements("span")

	out := NewWithPolicy(policy).Sanitize(`<span class="req">*</span>`)

	assert.True(t, strings.Contains(out, `<span class="req">`))
}

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Jane", want: "Jane"},
		{name: "trims", input: "  Jane  ", want: "Jane"},
		{name: "strips tags", input: "<b>Jane</b> Doe", want: "Jane Doe"},
		{name: "collapses whitespace", input: "Jane\n\t Doe", want: "Jane Doe"},
		{name: "keeps ampersand", input: "Smith & Sons", want: "Smith & Sons"},
		{name: "drops script", input: "<script>x()</script>ok", want: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}
