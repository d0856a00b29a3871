// Package sanitize strips markup from user-entered marker and profile fields
// before they are sent to, or stored by, the backend.
package sanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict policy removes every element and attribute; safe for concurrent use
var policy = bluemonday.StrictPolicy()

// maxPasses bounds the decode loop. Input that is still changing after this
// many passes loses its angle brackets instead.
const maxPasses = 64

var brackets = strings.NewReplacer("<", "", ">", "")

// Text removes all HTML from s. Each pass strips markup and decodes one level
// of entities, until the result no longer changes, so encoded markup cannot
// survive at any depth. Plain characters such as '&' or '<' in ordinary prose
// are kept as typed.
func Text(s string) string {
	s = strings.TrimSpace(s)
	for range maxPasses {
		next := html.UnescapeString(policy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(brackets.Replace(s))
}

// URL keeps s only when it is an absolute http or https URL.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
