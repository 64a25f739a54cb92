package validate

import (
	"fmt"
	"net/url"
	"regexp"
)

// IdentRe matches valid identifiers used for plugin and instance names.
// Must start with alphanumeric, followed by alphanumeric, dots, hyphens,
// or underscores.
var IdentRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxIdentLen is the maximum length for identifiers.
const MaxIdentLen = 128

// Ident validates a string as a plugin or instance name.
func Ident(s string) bool {
	return len(s) > 0 && len(s) <= MaxIdentLen && IdentRe.MatchString(s)
}

// HTTPURL ensures the URL uses http or https scheme and has a non-empty
// host, so a mistyped --server flag fails before any request is sent.
func HTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		// OK
	case "":
		return fmt.Errorf("URL missing scheme: %s", rawURL)
	default:
		return fmt.Errorf("URL scheme %q not allowed (only http/https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host: %s", rawURL)
	}
	return nil
}
