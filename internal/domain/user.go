// Package domain contains entities without logic, just meta-data.
package domain

const (
	MaxDisplayNameLen = 64
	DefaultName       = "Guest"
)

// ConnID is the anonymous identity of one live connection. The session
// core never sees accounts, only connection ids.
type ConnID string

// DisplayName normalizes a caller-supplied name for room membership.
// Truncation happens on rune boundaries so multibyte names stay valid UTF-8.
func DisplayName(name string) string {
	if name == "" {
		return DefaultName
	}
	runes := []rune(name)
	if len(runes) > MaxDisplayNameLen {
		return string(runes[:MaxDisplayNameLen])
	}
	return name
}
