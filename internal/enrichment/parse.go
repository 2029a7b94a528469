package enrichment

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Delimiter separates name and description in generator output.
const Delimiter = "%%%"

// ErrMalformedResponse reports generator output that is not exactly two
// non-empty parts around Delimiter.
var ErrMalformedResponse = errors.New("malformed generator response")

// ParseResponse splits generator output into name and description. Both parts
// are trimmed and NFC normalized.
func ParseResponse(text string) (string, string, error) {
	parts := strings.Split(text, Delimiter)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: expected 1 %q delimiter, found %d", ErrMalformedResponse, Delimiter, len(parts)-1)
	}
	name := strings.TrimSpace(norm.NFC.String(parts[0]))
	description := strings.TrimSpace(norm.NFC.String(parts[1]))
	if name == "" {
		return "", "", fmt.Errorf("%w: empty name", ErrMalformedResponse)
	}
	if description == "" {
		return "", "", fmt.Errorf("%w: empty description", ErrMalformedResponse)
	}
	return name, description, nil
}
