package ddl

import (
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

// Postgres truncates longer identifiers silently, which would make the
// working name collide with other indexes
const maxIdentifierLength = 63

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateIdentifier checks that name is a plain, unquoted-safe identifier
func ValidateIdentifier(name string) error {
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier %q is longer than %d bytes", name, maxIdentifierLength)
	}
	if !identifierRE.MatchString(name) {
		return fmt.Errorf("identifier %q contains unsupported characters", name)
	}
	return nil
}

func quote(names ...string) (string, error) {
	var out string
	for i, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return "", err
		}
		if i > 0 {
			out += "."
		}
		out += pq.QuoteIdentifier(name)
	}
	return out, nil
}
