package rebuild

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgindexrebuild/state"
)

// SelectTablespace returns the first preferred tablespace that exists
func SelectTablespace(preferences []string, existing []string) (string, error) {
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, name := range preferences {
		if present[name] {
			return name, nil
		}
	}

	return "", errors.Wrapf(state.ErrNoTablespace, "tried %s", strings.Join(preferences, ", "))
}
