package postgres_test

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pganalyze/pgindexrebuild/input/postgres"
)

func TestErrorClassification(t *testing.T) {
	diskFull := &pq.Error{Code: "53100", Message: `could not extend file "base/16384/16400": No space left on device`}
	timeout := &pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"}

	if !postgres.IsDiskFull(errors.Wrap(diskFull, "build failed")) {
		t.Errorf("expected wrapped disk full error to be detected")
	}
	if postgres.IsDiskFull(timeout) {
		t.Errorf("expected timeout not to be classified as disk full")
	}
	if !postgres.IsStatementTimeout(errors.Wrap(timeout, "rename failed")) {
		t.Errorf("expected wrapped timeout to be detected")
	}
	if postgres.IsStatementTimeout(fmt.Errorf("connection reset")) {
		t.Errorf("expected plain error not to be classified as timeout")
	}
}
