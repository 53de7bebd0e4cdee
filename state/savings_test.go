package state_test

import (
	"testing"

	"github.com/pganalyze/pgindexrebuild/state"
)

func TestSavingsLedger(t *testing.T) {
	var ledger state.SavingsLedger

	outcomes := []state.RebuildOutcome{
		state.Committed(1000),
		state.Skipped("below threshold"),
		state.Committed(0),
		state.RolledBack("invalid after 10 attempts"),
		state.Committed(-50),
		state.Committed(24),
	}

	var last int64
	for _, o := range outcomes {
		ledger.Record(o)
		if ledger.TotalBytes() < last {
			t.Fatalf("ledger total decreased from %d to %d", last, ledger.TotalBytes())
		}
		last = ledger.TotalBytes()
	}

	if ledger.TotalBytes() != 1024 {
		t.Errorf("expected 1024 bytes; got %d", ledger.TotalBytes())
	}
	if ledger.Committed() != 4 || ledger.Skipped() != 1 || ledger.RolledBack() != 1 {
		t.Errorf("unexpected counts: committed=%d skipped=%d rolled back=%d", ledger.Committed(), ledger.Skipped(), ledger.RolledBack())
	}
}

func TestMergeCandidates(t *testing.T) {
	bloated := []state.BloatCandidate{
		{IndexIdentity: state.IndexIdentity{SchemaName: "public", IndexName: "big"}, WastedBytes: 300},
		{IndexIdentity: state.IndexIdentity{SchemaName: "public", IndexName: "small"}, WastedBytes: 100},
	}
	invalid := []state.InvalidCandidate{
		{IndexIdentity: state.IndexIdentity{SchemaName: "public", IndexName: "broken"}},
		{IndexIdentity: state.IndexIdentity{SchemaName: "public", IndexName: "small"}},
	}

	merged := state.MergeCandidates(bloated, invalid)

	var names []string
	for _, c := range merged {
		names = append(names, c.Identity().IndexName)
	}
	expected := []string{"big", "small", "broken"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v; got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("expected %v; got %v", expected, names)
		}
	}
	if _, ok := merged[2].(state.InvalidCandidate); !ok {
		t.Errorf("expected last candidate to be invalid, got %T", merged[2])
	}
}
