package state

// MaxBuildAttempts is how often a replacement index is built before the
// original is restored
const MaxBuildAttempts = 10

// RebuildPlan describes where a single index gets built and where it lives
// once the rebuild is committed
type RebuildPlan struct {
	WorkingTablespace string
	ProperTablespace  string
	MaxAttempts       int
}

// NeedsRelocation reports whether the rebuilt index has to be moved out of
// the working tablespace
func (p RebuildPlan) NeedsRelocation() bool {
	return p.ProperTablespace != p.WorkingTablespace
}

type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeRolledBack
	OutcomeCommitted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRolledBack:
		return "rolled back"
	case OutcomeCommitted:
		return "committed"
	}
	return "unknown"
}

// RebuildOutcome is produced once per candidate
type RebuildOutcome struct {
	Kind       OutcomeKind
	Reason     string
	BytesSaved int64
}

func Skipped(reason string) RebuildOutcome {
	return RebuildOutcome{Kind: OutcomeSkipped, Reason: reason}
}

func RolledBack(reason string) RebuildOutcome {
	return RebuildOutcome{Kind: OutcomeRolledBack, Reason: reason}
}

func Committed(bytesSaved int64) RebuildOutcome {
	return RebuildOutcome{Kind: OutcomeCommitted, BytesSaved: bytesSaved}
}
