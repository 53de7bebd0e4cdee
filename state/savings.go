package state

// SavingsLedger accumulates the space reclaimed during one process run
type SavingsLedger struct {
	totalBytes int64
	committed  int
	rolledBack int
	skipped    int
}

// Record adds an outcome to the ledger. Negative savings are never recorded,
// the total only grows.
func (l *SavingsLedger) Record(outcome RebuildOutcome) {
	switch outcome.Kind {
	case OutcomeCommitted:
		l.committed++
		if outcome.BytesSaved > 0 {
			l.totalBytes += outcome.BytesSaved
		}
	case OutcomeRolledBack:
		l.rolledBack++
	case OutcomeSkipped:
		l.skipped++
	}
}

func (l *SavingsLedger) TotalBytes() int64 {
	return l.totalBytes
}

func (l *SavingsLedger) Committed() int  { return l.committed }
func (l *SavingsLedger) RolledBack() int { return l.rolledBack }
func (l *SavingsLedger) Skipped() int    { return l.skipped }
