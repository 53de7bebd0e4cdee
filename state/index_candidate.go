package state

import "fmt"

// IndexIdentity holds the fields shared by every kind of rebuild candidate
type IndexIdentity struct {
	SchemaName   string
	TableName    string
	IndexName    string
	SizeBytes    int64
	IsPrimaryKey bool
	Definition   string // pg_get_indexdef output
}

func (i IndexIdentity) QualifiedName() string {
	return fmt.Sprintf("%s.%s", i.SchemaName, i.IndexName)
}

// WorkingSuffix is appended to an index name while its replacement is built
const WorkingSuffix = "_old"

// WorkingName is the name the live index is renamed to while its
// replacement is built
func (i IndexIdentity) WorkingName() string {
	return i.IndexName + WorkingSuffix
}

// IndexCandidate is either a BloatCandidate or an InvalidCandidate
type IndexCandidate interface {
	Identity() IndexIdentity
	isIndexCandidate()
}

// BloatCandidate is a valid index whose estimated optimal size is smaller
// than its actual size
type BloatCandidate struct {
	IndexIdentity
	WastedBytes int64
}

// InvalidCandidate is an index the catalog marks as not valid, usually left
// behind by a failed or interrupted concurrent build
type InvalidCandidate struct {
	IndexIdentity
}

func (c BloatCandidate) Identity() IndexIdentity   { return c.IndexIdentity }
func (c InvalidCandidate) Identity() IndexIdentity { return c.IndexIdentity }

func (BloatCandidate) isIndexCandidate()   {}
func (InvalidCandidate) isIndexCandidate() {}

// MergeCandidates returns the bloat candidates in their given order followed
// by invalid candidates that are not already part of the bloat set
func MergeCandidates(bloated []BloatCandidate, invalid []InvalidCandidate) []IndexCandidate {
	seen := make(map[string]bool, len(bloated))
	merged := make([]IndexCandidate, 0, len(bloated)+len(invalid))

	for _, c := range bloated {
		seen[c.QualifiedName()] = true
		merged = append(merged, c)
	}
	for _, c := range invalid {
		if seen[c.QualifiedName()] {
			continue
		}
		seen[c.QualifiedName()] = true
		merged = append(merged, c)
	}

	return merged
}
