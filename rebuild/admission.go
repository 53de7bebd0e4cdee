package rebuild

import (
	"fmt"

	"github.com/pganalyze/pgindexrebuild/ddl"
	"github.com/pganalyze/pgindexrebuild/state"
	"github.com/pganalyze/pgindexrebuild/util"
)

// admit returns the parsed index definition, or the reason the candidate is skipped
func (o *Orchestrator) admit(candidate state.IndexCandidate) (*ddl.IndexDefinition, string) {
	index := candidate.Identity()

	if o.Config.IsExcluded(o.DatabaseName, index.IndexName) {
		return nil, "excluded by configuration"
	}

	switch c := candidate.(type) {
	case state.BloatCandidate:
		if c.WastedBytes == 0 {
			return nil, "no bloat"
		}
		if c.WastedBytes <= o.Config.MinBloatBytes {
			return nil, fmt.Sprintf("wasted %s is not more than min bloat %s", util.FormatBytes(c.WastedBytes), util.FormatBytes(o.Config.MinBloatBytes))
		}
	case state.InvalidCandidate:
		if !o.Config.RepairInvalid {
			return nil, "repairing invalid indexes is disabled"
		}
	}

	for _, name := range []string{index.SchemaName, index.TableName, index.IndexName, index.WorkingName()} {
		if err := ddl.ValidateIdentifier(name); err != nil {
			return nil, fmt.Sprintf("unsupported name: %s", err)
		}
	}

	def, err := ddl.ParseIndexDefinition(index.Definition)
	if err != nil {
		return nil, err.Error()
	}

	// Primary keys are unique as well, their uniqueness is re-established by
	// attaching the constraint to the new index
	if def.IsUnique() && !index.IsPrimaryKey {
		return nil, "it has a unique constraint"
	}

	if def.IsOnly() {
		return nil, "it is the parent index of a partitioned table"
	}

	if def.IndexName() != index.IndexName {
		return nil, fmt.Sprintf("definition is for index %s", def.IndexName())
	}

	return def, ""
}
