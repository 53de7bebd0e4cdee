package rebuild

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgindexrebuild/ddl"
	"github.com/pganalyze/pgindexrebuild/state"
	"github.com/pganalyze/pgindexrebuild/util"
)

// ConstraintMigrator moves a primary key constraint onto a rebuilt index
type ConstraintMigrator struct {
	Catalog Catalog
	Logger  *util.Logger
}

// Reattach drops the primary key constraint of the working copy (when it
// still has one) and attaches a new primary key to the already built and
// validated index. Using the existing index avoids the full table scan
// ADD PRIMARY KEY (...) would do.
func (m ConstraintMigrator) Reattach(ctx context.Context, index state.IndexIdentity, detachWorkingCopy bool) error {
	if detachWorkingCopy {
		stmt, err := ddl.DropConstraint(index.SchemaName, index.TableName, index.WorkingName())
		if err != nil {
			return err
		}
		m.Logger.PrintVerbose("Dropping primary key constraint %s from %s.%s", index.WorkingName(), index.SchemaName, index.TableName)
		if err = m.Catalog.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "could not drop constraint %s", index.WorkingName())
		}
	}

	stmt, err := ddl.AddPrimaryKeyUsingIndex(index.SchemaName, index.TableName, index.IndexName)
	if err != nil {
		return err
	}
	m.Logger.PrintVerbose("Adding primary key constraint %s to %s.%s using the rebuilt index", index.IndexName, index.SchemaName, index.TableName)
	if err = m.Catalog.Exec(ctx, stmt); err != nil {
		return errors.Wrapf(err, "could not add primary key constraint %s", index.IndexName)
	}

	return nil
}
