package rebuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/ddl"
	"github.com/pganalyze/pgindexrebuild/input/postgres"
	"github.com/pganalyze/pgindexrebuild/state"
	"github.com/pganalyze/pgindexrebuild/util"
)

// DisplaceStatementTimeout bounds how long renaming or dropping the live
// index may wait for its lock
const DisplaceStatementTimeout = "10min"

// Orchestrator rebuilds the indexes of one database. It is created once the
// database's working tablespace is known and used for each candidate in turn.
type Orchestrator struct {
	Catalog           Catalog
	Config            *config.Config
	DatabaseName      string
	WorkingTablespace string
	Ledger            *state.SavingsLedger
	Logger            *util.Logger
}

// Process drives a single candidate to one of skipped, rolled back or
// committed. A non-nil error means the run must stop; the orchestrator has
// then already tried to restore the original index.
func (o *Orchestrator) Process(ctx context.Context, candidate state.IndexCandidate) (state.RebuildOutcome, error) {
	index := candidate.Identity()

	outcome, err := o.process(ctx, candidate)
	if err != nil {
		return outcome, err
	}

	o.Ledger.Record(outcome)

	switch outcome.Kind {
	case state.OutcomeSkipped:
		o.Logger.PrintInfo("Skipping index %s size %s: %s", index.QualifiedName(), util.FormatBytes(index.SizeBytes), outcome.Reason)
	case state.OutcomeRolledBack:
		o.Logger.PrintError("Could not rebuild index %s, original restored: %s", index.QualifiedName(), outcome.Reason)
	case state.OutcomeCommitted:
		if _, ok := candidate.(state.InvalidCandidate); ok {
			o.Logger.PrintInfo("Repaired invalid index %s", index.QualifiedName())
		} else {
			o.Logger.PrintInfo("Saved %s %s on %s - Total savings so far: %s", util.FormatBytes(outcome.BytesSaved), util.FormatPercent(outcome.BytesSaved, index.SizeBytes), index.QualifiedName(), util.FormatBytes(o.Ledger.TotalBytes()))
		}
	}

	return outcome, nil
}

func (o *Orchestrator) process(ctx context.Context, candidate state.IndexCandidate) (state.RebuildOutcome, error) {
	index := candidate.Identity()

	def, reason := o.admit(candidate)
	if reason != "" {
		return state.Skipped(reason), nil
	}

	properTablespace, err := o.Catalog.IndexTablespace(ctx, index.SchemaName, index.IndexName)
	if err != nil {
		return state.Skipped(fmt.Sprintf("could not determine tablespace: %s", err)), nil
	}
	plan := state.RebuildPlan{
		WorkingTablespace: o.WorkingTablespace,
		ProperTablespace:  properTablespace,
		MaxAttempts:       state.MaxBuildAttempts,
	}
	if plan.NeedsRelocation() {
		o.Logger.PrintVerbose("Index %s lives in tablespace %s, building in %s", index.QualifiedName(), plan.ProperTablespace, plan.WorkingTablespace)
	}

	exists, err := o.Catalog.IndexExists(ctx, index.SchemaName, index.WorkingName())
	if err != nil {
		return state.Skipped(fmt.Sprintf("could not check for %s: %s", index.WorkingName(), err)), nil
	}
	if exists {
		return state.Skipped(leftoverReason(index.SchemaName, index.WorkingName())), nil
	}

	// The candidate itself may be the working copy an interrupted run left
	// behind, possibly the only valid copy of the index
	if original := strings.TrimSuffix(index.IndexName, state.WorkingSuffix); original != index.IndexName {
		exists, err = o.Catalog.IndexExists(ctx, index.SchemaName, original)
		if err != nil {
			return state.Skipped(fmt.Sprintf("could not check for %s: %s", original, err)), nil
		}
		if exists {
			return state.Skipped(leftoverReason(index.SchemaName, index.IndexName)), nil
		}
	}

	if o.Config.DryRun {
		o.describe(candidate, "Would rebuild")
		return state.Skipped("dry-run"), nil
	}

	buildTablespace := plan.WorkingTablespace
	if o.Config.AlwaysDropFirst {
		buildTablespace = plan.ProperTablespace
	}
	createStmt, err := def.Build(o.Config.BuildConcurrently, buildTablespace)
	if err != nil {
		return state.Skipped(err.Error()), nil
	}

	oldSize, err := o.Catalog.IndexSize(ctx, index.SchemaName, index.IndexName)
	if err != nil {
		return state.Skipped(fmt.Sprintf("could not determine size: %s", err)), nil
	}

	o.describe(candidate, "Rebuilding")

	displaceErr, restoreErr := o.displace(ctx, index)
	if displaceErr != nil {
		if restoreErr != nil {
			return state.RebuildOutcome{}, errors.Wrap(restoreErr, "could not restore statement_timeout")
		}
		if postgres.IsStatementTimeout(displaceErr) {
			return state.Skipped(fmt.Sprintf("timed out after %s waiting to move the index out of the way", DisplaceStatementTimeout)), nil
		}
		return state.Skipped(fmt.Sprintf("could not move the index out of the way: %s", displaceErr)), nil
	}
	if restoreErr != nil {
		return state.RebuildOutcome{}, o.abortBuild(ctx, index, errors.Wrap(restoreErr, "could not restore statement_timeout"))
	}

	valid, err := o.buildWithRetries(ctx, index, createStmt)
	if err != nil {
		return state.RebuildOutcome{}, err
	}
	if !valid {
		if o.Config.AlwaysDropFirst {
			o.Logger.PrintError("Index %s was dropped before the rebuild and could not be built again, it needs to be recreated manually: %s", index.QualifiedName(), index.Definition)
			return state.RolledBack(fmt.Sprintf("still invalid after %d attempts, index lost", state.MaxBuildAttempts)), nil
		}
		if err = o.restoreWorkingCopy(ctx, index); err != nil {
			return state.RebuildOutcome{}, err
		}
		return state.RolledBack(fmt.Sprintf("still invalid after %d attempts", state.MaxBuildAttempts)), nil
	}

	if index.IsPrimaryKey {
		migrator := ConstraintMigrator{Catalog: o.Catalog, Logger: o.Logger}
		if err = migrator.Reattach(ctx, index, !o.Config.AlwaysDropFirst); err != nil {
			return state.RebuildOutcome{}, errors.Wrapf(err, "primary key of %s", index.QualifiedName())
		}
	}

	if !o.Config.AlwaysDropFirst && plan.NeedsRelocation() {
		if err = o.relocate(ctx, index, plan); err != nil {
			return state.RebuildOutcome{}, errors.Wrapf(err, "moving %s to tablespace %s", index.QualifiedName(), plan.ProperTablespace)
		}
	}

	return o.finalize(ctx, candidate, oldSize)
}

func leftoverReason(schemaName string, workingName string) string {
	return fmt.Sprintf("the index %[1]s.%[2]s already exists. This can happen when a previous run has been interrupted. "+
		"Check which copy is valid and remove the other one, e.g. with: DROP INDEX %[1]s.%[2]s;", schemaName, workingName)
}

func (o *Orchestrator) describe(candidate state.IndexCandidate, action string) {
	switch c := candidate.(type) {
	case state.BloatCandidate:
		o.Logger.PrintInfo("%s index %s size %s wasted %s %s", action, c.QualifiedName(), util.FormatBytes(c.SizeBytes), util.FormatBytes(c.WastedBytes), util.FormatPercent(c.WastedBytes, c.SizeBytes))
	case state.InvalidCandidate:
		o.Logger.PrintInfo("%s invalid index %s size %s", action, c.QualifiedName(), util.FormatBytes(c.SizeBytes))
	}
}

// displace renames the live index to its working name, or drops it when
// always-drop-first is set, under DisplaceStatementTimeout
func (o *Orchestrator) displace(ctx context.Context, index state.IndexIdentity) (displaceErr error, restoreErr error) {
	var stmt ddl.Statement
	var err error
	if !o.Config.AlwaysDropFirst {
		stmt, err = ddl.RenameIndex(index.SchemaName, index.IndexName, index.WorkingName())
	} else if index.IsPrimaryKey {
		stmt, err = ddl.DropConstraint(index.SchemaName, index.TableName, index.IndexName)
	} else {
		stmt, err = ddl.DropIndex(index.SchemaName, index.IndexName, false)
	}
	if err != nil {
		return err, nil
	}

	previous, err := o.Catalog.StatementTimeout(ctx)
	if err != nil {
		return err, nil
	}
	if err = o.Catalog.SetStatementTimeout(ctx, DisplaceStatementTimeout); err != nil {
		return err, nil
	}

	displaceErr = o.Catalog.Exec(ctx, stmt)
	restoreErr = o.Catalog.SetStatementTimeout(context.WithoutCancel(ctx), previous)
	return
}

func (o *Orchestrator) buildWithRetries(ctx context.Context, index state.IndexIdentity, createStmt ddl.Statement) (bool, error) {
	dropStmt, err := ddl.DropIndex(index.SchemaName, index.IndexName, false)
	if err != nil {
		return false, o.abortBuild(ctx, index, err)
	}

	for attempt := 1; attempt <= state.MaxBuildAttempts; attempt++ {
		o.Logger.PrintVerbose("Building index %s, attempt %d of %d", index.QualifiedName(), attempt, state.MaxBuildAttempts)

		err = o.Catalog.Exec(ctx, createStmt)
		if err != nil {
			if postgres.IsDiskFull(err) {
				o.Logger.PrintError("Disk is full! Cannot proceed. Attempting to roll back")
			}
			return false, o.abortBuild(ctx, index, errors.Wrapf(err, "could not build index %s", index.QualifiedName()))
		}

		valid, err := o.Catalog.IndexIsValid(ctx, index.SchemaName, index.IndexName)
		if err != nil {
			return false, o.abortBuild(ctx, index, errors.Wrapf(err, "could not check validity of index %s", index.QualifiedName()))
		}
		if valid {
			return true, nil
		}

		o.Logger.PrintWarning("New index %s is invalid after attempt %d of %d, dropping it", index.QualifiedName(), attempt, state.MaxBuildAttempts)
		if err = o.Catalog.Exec(ctx, dropStmt); err != nil {
			return false, o.abortBuild(ctx, index, errors.Wrapf(err, "could not drop invalid index %s", index.QualifiedName()))
		}
	}

	return false, nil
}

// abortBuild removes a partially built index and puts the working copy back
// under its original name, then returns cause. This also runs when ctx was
// cancelled.
func (o *Orchestrator) abortBuild(ctx context.Context, index state.IndexIdentity, cause error) error {
	ctx = context.WithoutCancel(ctx)

	stmt, err := ddl.DropIndex(index.SchemaName, index.IndexName, true)
	if err == nil {
		o.Logger.PrintVerbose("Dropping the partially built index %s", index.QualifiedName())
		err = o.Catalog.Exec(ctx, stmt)
	}
	if err != nil {
		o.Logger.PrintError("Could not drop partially built index %s: %s", index.QualifiedName(), err)
	}

	if !o.Config.AlwaysDropFirst {
		if err = o.restoreWorkingCopy(ctx, index); err != nil {
			o.Logger.PrintError("%s", err)
		}
	}

	return cause
}

func (o *Orchestrator) restoreWorkingCopy(ctx context.Context, index state.IndexIdentity) error {
	stmt, err := ddl.RenameIndex(index.SchemaName, index.WorkingName(), index.IndexName)
	if err != nil {
		return err
	}
	o.Logger.PrintVerbose("Renaming old index %s back to %s", index.WorkingName(), index.IndexName)
	if err = o.Catalog.Exec(ctx, stmt); err != nil {
		return errors.Wrapf(err, "could not rename %s.%s back to %s, run manually: %s", index.SchemaName, index.WorkingName(), index.IndexName, stmt)
	}
	return nil
}

// relocate moves the old copy into the working tablespace before the new
// index moves to its proper tablespace, so only the working tablespace ever
// holds two copies
func (o *Orchestrator) relocate(ctx context.Context, index state.IndexIdentity, plan state.RebuildPlan) error {
	exists, err := o.Catalog.IndexExists(ctx, index.SchemaName, index.WorkingName())
	if err != nil {
		return err
	}
	if exists {
		stmt, err := ddl.SetIndexTablespace(index.SchemaName, index.WorkingName(), plan.WorkingTablespace)
		if err != nil {
			return err
		}
		if err = o.Catalog.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	stmt, err := ddl.SetIndexTablespace(index.SchemaName, index.IndexName, plan.ProperTablespace)
	if err != nil {
		return err
	}
	return o.Catalog.Exec(ctx, stmt)
}

func (o *Orchestrator) finalize(ctx context.Context, candidate state.IndexCandidate, oldSize int64) (state.RebuildOutcome, error) {
	index := candidate.Identity()

	stmt, err := ddl.Analyze(index.SchemaName, index.TableName)
	if err != nil {
		return state.RebuildOutcome{}, err
	}
	if err = o.Catalog.Exec(ctx, stmt); err != nil {
		return state.RebuildOutcome{}, errors.Wrapf(err, "could not analyze %s.%s", index.SchemaName, index.TableName)
	}

	if !o.Config.AlwaysDropFirst {
		stmt, err = ddl.DropIndex(index.SchemaName, index.WorkingName(), true)
		if err != nil {
			return state.RebuildOutcome{}, err
		}
		if err = o.Catalog.Exec(ctx, stmt); err != nil {
			return state.RebuildOutcome{}, errors.Wrapf(err, "could not drop old index %s.%s", index.SchemaName, index.WorkingName())
		}
	}

	switch candidate.(type) {
	case state.InvalidCandidate:
		return state.Committed(0), nil
	case state.BloatCandidate:
		newSize, err := o.Catalog.IndexSize(ctx, index.SchemaName, index.IndexName)
		if err != nil {
			return state.RebuildOutcome{}, errors.Wrapf(err, "could not determine new size of %s", index.QualifiedName())
		}
		saved := oldSize - newSize
		if saved < 0 {
			o.Logger.PrintWarning("Index %s grew by %s during the rebuild", index.QualifiedName(), util.FormatBytes(-saved))
			saved = 0
		}
		return state.Committed(saved), nil
	}

	return state.RebuildOutcome{}, fmt.Errorf("unknown candidate type %T", candidate)
}
