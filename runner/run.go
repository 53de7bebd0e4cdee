package runner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/rebuild"
	"github.com/pganalyze/pgindexrebuild/state"
	"github.com/pganalyze/pgindexrebuild/util"
)

// Run processes every selected database in turn. The returned ledger holds
// the savings made so far, also when a fatal error stopped the run early.
func Run(ctx context.Context, conf *config.Config, logger *util.Logger, connector Connector) (*state.SavingsLedger, error) {
	ledger := &state.SavingsLedger{}

	databaseNames, err := resolveDatabaseNames(ctx, conf, connector)
	if err != nil {
		return ledger, errors.Wrap(err, "could not list databases")
	}
	if len(databaseNames) == 0 {
		logger.PrintWarning("No databases to process")
		return ledger, nil
	}

	for _, databaseName := range databaseNames {
		if err = ctx.Err(); err != nil {
			return ledger, err
		}

		prefixedLogger := logger.WithPrefix(databaseName)
		err = processDatabase(ctx, conf, prefixedLogger, connector, databaseName, ledger)
		if err != nil {
			return ledger, errors.Wrapf(err, "database %s", databaseName)
		}
	}

	return ledger, nil
}

func processDatabase(ctx context.Context, conf *config.Config, logger *util.Logger, connector Connector, databaseName string, ledger *state.SavingsLedger) error {
	db, err := connector.Connect(ctx, databaseName)
	if err != nil {
		logger.PrintError("Could not connect, skipping database: %s", err)
		return nil
	}
	defer db.Close()

	existing, err := db.Tablespaces(ctx)
	if err != nil {
		return errors.Wrap(err, "could not list tablespaces")
	}
	workingTablespace, err := rebuild.SelectTablespace(conf.Tablespaces, existing)
	if err != nil {
		return err
	}
	logger.PrintVerbose("Building new indexes in tablespace %s", workingTablespace)

	candidates, err := scan(ctx, conf, logger, db)
	if err != nil {
		return err
	}

	orchestrator := &rebuild.Orchestrator{
		Catalog:           db,
		Config:            conf,
		DatabaseName:      databaseName,
		WorkingTablespace: workingTablespace,
		Ledger:            ledger,
		Logger:            logger,
	}
	for _, candidate := range candidates {
		if err = ctx.Err(); err != nil {
			return err
		}
		if _, err = orchestrator.Process(ctx, candidate); err != nil {
			return err
		}
	}

	return nil
}

// scan collects the rebuild candidates of one database and logs how much
// space its indexes waste
func scan(ctx context.Context, conf *config.Config, logger *util.Logger, db Database) ([]state.IndexCandidate, error) {
	bloated, err := db.BloatedIndexes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not estimate index bloat")
	}

	var invalid []state.InvalidCandidate
	if conf.RepairInvalid {
		invalid, err = db.InvalidIndexes(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not list invalid indexes")
		}
	}

	var used, wasted int64
	for _, c := range bloated {
		used += c.SizeBytes
		wasted += c.WastedBytes
	}
	logger.PrintInfo("Indexes use %s, of which %s (%s) is wasted", util.FormatBytes(used), util.FormatBytes(wasted), util.FormatPercent(wasted, used))
	if len(invalid) > 0 {
		logger.PrintInfo("Found %d invalid indexes", len(invalid))
	}

	return state.MergeCandidates(bloated, invalid), nil
}
