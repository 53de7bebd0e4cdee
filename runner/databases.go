package runner

import (
	"context"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/input/postgres"
	"github.com/pganalyze/pgindexrebuild/rebuild"
	"github.com/pganalyze/pgindexrebuild/state"
	"github.com/pganalyze/pgindexrebuild/util"
)

// Database is an open session to one database
type Database interface {
	rebuild.Catalog

	Tablespaces(ctx context.Context) ([]string, error)
	BloatedIndexes(ctx context.Context) ([]state.BloatCandidate, error)
	InvalidIndexes(ctx context.Context) ([]state.InvalidCandidate, error)

	Close() error
}

// Connector opens sessions to the databases of one server
type Connector interface {
	ListDatabases(ctx context.Context) ([]string, error)
	Connect(ctx context.Context, databaseName string) (Database, error)
}

// PostgresConnector connects using the lib/pq driver
type PostgresConnector struct {
	Config *config.Config
	Logger *util.Logger
}

func (c PostgresConnector) ListDatabases(ctx context.Context) ([]string, error) {
	return postgres.ListDatabases(ctx, c.Config, c.Logger)
}

func (c PostgresConnector) Connect(ctx context.Context, databaseName string) (Database, error) {
	session, err := postgres.EstablishConnection(ctx, c.Config, c.Logger, databaseName)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// resolveDatabaseNames returns the databases a run processes, in order
func resolveDatabaseNames(ctx context.Context, conf *config.Config, connector Connector) ([]string, error) {
	if !conf.DbAllNames {
		return conf.GetDbNames(), nil
	}
	return connector.ListDatabases(ctx)
}
