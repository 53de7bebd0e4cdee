package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/util"
)

const applicationName = "pgindexrebuild"

// EstablishConnection opens a single session to databaseName. All statements
// for that database run on this session, so session settings such as
// statement_timeout apply to every later statement.
func EstablishConnection(ctx context.Context, conf *config.Config, logger *util.Logger, databaseName string) (*Session, error) {
	db, err := sql.Open("postgres", conf.GetPqOpenString(databaseName))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}

	_, err = conn.ExecContext(ctx, QueryMarkerSQL+"SELECT pg_catalog.set_config('application_name', $1, false)", applicationName)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}

	return &Session{DatabaseName: databaseName, db: db, conn: conn, logger: logger}, nil
}
