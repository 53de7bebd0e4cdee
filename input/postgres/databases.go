package postgres

import (
	"context"

	"github.com/pganalyze/pgindexrebuild/config"
	"github.com/pganalyze/pgindexrebuild/util"
)

const databasesSQL string = `
SELECT datname
	FROM pg_catalog.pg_database
 WHERE NOT datistemplate AND datallowconn
 ORDER BY datname`

// ListDatabases returns all databases that can be connected to, except
// templates, in name order. It connects through the maintenance database.
func ListDatabases(ctx context.Context, conf *config.Config, logger *util.Logger) ([]string, error) {
	session, err := EstablishConnection(ctx, conf, logger, conf.MaintenanceDbName)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	rows, err := session.conn.QueryContext(ctx, QueryMarkerSQL+databasesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		databases = append(databases, name)
	}

	return databases, rows.Err()
}
