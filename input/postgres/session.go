package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guregu/null"

	"github.com/pganalyze/pgindexrebuild/ddl"
	"github.com/pganalyze/pgindexrebuild/util"
)

// Session is the single connection used while processing one database
type Session struct {
	DatabaseName string

	db     *sql.DB
	conn   *sql.Conn
	logger *util.Logger
}

func (s *Session) Close() error {
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

func (s *Session) Exec(ctx context.Context, stmt ddl.Statement) error {
	s.logger.PrintVerbose("Running: %s", stmt)
	_, err := s.conn.ExecContext(ctx, QueryMarkerSQL+stmt.String())
	return err
}

const indexExistsSQL string = `
SELECT EXISTS (
	SELECT 1
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON (n.oid = c.relnamespace)
	 WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('i', 'I')
)`

func (s *Session) IndexExists(ctx context.Context, schemaName string, indexName string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx, QueryMarkerSQL+indexExistsSQL, schemaName, indexName).Scan(&exists)
	return exists, err
}

const indexSizeSQL string = `
SELECT pg_catalog.pg_relation_size(c.oid)
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON (n.oid = c.relnamespace)
 WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('i', 'I')`

func (s *Session) IndexSize(ctx context.Context, schemaName string, indexName string) (int64, error) {
	var size null.Int
	err := s.conn.QueryRowContext(ctx, QueryMarkerSQL+indexSizeSQL, schemaName, indexName).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("index %s.%s does not exist", schemaName, indexName)
	} else if err != nil {
		return 0, err
	}
	if !size.Valid {
		return 0, fmt.Errorf("index %s.%s was dropped while reading its size", schemaName, indexName)
	}
	return size.Int64, nil
}

const indexIsValidSQL string = `
SELECT x.indisvalid
	FROM pg_catalog.pg_index x
	JOIN pg_catalog.pg_class c ON (c.oid = x.indexrelid)
	JOIN pg_catalog.pg_namespace n ON (n.oid = c.relnamespace)
 WHERE n.nspname = $1 AND c.relname = $2`

func (s *Session) IndexIsValid(ctx context.Context, schemaName string, indexName string) (bool, error) {
	var valid bool
	err := s.conn.QueryRowContext(ctx, QueryMarkerSQL+indexIsValidSQL, schemaName, indexName).Scan(&valid)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("index %s.%s does not exist", schemaName, indexName)
	}
	return valid, err
}

const indexTablespaceSQL string = `
SELECT t.spcname
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON (n.oid = c.relnamespace)
	LEFT JOIN pg_catalog.pg_tablespace t ON (t.oid = c.reltablespace)
 WHERE n.nspname = $1 AND c.relname = $2`

const defaultTablespaceSQL string = `
SELECT t.spcname
	FROM pg_catalog.pg_database d
	JOIN pg_catalog.pg_tablespace t ON (t.oid = d.dattablespace)
 WHERE d.datname = pg_catalog.current_database()`

// IndexTablespace returns the tablespace an index is stored in. Indexes in
// the database default tablespace have reltablespace = 0, for these the
// default tablespace's name is returned.
func (s *Session) IndexTablespace(ctx context.Context, schemaName string, indexName string) (string, error) {
	var spcname null.String
	err := s.conn.QueryRowContext(ctx, QueryMarkerSQL+indexTablespaceSQL, schemaName, indexName).Scan(&spcname)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("index %s.%s does not exist", schemaName, indexName)
	} else if err != nil {
		return "", err
	}
	if spcname.Valid {
		return spcname.String, nil
	}

	var defaultName string
	err = s.conn.QueryRowContext(ctx, QueryMarkerSQL+defaultTablespaceSQL).Scan(&defaultName)
	return defaultName, err
}

func (s *Session) StatementTimeout(ctx context.Context) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, QueryMarkerSQL+"SHOW statement_timeout").Scan(&value)
	return value, err
}

func (s *Session) SetStatementTimeout(ctx context.Context, value string) error {
	_, err := s.conn.ExecContext(ctx, QueryMarkerSQL+"SELECT pg_catalog.set_config('statement_timeout', $1, false)", value)
	return err
}
