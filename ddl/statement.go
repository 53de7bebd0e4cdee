// Package ddl builds the DDL statements issued during an index rebuild.
//
// Schema, table, index, constraint and tablespace names cannot be passed as
// query parameters, so every name is checked against an allow-list pattern
// and quoted before it becomes part of a statement.
package ddl

import "fmt"

// Statement is a validated DDL statement
type Statement struct {
	sql string
}

func (s Statement) String() string {
	return s.sql
}

func statement(format string, args ...interface{}) Statement {
	return Statement{sql: fmt.Sprintf(format, args...)}
}

func RenameIndex(schema, from, to string) (Statement, error) {
	src, err := quote(schema, from)
	if err != nil {
		return Statement{}, err
	}
	dst, err := quote(to)
	if err != nil {
		return Statement{}, err
	}
	return statement("ALTER INDEX %s RENAME TO %s", src, dst), nil
}

func DropIndex(schema, name string, ifExists bool) (Statement, error) {
	idx, err := quote(schema, name)
	if err != nil {
		return Statement{}, err
	}
	if ifExists {
		return statement("DROP INDEX IF EXISTS %s", idx), nil
	}
	return statement("DROP INDEX %s", idx), nil
}

func SetIndexTablespace(schema, name, tablespace string) (Statement, error) {
	idx, err := quote(schema, name)
	if err != nil {
		return Statement{}, err
	}
	ts, err := quote(tablespace)
	if err != nil {
		return Statement{}, err
	}
	return statement("ALTER INDEX %s SET TABLESPACE %s", idx, ts), nil
}

func DropConstraint(schema, table, constraint string) (Statement, error) {
	tbl, err := quote(schema, table)
	if err != nil {
		return Statement{}, err
	}
	con, err := quote(constraint)
	if err != nil {
		return Statement{}, err
	}
	return statement("ALTER TABLE %s DROP CONSTRAINT %s", tbl, con), nil
}

// AddPrimaryKeyUsingIndex attaches a primary key constraint to an existing
// unique index. The server reuses the index instead of building and
// validating a new one.
func AddPrimaryKeyUsingIndex(schema, table, index string) (Statement, error) {
	tbl, err := quote(schema, table)
	if err != nil {
		return Statement{}, err
	}
	idx, err := quote(index)
	if err != nil {
		return Statement{}, err
	}
	return statement("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY USING INDEX %s", tbl, idx, idx), nil
}

func Analyze(schema, table string) (Statement, error) {
	tbl, err := quote(schema, table)
	if err != nil {
		return Statement{}, err
	}
	return statement("ANALYZE %s", tbl), nil
}
