package ddl

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// IndexDefinition is a parsed CREATE INDEX statement as returned by
// pg_get_indexdef
type IndexDefinition struct {
	tree *pg_query.ParseResult
	stmt *pg_query.IndexStmt
}

func ParseIndexDefinition(definition string) (*IndexDefinition, error) {
	tree, err := pg_query.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("could not parse index definition: %s", err)
	}
	if len(tree.Stmts) != 1 {
		return nil, fmt.Errorf("expected one statement in index definition; got %d", len(tree.Stmts))
	}
	stmt := tree.Stmts[0].Stmt.GetIndexStmt()
	if stmt == nil {
		return nil, fmt.Errorf("index definition is not a CREATE INDEX statement")
	}
	if err := ValidateIdentifier(stmt.Idxname); err != nil {
		return nil, err
	}
	return &IndexDefinition{tree: tree, stmt: stmt}, nil
}

func (d *IndexDefinition) IsUnique() bool {
	return d.stmt.Unique
}

func (d *IndexDefinition) IndexName() string {
	return d.stmt.Idxname
}

// IsOnly reports whether the index is created ON ONLY a partitioned table.
// Such parent indexes cannot be built concurrently.
func (d *IndexDefinition) IsOnly() bool {
	return d.stmt.Relation != nil && !d.stmt.Relation.Inh
}

// Tablespace is empty when the definition has no TABLESPACE clause
func (d *IndexDefinition) Tablespace() string {
	return d.stmt.TableSpace
}

// Build returns the CREATE INDEX statement, optionally non-blocking, placing
// the index into tablespace (unchanged when tablespace is empty). The
// definition itself is not modified.
func (d *IndexDefinition) Build(concurrently bool, tablespace string) (Statement, error) {
	if tablespace != "" {
		if err := ValidateIdentifier(tablespace); err != nil {
			return Statement{}, err
		}
	}

	origConcurrent, origTablespace := d.stmt.Concurrent, d.stmt.TableSpace
	defer func() {
		d.stmt.Concurrent, d.stmt.TableSpace = origConcurrent, origTablespace
	}()

	d.stmt.Concurrent = concurrently
	if tablespace != "" {
		d.stmt.TableSpace = tablespace
	}

	sql, err := pg_query.Deparse(d.tree)
	if err != nil {
		return Statement{}, fmt.Errorf("could not deparse index definition: %s", err)
	}
	return Statement{sql: sql}, nil
}
