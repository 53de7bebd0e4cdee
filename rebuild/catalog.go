// Package rebuild replaces bloated or invalid indexes with freshly built
// copies without taking locks that block writes to the table.
//
// A rebuild renames the live index out of the way, builds the replacement
// under the original name, checks that the server considers it valid and only
// then drops the old copy. Between any two statements at least one valid copy
// of the index exists, under either the original or the working name, unless
// the run was configured to drop indexes first.
package rebuild

import (
	"context"

	"github.com/pganalyze/pgindexrebuild/ddl"
)

// Catalog is the database session a rebuild runs against
type Catalog interface {
	Exec(ctx context.Context, stmt ddl.Statement) error

	IndexExists(ctx context.Context, schemaName string, indexName string) (bool, error)
	IndexSize(ctx context.Context, schemaName string, indexName string) (int64, error)
	IndexIsValid(ctx context.Context, schemaName string, indexName string) (bool, error)
	IndexTablespace(ctx context.Context, schemaName string, indexName string) (string, error)

	StatementTimeout(ctx context.Context) (string, error)
	SetStatementTimeout(ctx context.Context, value string) error
}
