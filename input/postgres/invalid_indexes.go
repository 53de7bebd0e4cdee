package postgres

import (
	"context"
	"fmt"

	"github.com/pganalyze/pgindexrebuild/state"
)

const invalidIndexesSQL string = `
SELECT n.nspname,
			 t.relname,
			 i.relname,
			 x.indisprimary,
			 pg_catalog.pg_get_indexdef(i.oid),
			 pg_catalog.pg_relation_size(i.oid)
	FROM pg_catalog.pg_index x
	JOIN pg_catalog.pg_class i ON (i.oid = x.indexrelid)
	JOIN pg_catalog.pg_class t ON (t.oid = x.indrelid)
	JOIN pg_catalog.pg_namespace n ON (n.oid = i.relnamespace)
 WHERE NOT x.indisvalid AND n.nspname = 'public' AND i.relkind = 'i'
 ORDER BY i.relname`

// InvalidIndexes returns indexes in the public schema the catalog marks as
// invalid, which usually are leftovers of failed concurrent builds
func (s *Session) InvalidIndexes(ctx context.Context) ([]state.InvalidCandidate, error) {
	rows, err := s.conn.QueryContext(ctx, QueryMarkerSQL+invalidIndexesSQL)
	if err != nil {
		return nil, fmt.Errorf("InvalidIndexes/Query: %s", err)
	}
	defer rows.Close()

	var candidates []state.InvalidCandidate
	for rows.Next() {
		var c state.InvalidCandidate

		err := rows.Scan(&c.SchemaName, &c.TableName, &c.IndexName, &c.IsPrimaryKey, &c.Definition, &c.SizeBytes)
		if err != nil {
			return nil, fmt.Errorf("InvalidIndexes/Scan: %s", err)
		}

		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("InvalidIndexes/Rows: %s", err)
	}

	return candidates, nil
}
