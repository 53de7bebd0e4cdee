package postgres

import (
	"context"
	"fmt"

	"github.com/pganalyze/pgindexrebuild/state"
)

// Estimation query by PostgreSQL Experts, licensed under the BSD-3-Clause license
// https://github.com/pgexperts/pgx_scripts
//
// The expected page count of each btree index is derived from the per column
// null fraction and average width in pg_stats, a fixed index tuple header and
// MAXALIGN padding. This is an estimate, indexes on columns without
// statistics fall back to a width of 1024 bytes.
const indexBloatSQL string = `
WITH btree_index_atts AS (
	SELECT nspname,
				 indexclass.relname AS index_name,
				 indexclass.reltuples,
				 indexclass.relpages,
				 indrelid, indexrelid,
				 indexclass.relam,
				 tableclass.relname AS tablename,
				 pg_index.indisprimary,
				 regexp_split_to_table(indkey::text, ' ')::smallint AS attnum,
				 indexrelid AS index_oid
		FROM pg_catalog.pg_index
		JOIN pg_catalog.pg_class AS indexclass ON pg_index.indexrelid = indexclass.oid
		JOIN pg_catalog.pg_class AS tableclass ON pg_index.indrelid = tableclass.oid
		JOIN pg_catalog.pg_namespace ON pg_namespace.oid = indexclass.relnamespace
		JOIN pg_catalog.pg_am ON indexclass.relam = pg_am.oid
	 WHERE pg_am.amname = 'btree' AND indexclass.relkind = 'i' AND indexclass.relpages > 0
				 AND pg_index.indisvalid
				 AND nspname = 'public'
),
index_item_sizes AS (
	SELECT ind_atts.nspname, ind_atts.index_name, ind_atts.tablename, ind_atts.indisprimary,
				 ind_atts.reltuples, ind_atts.relpages, ind_atts.relam,
				 indrelid AS table_oid, index_oid,
				 current_setting('block_size')::numeric AS bs,
				 8 AS maxalign,
				 24 AS pagehdr,
				 CASE WHEN max(coalesce(pg_stats.null_frac,0)) = 0
					THEN 2
					ELSE 6
				 END AS index_tuple_hdr,
				 sum( (1-coalesce(pg_stats.null_frac, 0)) * coalesce(pg_stats.avg_width, 1024) ) AS nulldatawidth
		FROM pg_catalog.pg_attribute
		JOIN btree_index_atts AS ind_atts ON pg_attribute.attrelid = ind_atts.indexrelid AND pg_attribute.attnum = ind_atts.attnum
		JOIN pg_catalog.pg_stats ON pg_stats.schemaname = ind_atts.nspname
				 AND ( (pg_stats.tablename = ind_atts.tablename AND pg_stats.attname = pg_catalog.pg_get_indexdef(pg_attribute.attrelid, pg_attribute.attnum, TRUE))
				 OR   (pg_stats.tablename = ind_atts.index_name AND pg_stats.attname = pg_attribute.attname))
	 WHERE pg_attribute.attnum > 0
	 GROUP BY 1, 2, 3, 4, 5, 6, 7, 8, 9, 10
),
index_aligned_est AS (
	SELECT maxalign, bs, nspname, index_name, tablename, indisprimary, reltuples,
				 relpages, relam, table_oid, index_oid,
				 coalesce (
						ceil (
								reltuples * ( 6
										+ maxalign
										- CASE
												WHEN index_tuple_hdr % maxalign = 0 THEN maxalign
												ELSE index_tuple_hdr % maxalign
											END
										+ nulldatawidth
										+ maxalign
										- CASE /* Add padding to the data to align on MAXALIGN */
												WHEN nulldatawidth::integer % maxalign = 0 THEN maxalign
												ELSE nulldatawidth::integer % maxalign
											END
								)::numeric
							/ ( bs - pagehdr::NUMERIC )
							+1 )
				 , 0 ) AS expected
		FROM index_item_sizes
)
SELECT nspname,
			 tablename,
			 index_name,
			 indisprimary,
			 pg_catalog.pg_get_indexdef(index_oid),
			 (bs * relpages)::bigint AS size_bytes,
			 CASE
				 WHEN relpages <= expected THEN 0
				 ELSE (bs * (relpages - expected))::bigint
			 END AS wasted_bytes
	FROM index_aligned_est
 ORDER BY wasted_bytes DESC, index_name`

// BloatedIndexes returns btree indexes in the public schema whose estimated
// size is below their actual size, largest waste first
func (s *Session) BloatedIndexes(ctx context.Context) ([]state.BloatCandidate, error) {
	rows, err := s.conn.QueryContext(ctx, QueryMarkerSQL+indexBloatSQL)
	if err != nil {
		return nil, fmt.Errorf("IndexBloat/Query: %s", err)
	}
	defer rows.Close()

	var candidates []state.BloatCandidate
	for rows.Next() {
		var c state.BloatCandidate

		err := rows.Scan(&c.SchemaName, &c.TableName, &c.IndexName, &c.IsPrimaryKey, &c.Definition, &c.SizeBytes, &c.WastedBytes)
		if err != nil {
			return nil, fmt.Errorf("IndexBloat/Scan: %s", err)
		}

		if c.SizeBytes > 0 && c.WastedBytes > 0 {
			candidates = append(candidates, c)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("IndexBloat/Rows: %s", err)
	}

	return candidates, nil
}
