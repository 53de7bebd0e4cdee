package postgres

import "context"

const tablespacesSQL string = `
SELECT spcname FROM pg_catalog.pg_tablespace ORDER BY spcname`

func (s *Session) Tablespaces(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, QueryMarkerSQL+tablespacesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}
