package postgres

// QueryMarkerSQL identifies our own statements in pg_stat_activity and logs
const QueryMarkerSQL = "/* pgindexrebuild */ "
