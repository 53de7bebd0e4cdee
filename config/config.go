package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Config -
//   Contains how to connect to the Postgres server and the policy switches
//   that control which indexes are rebuilt and how
type Config struct {
	DbURL      string `ini:"db_url"`
	DbName     string `ini:"db_name"`
	DbUsername string `ini:"db_username"`
	DbPassword string `ini:"db_password"`
	DbHost     string `ini:"db_host"`
	DbPort     int    `ini:"db_port"`
	DbSslMode  string `ini:"db_sslmode"`

	DbExtraNames []string // Additional databases that should be processed (determined by additional databases in db_name)
	DbAllNames   bool     `ini:"all_databases"` // All databases except template databases (also set by * in the db_name list)

	// Database used to list all databases when DbAllNames is set
	MaintenanceDbName string `ini:"maintenance_db"`

	DryRun bool `ini:"dry_run"`

	// Indexes with an estimated bloat at or below this size are left alone.
	// Accepts human readable sizes ("8KiB", "1 MB").
	MinBloat      string `ini:"min_bloat"`
	MinBloatBytes int64

	// Drops the index before building its replacement instead of keeping the
	// old copy around, for servers that don't have the disk space for two
	// copies. Leaves the table without the index during the build.
	AlwaysDropFirst bool `ini:"always_drop_first"`

	RepairInvalid     bool `ini:"repair_invalid"`
	BuildConcurrently bool `ini:"build_concurrently"`

	// Comma separated, each entry is either "index" or "database.index"
	ExcludeIndexes []string `ini:"exclude_indexes" delim:","`

	// Ordered preference of tablespaces to build new indexes in
	Tablespaces []string `ini:"tablespaces" delim:","`

	LockFile  string `ini:"lock_file"`
	LogSyslog bool   `ini:"log_syslog"`
	LogStdout bool   `ini:"log_stdout"`
	Verbose   bool   `ini:"verbose"`
}

// GetPqOpenString - Gets the database configuration as a string that can be passed to lib/pq for connecting
//
// Settings from db_url are used as the base, explicitly configured fields
// (db_username, db_host, ...) take precedence over them.
func (config Config) GetPqOpenString(databaseName string) string {
	var dbUsername, dbPassword, dbName, dbHost, dbSslMode string
	var dbPort int

	if config.DbURL != "" {
		u, err := url.Parse(config.DbURL)
		if err == nil {
			if u.User != nil {
				dbUsername = u.User.Username()
				dbPassword, _ = u.User.Password()
			}
			if len(u.Path) > 1 {
				dbName = u.Path[1:]
			}
			dbHost = u.Hostname()
			dbPort, _ = strconv.Atoi(u.Port())
			dbSslMode = u.Query().Get("sslmode")
		}
	}

	if config.DbUsername != "" {
		dbUsername = config.DbUsername
	}
	if config.DbPassword != "" {
		dbPassword = config.DbPassword
	}
	if databaseName != "" {
		dbName = databaseName
	} else if config.DbName != "" {
		dbName = config.DbName
	}
	if config.DbHost != "" {
		dbHost = config.DbHost
	}
	if config.DbPort != 0 {
		dbPort = config.DbPort
	}
	if config.DbSslMode != "" {
		dbSslMode = config.DbSslMode
	}

	dbinfo := []string{}

	if dbUsername != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("user=%s", quoteConnValue(dbUsername)))
	}
	if dbPassword != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("password=%s", quoteConnValue(dbPassword)))
	}
	if dbName != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("dbname=%s", quoteConnValue(dbName)))
	}
	if dbHost != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("host=%s", quoteConnValue(dbHost)))
	}
	if dbPort != 0 {
		dbinfo = append(dbinfo, fmt.Sprintf("port=%d", dbPort))
	}
	if dbSslMode != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("sslmode=%s", quoteConnValue(dbSslMode)))
	}
	dbinfo = append(dbinfo, "connect_timeout=10")

	return strings.Join(dbinfo, " ")
}

func quoteConnValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	value = strings.Replace(value, `\`, `\\`, -1)
	value = strings.Replace(value, `'`, `\'`, -1)
	return "'" + value + "'"
}

// GetDbName - Gets the database name from the given configuration
func (config Config) GetDbName() string {
	if config.DbName != "" {
		return config.DbName
	}
	if config.DbURL != "" {
		u, err := url.Parse(config.DbURL)
		if err == nil && len(u.Path) > 0 {
			return u.Path[1:len(u.Path)]
		}
	}

	return ""
}

// GetDbNames - Gets the explicitly configured database names, in order
func (config Config) GetDbNames() []string {
	var names []string
	if name := config.GetDbName(); name != "" {
		names = append(names, name)
	}
	return append(names, config.DbExtraNames...)
}

// GetDbURLRedacted - Gets the database URL without the password, for logging
func (config Config) GetDbURLRedacted() string {
	if config.DbURL == "" {
		return ""
	}
	u, err := url.Parse(config.DbURL)
	if err != nil {
		return "<unparsable>"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// IsExcluded reports whether an index was excluded by name, either in all
// databases or qualified with the given database
func (config Config) IsExcluded(databaseName string, indexName string) bool {
	for _, entry := range config.ExcludeIndexes {
		entry = strings.TrimSpace(entry)
		if entry == indexName || entry == databaseName+"."+indexName {
			return true
		}
	}
	return false
}
