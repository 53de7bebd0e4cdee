package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"github.com/pganalyze/pgindexrebuild/util"
)

const DefaultMinBloatBytes = 8192
const DefaultTablespace = "pg_default"
const DefaultMaintenanceDbName = "postgres"

func getDefaultConfig() *Config {
	config := &Config{
		MinBloat:          strconv.Itoa(DefaultMinBloatBytes),
		BuildConcurrently: true,
		Tablespaces:       []string{DefaultTablespace},
		MaintenanceDbName: DefaultMaintenanceDbName,
		LogStdout:         true,
		LogSyslog:         true,
	}

	// Environment variables are the default way to configure when running inside a container.
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		config.DbURL = dbURL
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		config.DbName = dbName
	}
	if dbAllNames := os.Getenv("DB_ALL_NAMES"); dbAllNames == "1" {
		config.DbAllNames = true
	}
	if dbUsername := os.Getenv("DB_USERNAME"); dbUsername != "" {
		config.DbUsername = dbUsername
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		config.DbPassword = dbPassword
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		config.DbHost = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		config.DbPort, _ = strconv.Atoi(dbPort)
	}
	if dbSslMode := os.Getenv("DB_SSLMODE"); dbSslMode != "" {
		config.DbSslMode = dbSslMode
	}
	if minBloat := os.Getenv("PGINDEXREBUILD_MIN_BLOAT"); minBloat != "" {
		config.MinBloat = minBloat
	}
	if excludeIndexes := os.Getenv("PGINDEXREBUILD_EXCLUDE_INDEXES"); excludeIndexes != "" {
		config.ExcludeIndexes = SplitList(excludeIndexes)
	}
	if tablespaces := os.Getenv("PGINDEXREBUILD_TABLESPACES"); tablespaces != "" {
		config.Tablespaces = SplitList(tablespaces)
	}
	if lockFile := os.Getenv("PGINDEXREBUILD_LOCK_FILE"); lockFile != "" {
		config.LockFile = lockFile
	}

	return config
}

// SplitList splits a comma separated setting, dropping empty entries
func SplitList(value string) []string {
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// Read - Reads the configuration from the specified filename (if it exists)
// on top of the defaults and environment variables
func Read(logger *util.Logger, filename string) (*Config, error) {
	config := getDefaultConfig()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			configFile, err := ini.Load(filename)
			if err != nil {
				return nil, err
			}

			err = configFile.Section("pgindexrebuild").MapTo(config)
			if err != nil {
				return nil, fmt.Errorf("Failed to map pgindexrebuild section: %s", err)
			}
			logger.PrintVerbose("Read configuration from %s", filename)
		} else if !os.IsNotExist(err) {
			return nil, err
		} else {
			logger.PrintVerbose("No configuration file found at %s, using defaults and environment", filename)
		}
	}

	return config, nil
}

// Finalize - Derives the computed settings, to be called once flags have been applied
func (config *Config) Finalize() error {
	dbNameParts := SplitList(config.DbName)
	config.DbName = ""
	config.DbExtraNames = nil
	for idx, name := range dbNameParts {
		if name == "*" {
			config.DbAllNames = true
		} else if idx == 0 {
			config.DbName = name
		} else {
			config.DbExtraNames = append(config.DbExtraNames, name)
		}
	}

	minBloatBytes, err := util.ParseBytes(config.MinBloat)
	if err != nil {
		return fmt.Errorf("Invalid min_bloat %q: %s", config.MinBloat, err)
	}
	config.MinBloatBytes = minBloatBytes

	if len(config.Tablespaces) == 0 {
		config.Tablespaces = []string{DefaultTablespace}
	}

	if !config.DbAllNames && len(config.GetDbNames()) == 0 {
		return fmt.Errorf("You must provide either a database name or select all databases")
	}

	return nil
}
