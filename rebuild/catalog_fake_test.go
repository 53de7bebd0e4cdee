package rebuild_test

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pganalyze/pgindexrebuild/ddl"
)

type fakeIndex struct {
	valid      bool
	size       int64
	tablespace string
	primaryKey bool
}

// fakeCatalog keeps a tiny model of the indexes in one schema and applies
// the DDL statements the orchestrator issues to it
type fakeCatalog struct {
	indexes           map[string]*fakeIndex
	defaultTablespace string

	statements []string
	timeouts   []string
	timeout    string

	// Number of upcoming builds that produce an invalid index
	invalidBuilds int
	// Size of newly built indexes
	newSize int64
	// Statements containing the key fail with the given error
	failOn map[string]error
	// The n-th call of SetStatementTimeout fails, counting from 1
	failTimeoutCall int
	timeoutCalls    int

	// Names of which at least one must be a valid index after every statement
	watch      []string
	violations []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		indexes:           make(map[string]*fakeIndex),
		defaultTablespace: "pg_default",
		timeout:           "0",
		failOn:            make(map[string]error),
	}
}

var (
	renameRE     = regexp.MustCompile(`^ALTER INDEX "\w+"\."(\w+)" RENAME TO "(\w+)"$`)
	dropRE       = regexp.MustCompile(`^DROP INDEX (IF EXISTS )?"\w+"\."(\w+)"$`)
	tablespaceRE = regexp.MustCompile(`^ALTER INDEX "\w+"\."(\w+)" SET TABLESPACE "(\w+)"$`)
	dropConRE    = regexp.MustCompile(`^ALTER TABLE "\w+"\."\w+" DROP CONSTRAINT "(\w+)"$`)
	addPkRE      = regexp.MustCompile(`^ALTER TABLE "\w+"\."\w+" ADD CONSTRAINT "(\w+)" PRIMARY KEY USING INDEX "(\w+)"$`)
)

func (c *fakeCatalog) Exec(ctx context.Context, stmt ddl.Statement) error {
	sql := stmt.String()
	c.statements = append(c.statements, sql)

	for key, err := range c.failOn {
		if strings.Contains(sql, key) {
			return err
		}
	}

	err := c.apply(sql)
	if err == nil {
		c.checkInvariant(sql)
	}
	return err
}

func (c *fakeCatalog) apply(sql string) error {
	if m := renameRE.FindStringSubmatch(sql); m != nil {
		idx, ok := c.indexes[m[1]]
		if !ok {
			return fmt.Errorf("index %s does not exist", m[1])
		}
		if _, ok := c.indexes[m[2]]; ok {
			return fmt.Errorf("relation %s already exists", m[2])
		}
		delete(c.indexes, m[1])
		c.indexes[m[2]] = idx
		return nil
	}
	if m := dropRE.FindStringSubmatch(sql); m != nil {
		idx, ok := c.indexes[m[2]]
		if !ok {
			if m[1] != "" {
				return nil
			}
			return fmt.Errorf("index %s does not exist", m[2])
		}
		if idx.primaryKey {
			return fmt.Errorf("cannot drop index %s because constraint %s requires it", m[2], m[2])
		}
		delete(c.indexes, m[2])
		return nil
	}
	if m := tablespaceRE.FindStringSubmatch(sql); m != nil {
		idx, ok := c.indexes[m[1]]
		if !ok {
			return fmt.Errorf("index %s does not exist", m[1])
		}
		idx.tablespace = m[2]
		return nil
	}
	if m := dropConRE.FindStringSubmatch(sql); m != nil {
		idx, ok := c.indexes[m[1]]
		if !ok || !idx.primaryKey {
			return fmt.Errorf("constraint %s does not exist", m[1])
		}
		delete(c.indexes, m[1])
		return nil
	}
	if m := addPkRE.FindStringSubmatch(sql); m != nil {
		idx, ok := c.indexes[m[2]]
		if !ok {
			return fmt.Errorf("index %s does not exist", m[2])
		}
		idx.primaryKey = true
		return nil
	}
	if strings.HasPrefix(sql, "CREATE ") {
		def, err := ddl.ParseIndexDefinition(sql)
		if err != nil {
			return err
		}
		if _, ok := c.indexes[def.IndexName()]; ok {
			return fmt.Errorf("relation %s already exists", def.IndexName())
		}
		tablespace := def.Tablespace()
		if tablespace == "" {
			tablespace = c.defaultTablespace
		}
		valid := c.invalidBuilds == 0
		if !valid {
			c.invalidBuilds--
		}
		c.indexes[def.IndexName()] = &fakeIndex{valid: valid, size: c.newSize, tablespace: tablespace}
		return nil
	}
	if strings.HasPrefix(sql, "ANALYZE ") {
		return nil
	}
	return fmt.Errorf("unexpected statement: %s", sql)
}

func (c *fakeCatalog) checkInvariant(sql string) {
	if len(c.watch) == 0 {
		return
	}
	for _, name := range c.watch {
		if idx, ok := c.indexes[name]; ok && idx.valid {
			return
		}
	}
	c.violations = append(c.violations, sql)
}

func (c *fakeCatalog) IndexExists(ctx context.Context, schemaName string, indexName string) (bool, error) {
	_, ok := c.indexes[indexName]
	return ok, nil
}

func (c *fakeCatalog) IndexSize(ctx context.Context, schemaName string, indexName string) (int64, error) {
	idx, ok := c.indexes[indexName]
	if !ok {
		return 0, fmt.Errorf("index %s does not exist", indexName)
	}
	return idx.size, nil
}

func (c *fakeCatalog) IndexIsValid(ctx context.Context, schemaName string, indexName string) (bool, error) {
	idx, ok := c.indexes[indexName]
	if !ok {
		return false, fmt.Errorf("index %s does not exist", indexName)
	}
	return idx.valid, nil
}

func (c *fakeCatalog) IndexTablespace(ctx context.Context, schemaName string, indexName string) (string, error) {
	idx, ok := c.indexes[indexName]
	if !ok {
		return "", fmt.Errorf("index %s does not exist", indexName)
	}
	return idx.tablespace, nil
}

func (c *fakeCatalog) StatementTimeout(ctx context.Context) (string, error) {
	return c.timeout, nil
}

func (c *fakeCatalog) SetStatementTimeout(ctx context.Context, value string) error {
	c.timeoutCalls++
	if c.timeoutCalls == c.failTimeoutCall {
		return fmt.Errorf("server closed the connection unexpectedly")
	}
	c.timeouts = append(c.timeouts, value)
	c.timeout = value
	return nil
}

func (c *fakeCatalog) count(prefix string) int {
	n := 0
	for _, s := range c.statements {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}
