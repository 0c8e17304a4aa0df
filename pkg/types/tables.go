package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "insights_"

const (
	TABLE_NOTEBOOKS         = TableName("notebooks")
	TABLE_SOURCES           = TableName("sources")
	TABLE_NOTES             = TableName("notes")
	TABLE_SCHEMA_MIGRATIONS = TableName("schema_migrations")
)
