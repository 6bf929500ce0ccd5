// Package schema provides a small DDL builder used by migration programs.
// Builders assemble MySQL DDL text; the migration orchestrator executes the
// emitted SQL verbatim through the exec capability it injects into each
// program.
package schema

import (
	"fmt"
	"strings"
)

// TableBuilder assembles a CREATE TABLE statement
type TableBuilder struct {
	name        string
	definitions []string
	engine      string
	charset     string
}

// CreateTable starts a CREATE TABLE builder for the named table
func CreateTable(name string) *TableBuilder {
	return &TableBuilder{name: name}
}

// Column appends a column definition, e.g. Column("id", "bigint unsigned NOT NULL AUTO_INCREMENT")
func (t *TableBuilder) Column(name, definition string) *TableBuilder {
	t.definitions = append(t.definitions, fmt.Sprintf("`%s` %s", name, definition))
	return t
}

// PrimaryKey appends a primary key over the given columns
func (t *TableBuilder) PrimaryKey(columns ...string) *TableBuilder {
	t.definitions = append(t.definitions, fmt.Sprintf("PRIMARY KEY (%s)", quoteList(columns)))
	return t
}

// Index appends a secondary index over the given columns
func (t *TableBuilder) Index(name string, columns ...string) *TableBuilder {
	t.definitions = append(t.definitions, fmt.Sprintf("INDEX `%s` (%s)", name, quoteList(columns)))
	return t
}

// Unique appends a unique constraint over the given columns
func (t *TableBuilder) Unique(name string, columns ...string) *TableBuilder {
	t.definitions = append(t.definitions, fmt.Sprintf("UNIQUE KEY `%s` (%s)", name, quoteList(columns)))
	return t
}

// ForeignKey appends a foreign key referencing refTable(refColumn)
func (t *TableBuilder) ForeignKey(name, column, refTable, refColumn string) *TableBuilder {
	t.definitions = append(t.definitions, fmt.Sprintf(
		"CONSTRAINT `%s` FOREIGN KEY (`%s`) REFERENCES `%s` (`%s`)",
		name, column, refTable, refColumn))
	return t
}

// Engine sets the storage engine
func (t *TableBuilder) Engine(engine string) *TableBuilder {
	t.engine = engine
	return t
}

// Charset sets the default character set
func (t *TableBuilder) Charset(charset string) *TableBuilder {
	t.charset = charset
	return t
}

// SQL renders the CREATE TABLE statement
func (t *TableBuilder) SQL() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("CREATE TABLE `%s` (\n", t.name))
	builder.WriteString("  " + strings.Join(t.definitions, ",\n  "))
	builder.WriteString("\n)")

	if t.engine != "" {
		builder.WriteString(" ENGINE=" + t.engine)
	}
	if t.charset != "" {
		builder.WriteString(" DEFAULT CHARSET=" + t.charset)
	}

	return builder.String()
}

// AddColumn generates SQL for adding a column
func AddColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", table, column, definition)
}

// DropColumn generates SQL for dropping a column
func DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE `%s` DROP COLUMN `%s`", table, column)
}

// ModifyColumn generates SQL for changing a column definition
func ModifyColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE `%s` MODIFY COLUMN `%s` %s", table, column, definition)
}

// CreateIndex generates SQL for creating a secondary index
func CreateIndex(table, name string, columns ...string) string {
	return fmt.Sprintf("CREATE INDEX `%s` ON `%s` (%s)", name, table, quoteList(columns))
}

// DropIndex generates SQL for dropping an index
func DropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX `%s` ON `%s`", name, table)
}

// DropTable generates SQL for dropping a table
func DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE `%s`", table)
}

// RenameTable generates SQL for renaming a table
func RenameTable(from, to string) string {
	return fmt.Sprintf("RENAME TABLE `%s` TO `%s`", from, to)
}

func quoteList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + c + "`"
	}
	return strings.Join(quoted, ", ")
}
