package responses

import (
	"fmt"
	"strings"
)

// createTableSQL renders an idempotent CREATE TABLE for schema, using
// typeOf to pick each column's SQL type. id and created_at are filled by
// the database.
func createTableSQL(schema Schema, idColumn string, typeOf func(Column) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t%s", schema.Table, idColumn)
	for _, col := range schema.Columns {
		fmt.Fprintf(&b, ",\n\t%s %s", col.Name, typeOf(col))
	}
	b.WriteString(",\n\tcreated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n)")
	return b.String()
}

// insertSQL renders a single-row INSERT naming every schema column.
func insertSQL(schema Schema, placeholder func(i int) string) string {
	names := make([]string, len(schema.Columns))
	marks := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		names[i] = col.Name
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Table, strings.Join(names, ", "), strings.Join(marks, ", "))
}

// insertArgs orders row cells by schema column, converting each through
// conv.
func insertArgs(schema Schema, row Row, conv func(Column, any) (any, error)) ([]any, error) {
	if err := schema.Conform(row); err != nil {
		return nil, err
	}
	args := make([]any, len(schema.Columns))
	for i, col := range schema.Columns {
		v, err := conv(col, row[col.Name])
		if err != nil {
			return nil, fmt.Errorf("responses: column %q: %w", col.Name, err)
		}
		args[i] = v
	}
	return args, nil
}
