package processor

import (
	"errors"
	"fmt"
)

// SchemaError marks a structural problem with one table: a required column
// is missing, a pivot key is not unique, a coalesce group resolved to no
// columns, or an explode produced the wrong number of parts. It is fatal to
// the table being processed but a multi-run batch keeps going; the source
// adapters log it and move on to the next capture.
type SchemaError struct {
	Table  string // run identifier or table name, when known
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schema error in %s: %s", e.Table, e.Detail)
	}
	return fmt.Sprintf("schema error: %s", e.Detail)
}

func schemaErrorf(table, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Table: table, Detail: fmt.Sprintf(format, args...)}
}

// IsSchemaError reports whether err (or anything it wraps) is a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
