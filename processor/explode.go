package processor

// ExplodeColumn replaces one source column with several derived columns.
// split is applied to each cell (rendered as a string) and must return
// exactly len(dests) parts for every row; any other arity is a schema
// mismatch and fails the table rather than being truncated or padded. The
// source column is dropped and the destination columns are appended in
// order.
func ExplodeColumn(t *Table, source string, dests []string, split func(string) []string) error {
	srcIdx := t.ColumnIndex(source)
	if srcIdx < 0 {
		return schemaErrorf("", "explode source column %q not in table", source)
	}
	if len(dests) == 0 {
		return schemaErrorf("", "explode of %q has no destination columns", source)
	}
	for _, dest := range dests {
		if dest != source && t.HasColumn(dest) {
			return schemaErrorf("", "explode destination column %q already in table", dest)
		}
	}

	exploded := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		parts := split(CellString(row[srcIdx]))
		if len(parts) != len(dests) {
			return schemaErrorf("", "exploding %q produced %d parts, expected %d (row %d)",
				source, len(parts), len(dests), i)
		}
		exploded[i] = parts
	}

	t.DropColumns(source)
	t.Columns = append(t.Columns, dests...)
	for i := range t.Rows {
		for _, part := range exploded[i] {
			t.Rows[i] = append(t.Rows[i], part)
		}
	}
	return nil
}
