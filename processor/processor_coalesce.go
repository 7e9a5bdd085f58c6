package processor

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// CoalesceGroup names one destination column and the member columns that
// feed it, in priority order. The first non-missing member value wins per
// row.
type CoalesceGroup struct {
	Dest    string
	Members []string
}

// FieldMapping declares how a logical field is located in a pivoted table:
// member columns are the "<field>: <metric>" columns whose field part is in
// Fields, taken in table order. Declaring the mapping once replaces the
// old habit of re-deriving member sets by column-name pattern on every
// table.
type FieldMapping struct {
	Dest   string
	Fields []string
}

// The pivot duplicates each per-capture field once per metric; these four
// logical fields are collapsed back to single columns.
var defaultFieldMappings = []FieldMapping{
	{Dest: "collected_date", Fields: []string{"collected_date"}},
	{Dest: "updated_date", Fields: []string{"last_updated_date"}},
	{Dest: "updated_time_zone", Fields: []string{"last_updated_time_zone"}},
	{Dest: "updated_time", Fields: []string{"last_updated_time_local"}},
}

// Coalesce collapses each group's member columns into one destination
// column holding the first non-missing value per row, members taken in the
// group's order. Member columns are dropped; the destination takes the
// position of the group's first member. A group whose members are absent
// from the table is schema drift and fails loudly.
func Coalesce(t *Table, groups []CoalesceGroup) (*Table, error) {
	memberOf := make(map[string]int) // column -> group index
	firstMember := make(map[int]string)
	for gi, group := range groups {
		if len(group.Members) == 0 {
			return nil, schemaErrorf("", "coalesce group %q matched no columns", group.Dest)
		}
		for _, m := range group.Members {
			if t.ColumnIndex(m) < 0 {
				return nil, schemaErrorf("", "coalesce group %q member %q not in table", group.Dest, m)
			}
			if _, taken := memberOf[m]; taken {
				return nil, schemaErrorf("", "column %q belongs to more than one coalesce group", m)
			}
			memberOf[m] = gi
		}
		if gOwner, isMember := memberOf[group.Dest]; t.HasColumn(group.Dest) && (!isMember || gOwner != gi) {
			return nil, schemaErrorf("", "coalesce destination %q collides with an existing column", group.Dest)
		}
		firstMember[gi] = group.Members[0]
	}

	// New column layout: the destination sits where the group's first
	// member was; other members disappear.
	var newColumns []string
	for _, col := range t.Columns {
		gi, isMember := memberOf[col]
		if !isMember {
			newColumns = append(newColumns, col)
			continue
		}
		if firstMember[gi] == col {
			newColumns = append(newColumns, groups[gi].Dest)
		}
	}

	out := NewTable(newColumns...)
	memberIdx := make(map[int][]int, len(groups))
	for gi, group := range groups {
		for _, m := range group.Members {
			memberIdx[gi] = append(memberIdx[gi], t.ColumnIndex(m))
		}
	}

	for _, row := range t.Rows {
		newRow := make([]interface{}, 0, len(newColumns))
		for i, col := range t.Columns {
			gi, isMember := memberOf[col]
			if !isMember {
				newRow = append(newRow, row[i])
				continue
			}
			if firstMember[gi] != col {
				continue
			}
			var value interface{}
			for _, idx := range memberIdx[gi] {
				if !IsMissing(row[idx]) {
					value = row[idx]
					break
				}
			}
			newRow = append(newRow, value)
		}
		out.Rows = append(out.Rows, newRow)
	}
	return out, nil
}

// ResolveFieldMappings turns declarative field mappings into concrete
// coalesce groups for one pivoted table. Member order is the table's column
// order, which is also the coalesce priority order.
func ResolveFieldMappings(t *Table, mappings []FieldMapping) []CoalesceGroup {
	groups := make([]CoalesceGroup, 0, len(mappings))
	for _, mapping := range mappings {
		group := CoalesceGroup{Dest: mapping.Dest}
		for _, col := range t.Columns {
			field, _, ok := strings.Cut(col, ": ")
			if !ok {
				continue
			}
			for _, want := range mapping.Fields {
				if field == want {
					group.Members = append(group.Members, col)
					break
				}
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// FieldCoalescer collapses the per-metric duplicates of the capture-level
// fields (collected date, updated date/time/zone) into single columns.
type FieldCoalescer struct {
	mappings   []FieldMapping
	processors []Processor
}

func NewFieldCoalescer(config map[string]interface{}) (*FieldCoalescer, error) {
	c := &FieldCoalescer{mappings: defaultFieldMappings}

	if raw, ok := config["groups"].([]interface{}); ok {
		c.mappings = nil
		for _, entry := range raw {
			m, ok := entry.(map[interface{}]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid groups entry: %v", entry)
			}
			dest, _ := m["dest"].(string)
			if dest == "" {
				return nil, fmt.Errorf("groups entry missing 'dest': %v", entry)
			}
			mapping := FieldMapping{Dest: dest}
			fields, _ := m["fields"].([]interface{})
			for _, f := range fields {
				name, ok := f.(string)
				if !ok {
					return nil, fmt.Errorf("invalid fields entry for %q: %v", dest, f)
				}
				mapping.Fields = append(mapping.Fields, name)
			}
			c.mappings = append(c.mappings, mapping)
		}
	}

	return c, nil
}

func (c *FieldCoalescer) Subscribe(receiver Processor) {
	c.processors = append(c.processors, receiver)
}

func (c *FieldCoalescer) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	groups := ResolveFieldMappings(env.Table, c.mappings)
	coalesced, err := Coalesce(env.Table, groups)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	log.Printf("Coalesced %d field groups for capture %s", len(groups), env.RunID)

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: coalesced}, c.processors)
}
