package processor

import (
	"context"
	"log"
	"strings"
)

// Destination columns for the exploded "updated" field, in explode order.
// The military time is needed to derive the 12-hour local time but is
// dropped from the normalized table afterwards.
var explodedUpdatedColumns = []string{
	"last_updated_date",
	"last_updated_time_military",
	"last_updated_time_local",
	"last_updated_time_zone",
}

// LastUpdatedExploder replaces the free-text "updated" column with the
// decomposed date/time/zone columns and derives collected_date from the
// capture timestamp. Unparseable "updated" strings decompose to placeholder
// values rather than failing the table.
type LastUpdatedExploder struct {
	months     MonthIndex
	processors []Processor
}

func NewLastUpdatedExploder(config map[string]interface{}) (*LastUpdatedExploder, error) {
	return &LastUpdatedExploder{months: NewMonthIndex()}, nil
}

func (e *LastUpdatedExploder) Subscribe(receiver Processor) {
	e.processors = append(e.processors, receiver)
}

func (e *LastUpdatedExploder) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	exploded, err := e.Explode(env.Table)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	log.Printf("Exploded updated column for capture %s", env.RunID)

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: exploded}, e.processors)
}

// Explode returns a new table with the updated column decomposed and the
// collected_date column in place; the input is not modified.
func (e *LastUpdatedExploder) Explode(in *Table) (*Table, error) {
	t := in.Copy()

	err := ExplodeColumn(t, "updated", explodedUpdatedColumns, func(val string) []string {
		lu := DecomposeLastUpdated(e.months, val)
		return []string{lu.Date, lu.MilitaryTime, lu.LocalTime, lu.TimeZone}
	})
	if err != nil {
		return nil, err
	}
	t.DropColumns("last_updated_time_military")

	if !t.HasColumn("collected_date") {
		err := ExplodeColumn(t, "collected_timestamp", []string{"collected_date"}, func(val string) []string {
			return []string{strings.SplitN(strings.TrimSpace(val), " ", 2)[0]}
		})
		if err != nil {
			return nil, err
		}
	} else {
		t.DropColumns("collected_timestamp")
	}

	return t, nil
}
