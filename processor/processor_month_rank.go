package processor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
)

// RankContractMonth derives a sortable integer rank of the form YYYYMM from
// a contract-month label. The label is split on a hyphen if one is present,
// otherwise on whitespace; whichever token is purely numeric is the year
// fragment (low-order two digits, century fixed to 20xx) and the other is
// the month abbreviation. Both "DEC 2020" and "31-Feb" style orderings rank
// the same way. An unrecognized month abbreviation is an error, never a
// guess.
func RankContractMonth(months MonthIndex, label string) (int, error) {
	var tokens []string
	if strings.Contains(label, "-") {
		tokens = strings.Split(label, "-")
	} else {
		tokens = strings.Fields(label)
	}
	if len(tokens) != 2 {
		return 0, fmt.Errorf("contract month label %q does not split into two tokens", label)
	}

	first, second := strings.TrimSpace(tokens[0]), strings.TrimSpace(tokens[1])
	var yearToken, monthToken string
	if _, err := strconv.Atoi(first); err == nil {
		yearToken, monthToken = first, second
	} else if _, err := strconv.Atoi(second); err == nil {
		yearToken, monthToken = second, first
	} else {
		return 0, fmt.Errorf("contract month label %q has no numeric year token", label)
	}

	monthIdx, ok := months.Lookup(monthToken)
	if !ok {
		return 0, fmt.Errorf("unrecognized month abbreviation %q in contract month label %q", monthToken, label)
	}

	if len(yearToken) > 2 {
		yearToken = yearToken[len(yearToken)-2:]
	} else if len(yearToken) == 1 {
		yearToken = "0" + yearToken
	}

	rank, err := strconv.Atoi("20" + yearToken + monthIdx)
	if err != nil {
		return 0, fmt.Errorf("building rank for label %q: %w", label, err)
	}
	return rank, nil
}

// ContractMonthRanker adds the month_rank column and the composite
// Lookup-Key ("<collected_date> - <rank>"), then sorts rows ascending by
// rank. The Lookup-Key is unique within one day's table; cross-day identity
// is the combiner's concern.
type ContractMonthRanker struct {
	months       MonthIndex
	labelColumn  string
	dateColumn   string
	rankColumn   string
	lookupColumn string
	processors   []Processor
}

func NewContractMonthRanker(config map[string]interface{}) (*ContractMonthRanker, error) {
	r := &ContractMonthRanker{
		months:       NewMonthIndex(),
		labelColumn:  "month",
		dateColumn:   "collected_date",
		rankColumn:   "month_rank",
		lookupColumn: "Lookup-Key",
	}
	if label, ok := config["label_column"].(string); ok {
		r.labelColumn = label
	}
	if date, ok := config["date_column"].(string); ok {
		r.dateColumn = date
	}
	return r, nil
}

func (r *ContractMonthRanker) Subscribe(receiver Processor) {
	r.processors = append(r.processors, receiver)
}

func (r *ContractMonthRanker) Process(ctx context.Context, msg Message) error {
	env, err := ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	ranked, err := r.Rank(env.Table)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Table == "" {
			se.Table = env.RunID
		}
		return err
	}
	log.Printf("Ranked %d contract months for capture %s", ranked.NumRows(), env.RunID)

	return ForwardToProcessors(ctx, &TableEnvelope{RunID: env.RunID, Source: env.Source, Table: ranked}, r.processors)
}

// Rank returns a new table with month_rank and Lookup-Key appended and
// rows sorted ascending by rank; the input is not modified.
func (r *ContractMonthRanker) Rank(in *Table) (*Table, error) {
	labelIdx := in.ColumnIndex(r.labelColumn)
	if labelIdx < 0 {
		return nil, schemaErrorf("", "contract month column %q not in table", r.labelColumn)
	}
	dateIdx := in.ColumnIndex(r.dateColumn)
	if dateIdx < 0 {
		return nil, schemaErrorf("", "collected date column %q not in table", r.dateColumn)
	}

	t := in.Copy()
	t.Columns = append(t.Columns, r.rankColumn, r.lookupColumn)
	for i, row := range t.Rows {
		rank, err := RankContractMonth(r.months, CellString(row[labelIdx]))
		if err != nil {
			return nil, err
		}
		lookup := fmt.Sprintf("%s - %d", CellString(row[dateIdx]), rank)
		t.Rows[i] = append(row, float64(rank), lookup)
	}

	rankIdx := len(t.Columns) - 2
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i][rankIdx].(float64) < t.Rows[j][rankIdx].(float64)
	})
	return t, nil
}
