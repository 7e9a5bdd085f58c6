package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// SaveToSQLite keeps a local running history of daily processed tables in
// long form, one row per (run, lookup key, metric). Useful for ad hoc
// queries without waiting for the combine job.
type SaveToSQLite struct {
	db         *sql.DB
	processors []processor.Processor
}

func NewSaveToSQLite(config map[string]interface{}) (*SaveToSQLite, error) {
	dbPath, ok := config["db_path"].(string)
	if !ok {
		dbPath = "settlement_history.sqlite"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %v", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		return nil, fmt.Errorf("failed to set SQLite pragmas: %v", err)
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS daily_settles (
            run_id         TEXT NOT NULL,
            lookup_key     TEXT NOT NULL,
            contract_month TEXT NOT NULL,
            month_rank     INTEGER NOT NULL,
            collected_date TEXT,
            metric         TEXT NOT NULL,
            prior_settle   REAL,
            created_at     TIMESTAMP NOT NULL,

            PRIMARY KEY (run_id, lookup_key, metric),
            CHECK (length(run_id) > 0),
            CHECK (length(lookup_key) > 0)
        );

        CREATE INDEX IF NOT EXISTS idx_daily_settles_metric
            ON daily_settles(metric, month_rank);
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to create daily_settles table: %v", err)
	}

	return &SaveToSQLite{db: db}, nil
}

func (c *SaveToSQLite) Subscribe(proc processor.Processor) {
	c.processors = append(c.processors, proc)
}

func (c *SaveToSQLite) Process(ctx context.Context, msg processor.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	env, err := processor.ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO daily_settles
            (run_id, lookup_key, contract_month, month_rank, collected_date,
             metric, prior_settle, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (run_id, lookup_key, metric) DO UPDATE SET
            prior_settle = excluded.prior_settle,
            created_at   = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	table := env.Table
	metrics := metricColumns(table)
	now := time.Now().UTC()
	for r := range table.Rows {
		lookupKey := processor.CellString(table.Cell(r, "Lookup-Key"))
		month := processor.CellString(table.Cell(r, "Month"))
		rank := 0
		if v, ok := table.Cell(r, "Month Rank").(float64); ok {
			rank = int(v)
		}
		collected := processor.CellString(table.Cell(r, "Collected Date"))

		for _, metric := range metrics {
			var settle interface{}
			if v, ok := table.Cell(r, metric).(float64); ok {
				settle = v
			}
			if _, err := stmt.ExecContext(ctx, env.RunID, lookupKey, month, rank,
				collected, metric, settle, now); err != nil {
				return fmt.Errorf("failed to insert settle for %s/%s: %v", lookupKey, metric, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Saved run %s (%d contract months, %d metrics) to SQLite", env.RunID, table.NumRows(), len(metrics))
	return nil
}

func (c *SaveToSQLite) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
