package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// SaveToPostgreSQL lands a combined series in long form: one row per
// (lookup key, metric) with the settle value and the shared contract-month
// and collection metadata. Re-landing the same key overwrites, so the table
// always reflects the latest combine.
type SaveToPostgreSQL struct {
	db         *sql.DB
	processors []processor.Processor
}

type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

const initSchema = `
CREATE TABLE IF NOT EXISTS settlement_series (
    id                BIGSERIAL PRIMARY KEY,
    lookup_key        TEXT NOT NULL,
    metric            TEXT NOT NULL,
    contract_month    TEXT NOT NULL,
    month_rank        INTEGER NOT NULL,
    collected_date    DATE,
    updated_date      TEXT,
    updated_time      TEXT,
    updated_time_zone TEXT,
    prior_settle      DOUBLE PRECISION,
    created_at        TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT settlement_series_key UNIQUE (lookup_key, metric)
);

CREATE INDEX IF NOT EXISTS idx_settlement_series_metric_rank
    ON settlement_series (metric, month_rank);
`

func parsePostgresConfig(config map[string]interface{}) (PostgresConfig, error) {
	var pgConfig PostgresConfig

	host, ok := config["host"].(string)
	if !ok {
		return pgConfig, fmt.Errorf("missing host in config")
	}
	pgConfig.Host = host

	if port, ok := config["port"].(int); ok {
		pgConfig.Port = port
	} else {
		pgConfig.Port = 5432
	}

	database, ok := config["database"].(string)
	if !ok {
		return pgConfig, fmt.Errorf("missing database in config")
	}
	pgConfig.Database = database

	username, ok := config["username"].(string)
	if !ok {
		return pgConfig, fmt.Errorf("missing username in config")
	}
	pgConfig.Username = username

	pgConfig.Password, _ = config["password"].(string)
	if sslMode, ok := config["ssl_mode"].(string); ok {
		pgConfig.SSLMode = sslMode
	} else {
		pgConfig.SSLMode = "disable"
	}
	if maxOpen, ok := config["max_open_conns"].(int); ok {
		pgConfig.MaxOpenConns = maxOpen
	} else {
		pgConfig.MaxOpenConns = 10
	}
	if maxIdle, ok := config["max_idle_conns"].(int); ok {
		pgConfig.MaxIdleConns = maxIdle
	} else {
		pgConfig.MaxIdleConns = 5
	}

	return pgConfig, nil
}

func NewSaveToPostgreSQL(config map[string]interface{}) (*SaveToPostgreSQL, error) {
	pgConfig, err := parsePostgresConfig(config)
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		pgConfig.Host, pgConfig.Port, pgConfig.Database,
		pgConfig.Username, pgConfig.Password, pgConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	db.SetMaxIdleConns(pgConfig.MaxIdleConns)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(initSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SaveToPostgreSQL{db: db}, nil
}

func (c *SaveToPostgreSQL) Subscribe(proc processor.Processor) {
	c.processors = append(c.processors, proc)
}

func (c *SaveToPostgreSQL) Process(ctx context.Context, msg processor.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	payloadBytes, ok := msg.Payload.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte type for message.Payload, got %T", msg.Payload)
	}

	var result processor.CombineResult
	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return fmt.Errorf("error unmarshaling combine result: %w", err)
	}
	if result.Series == nil {
		return fmt.Errorf("combine result has no series table")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO settlement_series
            (lookup_key, metric, contract_month, month_rank, collected_date,
             updated_date, updated_time, updated_time_zone, prior_settle)
        VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, $6, $7, $8, $9)
        ON CONFLICT (lookup_key, metric) DO UPDATE SET
            contract_month    = EXCLUDED.contract_month,
            month_rank        = EXCLUDED.month_rank,
            collected_date    = EXCLUDED.collected_date,
            updated_date      = EXCLUDED.updated_date,
            updated_time      = EXCLUDED.updated_time,
            updated_time_zone = EXCLUDED.updated_time_zone,
            prior_settle      = EXCLUDED.prior_settle`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	series := result.Series
	metrics := metricColumns(series)
	inserted := 0
	for r := range series.Rows {
		lookupKey := processor.CellString(series.Cell(r, "Lookup-Key"))
		month := processor.CellString(series.Cell(r, "Month"))
		rank := 0
		switch v := series.Cell(r, "Month Rank").(type) {
		case float64:
			rank = int(v)
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				rank = int(parsed)
			}
		}
		collected := processor.CellString(series.Cell(r, "Collected Date"))
		updatedDate := processor.CellString(series.Cell(r, "Updated Date"))
		updatedTime := processor.CellString(series.Cell(r, "Updated Time"))
		updatedZone := processor.CellString(series.Cell(r, "Updated Time Zone"))

		for _, metric := range metrics {
			var settle sql.NullFloat64
			switch v := series.Cell(r, metric).(type) {
			case float64:
				settle = sql.NullFloat64{Float64: v, Valid: true}
			case string:
				// tables read back from CSV carry numbers as strings
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					settle = sql.NullFloat64{Float64: parsed, Valid: true}
				}
			case nil:
				// unpriced month for this metric
			}
			if _, err := stmt.ExecContext(ctx, lookupKey, metric, month, rank,
				collected, updatedDate, updatedTime, updatedZone, settle); err != nil {
				return fmt.Errorf("failed to insert row for %s/%s: %w", lookupKey, metric, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Saved %d (lookup key, metric) rows to PostgreSQL", inserted)
	return nil
}

func (c *SaveToPostgreSQL) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
