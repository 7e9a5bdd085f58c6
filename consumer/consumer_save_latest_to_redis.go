package consumer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/withObsrvr/settlement-etl-workflow/processor"
)

// SaveLatestToRedis caches each metric's front-month settle from the most
// recent run, so dashboards can read current prices without touching the
// files or the database.
type SaveLatestToRedis struct {
	client     *redis.Client
	keyPrefix  string
	processors []processor.Processor
}

func NewSaveLatestToRedis(config map[string]interface{}) (*SaveLatestToRedis, error) {
	address, ok := config["redis_address"].(string)
	if !ok {
		return nil, fmt.Errorf("missing redis_address in config")
	}

	password, _ := config["redis_password"].(string)
	dbNum, _ := config["redis_db"].(int)
	keyPrefix, _ := config["key_prefix"].(string)
	if keyPrefix == "" {
		keyPrefix = "settle:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       dbNum,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &SaveLatestToRedis{client: client, keyPrefix: keyPrefix}, nil
}

func (s *SaveLatestToRedis) Subscribe(proc processor.Processor) {
	s.processors = append(s.processors, proc)
}

func (s *SaveLatestToRedis) Process(ctx context.Context, msg processor.Message) error {
	env, err := processor.ExtractEnvelope(msg)
	if err != nil {
		return err
	}

	table := env.Table
	metrics := metricColumns(table)
	pipe := s.client.Pipeline()

	stored := 0
	for _, metric := range metrics {
		// Rows are sorted ascending by rank; the first priced row is the
		// front month.
		for r := range table.Rows {
			settle, ok := table.Cell(r, metric).(float64)
			if !ok {
				continue
			}
			key := s.keyPrefix + "latest:" + metric
			pipe.HSet(ctx, key, map[string]interface{}{
				"prior_settle":   settle,
				"contract_month": processor.CellString(table.Cell(r, "Month")),
				"collected_date": processor.CellString(table.Cell(r, "Collected Date")),
				"updated_at":     time.Now().UTC().Format(time.RFC3339),
			})
			stored++
			break
		}
	}

	// Keep a bounded history of which runs have landed.
	historyKey := s.keyPrefix + "runs"
	pipe.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: env.RunID,
	})
	pipe.ZRemRangeByRank(ctx, historyKey, 0, -366)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error executing Redis pipeline: %w", err)
	}

	log.Printf("Cached front-month settles for %d of %d metrics from run %s", stored, len(metrics), env.RunID)
	return nil
}

func (s *SaveLatestToRedis) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
