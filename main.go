package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/withObsrvr/settlement-etl-workflow/consumer"
	"github.com/withObsrvr/settlement-etl-workflow/processor"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

type PipelineConfig struct {
	Name       string                      `yaml:"name"`
	Source     SourceConfig                `yaml:"source"`
	Processors []processor.ProcessorConfig `yaml:"processors"`
	Consumers  []consumer.ConsumerConfig   `yaml:"consumers"`
}

func main() {
	configFile := flag.String("config", "pipeline_config.yaml", "Path to pipeline configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	configBytes, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatalf("Error reading config file %s: %v", *configFile, err)
	}

	var config Config
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}

	for name, pipelineConfig := range config.Pipelines {
		log.Printf("Starting pipeline: %s", name)
		if err := setupPipeline(ctx, pipelineConfig); err != nil {
			log.Printf("Pipeline error: error in pipeline %s: %v", name, err)
		}
	}

	log.Printf("All pipelines finished.")
}

func createSourceAdapter(sourceConfig SourceConfig) (SourceAdapter, error) {
	switch sourceConfig.Type {
	case "FSCaptureSourceAdapter":
		return NewFSCaptureSourceAdapter(sourceConfig.Config)
	case "ProcessedDirectorySourceAdapter":
		return NewProcessedDirectorySourceAdapter(sourceConfig.Config)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceConfig.Type)
	}
}

func createProcessor(processorConfig processor.ProcessorConfig) (processor.Processor, error) {
	switch processorConfig.Type {
	case "SettlementSchemaNormalizer":
		return processor.NewSettlementSchemaNormalizer(processorConfig.Config)
	case "LastUpdatedExploder":
		return processor.NewLastUpdatedExploder(processorConfig.Config)
	case "ContractMonthPivot":
		return processor.NewContractMonthPivot(processorConfig.Config)
	case "FieldCoalescer":
		return processor.NewFieldCoalescer(processorConfig.Config)
	case "ContractMonthRanker":
		return processor.NewContractMonthRanker(processorConfig.Config)
	case "NumericCleanser":
		return processor.NewNumericCleanser(processorConfig.Config)
	case "ExportFormatter":
		return processor.NewExportFormatter(processorConfig.Config)
	case "CrossRunCombiner":
		return processor.NewCrossRunCombiner(processorConfig.Config)
	default:
		return nil, fmt.Errorf("unsupported processor type: %s", processorConfig.Type)
	}
}

func createConsumer(consumerConfig consumer.ConsumerConfig) (processor.Processor, error) {
	switch consumerConfig.Type {
	case "SaveToCSV":
		return consumer.NewSaveToCSV(consumerConfig.Config)
	case "SaveToExcel":
		return consumer.NewSaveToExcel(consumerConfig.Config)
	case "SaveToPostgreSQL":
		return consumer.NewSaveToPostgreSQL(consumerConfig.Config)
	case "SaveToSQLite":
		return consumer.NewSaveToSQLite(consumerConfig.Config)
	case "SaveLatestToRedis":
		return consumer.NewSaveLatestToRedis(consumerConfig.Config)
	case "StdoutSink":
		return consumer.NewStdoutSink(), nil
	default:
		return nil, fmt.Errorf("unsupported consumer type: %s", consumerConfig.Type)
	}
}

// buildProcessorChain chains processors sequentially and subscribes all consumers to the last processor
func buildProcessorChain(processors []processor.Processor, consumers []processor.Processor) {
	var lastProcessor processor.Processor

	for _, p := range processors {
		if lastProcessor != nil {
			lastProcessor.Subscribe(p)
			log.Printf("Chained processor %T -> %T", lastProcessor, p)
		}
		lastProcessor = p
	}

	if lastProcessor != nil {
		for _, c := range consumers {
			lastProcessor.Subscribe(c)
			log.Printf("Chained processor %T -> consumer %T", lastProcessor, c)
		}
	} else if len(consumers) > 0 {
		for i := 1; i < len(consumers); i++ {
			consumers[0].Subscribe(consumers[i])
			log.Printf("Chained consumer %T -> consumer %T", consumers[0], consumers[i])
		}
	}
}

func setupPipeline(ctx context.Context, pipelineConfig PipelineConfig) error {
	source, err := createSourceAdapter(pipelineConfig.Source)
	if err != nil {
		return fmt.Errorf("error creating source: %w", err)
	}

	processors := make([]processor.Processor, len(pipelineConfig.Processors))
	for i, procConfig := range pipelineConfig.Processors {
		proc, err := createProcessor(procConfig)
		if err != nil {
			return fmt.Errorf("error creating processor %s: %w", procConfig.Type, err)
		}
		processors[i] = proc
	}

	consumers := make([]processor.Processor, len(pipelineConfig.Consumers))
	for i, consConfig := range pipelineConfig.Consumers {
		cons, err := createConsumer(consConfig)
		if err != nil {
			return fmt.Errorf("error creating consumer %s: %w", consConfig.Type, err)
		}
		consumers[i] = cons
	}

	buildProcessorChain(processors, consumers)

	if len(processors) > 0 {
		source.Subscribe(processors[0])
	} else if len(consumers) > 0 {
		source.Subscribe(consumers[0])
	}

	return source.Run(ctx)
}
