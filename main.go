package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridworks/tabeng/core"
	"github.com/gridworks/tabeng/core/config"
	"github.com/gridworks/tabeng/core/pipeline"
	"github.com/gridworks/tabeng/core/worker"
)

const sampleDataJSON = `[
	{"name": "Alice Smith",   "region": "EU", "status": "active",   "revenue": 1200.50, "signup": "2024-01-15"},
	{"name": "Bob Jones",     "region": "EU", "status": "inactive", "revenue": 340.00,  "signup": "2023-11-02"},
	{"name": "Carol White",   "region": "US", "status": "active",   "revenue": 2890.75, "signup": "2024-03-20"},
	{"name": "Dan Brown",     "region": "US", "status": "active",   "revenue": 95.10,   "signup": "2022-07-09"},
	{"name": "Eve Davis",     "region": "APAC", "status": "active", "revenue": 788.00,  "signup": "2024-02-28"},
	{"name": "Frank Miller",  "region": "EU", "status": "active",   "revenue": 1510.25, "signup": "2023-12-12"}
]`

const sampleQuery = `query {
	Customers {
		edges {
			node {
				id
				name
				region
			}
		}
	}
}`

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	svc, err := worker.NewService(worker.Options{
		Workers:       cfg.Workers,
		ParseCacheTTL: cfg.ParseCacheTTL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to start compute service: %v", err)
	}
	defer svc.Close()
	fmt.Printf("Compute service started with %d workers.\n", cfg.Workers)

	unsubscribe := svc.Events().Subscribe(string(core.ComputeSuccess), func(ctx context.Context, event core.EngineEvent) error {
		fmt.Printf("Computation %s finished: %d rows in, %d rows out.\n",
			event.RequestID, event.RowsIn, event.RowsOut)
		return nil
	})
	defer unsubscribe()

	var data []core.Row
	if err := json.Unmarshal([]byte(sampleDataJSON), &data); err != nil {
		log.Fatalf("Failed to unmarshal sample data: %v", err)
	}

	fmt.Println("Running filter + sort + group over sample customers...")
	outcome := <-svc.Submit(context.Background(), pipeline.Input{
		Data: data,
		TableFilters: map[string]core.FilterDescriptor{
			"status":  {Value: []string{"active"}},
			"revenue": {Value: ">100"},
		},
		Columns:            []string{"name", "region", "status", "revenue", "signup"},
		EnableFilter:       true,
		MultiselectColumns: []string{"status"},
		SortConfig: &core.SortConfig{
			Field:     "revenue",
			Direction: core.SortDesc,
			FieldType: core.ColumnTypeNumber,
		},
		EnableSort:  true,
		GroupFields: []string{"region"},
		ColumnTypes: map[string]core.ColumnType{
			"revenue": core.ColumnTypeNumber,
			"signup":  core.ColumnTypeDate,
		},
	})
	if outcome.Err != nil {
		log.Fatalf("Computation failed: %v", outcome.Err)
	}

	fmt.Printf("Filtered to %d rows, sorted by revenue descending.\n", len(outcome.Result.SortedData))
	for _, group := range outcome.Result.GroupedData {
		fmt.Printf("  %s: %v customers, revenue sum %v\n",
			group[core.KeyGroupValue], group[core.KeyRowCount], group["revenue"])
	}

	fmt.Println("Extracting rows from a GraphQL response...")
	response := map[string]any{
		"data": map[string]any{
			"Customers": map[string]any{
				"edges": []any{
					map[string]any{"node": map[string]any{"id": "c-1", "name": "Alice Smith", "region": "EU"}},
					map[string]any{"node": map[string]any{"id": "c-2", "name": "Carol White", "region": "US"}},
				},
			},
		},
	}
	rs := svc.Extract(response, sampleQuery)
	if rs == nil {
		log.Fatal("Extraction yielded nothing")
	}
	rs.Each(func(field string, rows []core.Row) {
		pretty, err := json.MarshalIndent(rows, "  ", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal extracted rows: %v", err)
		}
		fmt.Printf("Field %q:\n  %s\n", field, pretty)
	})
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
