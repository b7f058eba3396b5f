package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridworks/tabeng/core"
	"github.com/gridworks/tabeng/core/pipeline"
)

func sampleInput() pipeline.Input {
	return pipeline.Input{
		Data: []core.Row{
			{"name": "Widget", "price": float64(10)},
			{"name": "Gadget", "price": float64(25)},
			{"name": "Doodad", "price": float64(5)},
		},
		TableFilters: map[string]core.FilterDescriptor{"price": {Value: ">6"}},
		Columns:      []string{"name", "price"},
		EnableFilter: true,
		SortConfig: &core.SortConfig{
			Field:     "price",
			Direction: core.SortAsc,
			FieldType: core.ColumnTypeNumber,
		},
		EnableSort:  true,
		ColumnTypes: map[string]core.ColumnType{"price": core.ColumnTypeNumber},
	}
}

func TestServiceSubmitDeliversResult(t *testing.T) {
	svc, err := NewService(Options{Workers: 2}, nil)
	require.NoError(t, err)
	defer svc.Close()

	outcome := <-svc.Submit(context.Background(), sampleInput())
	require.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Result)
	require.Len(t, outcome.Result.SortedData, 2)
	assert.Equal(t, "Widget", outcome.Result.SortedData[0]["name"])
	assert.Equal(t, "Gadget", outcome.Result.SortedData[1]["name"])
}

func TestServiceSubmitWithCancelledContext(t *testing.T) {
	svc, err := NewService(Options{Workers: 1}, nil)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The cancelled context resolves the future either at queueing time
	// or at the worker boundary; both carry the context's error.
	outcome := <-svc.Submit(ctx, sampleInput())
	require.Error(t, outcome.Err)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestServiceSubmitAfterClose(t *testing.T) {
	svc, err := NewService(Options{Workers: 1}, nil)
	require.NoError(t, err)
	svc.Close()

	outcome := <-svc.Submit(context.Background(), sampleInput())
	assert.ErrorIs(t, outcome.Err, ErrClosed)
}

func TestServiceCloseIsIdempotent(t *testing.T) {
	svc, err := NewService(Options{Workers: 1}, nil)
	require.NoError(t, err)
	svc.Close()
	svc.Close()
}

func TestServiceEmitsLifecycleEvents(t *testing.T) {
	svc, err := NewService(Options{Workers: 1}, nil)
	require.NoError(t, err)
	defer svc.Close()

	events := make(chan core.EngineEvent, 4)
	record := func(_ context.Context, event core.EngineEvent) error {
		events <- event
		return nil
	}
	unsubStart := svc.Events().Subscribe(string(core.ComputeStart), record)
	defer unsubStart()
	unsubSuccess := svc.Events().Subscribe(string(core.ComputeSuccess), record)
	defer unsubSuccess()

	outcome := <-svc.Submit(context.Background(), sampleInput())
	require.NoError(t, outcome.Err)

	seen := map[core.EngineEventType]core.EngineEvent{}
	for len(seen) < 2 {
		select {
		case event := <-events:
			seen[event.Type] = event
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", seen)
		}
	}

	start := seen[core.ComputeStart]
	success := seen[core.ComputeSuccess]
	assert.Equal(t, 3, start.RowsIn)
	assert.Equal(t, start.RequestID, success.RequestID)
	assert.Equal(t, 2, success.RowsOut)
	require.NotNil(t, success.Duration)
	assert.Nil(t, success.Error)
}

func TestServiceConcurrentSubmissions(t *testing.T) {
	svc, err := NewService(Options{Workers: 4}, nil)
	require.NoError(t, err)
	defer svc.Close()

	futures := make([]<-chan Outcome, 0, 8)
	for i := 0; i < 8; i++ {
		futures = append(futures, svc.Submit(context.Background(), sampleInput()))
	}
	ids := map[string]bool{}
	for _, f := range futures {
		outcome := <-f
		require.NoError(t, outcome.Err)
		require.NotNil(t, outcome.Result)
		ids[outcome.ID.String()] = true
	}
	assert.Len(t, ids, 8, "each submission carries its own id")
}

func TestServiceExtract(t *testing.T) {
	svc, err := NewService(Options{Workers: 1, ParseCacheTTL: time.Minute}, nil)
	require.NoError(t, err)
	defer svc.Close()

	query := `query { items { edges { node { id name } } } }`
	response := map[string]any{
		"data": map[string]any{
			"items": map[string]any{
				"edges": []any{
					map[string]any{"node": map[string]any{"id": "1", "name": "Widget"}},
					map[string]any{"node": map[string]any{"id": "2", "name": "Gadget"}},
				},
			},
		},
	}

	rs := svc.Extract(response, query)
	require.NotNil(t, rs)
	rows := rs.Rows("items")
	require.Len(t, rows, 2)
	assert.Equal(t, "Widget", rows[0]["name"])
}

func TestServiceExtractEmitsEvents(t *testing.T) {
	svc, err := NewService(Options{Workers: 1}, nil)
	require.NoError(t, err)
	defer svc.Close()

	events := make(chan core.EngineEvent, 2)
	unsub := svc.Events().Subscribe(string(core.ExtractFailed), func(_ context.Context, event core.EngineEvent) error {
		events <- event
		return nil
	})
	defer unsub()

	rs := svc.Extract(map[string]any{}, "query { viewer { id } }")
	assert.Nil(t, rs)

	select {
	case event := <-events:
		assert.Equal(t, core.ExtractFailed, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for extract event")
	}
}
