package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richarddahl/ruleflow/model"
	"github.com/stretchr/testify/require"
)

func terminalRecord(id string, status model.ExecutionStatus) model.ExecutionRecord {
	return model.ExecutionRecord{
		Id:             id,
		WorkflowId:     "wf-1",
		TriggerEventId: "ev-1",
		Status:         status,
		ExecutedAt:     time.Now(),
	}
}

func TestLogFileCollectorWritesJsonLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	collector, err := NewLogFileCollector(Config{FileName: path, FlushInterval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, collector.Record(terminalRecord("e1", model.EXECUTION_STATUS_SUCCESS)))
	require.NoError(t, collector.Record(terminalRecord("e2", model.EXECUTION_STATUS_FAILED)))
	require.NoError(t, collector.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.ExecutionRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		ids = append(ids, record.Id)
	}
	require.Equal(t, []string{"e1", "e2"}, ids)
}

type memoryCollector struct {
	records []model.ExecutionRecord
	done    chan struct{}
}

func (m *memoryCollector) Record(record model.ExecutionRecord) error {
	m.records = append(m.records, record)
	if len(m.records) == cap(m.records) {
		close(m.done)
	}
	return nil
}

func (m *memoryCollector) Close() error { return nil }

func TestTailSkipsNonTerminalRecords(t *testing.T) {
	collector := &memoryCollector{records: make([]model.ExecutionRecord, 0, 2), done: make(chan struct{})}
	updates := make(chan model.ExecutionRecord, 4)
	updates <- terminalRecord("e1", model.EXECUTION_STATUS_PENDING)
	updates <- terminalRecord("e1", model.EXECUTION_STATUS_RUNNING)
	updates <- terminalRecord("e1", model.EXECUTION_STATUS_SUCCESS)
	updates <- terminalRecord("e2", model.EXECUTION_STATUS_FAILED)

	ctx, cancel := context.WithCancel(context.Background())
	go Tail(ctx, updates, collector)

	select {
	case <-collector.done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector never saw the terminal records")
	}
	cancel()
	require.Len(t, collector.records, 2)
	require.Equal(t, model.EXECUTION_STATUS_SUCCESS, collector.records[0].Status)
	require.Equal(t, model.EXECUTION_STATUS_FAILED, collector.records[1].Status)
}
