package audit

import (
	"context"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"go.uber.org/zap"
)

type CollectorType string

const LOG_FILE_COLLECTOR CollectorType = "LOG_FILE_COLLECTOR"

type Config struct {
	FileName      string
	CollectorType CollectorType
	FlushInterval time.Duration
}

// Collector persists terminal execution records for offline analysis. Records
// arrive from the recorder update stream, already in their final state.
type Collector interface {
	Record(record model.ExecutionRecord) error
	Close() error
}

func NewCollector(conf Config) (Collector, error) {
	switch conf.CollectorType {
	case LOG_FILE_COLLECTOR:
		return NewLogFileCollector(conf)
	}
	return nil, nil
}

// Tail drains the recorder update stream into the collector until ctx is
// cancelled. Non-terminal updates are skipped; a record that fails to persist
// is logged and dropped rather than stalling the stream.
func Tail(ctx context.Context, updates <-chan model.ExecutionRecord, collector Collector) {
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-updates:
			if !ok {
				return
			}
			if !record.Status.IsTerminal() {
				continue
			}
			if err := collector.Record(record); err != nil {
				logger.Error("failed to collect execution record",
					zap.String("execution", record.Id), zap.Error(err))
			}
		}
	}
}
