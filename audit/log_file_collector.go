package audit

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

var _ Collector = new(logFileCollector)

// logFileCollector appends one JSON line per record. Writes are buffered; a
// tick worker flushes the buffer on the configured interval so a crash loses
// at most one interval of records.
type logFileCollector struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	encoder util.EncoderDecoder[model.ExecutionRecord]
	flusher *util.TickWorker
	wg      sync.WaitGroup
}

func NewLogFileCollector(conf Config) (*logFileCollector, error) {
	file, err := os.OpenFile(conf.FileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	interval := conf.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c := &logFileCollector{
		file:    file,
		writer:  bufio.NewWriter(file),
		encoder: util.NewJsonEncoderDecoder[model.ExecutionRecord](),
	}
	c.flusher = util.NewTickWorker("audit-flush", interval, make(chan struct{}), c.flush, &c.wg)
	c.flusher.Start()
	return c, nil
}

func (c *logFileCollector) Record(record model.ExecutionRecord) error {
	data, err := c.encoder.Encode(record)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.Write(data); err != nil {
		return err
	}
	return c.writer.WriteByte('\n')
}

func (c *logFileCollector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writer.Flush(); err != nil {
		logger.Error("failed to flush audit log", zap.Error(err))
	}
}

func (c *logFileCollector) Close() error {
	if c.flusher.IsRunning() {
		c.flusher.Stop()
	}
	c.wg.Wait()
	c.flush()
	return c.file.Close()
}
