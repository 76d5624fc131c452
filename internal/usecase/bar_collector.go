package usecase

import (
	"context"
	"sync"
	"time"

	"ChartPulse/internal/domain/models"
	domrepo "ChartPulse/internal/domain/repository"
	applogger "ChartPulse/pkg/logger"
)

// BarCollector consumes the upstream bar feed and lands bars in the store.
// Bars are buffered and flushed by size or age so a busy feed never turns
// into per-row inserts.
type BarCollector struct {
	stream  domrepo.BarStream
	writer  domrepo.BarWriter
	metrics domrepo.Metrics
	l       *applogger.Logger

	batchSize    int
	batchTimeout time.Duration

	mu  sync.Mutex
	buf []models.Bar
}

func NewBarCollector(
	stream domrepo.BarStream,
	writer domrepo.BarWriter,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	batchSize int,
	batchTimeout time.Duration,
) *BarCollector {
	if batchSize <= 0 {
		batchSize = 500
	}
	if batchTimeout <= 0 {
		batchTimeout = 2 * time.Second
	}
	return &BarCollector{
		stream:       stream,
		writer:       writer,
		metrics:      metrics,
		l:            l,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		buf:          make([]models.Bar, 0, batchSize),
	}
}

// Start connects, subscribes, and launches the consume loop.
func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	barCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, barCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, barCh <-chan models.Bar, errCh <-chan error) {
	ticker := time.NewTicker(c.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flush(context.Background())
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("feed_stream")
				c.l.Warn("bar feed error", applogger.Error(err))
			}
		case b := <-barCh:
			if b.Symbol == "" {
				continue
			}
			c.mu.Lock()
			c.buf = append(c.buf, b)
			full := len(c.buf) >= c.batchSize
			c.mu.Unlock()
			if full {
				c.flush(ctx)
			}
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

// flush writes the buffered bars. On error the batch is dropped after
// logging; the feed replays recent bars on reconnect.
func (c *BarCollector) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buf
	c.buf = make([]models.Bar, 0, c.batchSize)
	c.mu.Unlock()

	start := time.Now()
	if err := c.writer.StoreBars(ctx, batch); err != nil {
		c.metrics.RecordError("feed_store")
		c.l.Error("bar batch write failed",
			applogger.Int("bars", len(batch)), applogger.Error(err))
		return
	}
	c.metrics.RecordLatency("feed_store", time.Since(start).Seconds())
	c.l.Debug("bar batch stored",
		applogger.Int("bars", len(batch)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
}

// Stop closes the upstream connection. The consume loop exits with its
// context.
func (c *BarCollector) Stop() error { return c.stream.Close() }
