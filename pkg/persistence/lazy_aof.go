package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrWriterClosed is returned by Append after Close.
var ErrWriterClosed = errors.New("journal writer is closed")

// LazyAOFWriter batches frames in memory and hands them to an AOFWriter on a
// timer, when the batch fills up, or on an explicit Flush.
//
// Durability: frames reach the OS every FlushInterval and the disk every
// SyncInterval, so a crash loses at most about SyncInterval of writes.
// Close flushes and syncs everything pending.
type LazyAOFWriter struct {
	underlying *AOFWriter

	mu      sync.Mutex
	pending []Frame
	stopped bool

	flushTicker *time.Ticker
	syncTicker  *time.Ticker
	stopCh      chan struct{}
	done        sync.WaitGroup

	maxPending int
	logger     *slog.Logger
}

var _ Journal = (*LazyAOFWriter)(nil)

const (
	DefaultLazyFlushInterval = 100 * time.Millisecond
	DefaultForceSyncInterval = 1 * time.Second
	DefaultMaxBufferSize     = 1000
)

// LazyConfig tunes a LazyAOFWriter. Zero fields take the defaults.
type LazyConfig struct {
	FlushInterval time.Duration
	SyncInterval  time.Duration
	MaxPending    int
	Logger        *slog.Logger
}

// NewLazyAOFWriter wraps underlying with the default batching policy. The
// underlying writer must not be used directly afterwards.
func NewLazyAOFWriter(underlying *AOFWriter) *LazyAOFWriter {
	return NewLazyAOFWriterWithConfig(underlying, LazyConfig{})
}

func NewLazyAOFWriterWithConfig(underlying *AOFWriter, cfg LazyConfig) *LazyAOFWriter {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultLazyFlushInterval
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultForceSyncInterval
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	lw := &LazyAOFWriter{
		underlying:  underlying,
		pending:     make([]Frame, 0, cfg.MaxPending),
		flushTicker: time.NewTicker(cfg.FlushInterval),
		syncTicker:  time.NewTicker(cfg.SyncInterval),
		stopCh:      make(chan struct{}),
		maxPending:  cfg.MaxPending,
		logger:      cfg.Logger,
	}

	lw.done.Add(1)
	go lw.loop()

	lw.logger.Debug("lazy journal writer started",
		"path", underlying.Path(),
		"flush_interval", cfg.FlushInterval,
		"sync_interval", cfg.SyncInterval,
		"max_pending", cfg.MaxPending,
	)
	return lw
}

// Append queues a frame. The payload is copied. A full batch is flushed
// before Append returns.
func (lw *LazyAOFWriter) Append(op byte, payload []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.stopped {
		return ErrWriterClosed
	}
	lw.pending = append(lw.pending, Frame{Op: op, Payload: append([]byte(nil), payload...)})
	if len(lw.pending) >= lw.maxPending {
		return lw.flushLocked()
	}
	return nil
}

// Flush writes every queued frame to the OS.
func (lw *LazyAOFWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.flushLocked()
}

func (lw *LazyAOFWriter) flushLocked() error {
	if len(lw.pending) > 0 {
		for _, f := range lw.pending {
			if err := lw.underlying.Append(f.Op, f.Payload); err != nil {
				return fmt.Errorf("failed to write to AOF: %w", err)
			}
		}
		clear(lw.pending)
		lw.pending = lw.pending[:0]
	}
	if err := lw.underlying.Flush(); err != nil {
		return fmt.Errorf("failed to flush AOF buffer: %w", err)
	}
	return nil
}

// Sync flushes and fsyncs.
func (lw *LazyAOFWriter) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.flushLocked(); err != nil {
		return err
	}
	return lw.underlying.Sync()
}

// Close stops the background loop, persists pending frames and closes the file.
func (lw *LazyAOFWriter) Close() error {
	lw.mu.Lock()
	if lw.stopped {
		lw.mu.Unlock()
		return ErrWriterClosed
	}
	lw.stopped = true
	lw.mu.Unlock()

	close(lw.stopCh)
	lw.done.Wait()
	lw.flushTicker.Stop()
	lw.syncTicker.Stop()

	lw.mu.Lock()
	defer lw.mu.Unlock()
	if err := lw.flushLocked(); err != nil {
		lw.logger.Error("failed to flush journal during close", "error", err)
	}
	if err := lw.underlying.Sync(); err != nil {
		lw.logger.Error("failed to sync journal during close", "error", err)
	}
	return lw.underlying.Close()
}

func (lw *LazyAOFWriter) Path() string {
	return lw.underlying.Path()
}

// Size includes frames still queued in memory.
func (lw *LazyAOFWriter) Size() (int64, error) {
	lw.mu.Lock()
	queued := int64(0)
	for _, f := range lw.pending {
		queued += int64(HeaderSize + len(f.Payload))
	}
	lw.mu.Unlock()

	size, err := lw.underlying.Size()
	return size + queued, err
}

// Truncate drops queued frames and empties the file.
func (lw *LazyAOFWriter) Truncate() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	clear(lw.pending)
	lw.pending = lw.pending[:0]
	return lw.underlying.Truncate()
}

// ReplaceWith flushes queued frames and swaps in newFilePath.
func (lw *LazyAOFWriter) ReplaceWith(newFilePath string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.flushLocked(); err != nil {
		return err
	}
	return lw.underlying.ReplaceWith(newFilePath)
}

func (lw *LazyAOFWriter) loop() {
	defer lw.done.Done()
	for {
		select {
		case <-lw.flushTicker.C:
			if err := lw.Flush(); err != nil {
				lw.logger.Error("periodic journal flush failed", "error", err)
			}
		case <-lw.syncTicker.C:
			if err := lw.Sync(); err != nil {
				lw.logger.Error("periodic journal sync failed", "error", err)
			}
		case <-lw.stopCh:
			return
		}
	}
}
