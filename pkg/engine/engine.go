// Package engine provides the embedded, persistent store of graph documents.
//
// It owns the in-memory documents (each a core.Graph with its undo history)
// and the on-disk journal and snapshot, and serializes every trace operation
// so callers can share one Engine between goroutines.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("./data")
//	eng, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	_ = eng.CreateDocument("cpu", nil)
//	_, err = eng.AddTraces("cpu", []core.Trace{{"y": []any{}}}, core.IndexRef{})
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"

	"github.com/sanonone/tracekit/pkg/metrics"
	"github.com/sanonone/tracekit/pkg/persistence"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrInvalidName      = errors.New("invalid document name")
	ErrClosed           = errors.New("engine is closed")
)

// Options configures persistence and maintenance.
type Options struct {
	// DataDir holds the journal and snapshot. It is created if missing.
	DataDir string

	// AofFilename names the journal. The snapshot sits next to it with a
	// .snap extension.
	AofFilename string

	// A snapshot is taken once both AutoSaveInterval has elapsed since the
	// last one and AutoSaveThreshold changes have accumulated. Zero in
	// either disables auto-saving.
	AutoSaveInterval  time.Duration
	AutoSaveThreshold int64

	// AofRewritePercentage compacts the journal once it has grown by this
	// percentage over its size after the last rewrite. Zero disables it.
	AofRewritePercentage int

	// HistoryDepth bounds each document's undo stack.
	HistoryDepth int

	// SyncWrites flushes the journal after every change instead of batching.
	SyncWrites bool

	// MaintenanceInterval is how often the background policies are checked.
	MaintenanceInterval time.Duration

	Logger *slog.Logger
}

// DefaultOptions snapshots every 60s after at least 1000 changes, rewrites
// the journal at 100% growth and keeps 100 undo steps per document.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:              dataDir,
		AofFilename:          "tracekit.aof",
		AutoSaveInterval:     60 * time.Second,
		AutoSaveThreshold:    1000,
		AofRewritePercentage: 100,
		HistoryDepth:         100,
		MaintenanceInterval:  time.Second,
	}
}

// minRewriteSize keeps tiny journals from being rewritten over and over.
const minRewriteSize = 1 << 20

// Engine is the document store. Use Open to create one and Close to release
// it.
type Engine struct {
	mu   sync.RWMutex
	docs *btree.BTreeG[*document]

	journal     persistence.Journal
	opts        Options
	aofPath     string
	snapPath    string
	aofBaseSize int64

	dirtyCounter int64
	lastSaveTime time.Time
	replaying    bool

	// adminMu serializes snapshots and rewrites.
	adminMu sync.Mutex

	logger    *slog.Logger
	isClosed  atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open loads the snapshot, replays the journal on top of it and starts the
// background maintenance loop. It returns once every document is in memory.
func Open(opts Options) (*Engine, error) {
	if opts.AofFilename == "" {
		opts.AofFilename = "tracekit.aof"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	aofPath := filepath.Join(opts.DataDir, opts.AofFilename)
	e := &Engine{
		docs:         newDocumentTree(),
		opts:         opts,
		aofPath:      aofPath,
		snapPath:     strings.TrimSuffix(aofPath, filepath.Ext(aofPath)) + ".snap",
		lastSaveTime: time.Now(),
		logger:       opts.Logger.With("component", "engine"),
		closed:       make(chan struct{}),
	}

	if err := e.loadSnapshot(); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	aof, err := persistence.NewAOFWriter(aofPath)
	if err != nil {
		return nil, err
	}
	if err := e.replayJournal(aof); err != nil {
		_ = aof.Close()
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}

	if opts.SyncWrites {
		e.journal = aof
	} else {
		e.journal = persistence.NewLazyAOFWriterWithConfig(aof, persistence.LazyConfig{Logger: opts.Logger})
	}
	e.aofBaseSize, _ = e.journal.Size()
	metrics.Documents.Set(float64(e.docs.Len()))
	metrics.JournalBytes.Set(float64(e.aofBaseSize))

	e.wg.Add(1)
	go e.backgroundTasks()

	e.logger.Info("engine opened", "data_dir", opts.DataDir, "documents", e.docs.Len())
	return e, nil
}

// Close stops maintenance and closes the journal. Every acknowledged change
// is already in the journal, so no final snapshot is taken.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.isClosed.Store(true)
		close(e.closed)
		e.wg.Wait()

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.journal != nil {
			err = e.journal.Close()
		}
	})
	return err
}

func (e *Engine) backgroundTasks() {
	defer e.wg.Done()

	interval := e.opts.MaintenanceInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			e.checkMaintenance()
		}
	}
}

// checkMaintenance applies the auto-save and rewrite policies.
func (e *Engine) checkMaintenance() {
	dirty := atomic.LoadInt64(&e.dirtyCounter)

	if e.opts.AutoSaveThreshold > 0 && e.opts.AutoSaveInterval > 0 {
		e.adminMu.Lock()
		due := dirty >= e.opts.AutoSaveThreshold && time.Since(e.lastSaveTime) >= e.opts.AutoSaveInterval
		e.adminMu.Unlock()
		if due {
			if err := e.SaveSnapshot(); err != nil {
				e.logger.Error("background snapshot failed", "error", err)
			}
		}
	}

	if err := e.journal.Flush(); err != nil {
		e.logger.Error("background journal flush failed", "error", err)
	}

	size, err := e.journal.Size()
	if err != nil {
		return
	}
	metrics.JournalBytes.Set(float64(size))

	if e.opts.AofRewritePercentage > 0 {
		e.adminMu.Lock()
		base := e.aofBaseSize
		e.adminMu.Unlock()

		threshold := max(base+base*int64(e.opts.AofRewritePercentage)/100, minRewriteSize)
		if size > threshold {
			if err := e.RewriteAOF(); err != nil {
				e.logger.Error("background journal rewrite failed", "error", err)
			}
		}
	}
}
