// Package persistence implements the on-disk journal of document changes: a
// CRC-framed append-only file, a batching writer on top of it, and atomic
// snapshot files.
package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Journal is the append-only log used by the engine.
type Journal interface {
	Append(op byte, payload []byte) error
	Flush() error
	Sync() error
	Close() error
	Truncate() error
	ReplaceWith(newFilePath string) error
	Path() string
	Size() (int64, error)
}

// AOFWriter appends frames to a file through a buffered writer.
type AOFWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	fw   *FrameWriter
	path string
}

var _ Journal = (*AOFWriter)(nil)

// NewAOFWriter opens or creates the journal at path.
func NewAOFWriter(path string) (*AOFWriter, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AOF file: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &AOFWriter{
		file: file,
		buf:  buf,
		fw:   NewFrameWriter(buf),
		path: path,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
}

// Append writes one frame into the buffer. It is not durable until Flush or
// Sync.
func (a *AOFWriter) Append(op byte, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fw.WriteFrame(op, payload)
}

// Flush hands buffered frames to the OS.
func (a *AOFWriter) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Flush()
}

// Sync flushes and fsyncs.
func (a *AOFWriter) Sync() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buf.Flush(); err != nil {
		return err
	}
	return a.file.Sync()
}

func (a *AOFWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buf.Flush(); err != nil {
		_ = a.file.Close()
		return err
	}
	return a.file.Close()
}

// Truncate discards the whole journal. Called after a snapshot.
func (a *AOFWriter) Truncate() error {
	return a.TruncateTo(0)
}

// TruncateTo cuts the file at size, dropping anything buffered. Replay uses it
// to discard a torn tail.
func (a *AOFWriter) TruncateTo(size int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.Reset(a.file)
	if err := a.file.Truncate(size); err != nil {
		return err
	}
	_, err := a.file.Seek(size, io.SeekStart)
	return err
}

func (a *AOFWriter) Path() string {
	return a.path
}

// Size returns the on-disk size plus whatever is still buffered.
func (a *AOFWriter) Size() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, err := a.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size() + int64(a.buf.Buffered()), nil
}

// ReplaceWith atomically renames newFilePath over the journal and reopens it.
// Used at the end of a rewrite.
func (a *AOFWriter) ReplaceWith(newFilePath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_ = a.buf.Flush()
	_ = a.file.Close()

	if err := os.Rename(newFilePath, a.path); err != nil {
		return fmt.Errorf("failed to replace AOF file: %w", err)
	}

	file, err := openAppend(a.path)
	if err != nil {
		return fmt.Errorf("failed to reopen AOF file after replace: %w", err)
	}
	a.file = file
	a.buf.Reset(file)
	return nil
}
