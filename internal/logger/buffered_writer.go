package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogFilePermissions is the mode of newly created log files.
const LogFilePermissions = 0o640

// Defaults for BufferedFileWriter.
const (
	DefaultBufferSize    = 32 * 1024
	DefaultFlushInterval = 5 * time.Second
)

// BufferedFileWriter appends to a log file through a buffer that is flushed
// on a timer, on Flush and on Close. It is safe for concurrent use.
type BufferedFileWriter struct {
	mu       sync.Mutex
	file     *os.File
	buf      *bufio.Writer
	path     string
	interval time.Duration
	size     int
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

// BufferedWriterOption configures a BufferedFileWriter.
type BufferedWriterOption func(*BufferedFileWriter)

// WithBufferSize sets the buffer size in bytes.
func WithBufferSize(size int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if size > 0 {
			w.size = size
		}
	}
}

// WithFlushInterval sets the auto-flush period. Zero disables auto-flush.
func WithFlushInterval(d time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) { w.interval = d }
}

// NewBufferedFileWriter opens path for appending, creating missing directories.
func NewBufferedFileWriter(path string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		path:     path,
		interval: DefaultFlushInterval,
		size:     DefaultBufferSize,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	w.file = file
	w.buf = bufio.NewWriterSize(file, w.size)

	if w.interval > 0 {
		w.stop = make(chan struct{})
		go w.flushLoop()
	} else {
		close(w.done)
	}
	return w, nil
}

func (w *BufferedFileWriter) flushLoop() {
	defer close(w.done)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			_ = w.Flush()
		}
	}
}

// Write buffers p.
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Flush writes buffered data to the file.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close stops auto-flush, flushes and syncs the file and closes it.
// Calling Close more than once is a no-op.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.stop != nil {
		close(w.stop)
	}
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.buf.Flush(), w.file.Sync(), w.file.Close())
}

// Path returns the log file path.
func (w *BufferedFileWriter) Path() string {
	return w.path
}
