package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CSVStats counts what a CSVAppender has written since it was opened.
type CSVStats struct {
	Rows    uint64
	Flushes uint64
}

// CSVAppender appends rows to a CSV file from many goroutines and flushes the
// buffer on a fixed interval. The header goes out only when the file is new.
type CSVAppender struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	stats  CSVStats

	stop      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenCSVAppender opens path for appending, creating parent directories as needed.
func OpenCSVAppender(path string, header []string, flushEvery time.Duration, logger *zap.Logger) (*CSVAppender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	a := &CSVAppender{
		path:     path,
		logger:   logger,
		file:     file,
		writer:   csv.NewWriter(file),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	if info.Size() == 0 && len(header) > 0 {
		a.writer.Write(header)
		a.writer.Flush()
		if err := a.writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	go a.flushLoop(flushEvery)

	return a, nil
}

// Path returns the file being appended to.
func (a *CSVAppender) Path() string {
	return a.path
}

// Append buffers one row.
func (a *CSVAppender) Append(row []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("append to closed file %s", a.path)
	}
	if err := a.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	a.stats.Rows++
	return nil
}

// Flush writes buffered rows to disk.
func (a *CSVAppender) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked()
}

func (a *CSVAppender) flushLocked() error {
	if a.file == nil {
		return nil
	}
	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	a.stats.Flushes++
	return nil
}

// Stats returns a snapshot of the counters.
func (a *CSVAppender) Stats() CSVStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *CSVAppender) flushLoop(every time.Duration) {
	defer close(a.loopDone)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Flush(); err != nil {
				a.logger.Error("Periodic CSV flush failed",
					zap.String("file", a.path),
					zap.Error(err))
			}
		case <-a.stop:
			return
		}
	}
}

// Close stops the flush loop, flushes and closes the file. Safe to call twice.
func (a *CSVAppender) Close() error {
	a.closeOnce.Do(func() {
		close(a.stop)
		<-a.loopDone

		a.mu.Lock()
		defer a.mu.Unlock()

		if err := a.flushLocked(); err != nil {
			a.closeErr = err
		}
		if err := a.file.Close(); err != nil && a.closeErr == nil {
			a.closeErr = fmt.Errorf("failed to close file: %w", err)
		}
		a.file = nil
	})
	return a.closeErr
}
