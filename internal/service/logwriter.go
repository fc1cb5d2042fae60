package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/pkg/logger"
)

type LogStore interface {
	Insert(ctx context.Context, entry *model.RequestLog) error
}

// RequestLogSink accepts one best-effort log write per request. The
// interceptor never learns about persistence failures.
type RequestLogSink interface {
	Write(entry *model.RequestLog)
}

// LogWriter drains log entries from a buffered channel into the store
// and, optionally, a JSONL file sink. When the buffer is full the entry
// is dropped so the request path is never blocked on logging.
type LogWriter struct {
	store     LogStore
	file      io.WriteCloser
	encoder   *json.Encoder
	logChan   chan *model.RequestLog
	done      chan struct{}
	closeOnce sync.Once
}

func NewLogWriter(store LogStore, fileSink io.WriteCloser) *LogWriter {
	w := &LogWriter{
		store:   store,
		file:    fileSink,
		logChan: make(chan *model.RequestLog, 1000),
		done:    make(chan struct{}),
	}
	if fileSink != nil {
		w.encoder = json.NewEncoder(fileSink)
	}
	go w.process()
	return w
}

func (w *LogWriter) Write(entry *model.RequestLog) {
	select {
	case w.logChan <- entry:
	default:
		logger.Warn("request log buffer full, dropping entry", "ip", entry.IPAddress, "path", entry.Path)
	}
}

func (w *LogWriter) process() {
	defer close(w.done)
	for entry := range w.logChan {
		if w.store != nil {
			if err := w.store.Insert(context.Background(), entry); err != nil {
				logger.Error("failed to persist request log", "ip", entry.IPAddress, "error", err.Error())
			}
		}
		if w.encoder != nil {
			if err := w.encoder.Encode(entry); err != nil {
				logger.Error("failed to write request log file entry", "error", err.Error())
			}
		}
	}
}

// Close drains buffered entries before returning.
func (w *LogWriter) Close() {
	w.closeOnce.Do(func() {
		close(w.logChan)
	})
	<-w.done
	if w.file != nil {
		_ = w.file.Close()
	}
}
