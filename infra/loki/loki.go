package loki

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	pushPath      = "/loki/api/v1/push"
	flushInterval = time.Second
	maxBatch      = 20
)

// Writer buffers log lines and ships them to Loki's push API.
// It satisfies zapcore.WriteSyncer so it can sit behind a zap core.
type Writer struct {
	url    string
	labels map[string]string
	client *http.Client

	mu     sync.Mutex
	buf    [][2]string
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// NewWriter returns nil when baseURL or job is empty.
func NewWriter(baseURL, job string, extraLabels map[string]string) *Writer {
	if baseURL == "" || job == "" {
		return nil
	}
	labels := map[string]string{"job": job}
	for k, v := range extraLabels {
		labels[k] = v
	}
	w := &Writer{
		url:    strings.TrimSuffix(baseURL, "/") + pushPath,
		labels: labels,
		client: &http.Client{Timeout: 5 * time.Second},
		buf:    make([][2]string, 0, maxBatch),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	var full bool
	w.mu.Lock()
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.buf = append(w.buf, [2]string{now, string(line)})
	}
	full = len(w.buf) >= maxBatch
	w.mu.Unlock()
	if full {
		w.flush()
	}
	return len(p), nil
}

func (w *Writer) Sync() error {
	w.flush()
	return nil
}

func (w *Writer) flushLoop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.ticker.C:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	if len(w.buf) == 0 {
		w.mu.Unlock()
		return
	}
	values := w.buf
	w.buf = make([][2]string, 0, maxBatch)
	w.mu.Unlock()

	raw, err := json.Marshal(pushRequest{Streams: []stream{{Stream: w.labels, Values: values}}})
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Close flushes what is left and stops the background flusher. Safe to call twice.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.ticker.Stop()
		close(w.done)
		w.flush()
	})
	return nil
}
