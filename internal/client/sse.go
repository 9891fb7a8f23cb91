package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/pkg/logger"
)

// SSESource subscribes to the server's event stream endpoint over
// Server-Sent Events, one connection per query.
type SSESource struct {
	BaseURL string
	Token   string
	// Client may be overridden for tests. Streaming connections must not
	// carry a timeout; silence is valid.
	Client *http.Client
}

func (s *SSESource) Subscribe(q eventstore.Query) (Handle, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(s.BaseURL, "/") + "/api/stream?query=" + url.QueryEscape(string(raw))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "text/event-stream")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransientNetworkError{Message: "event stream connect failed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream rejected: %s", resp.Status)
	}

	h := &sseHandle{
		resp:  resp,
		snaps: make(chan eventstore.Snapshot, 16),
	}
	go h.read()
	return h, nil
}

type sseHandle struct {
	resp  *http.Response
	snaps chan eventstore.Snapshot

	mu     sync.Mutex
	closed bool
	err    error
}

func (h *sseHandle) Snapshots() <-chan eventstore.Snapshot { return h.snaps }

func (h *sseHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *sseHandle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	// Unblocks the reader; read() then closes the snapshot channel.
	h.resp.Body.Close()
}

// read parses the wire format: "event:"/"data:" lines, blank-line delimited,
// comment lines (heartbeats) ignored.
func (h *sseHandle) read() {
	defer close(h.snaps)

	scanner := bufio.NewScanner(h.resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var eventName string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == "snapshot" && data.Len() > 0 {
				h.dispatch(data.String())
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		err := scanner.Err()
		if err == nil {
			err = fmt.Errorf("event stream closed by server")
		}
		h.err = err
	}
}

func (h *sseHandle) dispatch(payload string) {
	var snap eventstore.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		logger.Warn().Err(err).Msg("malformed snapshot on event stream")
		return
	}
	// Never block the reader: snapshots are complete, so when the consumer
	// lags the oldest queued one is superseded and can go.
	for {
		select {
		case h.snaps <- snap:
			return
		default:
			select {
			case <-h.snaps:
			default:
			}
		}
	}
}
