package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devcollab/platform/backend/internal/eventstore"
)

func sseServer(t *testing.T, frames []string, hold bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stream" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("query") == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
		if hold {
			<-r.Context().Done()
		}
	}))
}

func testQuery() eventstore.Query {
	return eventstore.Query{
		Collection: eventstore.CollectionTasks,
		Filters: []eventstore.Filter{
			{Field: "assignedTo", Op: eventstore.OpEqual, Value: uint(7)},
		},
	}
}

func waitSnapshot(t *testing.T, h Handle) eventstore.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-h.Snapshots():
		if !ok {
			t.Fatalf("snapshot channel closed early, err = %v", h.Err())
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a snapshot")
	}
	return eventstore.Snapshot{}
}

func TestSSESource_ParsesSnapshotFrames(t *testing.T) {
	frames := []string{
		": heartbeat\n\n",
		"event: snapshot\ndata: {\"subscriptionId\":\"s1\",\"collection\":\"Tasks\",\"docs\":[{\"id\":4,\"assignedTo\":7,\"status\":\"REQUESTED\"}]}\n\n",
		"event: snapshot\ndata: {\"subscriptionId\":\"s1\",\"collection\":\"Tasks\",\"docs\":[]}\n\n",
	}
	srv := sseServer(t, frames, true)
	defer srv.Close()

	source := &SSESource{BaseURL: srv.URL, Token: "token"}
	h, err := source.Subscribe(testQuery())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer h.Close()

	first := waitSnapshot(t, h)
	if first.Collection != eventstore.CollectionTasks || len(first.Docs) != 1 {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}
	if first.Docs[0].ID() != "4" {
		t.Errorf("wrong document id: %v", first.Docs[0])
	}

	// The empty snapshot is a real frame, not an end of stream.
	second := waitSnapshot(t, h)
	if len(second.Docs) != 0 {
		t.Errorf("expected an empty snapshot, got %+v", second)
	}
}

func TestSSESource_ServerCloseSurfacesError(t *testing.T) {
	srv := sseServer(t, []string{": heartbeat\n\n"}, false)
	defer srv.Close()

	source := &SSESource{BaseURL: srv.URL, Token: "token"}
	h, err := source.Subscribe(testQuery())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case _, ok := <-h.Snapshots():
		if ok {
			t.Fatal("no snapshot was sent")
		}
	case <-time.After(time.Second):
		t.Fatal("channel should close when the server hangs up")
	}
	if h.Err() == nil {
		t.Error("a server-side close is a stream failure, not a clean end")
	}
}

func TestSSESource_ClientCloseIsClean(t *testing.T) {
	srv := sseServer(t, []string{": heartbeat\n\n"}, true)
	defer srv.Close()

	source := &SSESource{BaseURL: srv.URL, Token: "token"}
	h, err := source.Subscribe(testQuery())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	h.Close()

	select {
	case _, ok := <-h.Snapshots():
		if ok {
			t.Fatal("no snapshot was sent")
		}
	case <-time.After(time.Second):
		t.Fatal("channel should close after Close")
	}
	if h.Err() != nil {
		t.Errorf("a deliberate Close must not report an error, got %v", h.Err())
	}
}

func TestSSESource_RejectedSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := &SSESource{BaseURL: srv.URL, Token: "bad"}
	if _, err := source.Subscribe(testQuery()); err == nil {
		t.Fatal("a rejected subscription must error at Subscribe time")
	}
}
