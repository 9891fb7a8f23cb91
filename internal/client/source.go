package client

import "github.com/devcollab/platform/backend/internal/eventstore"

// Handle is one live subscription on a snapshot source. Snapshots() yields
// complete result sets until the handle is closed or the stream dies; after
// the channel closes, Err() reports why (nil for a local Close).
type Handle interface {
	Snapshots() <-chan eventstore.Snapshot
	Err() error
	Close()
}

// Source opens query subscriptions against the event store. The manager does
// not care whether snapshots come over the network or from an in-process hub.
type Source interface {
	Subscribe(q eventstore.Query) (Handle, error)
}

// localHandle adapts an in-process hub subscription to Handle.
type localHandle struct {
	sub *eventstore.Subscription
}

func (h *localHandle) Snapshots() <-chan eventstore.Snapshot { return h.sub.C }
func (h *localHandle) Err() error                            { return nil }
func (h *localHandle) Close()                                { h.sub.Close() }

// LocalSource subscribes directly against an in-process hub. Used when client
// and server share a process, and by tests.
type LocalSource struct {
	Hub *eventstore.Hub
}

func (s *LocalSource) Subscribe(q eventstore.Query) (Handle, error) {
	sub, err := s.Hub.Subscribe(q)
	if err != nil {
		return nil, err
	}
	return &localHandle{sub: sub}, nil
}
