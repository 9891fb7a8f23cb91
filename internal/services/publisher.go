package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/devcollab/platform/backend/internal/config"
	"github.com/devcollab/platform/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeRepublish = "event:republish"
)

// RepublishJob asks the worker to re-evaluate every subscription on one
// collection. Command handlers enqueue jobs after their transaction commits;
// they never touch the hub directly.
type RepublishJob struct {
	Collection string `json:"collection"`
}

// Publisher defines the interface for scheduling republish jobs
type Publisher interface {
	// Enqueue schedules a republish of the given collection
	Enqueue(job *RepublishJob) error
	// IsAsync returns true if jobs run asynchronously
	IsAsync() bool
	// Close gracefully shuts down the publisher
	Close() error
}

// Global publisher instance
var (
	globalPublisher Publisher
	publisherOnce   sync.Once
)

// InitPublisher initializes the global publisher based on config
func InitPublisher(cfg *config.Config) Publisher {
	publisherOnce.Do(func() {
		if cfg.Redis.Enabled {
			pub, err := NewAsyncPublisher(&cfg.Redis)
			if err != nil {
				logger.Infof("[Publisher] Redis unavailable, falling back to sync mode: %v", err)
				globalPublisher = NewSyncPublisher()
			} else {
				logger.Infof("[Publisher] Async publisher initialized with Redis at %s", cfg.Redis.Addr)
				globalPublisher = pub
			}
		} else {
			logger.Infof("[Publisher] Sync publisher initialized (Redis disabled)")
			globalPublisher = NewSyncPublisher()
		}
	})
	return globalPublisher
}

// GetPublisher returns the global publisher instance
func GetPublisher() Publisher {
	return globalPublisher
}

// Republish schedules a republish of collection through the global
// publisher. Safe to call before InitPublisher; the job is then dropped.
func Republish(collection string) {
	pub := GetPublisher()
	if pub == nil {
		return
	}
	if err := pub.Enqueue(&RepublishJob{Collection: collection}); err != nil {
		logger.Errorf("[Publisher] Failed to enqueue republish of %s: %v", collection, err)
	}
}

// AsyncPublisher implements Publisher using asynq (Redis-based)
type AsyncPublisher struct {
	client *asynq.Client
}

// NewAsyncPublisher creates a new Redis-based async publisher
func NewAsyncPublisher(cfg *config.RedisConfig) (*AsyncPublisher, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Test connection by pinging Redis
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	_, err := inspector.Queues()
	if err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncPublisher{client: client}, nil
}

// Enqueue schedules a republish job on the async queue
func (p *AsyncPublisher) Enqueue(job *RepublishJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeRepublish, payload)
	info, err := p.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("id", info.ID).Str("collection", job.Collection).Msg("republish enqueued")
	return nil
}

// IsAsync returns true for async publisher
func (p *AsyncPublisher) IsAsync() bool {
	return true
}

// Close closes the async publisher client
func (p *AsyncPublisher) Close() error {
	return p.client.Close()
}

// SyncPublisher implements Publisher with in-process processing (no Redis)
type SyncPublisher struct {
	processor func(context.Context, *RepublishJob) error
}

// NewSyncPublisher creates a new synchronous publisher
func NewSyncPublisher() *SyncPublisher {
	return &SyncPublisher{}
}

// SetProcessor sets the function to process jobs in-process
func (p *SyncPublisher) SetProcessor(processor func(context.Context, *RepublishJob) error) {
	p.processor = processor
}

// Enqueue processes the job immediately in a goroutine so the command
// handler's response is never blocked on fan-out
func (p *SyncPublisher) Enqueue(job *RepublishJob) error {
	if p.processor == nil {
		logger.Infof("[SyncPublisher] Warning: no processor set, job will be dropped")
		return nil
	}

	go func() {
		ctx := context.Background()
		if err := p.processor(ctx, job); err != nil {
			logger.Infof("[SyncPublisher] Job processing failed: %v", err)
		}
	}()

	return nil
}

// IsAsync returns false for sync publisher
func (p *SyncPublisher) IsAsync() bool {
	return false
}

// Close is a no-op for sync publisher
func (p *SyncPublisher) Close() error {
	return nil
}
