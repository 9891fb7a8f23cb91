package services

import (
	"time"

	"github.com/devcollab/platform/backend/internal/config"
	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/internal/workflow"
	"github.com/devcollab/platform/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CleanupService purges aged rows on a schedule: old audit log entries and
// decided join requests nobody acknowledged.
type CleanupService struct {
	db            *gorm.DB
	cfg           *config.CleanupConfig
	cronScheduler *cron.Cron
}

func NewCleanupService(db *gorm.DB, cfg *config.CleanupConfig) *CleanupService {
	return &CleanupService{db: db, cfg: cfg}
}

func (s *CleanupService) StartScheduler() {
	s.cronScheduler = cron.New()

	_, err := s.cronScheduler.AddFunc(s.cfg.Schedule, func() {
		s.Run()
	})
	if err != nil {
		logger.Errorf("[Cleanup] Failed to add cron job: %v", err)
		return
	}

	s.cronScheduler.Start()
	logger.Infof("[Cleanup] Scheduler started (cron: %s)", s.cfg.Schedule)
}

func (s *CleanupService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// Run performs one cleanup pass.
func (s *CleanupService) Run() {
	if n, err := NewSystemLogService(s.db).Cleanup(s.cfg.LogRetentionDays); err != nil {
		logger.Errorf("[Cleanup] System log cleanup failed: %v", err)
	} else if n > 0 {
		logger.Infof("[Cleanup] Purged %d system log entries", n)
	}

	n, err := s.purgeStaleRequests()
	if err != nil {
		logger.Errorf("[Cleanup] Join request cleanup failed: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("[Cleanup] Purged %d stale join requests", n)
		Republish(eventstore.CollectionJoinRequests)
	}
}

// purgeStaleRequests drops decided requests past the retention window. The
// requester has had long enough to see the outcome; removing the row frees
// the pair to request again.
func (s *CleanupService) purgeStaleRequests() (int64, error) {
	days := s.cfg.RequestRetentionDays
	if days <= 0 {
		days = 14
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	result := s.db.
		Where("status <> ? AND updated_at < ?", string(workflow.RequestPending), cutoff).
		Delete(&models.JoinRequest{})
	return result.RowsAffected, result.Error
}
