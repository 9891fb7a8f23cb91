package services

import (
	"errors"
	"testing"

	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.JoinRequest{},
		&models.Task{},
		&models.Message{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Nickname: username,
		Role:     "user",
		AuthType: "local",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func createTestProject(t *testing.T, db *gorm.DB, name string, creatorID uint) *models.Project {
	t.Helper()
	svc := NewProjectService(db)
	project, err := svc.Create(&CreateProjectRequest{Name: name}, creatorID)
	if err != nil {
		t.Fatalf("failed to create project %s: %v", name, err)
	}
	return project
}

func addTestMember(t *testing.T, db *gorm.DB, projectID, userID uint) {
	t.Helper()
	if err := db.Create(&models.ProjectMember{ProjectID: projectID, UserID: userID}).Error; err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

// wantStatus asserts err carries the given HTTP status.
func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.HTTPStatus != status {
		t.Errorf("status = %d, expected %d (message: %s)", appErr.HTTPStatus, status, appErr.Message)
	}
}
