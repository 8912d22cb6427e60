package database

import (
	"os"
	"path/filepath"

	"course_qa_backend/internal/config"
	"course_qa_backend/internal/model"
	"course_qa_backend/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.Course{},
		&model.Exam{},
		&model.Assignment{},
		&model.Document{},
		&model.ExamDocument{},
		&model.Chunk{},
		&model.Problem{},
		&model.Question{},
		&model.RetrievalEvent{},
	)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("database ready")
	return db, nil
}
