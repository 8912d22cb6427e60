package database

import (
	"path/filepath"
	"testing"
	"time"

	"course_qa_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Course{}, &model.Exam{}, &model.Assignment{},
		&model.Document{}, &model.ExamDocument{}, &model.Chunk{},
		&model.Problem{}, &model.Question{}, &model.RetrievalEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBackfillAssignsOrphansToDefaultScope(t *testing.T) {
	db := newTestDB(t)

	orphanDoc := model.Document{
		DocID: "doc_legacy", CourseID: "", OriginalFilename: "old.txt",
		ExtractedText: "legacy", ContentHash: "h", UploadedAt: time.Now(),
	}
	orphanProblem := model.Problem{
		ProblemID: "prob_legacy", ExamID: "", ProblemText: "legacy", UploadedAt: time.Now(),
	}
	if err := db.Create(&orphanDoc).Error; err != nil {
		t.Fatalf("seed doc: %v", err)
	}
	if err := db.Create(&orphanProblem).Error; err != nil {
		t.Fatalf("seed problem: %v", err)
	}

	if err := BackfillDefaultScope(db); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	var course model.Course
	if err := db.Where("name = ?", defaultCourseName).First(&course).Error; err != nil {
		t.Fatalf("default course missing: %v", err)
	}
	var exam model.Exam
	if err := db.Where("name = ? AND course_id = ?", defaultExamName, course.CourseID).First(&exam).Error; err != nil {
		t.Fatalf("default exam missing: %v", err)
	}

	var doc model.Document
	if err := db.First(&doc, "doc_id = ?", "doc_legacy").Error; err != nil {
		t.Fatalf("reload doc: %v", err)
	}
	if doc.CourseID != course.CourseID {
		t.Errorf("document not assigned to default course: %q", doc.CourseID)
	}
	var problem model.Problem
	if err := db.First(&problem, "problem_id = ?", "prob_legacy").Error; err != nil {
		t.Fatalf("reload problem: %v", err)
	}
	if problem.ExamID != exam.ExamID {
		t.Errorf("problem not assigned to default exam: %q", problem.ExamID)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	orphan := model.Document{
		DocID: "doc_legacy", CourseID: "", OriginalFilename: "old.txt",
		ExtractedText: "legacy", ContentHash: "h", UploadedAt: time.Now(),
	}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("seed doc: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := BackfillDefaultScope(db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var courseCount int64
	if err := db.Model(&model.Course{}).Count(&courseCount).Error; err != nil {
		t.Fatalf("count courses: %v", err)
	}
	if courseCount != 1 {
		t.Errorf("repeated backfill created %d courses, want 1", courseCount)
	}
}

func TestBackfillSkipsCleanDatabase(t *testing.T) {
	db := newTestDB(t)

	if err := BackfillDefaultScope(db); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	var courseCount int64
	if err := db.Model(&model.Course{}).Count(&courseCount).Error; err != nil {
		t.Fatalf("count courses: %v", err)
	}
	if courseCount != 0 {
		t.Errorf("clean database should stay untouched, got %d courses", courseCount)
	}
}
