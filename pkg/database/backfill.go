package database

import (
	"errors"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCourseName = "Default Course"
	defaultExamName   = "Default Exam"
)

// BackfillDefaultScope assigns documents without a course and problems
// without an exam to sentinel "Default Course" / "Default Exam" rows.
// Databases created before scoping existed carry such rows; fresh ones
// do not, and the backfill is a no-op. Safe to run on every startup.
func BackfillDefaultScope(db *gorm.DB) error {
	var orphanDocs, orphanProblems int64
	if err := db.Model(&model.Document{}).Where("course_id = ''").Count(&orphanDocs).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Problem{}).Where("exam_id = ''").Count(&orphanProblems).Error; err != nil {
		return err
	}
	if orphanDocs == 0 && orphanProblems == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		course, err := getOrCreateCourse(tx, defaultCourseName)
		if err != nil {
			return err
		}
		exam, err := getOrCreateExam(tx, course.CourseID, defaultExamName)
		if err != nil {
			return err
		}

		if orphanDocs > 0 {
			if err := tx.Model(&model.Document{}).Where("course_id = ''").
				Update("course_id", course.CourseID).Error; err != nil {
				return err
			}
		}
		if orphanProblems > 0 {
			if err := tx.Model(&model.Problem{}).Where("exam_id = ''").
				Update("exam_id", exam.ExamID).Error; err != nil {
				return err
			}
		}

		logger.Log.Info("backfilled default scope",
			zap.Int64("documents", orphanDocs),
			zap.Int64("problems", orphanProblems))
		return nil
	})
}

func getOrCreateCourse(tx *gorm.DB, name string) (*model.Course, error) {
	var course model.Course
	err := tx.Where("name = ?", name).First(&course).Error
	if err == nil {
		return &course, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	course = model.Course{CourseID: model.NewID("course"), Name: name, CreatedAt: time.Now()}
	if err := tx.Create(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func getOrCreateExam(tx *gorm.DB, courseID, name string) (*model.Exam, error) {
	var exam model.Exam
	err := tx.Where("course_id = ? AND name = ?", courseID, name).First(&exam).Error
	if err == nil {
		return &exam, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	exam = model.Exam{ExamID: model.NewID("exam"), CourseID: courseID, Name: name, CreatedAt: time.Now()}
	if err := tx.Create(&exam).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}
