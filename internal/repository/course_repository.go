package repository

import (
	"errors"
	"fmt"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// GetOrCreate returns the course with the given name, creating it when
// absent. The check-then-insert is not race-free across concurrent
// callers; the unique index on name is the backstop.
func (r *CourseRepository) GetOrCreate(name string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("name = ?", name).First(&course).Error
	if err == nil {
		return &course, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	course = model.Course{
		CourseID:  model.NewID("course"),
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := r.DB.Create(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByID(courseID string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("course_id = ?", courseID).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindAll() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Order("created_at asc").Find(&courses).Error
	return courses, err
}

// Delete removes the course and everything beneath it in dependency
// order, inside one transaction. It returns the IDs of the chunks that
// were removed so the caller can purge the matching vectors; the vector
// index is a separate store, so a crash between the commit and the purge
// leaves orphaned vectors (accepted inconsistency window).
func (r *CourseRepository) Delete(courseID string) ([]string, error) {
	var chunkIDs []string

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Where("course_id = ?", courseID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrCourseNotFound
			}
			return err
		}

		var docIDs []string
		if err := tx.Model(&model.Document{}).Where("course_id = ?", courseID).
			Pluck("doc_id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) > 0 {
			if err := tx.Model(&model.Chunk{}).Where("doc_id IN ?", docIDs).
				Pluck("chunk_id", &chunkIDs).Error; err != nil {
				return err
			}
		}

		var examIDs []string
		if err := tx.Model(&model.Exam{}).Where("course_id = ?", courseID).
			Pluck("exam_id", &examIDs).Error; err != nil {
			return err
		}

		var problemIDs []string
		if len(examIDs) > 0 {
			if err := tx.Model(&model.Problem{}).Where("exam_id IN ?", examIDs).
				Pluck("problem_id", &problemIDs).Error; err != nil {
				return err
			}
		}

		// Dependency order: leaves first.
		if len(problemIDs) > 0 {
			if err := tx.Where("problem_id IN ?", problemIDs).Delete(&model.RetrievalEvent{}).Error; err != nil {
				return err
			}
			if err := tx.Where("problem_id IN ?", problemIDs).Delete(&model.Question{}).Error; err != nil {
				return err
			}
			if err := tx.Where("problem_id IN ?", problemIDs).Delete(&model.Problem{}).Error; err != nil {
				return err
			}
		}
		if len(examIDs) > 0 {
			if err := tx.Where("exam_id IN ?", examIDs).Delete(&model.Assignment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("exam_id IN ?", examIDs).Delete(&model.ExamDocument{}).Error; err != nil {
				return err
			}
		}
		if len(docIDs) > 0 {
			if err := tx.Where("doc_id IN ?", docIDs).Delete(&model.Chunk{}).Error; err != nil {
				return err
			}
			if err := tx.Where("doc_id IN ?", docIDs).Delete(&model.Document{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&model.Exam{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", courseID).Delete(&model.Course{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete course %s: %w", courseID, err)
	}
	return chunkIDs, nil
}
