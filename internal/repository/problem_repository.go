package repository

import (
	"errors"
	"fmt"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
)

type ProblemRepository struct {
	DB *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{DB: db}
}

// Create inserts a problem. When both assignment and problem number are
// set, the pair must be unique within the assignment; a collision fails
// with ErrConstraintViolation. Problems with a null number may repeat.
func (r *ProblemRepository) Create(text, examID string, assignmentID *string, problemNumber *int) (*model.Problem, error) {
	if assignmentID != nil && problemNumber != nil {
		var count int64
		err := r.DB.Model(&model.Problem{}).
			Where("assignment_id = ? AND problem_number = ?", *assignmentID, *problemNumber).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("problem %d already exists in assignment %s: %w",
				*problemNumber, *assignmentID, util.ErrConstraintViolation)
		}
	}

	problem := model.Problem{
		ProblemID:     model.NewID("prob"),
		ExamID:        examID,
		AssignmentID:  assignmentID,
		ProblemNumber: problemNumber,
		ProblemText:   text,
		UploadedAt:    time.Now(),
	}
	if err := r.DB.Create(&problem).Error; err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *ProblemRepository) FindByID(problemID string) (*model.Problem, error) {
	var problem model.Problem
	err := r.DB.Where("problem_id = ?", problemID).First(&problem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *ProblemRepository) FindByExam(examID string) ([]model.Problem, error) {
	var problems []model.Problem
	err := r.DB.Where("exam_id = ?", examID).Order("uploaded_at asc").Find(&problems).Error
	return problems, err
}

// Delete removes the problem with its questions and retrieval log rows,
// leaves first, in one transaction.
func (r *ProblemRepository) Delete(problemID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var problem model.Problem
		if err := tx.Where("problem_id = ?", problemID).First(&problem).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProblemNotFound
			}
			return err
		}
		if err := tx.Where("problem_id = ?", problemID).Delete(&model.RetrievalEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", problemID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Where("problem_id = ?", problemID).Delete(&model.Problem{}).Error
	})
}
