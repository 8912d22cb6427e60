package repository

import (
	"errors"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) GetOrCreate(examID, name string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.Where("exam_id = ? AND name = ?", examID, name).First(&assignment).Error
	if err == nil {
		return &assignment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	assignment = model.Assignment{
		AssignmentID: model.NewID("asg"),
		ExamID:       examID,
		Name:         name,
		CreatedAt:    time.Now(),
	}
	if err := r.DB.Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) FindByID(assignmentID string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.Where("assignment_id = ?", assignmentID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) FindByExam(examID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Where("exam_id = ?", examID).Order("created_at asc").Find(&assignments).Error
	return assignments, err
}
