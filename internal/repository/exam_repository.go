package repository

import (
	"errors"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

// GetOrCreate returns the exam named name within the course, creating it
// when absent.
func (r *ExamRepository) GetOrCreate(courseID, name string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.Where("course_id = ? AND name = ?", courseID, name).First(&exam).Error
	if err == nil {
		return &exam, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	exam = model.Exam{
		ExamID:    model.NewID("exam"),
		CourseID:  courseID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := r.DB.Create(&exam).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) FindByID(examID string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.Where("exam_id = ?", examID).First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) FindByCourse(courseID string) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.Where("course_id = ?", courseID).Order("created_at asc").Find(&exams).Error
	return exams, err
}

// AttachDocuments links documents to an exam. Existing links are ignored,
// so re-attaching is idempotent.
func (r *ExamRepository) AttachDocuments(examID string, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}
	links := make([]model.ExamDocument, 0, len(docIDs))
	for _, docID := range docIDs {
		links = append(links, model.ExamDocument{ExamID: examID, DocID: docID})
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

// DocumentIDs returns the IDs of all documents attached to the exam.
// This set is the default search scope for the exam's problems.
func (r *ExamRepository) DocumentIDs(examID string) ([]string, error) {
	var docIDs []string
	err := r.DB.Model(&model.ExamDocument{}).Where("exam_id = ?", examID).
		Pluck("doc_id", &docIDs).Error
	return docIDs, err
}

func (r *ExamRepository) Documents(examID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.DB.
		Joins("JOIN exam_documents ed ON ed.doc_id = documents.doc_id").
		Where("ed.exam_id = ?", examID).
		Order("documents.uploaded_at asc").
		Find(&docs).Error
	return docs, err
}
