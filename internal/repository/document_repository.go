package repository

import (
	"errors"
	"fmt"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	DB *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// Create stores a new document for the course. Identical content within
// the same course is never stored twice: when a document with the same
// content hash already exists, the existing row is returned and created
// is false. The same hash may recur across different courses.
func (r *DocumentRepository) Create(filename, text, courseID string) (*model.Document, bool, error) {
	hash := util.HashContent(text)

	existing, err := r.FindByCourseAndHash(courseID, hash)
	if err != nil && !errors.Is(err, util.ErrDocumentNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	doc := model.Document{
		DocID:            model.NewID("doc"),
		CourseID:         courseID,
		OriginalFilename: filename,
		ExtractedText:    text,
		ContentHash:      hash,
		UploadedAt:       time.Now(),
	}
	if err := r.DB.Create(&doc).Error; err != nil {
		return nil, false, err
	}
	return &doc, true, nil
}

func (r *DocumentRepository) FindByID(docID string) (*model.Document, error) {
	var doc model.Document
	err := r.DB.Where("doc_id = ?", docID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) FindByCourseAndHash(courseID, hash string) (*model.Document, error) {
	var doc model.Document
	err := r.DB.Where("course_id = ? AND content_hash = ?", courseID, hash).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) FindByCourseAndFilename(courseID, filename string) (*model.Document, error) {
	var doc model.Document
	err := r.DB.Where("course_id = ? AND original_filename = ?", courseID, filename).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) FindByCourse(courseID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.DB.Where("course_id = ?", courseID).Order("uploaded_at asc").Find(&docs).Error
	return docs, err
}

// Delete removes the document, its exam links and its chunks in one
// transaction, and returns the removed chunk IDs for the vector purge.
func (r *DocumentRepository) Delete(docID string) ([]string, error) {
	var chunkIDs []string

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.Where("doc_id = ?", docID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrDocumentNotFound
			}
			return err
		}
		if err := tx.Model(&model.Chunk{}).Where("doc_id = ?", docID).
			Pluck("chunk_id", &chunkIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("doc_id = ?", docID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("doc_id = ?", docID).Delete(&model.ExamDocument{}).Error; err != nil {
			return err
		}
		return tx.Where("doc_id = ?", docID).Delete(&model.Document{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete document %s: %w", docID, err)
	}
	return chunkIDs, nil
}
