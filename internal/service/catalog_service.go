package service

import (
	"context"
	"fmt"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/vectorstore"
	"course_qa_backend/pkg/logger"

	"go.uber.org/zap"
)

// CatalogService manages the course/exam/assignment hierarchy and keeps
// the vector index in step with metadata deletes. Metadata is deleted
// first, vectors second; a crash in between leaves orphaned vectors that
// can never be returned (their chunk rows are gone) until a re-index.
type CatalogService struct {
	Courses     *repository.CourseRepository
	Exams       *repository.ExamRepository
	Assignments *repository.AssignmentRepository
	Documents   *repository.DocumentRepository
	Vectors     *vectorstore.Store
}

func NewCatalogService(
	courses *repository.CourseRepository,
	exams *repository.ExamRepository,
	assignments *repository.AssignmentRepository,
	documents *repository.DocumentRepository,
	vectors *vectorstore.Store,
) *CatalogService {
	return &CatalogService{
		Courses:     courses,
		Exams:       exams,
		Assignments: assignments,
		Documents:   documents,
		Vectors:     vectors,
	}
}

func (s *CatalogService) GetOrCreateCourse(name string) (*model.Course, error) {
	return s.Courses.GetOrCreate(name)
}

func (s *CatalogService) ListCourses() ([]model.Course, error) {
	return s.Courses.FindAll()
}

func (s *CatalogService) DeleteCourse(ctx context.Context, courseID string) error {
	chunkIDs, err := s.Courses.Delete(courseID)
	if err != nil {
		return err
	}
	if err := s.Vectors.DeleteChunks(chunkIDs); err != nil {
		return fmt.Errorf("purge vectors for course %s: %w", courseID, err)
	}
	logger.Log.Info("course deleted",
		zap.String("courseId", courseID),
		zap.Int("purgedChunks", len(chunkIDs)))
	return nil
}

func (s *CatalogService) GetOrCreateExam(courseID, name string) (*model.Exam, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		return nil, err
	}
	return s.Exams.GetOrCreate(courseID, name)
}

func (s *CatalogService) ListExams(courseID string) ([]model.Exam, error) {
	return s.Exams.FindByCourse(courseID)
}

func (s *CatalogService) ListExamDocuments(examID string) ([]model.Document, error) {
	if _, err := s.Exams.FindByID(examID); err != nil {
		return nil, err
	}
	return s.Exams.Documents(examID)
}

func (s *CatalogService) GetOrCreateAssignment(examID, name string) (*model.Assignment, error) {
	if _, err := s.Exams.FindByID(examID); err != nil {
		return nil, err
	}
	return s.Assignments.GetOrCreate(examID, name)
}

func (s *CatalogService) ListAssignments(examID string) ([]model.Assignment, error) {
	return s.Assignments.FindByExam(examID)
}

func (s *CatalogService) ListCourseDocuments(courseID string) ([]model.Document, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		return nil, err
	}
	return s.Documents.FindByCourse(courseID)
}

func (s *CatalogService) DeleteDocument(ctx context.Context, docID string) error {
	chunkIDs, err := s.Documents.Delete(docID)
	if err != nil {
		return err
	}
	if err := s.Vectors.DeleteChunks(chunkIDs); err != nil {
		return fmt.Errorf("purge vectors for document %s: %w", docID, err)
	}
	logger.Log.Info("document deleted",
		zap.String("docId", docID),
		zap.Int("purgedChunks", len(chunkIDs)))
	return nil
}
