package service

import (
	"context"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/repository"
	"course_qa_backend/pkg/logger"

	"go.uber.org/zap"
)

// ProblemService creates problems and immediately indexes their retrieval
// context. Indexing happens exactly once, at creation.
type ProblemService struct {
	Problems  *repository.ProblemRepository
	Exams     *repository.ExamRepository
	Retrieval *RetrievalService
}

func NewProblemService(
	problems *repository.ProblemRepository,
	exams *repository.ExamRepository,
	retrieval *RetrievalService,
) *ProblemService {
	return &ProblemService{Problems: problems, Exams: exams, Retrieval: retrieval}
}

// Create stores the problem, then runs the scoped similarity search and
// logs the hits. An indexing failure after the insert leaves the problem
// in place with an empty retrieval log; it is reported to the caller.
func (s *ProblemService) Create(ctx context.Context, text, examID string, assignmentID *string, problemNumber *int, topK int, allowedDocIDs []string) (*model.Problem, error) {
	if _, err := s.Exams.FindByID(examID); err != nil {
		return nil, err
	}

	problem, err := s.Problems.Create(text, examID, assignmentID, problemNumber)
	if err != nil {
		return nil, err
	}

	if err := s.Retrieval.IndexProblemContext(ctx, text, examID, problem.ProblemID, topK, allowedDocIDs); err != nil {
		logger.Log.Error("indexing problem context failed",
			zap.String("problemId", problem.ProblemID),
			zap.Error(err))
		return problem, err
	}
	return problem, nil
}

func (s *ProblemService) FindByID(problemID string) (*model.Problem, error) {
	return s.Problems.FindByID(problemID)
}

func (s *ProblemService) FindByExam(examID string) ([]model.Problem, error) {
	return s.Problems.FindByExam(examID)
}

func (s *ProblemService) Delete(problemID string) error {
	return s.Problems.Delete(problemID)
}
