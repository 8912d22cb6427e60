package util

import "errors"

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrProblemNotFound    = errors.New("problem not found")
	ErrQuestionNotFound   = errors.New("question not found")

	// ErrConstraintViolation is raised from the write path when a uniqueness
	// rule would be broken, e.g. two problems sharing a problem number
	// within the same assignment.
	ErrConstraintViolation = errors.New("constraint violation")

	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrReadError         = errors.New("failed to read file")

	// ErrRemoteFailure covers an unreachable embedding or generation
	// backend. The retrieval core itself never returns it.
	ErrRemoteFailure = errors.New("remote AI service failure")
)

// IsNotFound reports whether err is any of the entity absence sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrProblemNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}
