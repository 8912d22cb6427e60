package model

import "time"

// Problem is a single exercise the user asks questions about. When both
// AssignmentID and ProblemNumber are set the pair must be unique within
// the assignment; problems with a null number may repeat freely.
type Problem struct {
	ProblemID     string    `gorm:"primaryKey;size:64" json:"problemId"`
	ExamID        string    `gorm:"size:64;not null;index" json:"examId"`
	// SQLite treats NULLs as distinct in unique indexes, so the backstop
	// index below only bites when both fields are set.
	AssignmentID  *string   `gorm:"size:64;index;uniqueIndex:idx_problem_assignment_number" json:"assignmentId,omitempty"`
	ProblemNumber *int      `gorm:"uniqueIndex:idx_problem_assignment_number" json:"problemNumber,omitempty"`
	ProblemText   string    `gorm:"type:text;not null" json:"problemText"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

func (Problem) TableName() string {
	return "problems"
}

type PromptStyle string

const (
	StyleMinimal     PromptStyle = "minimal"
	StyleExplanatory PromptStyle = "explanatory"
	StyleTutoring    PromptStyle = "tutoring"
	StyleSimilarity  PromptStyle = "similarity"
)

// Question is created immediately on submission with an empty answer so
// an identifier exists before generation completes, then updated in place.
type Question struct {
	QuestionID   string    `gorm:"primaryKey;size:64" json:"questionId"`
	ProblemID    string    `gorm:"size:64;not null;index" json:"problemId"`
	QuestionText string    `gorm:"type:text;not null" json:"questionText"`
	AnswerText   string    `gorm:"type:text" json:"answerText"`
	PromptStyle  string    `gorm:"size:20" json:"promptStyle"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Question) TableName() string {
	return "questions"
}

// RetrievalEvent is one row of the append-only retrieval log: a chunk
// surfaced for a problem with its similarity score. Rows are never
// updated or deduplicated; they are the raw material for ranking.
type RetrievalEvent struct {
	LogID           uint      `gorm:"primaryKey;autoIncrement" json:"logId"`
	ProblemID       string    `gorm:"size:64;not null;index" json:"problemId"`
	ChunkID         string    `gorm:"size:80;not null;index" json:"chunkId"`
	SimilarityScore float64   `gorm:"not null" json:"similarityScore"`
	Timestamp       time.Time `gorm:"not null" json:"timestamp"`
}

func (RetrievalEvent) TableName() string {
	return "retrieval_log"
}
