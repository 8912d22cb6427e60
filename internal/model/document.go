package model

import "time"

// Document stores the extracted text of one upload. At most one document
// per (course_id, content_hash): identical content within a course is
// never stored twice, though the same hash may recur across courses.
type Document struct {
	DocID            string    `gorm:"primaryKey;size:64" json:"docId"`
	CourseID         string    `gorm:"size:64;not null;index;uniqueIndex:idx_doc_course_hash" json:"courseId"`
	OriginalFilename string    `gorm:"size:255;not null" json:"originalFilename"`
	ExtractedText    string    `gorm:"type:text;not null" json:"-"`
	ContentHash      string    `gorm:"size:64;not null;uniqueIndex:idx_doc_course_hash" json:"contentHash"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// ExamDocument links a document to an exam within the same course.
type ExamDocument struct {
	ExamID string `gorm:"primaryKey;size:64" json:"examId"`
	DocID  string `gorm:"primaryKey;size:64" json:"docId"`
}

func (ExamDocument) TableName() string {
	return "exam_documents"
}

// Chunk is the unit of embedding and retrieval. Chunks are written in bulk
// at ingestion time and never mutated.
type Chunk struct {
	ChunkID    string `gorm:"primaryKey;size:80" json:"chunkId"`
	DocID      string `gorm:"size:64;not null;index;uniqueIndex:idx_chunk_doc_index" json:"docId"`
	ChunkText  string `gorm:"type:text;not null" json:"chunkText"`
	ChunkIndex int    `gorm:"not null;uniqueIndex:idx_chunk_doc_index" json:"chunkIndex"`
}

func (Chunk) TableName() string {
	return "chunks"
}
