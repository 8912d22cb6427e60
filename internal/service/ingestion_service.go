package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"course_qa_backend/internal/chunker"
	"course_qa_backend/internal/model"
	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/util"
	"course_qa_backend/internal/vectorstore"
	"course_qa_backend/pkg/logger"
	"course_qa_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Warnings returned alongside a successful ingestion. Duplicate uploads
// are not errors: the existing document is attached to the requested
// exams and the caller is told why nothing new was stored.
const (
	WarnDuplicateContent  = "identical document already exists"
	WarnDuplicateFilename = "document of the same name already uploaded"
)

// IngestionService runs the upload pipeline: extract, dedup, chunk,
// embed, attach.
type IngestionService struct {
	Documents  *repository.DocumentRepository
	Exams      *repository.ExamRepository
	Chunks     *repository.ChunkRepository
	Extraction *ExtractionService
	Chunker    *chunker.Chunker
	Vectors    *vectorstore.Store
	Storage    *StorageService
}

func NewIngestionService(
	documents *repository.DocumentRepository,
	exams *repository.ExamRepository,
	chunks *repository.ChunkRepository,
	extraction *ExtractionService,
	ch *chunker.Chunker,
	vectors *vectorstore.Store,
	storage *StorageService,
) *IngestionService {
	return &IngestionService{
		Documents:  documents,
		Exams:      exams,
		Chunks:     chunks,
		Extraction: extraction,
		Chunker:    ch,
		Vectors:    vectors,
		Storage:    storage,
	}
}

// ProcessUpload ingests one uploaded file into a course and attaches the
// resulting document to the given exams. It returns the document, a
// warning string when a duplicate was detected (empty otherwise), and an
// error only when the pipeline actually failed.
//
// Dedup runs in two passes: content hash first, then filename. Either
// match short-circuits to attaching the existing document.
func (s *IngestionService) ProcessUpload(ctx context.Context, filename string, r io.Reader, courseID string, examIDs []string) (*model.Document, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", util.ErrReadError, filename, err)
	}

	text, err := s.Extraction.ExtractText(filename, bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	if existing, err := s.Documents.FindByCourseAndHash(courseID, util.HashContent(text)); err == nil {
		if err := s.attach(existing.DocID, examIDs); err != nil {
			return nil, "", err
		}
		logger.Log.Info("duplicate content, reusing document",
			zap.String("docId", existing.DocID),
			zap.String("courseId", courseID),
			zap.String("filename", filename))
		return existing, WarnDuplicateContent, nil
	} else if !util.IsNotFound(err) {
		return nil, "", err
	}

	if existing, err := s.Documents.FindByCourseAndFilename(courseID, filename); err == nil {
		if err := s.attach(existing.DocID, examIDs); err != nil {
			return nil, "", err
		}
		logger.Log.Info("duplicate filename, reusing document",
			zap.String("docId", existing.DocID),
			zap.String("courseId", courseID),
			zap.String("filename", filename))
		return existing, WarnDuplicateFilename, nil
	} else if !util.IsNotFound(err) {
		return nil, "", err
	}

	doc, _, err := s.Documents.Create(filename, text, courseID)
	if err != nil {
		return nil, "", fmt.Errorf("create document: %w", err)
	}

	chunks := s.Chunker.ChunkDocument(doc)
	if err := s.Chunks.SaveChunks(chunks); err != nil {
		return nil, "", fmt.Errorf("save chunks: %w", err)
	}
	if err := s.Vectors.AddChunks(ctx, chunks); err != nil {
		return nil, "", fmt.Errorf("embed chunks: %w", err)
	}

	if err := s.attach(doc.DocID, examIDs); err != nil {
		return nil, "", err
	}

	// Archive the original bytes. The extracted text in the database is
	// authoritative, so an archive failure is logged and swallowed.
	key := doc.DocID + "/" + filename
	if _, err := s.Storage.Upload(ctx, key, bytes.NewReader(raw), int64(len(raw)), "application/octet-stream"); err != nil {
		logger.Log.Warn("raw upload archive failed",
			zap.String("docId", doc.DocID),
			zap.Error(err))
	}

	monitoring.DocumentsIngested.Inc()
	monitoring.ChunksEmbedded.Add(float64(len(chunks)))
	logger.Log.Info("document ingested",
		zap.String("docId", doc.DocID),
		zap.String("courseId", courseID),
		zap.Int("chunks", len(chunks)))
	return doc, "", nil
}

func (s *IngestionService) attach(docID string, examIDs []string) error {
	for _, examID := range examIDs {
		if err := s.Exams.AttachDocuments(examID, []string{docID}); err != nil {
			return fmt.Errorf("attach document %s to exam %s: %w", docID, examID, err)
		}
	}
	return nil
}
