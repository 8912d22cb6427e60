package repository

import (
	"time"

	"course_qa_backend/internal/model"

	"gorm.io/gorm"
)

// Ranking strategies form a closed set. Each name maps to the SQL
// aggregate computed per chunk (or per document) over the retrieval log:
//
//	frequency    – how many distinct problems retrieved it (breadth)
//	weighted_sum – total similarity mass across all retrievals (strength)
//
// Unrecognized names fall back to frequency. Adding a strategy means
// extending this table, not open-ended dispatch.
const (
	StrategyFrequency   = "frequency"
	StrategyWeightedSum = "weighted_sum"
)

var rankAggregates = map[string]string{
	StrategyFrequency:   "COUNT(DISTINCT r.problem_id)",
	StrategyWeightedSum: "SUM(r.similarity_score)",
}

func aggregateFor(strategy string) string {
	if expr, ok := rankAggregates[strategy]; ok {
		return expr
	}
	return rankAggregates[StrategyFrequency]
}

// RetrievedChunk is one logged retrieval resolved against the chunk table.
type RetrievedChunk struct {
	Chunk model.Chunk
	Score float64
}

// RankedChunk is one leaderboard entry of the chunk ranking.
type RankedChunk struct {
	ChunkID string  `json:"chunkId"`
	DocID   string  `json:"docId"`
	Score   float64 `json:"score"`
}

// RankedDocument is one leaderboard entry of the document ranking.
type RankedDocument struct {
	DocID            string  `json:"docId"`
	OriginalFilename string  `json:"originalFilename"`
	Score            float64 `json:"score"`
}

type RetrievalLogRepository struct {
	DB *gorm.DB
}

func NewRetrievalLogRepository(db *gorm.DB) *RetrievalLogRepository {
	return &RetrievalLogRepository{DB: db}
}

// Log appends one retrieval event. The log is append-only: rows are never
// updated or deduplicated, and repeated retrievals of the same
// (problem, chunk) pair accumulate.
func (r *RetrievalLogRepository) Log(problemID, chunkID string, score float64) error {
	event := model.RetrievalEvent{
		ProblemID:       problemID,
		ChunkID:         chunkID,
		SimilarityScore: score,
		Timestamp:       time.Now(),
	}
	return r.DB.Create(&event).Error
}

// ChunksForProblem returns the logged chunks for a problem in descending
// score order. The inner join against the chunk table silently skips log
// rows whose chunk has since been deleted.
func (r *RetrievalLogRepository) ChunksForProblem(problemID string) ([]RetrievedChunk, error) {
	type row struct {
		model.Chunk
		SimilarityScore float64
	}
	var rows []row
	err := r.DB.
		Table("retrieval_log r").
		Select("c.chunk_id, c.doc_id, c.chunk_text, c.chunk_index, r.similarity_score").
		Joins("JOIN chunks c ON c.chunk_id = r.chunk_id").
		Where("r.problem_id = ?", problemID).
		Order("r.similarity_score DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]RetrievedChunk, 0, len(rows))
	for _, rr := range rows {
		out = append(out, RetrievedChunk{Chunk: rr.Chunk, Score: rr.SimilarityScore})
	}
	return out, nil
}

// TopChunksForExam aggregates the retrieval log across all problems of an
// exam and returns the top chunks under the chosen strategy, descending,
// ties broken by chunk ID ascending. limit <= 0 yields an empty result
// with no query executed.
func (r *RetrievalLogRepository) TopChunksForExam(examID, strategy string, limit int) ([]RankedChunk, error) {
	if limit <= 0 {
		return []RankedChunk{}, nil
	}

	var ranked []RankedChunk
	err := r.DB.
		Table("retrieval_log r").
		Select("c.chunk_id, c.doc_id, "+aggregateFor(strategy)+" AS score").
		Joins("JOIN problems p ON p.problem_id = r.problem_id").
		Joins("JOIN chunks c ON c.chunk_id = r.chunk_id").
		Where("p.exam_id = ?", examID).
		Group("c.chunk_id, c.doc_id").
		Order("score DESC, c.chunk_id ASC").
		Limit(limit).
		Scan(&ranked).Error
	if err != nil {
		return nil, err
	}
	return ranked, nil
}

// TopDocumentsForExam is the document-level counterpart of
// TopChunksForExam: retrieval events are grouped by the owning document.
func (r *RetrievalLogRepository) TopDocumentsForExam(examID, strategy string, limit int) ([]RankedDocument, error) {
	if limit <= 0 {
		return []RankedDocument{}, nil
	}

	var ranked []RankedDocument
	err := r.DB.
		Table("retrieval_log r").
		Select("d.doc_id, d.original_filename, "+aggregateFor(strategy)+" AS score").
		Joins("JOIN problems p ON p.problem_id = r.problem_id").
		Joins("JOIN chunks c ON c.chunk_id = r.chunk_id").
		Joins("JOIN documents d ON d.doc_id = c.doc_id").
		Where("p.exam_id = ?", examID).
		Group("d.doc_id, d.original_filename").
		Order("score DESC, d.doc_id ASC").
		Limit(limit).
		Scan(&ranked).Error
	if err != nil {
		return nil, err
	}
	return ranked, nil
}

// CountForProblem reports how many retrieval events a problem has logged.
func (r *RetrievalLogRepository) CountForProblem(problemID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.RetrievalEvent{}).Where("problem_id = ?", problemID).Count(&count).Error
	return count, err
}
