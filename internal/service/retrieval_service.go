package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/vectorstore"
	"course_qa_backend/pkg/logger"
	"course_qa_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RetrievalService owns the write path (search at problem creation, log
// every hit) and the read path (per-problem chunks, exam leaderboards).
// Reads never touch the vector index; they are served entirely from the
// retrieval log.
type RetrievalService struct {
	Logs    *repository.RetrievalLogRepository
	Exams   *repository.ExamRepository
	Vectors *vectorstore.Store

	// Cache is optional; nil disables leaderboard caching.
	Cache    *redis.Client
	CacheTTL time.Duration

	DefaultTopK int
}

func NewRetrievalService(
	logs *repository.RetrievalLogRepository,
	exams *repository.ExamRepository,
	vectors *vectorstore.Store,
	cache *redis.Client,
	cacheTTL time.Duration,
	defaultTopK int,
) *RetrievalService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RetrievalService{
		Logs:        logs,
		Exams:       exams,
		Vectors:     vectors,
		Cache:       cache,
		CacheTTL:    cacheTTL,
		DefaultTopK: defaultTopK,
	}
}

// IndexProblemContext searches the vector index for the problem's text and
// logs every hit. It runs once, when the problem is created; later reads
// replay the log.
//
// The search scope is the explicit override when given, otherwise the
// exam's attached documents. An empty scope means there is nothing to
// search: no query runs and nothing is logged.
func (s *RetrievalService) IndexProblemContext(ctx context.Context, problemText, examID, problemID string, k int, allowedDocIDs []string) error {
	if k <= 0 {
		k = s.DefaultTopK
	}

	scope := allowedDocIDs
	if len(scope) == 0 {
		var err error
		scope, err = s.Exams.DocumentIDs(examID)
		if err != nil {
			return fmt.Errorf("resolve exam scope: %w", err)
		}
	}
	if len(scope) == 0 {
		logger.Log.Info("no documents in scope, skipping retrieval",
			zap.String("problemId", problemID),
			zap.String("examId", examID))
		return nil
	}

	results, err := s.Vectors.Search(ctx, problemText, k, scope)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	monitoring.SearchesPerformed.Inc()

	for _, res := range results {
		if err := s.Logs.Log(problemID, res.Chunk.ChunkID, res.Similarity); err != nil {
			return fmt.Errorf("log retrieval: %w", err)
		}
	}
	s.bumpExamVersion(ctx, examID)

	logger.Log.Info("problem context indexed",
		zap.String("problemId", problemID),
		zap.String("examId", examID),
		zap.Int("hits", len(results)))
	return nil
}

// GetChunksForProblem replays the retrieval log for one problem, highest
// similarity first. Chunks deleted since logging are silently absent.
func (s *RetrievalService) GetChunksForProblem(problemID string) ([]repository.RetrievedChunk, error) {
	return s.Logs.ChunksForProblem(problemID)
}

func (s *RetrievalService) TopChunksForExam(ctx context.Context, examID, strategy string, limit int) ([]repository.RankedChunk, error) {
	key, ok := s.cacheKey(ctx, "chunks", examID, strategy, limit)
	if ok {
		var cached []repository.RankedChunk
		if s.cacheGet(ctx, key, &cached) {
			return cached, nil
		}
	}

	ranked, err := s.Logs.TopChunksForExam(examID, strategy, limit)
	if err != nil {
		return nil, err
	}
	if ok {
		s.cacheSet(ctx, key, ranked)
	}
	return ranked, nil
}

func (s *RetrievalService) TopDocumentsForExam(ctx context.Context, examID, strategy string, limit int) ([]repository.RankedDocument, error) {
	key, ok := s.cacheKey(ctx, "docs", examID, strategy, limit)
	if ok {
		var cached []repository.RankedDocument
		if s.cacheGet(ctx, key, &cached) {
			return cached, nil
		}
	}

	ranked, err := s.Logs.TopDocumentsForExam(examID, strategy, limit)
	if err != nil {
		return nil, err
	}
	if ok {
		s.cacheSet(ctx, key, ranked)
	}
	return ranked, nil
}

// Cache keys embed a per-exam version counter that is bumped on every log
// write, so stale leaderboards simply stop being addressed instead of
// needing explicit deletion.
func (s *RetrievalService) cacheKey(ctx context.Context, kind, examID, strategy string, limit int) (string, bool) {
	if s.Cache == nil {
		return "", false
	}
	ver, err := s.Cache.Get(ctx, "rank:ver:"+examID).Int64()
	if err != nil && err != redis.Nil {
		return "", false
	}
	return fmt.Sprintf("rank:%s:%s:%s:%d:v%d", kind, examID, strategy, limit, ver), true
}

func (s *RetrievalService) bumpExamVersion(ctx context.Context, examID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Incr(ctx, "rank:ver:"+examID).Err(); err != nil {
		logger.Log.Warn("ranking cache invalidation failed",
			zap.String("examId", examID),
			zap.Error(err))
	}
}

func (s *RetrievalService) cacheGet(ctx context.Context, key string, out interface{}) bool {
	data, err := s.Cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *RetrievalService) cacheSet(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
		logger.Log.Warn("ranking cache write failed", zap.String("key", key), zap.Error(err))
	}
}
