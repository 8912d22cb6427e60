package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Course{},
		&model.Exam{},
		&model.Assignment{},
		&model.Document{},
		&model.ExamDocument{},
		&model.Chunk{},
		&model.Problem{},
		&model.Question{},
		&model.RetrievalEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCourseGetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)

	first, err := repo.GetOrCreate("Algorithms")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.GetOrCreate("Algorithms")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.CourseID != second.CourseID {
		t.Errorf("same name produced two courses: %s vs %s", first.CourseID, second.CourseID)
	}

	all, err := repo.FindAll()
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 course, got %d", len(all))
	}
}

func TestDocumentDedupIsScopedByCourse(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)

	text := "lecture notes on binary search trees"

	docA, created, err := docs.Create("notes.txt", text, "course-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatal("first upload should be created")
	}

	// Same content in the same course comes back as the existing row,
	// even under a different filename.
	docB, created, err := docs.Create("renamed.txt", text, "course-1")
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if created {
		t.Error("identical content in the same course should not create a new document")
	}
	if docB.DocID != docA.DocID {
		t.Errorf("expected existing doc %s, got %s", docA.DocID, docB.DocID)
	}
	if docB.OriginalFilename != "notes.txt" {
		t.Errorf("existing document's filename should be preserved, got %q", docB.OriginalFilename)
	}

	// The same content in a different course is a new document.
	docC, created, err := docs.Create("notes.txt", text, "course-2")
	if err != nil {
		t.Fatalf("cross-course create: %v", err)
	}
	if !created {
		t.Error("same content in a different course should create a new document")
	}
	if docC.DocID == docA.DocID {
		t.Error("cross-course documents must not share an ID")
	}
	if docC.ContentHash != docA.ContentHash {
		t.Error("identical content must hash identically across courses")
	}
}

func TestProblemNumberingUniqueness(t *testing.T) {
	db := newTestDB(t)
	problems := NewProblemRepository(db)

	asgID := "asg_1"

	if _, err := problems.Create("prove it", "exam_1", strPtr(asgID), intPtr(3)); err != nil {
		t.Fatalf("first numbered problem: %v", err)
	}

	_, err := problems.Create("prove it again", "exam_1", strPtr(asgID), intPtr(3))
	if !errors.Is(err, util.ErrConstraintViolation) {
		t.Errorf("duplicate (assignment, number) should violate constraint, got %v", err)
	}

	// Unnumbered problems in the same assignment may repeat freely.
	if _, err := problems.Create("warmup", "exam_1", strPtr(asgID), nil); err != nil {
		t.Fatalf("first unnumbered problem: %v", err)
	}
	if _, err := problems.Create("another warmup", "exam_1", strPtr(asgID), nil); err != nil {
		t.Fatalf("second unnumbered problem: %v", err)
	}

	// The same number under a different assignment is fine.
	if _, err := problems.Create("prove it elsewhere", "exam_1", strPtr("asg_2"), intPtr(3)); err != nil {
		t.Fatalf("same number, different assignment: %v", err)
	}
}

func TestAttachDocumentsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	exams := NewExamRepository(db)

	if err := exams.AttachDocuments("exam_1", []string{"doc_a", "doc_b"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := exams.AttachDocuments("exam_1", []string{"doc_a", "doc_b"}); err != nil {
		t.Fatalf("re-attach: %v", err)
	}

	docIDs, err := exams.DocumentIDs("exam_1")
	if err != nil {
		t.Fatalf("document IDs: %v", err)
	}
	if len(docIDs) != 2 {
		t.Errorf("expected 2 links after re-attach, got %d", len(docIDs))
	}
}

// rankingFixture seeds a course with one exam, two documents and three
// chunks, then logs four retrievals:
//
//	p1 -> cA 0.9, p1 -> cB 0.5, p2 -> cA 0.8, p2 -> cC 0.7
//
// giving frequency cA=2 cB=1 cC=1 and weighted_sum cA=1.7 cC=0.7 cB=0.5.
func rankingFixture(t *testing.T, db *gorm.DB) (examID string, cA, cB, cC string) {
	t.Helper()

	now := time.Now()
	if err := db.Create(&model.Course{CourseID: "course_1", Name: "Databases", CreatedAt: now}).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	if err := db.Create(&model.Exam{ExamID: "exam_1", CourseID: "course_1", Name: "Midterm", CreatedAt: now}).Error; err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	docA := model.Document{DocID: "doc_a", CourseID: "course_1", OriginalFilename: "a.txt", ExtractedText: "a", ContentHash: util.HashContent("a"), UploadedAt: now}
	docB := model.Document{DocID: "doc_b", CourseID: "course_1", OriginalFilename: "b.txt", ExtractedText: "b", ContentHash: util.HashContent("b"), UploadedAt: now}
	if err := db.Create(&[]model.Document{docA, docB}).Error; err != nil {
		t.Fatalf("seed documents: %v", err)
	}

	cA = model.ChunkID("doc_a", 0)
	cB = model.ChunkID("doc_a", 1)
	cC = model.ChunkID("doc_b", 0)
	chunks := []model.Chunk{
		{ChunkID: cA, DocID: "doc_a", ChunkText: "trees", ChunkIndex: 0},
		{ChunkID: cB, DocID: "doc_a", ChunkText: "hashing", ChunkIndex: 1},
		{ChunkID: cC, DocID: "doc_b", ChunkText: "joins", ChunkIndex: 0},
	}
	if err := db.Create(&chunks).Error; err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	problems := []model.Problem{
		{ProblemID: "prob_1", ExamID: "exam_1", ProblemText: "q1", UploadedAt: now},
		{ProblemID: "prob_2", ExamID: "exam_1", ProblemText: "q2", UploadedAt: now},
	}
	if err := db.Create(&problems).Error; err != nil {
		t.Fatalf("seed problems: %v", err)
	}

	logs := NewRetrievalLogRepository(db)
	for _, ev := range []struct {
		problemID string
		chunkID   string
		score     float64
	}{
		{"prob_1", cA, 0.9},
		{"prob_1", cB, 0.5},
		{"prob_2", cA, 0.8},
		{"prob_2", cC, 0.7},
	} {
		if err := logs.Log(ev.problemID, ev.chunkID, ev.score); err != nil {
			t.Fatalf("log event: %v", err)
		}
	}
	return "exam_1", cA, cB, cC
}

func TestTopChunksByFrequency(t *testing.T) {
	db := newTestDB(t)
	examID, cA, cB, cC := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	ranked, err := logs.TopChunksForExam(examID, StrategyFrequency, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked chunks, got %d", len(ranked))
	}
	// cA hit by two distinct problems; cB and cC tie at one and fall
	// back to chunk ID order.
	want := []string{cA, cB, cC}
	for i, w := range want {
		if ranked[i].ChunkID != w {
			t.Errorf("rank %d: expected %s, got %s", i, w, ranked[i].ChunkID)
		}
	}
	if ranked[0].Score != 2 {
		t.Errorf("top chunk frequency: expected 2, got %v", ranked[0].Score)
	}
}

func TestTopChunksByWeightedSum(t *testing.T) {
	db := newTestDB(t)
	examID, cA, cB, cC := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	ranked, err := logs.TopChunksForExam(examID, StrategyWeightedSum, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked chunks, got %d", len(ranked))
	}
	want := []string{cA, cC, cB}
	for i, w := range want {
		if ranked[i].ChunkID != w {
			t.Errorf("rank %d: expected %s, got %s", i, w, ranked[i].ChunkID)
		}
	}
	if diff := ranked[0].Score - 1.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("top chunk weighted sum: expected 1.7, got %v", ranked[0].Score)
	}
}

func TestUnknownStrategyFallsBackToFrequency(t *testing.T) {
	db := newTestDB(t)
	examID, cA, _, _ := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	ranked, err := logs.TopChunksForExam(examID, "recency", 1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 1 || ranked[0].ChunkID != cA || ranked[0].Score != 2 {
		t.Errorf("unknown strategy should rank by frequency, got %+v", ranked)
	}
}

func TestRankingWithNonPositiveLimit(t *testing.T) {
	db := newTestDB(t)
	examID, _, _, _ := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	for _, limit := range []int{0, -3} {
		chunks, err := logs.TopChunksForExam(examID, StrategyFrequency, limit)
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if len(chunks) != 0 {
			t.Errorf("limit %d: expected empty result, got %d rows", limit, len(chunks))
		}
		docs, err := logs.TopDocumentsForExam(examID, StrategyFrequency, limit)
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if len(docs) != 0 {
			t.Errorf("limit %d: expected empty result, got %d rows", limit, len(docs))
		}
	}
}

func TestTopDocumentsForExam(t *testing.T) {
	db := newTestDB(t)
	examID, _, _, _ := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	byFreq, err := logs.TopDocumentsForExam(examID, StrategyFrequency, 10)
	if err != nil {
		t.Fatalf("rank by frequency: %v", err)
	}
	if len(byFreq) != 2 {
		t.Fatalf("expected 2 ranked documents, got %d", len(byFreq))
	}
	if byFreq[0].DocID != "doc_a" || byFreq[0].Score != 2 {
		t.Errorf("expected doc_a with frequency 2 first, got %+v", byFreq[0])
	}
	if byFreq[0].OriginalFilename != "a.txt" {
		t.Errorf("expected filename a.txt, got %q", byFreq[0].OriginalFilename)
	}

	bySum, err := logs.TopDocumentsForExam(examID, StrategyWeightedSum, 10)
	if err != nil {
		t.Fatalf("rank by weighted sum: %v", err)
	}
	if bySum[0].DocID != "doc_a" {
		t.Errorf("expected doc_a first by weighted sum, got %s", bySum[0].DocID)
	}
	if diff := bySum[0].Score - 2.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("doc_a weighted sum: expected 2.2, got %v", bySum[0].Score)
	}
}

func TestChunksForProblemSkipsStaleReferences(t *testing.T) {
	db := newTestDB(t)
	_, cA, cB, _ := rankingFixture(t, db)
	logs := NewRetrievalLogRepository(db)

	// Delete cB's row; its log entries become stale and must be skipped
	// without error.
	if err := db.Where("chunk_id = ?", cB).Delete(&model.Chunk{}).Error; err != nil {
		t.Fatalf("delete chunk: %v", err)
	}

	retrieved, err := logs.ChunksForProblem("prob_1")
	if err != nil {
		t.Fatalf("chunks for problem: %v", err)
	}
	if len(retrieved) != 1 {
		t.Fatalf("expected 1 surviving chunk, got %d", len(retrieved))
	}
	if retrieved[0].Chunk.ChunkID != cA {
		t.Errorf("expected %s, got %s", cA, retrieved[0].Chunk.ChunkID)
	}
	if retrieved[0].Score != 0.9 {
		t.Errorf("expected score 0.9, got %v", retrieved[0].Score)
	}
	if retrieved[0].Chunk.ChunkText != "trees" {
		t.Errorf("chunk text not resolved, got %q", retrieved[0].Chunk.ChunkText)
	}
}

func TestCourseDeleteCascadesAndReturnsChunkIDs(t *testing.T) {
	db := newTestDB(t)
	_, cA, cB, cC := rankingFixture(t, db)
	courses := NewCourseRepository(db)

	chunkIDs, err := courses.Delete("course_1")
	if err != nil {
		t.Fatalf("delete course: %v", err)
	}
	got := map[string]bool{}
	for _, id := range chunkIDs {
		got[id] = true
	}
	for _, want := range []string{cA, cB, cC} {
		if !got[want] {
			t.Errorf("chunk %s missing from returned IDs", want)
		}
	}

	for _, probe := range []struct {
		name  string
		model interface{}
	}{
		{"courses", &model.Course{}},
		{"exams", &model.Exam{}},
		{"documents", &model.Document{}},
		{"chunks", &model.Chunk{}},
		{"problems", &model.Problem{}},
		{"retrieval events", &model.RetrievalEvent{}},
	} {
		var count int64
		if err := db.Model(probe.model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", probe.name, err)
		}
		if count != 0 {
			t.Errorf("%s not fully deleted: %d rows remain", probe.name, count)
		}
	}

	if _, err := courses.Delete("course_1"); !errors.Is(err, util.ErrCourseNotFound) {
		t.Errorf("deleting a missing course should report not found, got %v", err)
	}
}

func TestDocumentDeleteReturnsChunkIDs(t *testing.T) {
	db := newTestDB(t)
	_, cA, cB, _ := rankingFixture(t, db)
	docs := NewDocumentRepository(db)

	chunkIDs, err := docs.Delete("doc_a")
	if err != nil {
		t.Fatalf("delete document: %v", err)
	}
	if len(chunkIDs) != 2 {
		t.Fatalf("expected 2 chunk IDs, got %d", len(chunkIDs))
	}
	got := map[string]bool{chunkIDs[0]: true, chunkIDs[1]: true}
	if !got[cA] || !got[cB] {
		t.Errorf("expected %s and %s, got %v", cA, cB, chunkIDs)
	}

	var linkCount int64
	if err := db.Model(&model.ExamDocument{}).Where("doc_id = ?", "doc_a").Count(&linkCount).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if linkCount != 0 {
		t.Errorf("exam links for deleted document remain: %d", linkCount)
	}

	if _, err := docs.FindByID("doc_a"); !errors.Is(err, util.ErrDocumentNotFound) {
		t.Errorf("deleted document should be gone, got %v", err)
	}
}

func TestDeleteChunksForDoc(t *testing.T) {
	db := newTestDB(t)
	_, cA, cB, cC := rankingFixture(t, db)
	chunks := NewChunkRepository(db)

	chunkIDs, err := chunks.DeleteChunksForDoc("doc_a")
	if err != nil {
		t.Fatalf("delete chunks: %v", err)
	}
	got := map[string]bool{}
	for _, id := range chunkIDs {
		got[id] = true
	}
	if len(chunkIDs) != 2 || !got[cA] || !got[cB] {
		t.Errorf("expected %s and %s, got %v", cA, cB, chunkIDs)
	}

	remaining, err := chunks.FindByDoc("doc_b")
	if err != nil {
		t.Fatalf("find remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ChunkID != cC {
		t.Errorf("other document's chunks should survive, got %v", remaining)
	}
}

func TestQuestionLifecycle(t *testing.T) {
	db := newTestDB(t)
	questions := NewQuestionRepository(db)

	q, err := questions.Create("prob_1", "why does quicksort degrade?", model.StyleTutoring)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if q.AnswerText != "" {
		t.Errorf("new question should start with an empty answer, got %q", q.AnswerText)
	}
	if q.PromptStyle != string(model.StyleTutoring) {
		t.Errorf("prompt style not recorded: %q", q.PromptStyle)
	}

	if err := questions.UpdateAnswer(q.QuestionID, "pivot choice on sorted input"); err != nil {
		t.Fatalf("update answer: %v", err)
	}
	updated, err := questions.FindByID(q.QuestionID)
	if err != nil {
		t.Fatalf("find question: %v", err)
	}
	if updated.AnswerText != "pivot choice on sorted input" {
		t.Errorf("answer not persisted: %q", updated.AnswerText)
	}

	if err := questions.UpdateAnswer("missing", "x"); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Errorf("updating a missing question should report not found, got %v", err)
	}
}
