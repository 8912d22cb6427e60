package service

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"course_qa_backend/internal/chunker"
	"course_qa_backend/internal/config"
	"course_qa_backend/internal/model"
	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/util"
	"course_qa_backend/internal/vectorstore"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// hashEmbedder is a deterministic bag-of-words embedder so tests never
// call a real API.
type hashEmbedder struct{ dim int }

func (e hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim]++
	}
	return vec, nil
}

func (e hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type fakeChat struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeChat) Chat(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type testEnv struct {
	db        *gorm.DB
	courses   *repository.CourseRepository
	exams     *repository.ExamRepository
	documents *repository.DocumentRepository
	chunks    *repository.ChunkRepository
	problems  *repository.ProblemRepository
	questions *repository.QuestionRepository
	logs      *repository.RetrievalLogRepository
	vectors   *vectorstore.Store
	ingestion *IngestionService
	retrieval *RetrievalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Course{}, &model.Exam{}, &model.Assignment{},
		&model.Document{}, &model.ExamDocument{}, &model.Chunk{},
		&model.Problem{}, &model.Question{}, &model.RetrievalEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	vectors, err := vectorstore.New(t.TempDir(), hashEmbedder{dim: 64}, 4)
	if err != nil {
		t.Fatalf("vector store: %v", err)
	}

	env := &testEnv{
		db:        db,
		courses:   repository.NewCourseRepository(db),
		exams:     repository.NewExamRepository(db),
		documents: repository.NewDocumentRepository(db),
		chunks:    repository.NewChunkRepository(db),
		problems:  repository.NewProblemRepository(db),
		questions: repository.NewQuestionRepository(db),
		logs:      repository.NewRetrievalLogRepository(db),
		vectors:   vectors,
	}
	storage := &StorageService{Provider: &LocalStorageProvider{
		Config: &config.StorageConfig{LocalPath: t.TempDir()},
	}}
	env.ingestion = NewIngestionService(
		env.documents, env.exams, env.chunks,
		NewExtractionService(), chunker.NewDefault(), vectors, storage,
	)
	env.retrieval = NewRetrievalService(env.logs, env.exams, vectors, nil, time.Minute, 5)
	return env
}

func (e *testEnv) seedCourseAndExam(t *testing.T) (courseID, examID string) {
	t.Helper()
	course, err := e.courses.GetOrCreate("Operating Systems")
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	exam, err := e.exams.GetOrCreate(course.CourseID, "Final")
	if err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	return course.CourseID, exam.ExamID
}

func TestProcessUploadStoresDocumentAndChunks(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)
	ctx := context.Background()

	text := "scheduling decides which runnable process gets the cpu next"
	doc, warning, err := env.ingestion.ProcessUpload(ctx, "notes.txt", strings.NewReader(text), courseID, []string{examID})
	if err != nil {
		t.Fatalf("process upload: %v", err)
	}
	if warning != "" {
		t.Errorf("fresh upload should not warn, got %q", warning)
	}

	chunks, err := env.chunks.FindByDoc(doc.DocID)
	if err != nil {
		t.Fatalf("find chunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("upload produced no chunks")
	}
	if env.vectors.Count() != len(chunks) {
		t.Errorf("vector count %d does not match chunk count %d", env.vectors.Count(), len(chunks))
	}

	docIDs, err := env.exams.DocumentIDs(examID)
	if err != nil {
		t.Fatalf("exam documents: %v", err)
	}
	if len(docIDs) != 1 || docIDs[0] != doc.DocID {
		t.Errorf("document not attached to exam: %v", docIDs)
	}
}

func TestProcessUploadWarnsOnDuplicateContent(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)
	ctx := context.Background()

	text := "page tables map virtual addresses to physical frames"
	first, _, err := env.ingestion.ProcessUpload(ctx, "mmu.txt", strings.NewReader(text), courseID, []string{examID})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second, warning, err := env.ingestion.ProcessUpload(ctx, "renamed.txt", strings.NewReader(text), courseID, []string{examID})
	if err != nil {
		t.Fatalf("duplicate upload: %v", err)
	}
	if warning != WarnDuplicateContent {
		t.Errorf("expected %q, got %q", WarnDuplicateContent, warning)
	}
	if second.DocID != first.DocID {
		t.Errorf("duplicate content should reuse doc %s, got %s", first.DocID, second.DocID)
	}

	// No second copy of the chunks or vectors.
	chunks, _ := env.chunks.FindByDoc(first.DocID)
	if env.vectors.Count() != len(chunks) {
		t.Errorf("duplicate upload changed vector count: %d vs %d chunks", env.vectors.Count(), len(chunks))
	}
}

func TestProcessUploadWarnsOnDuplicateFilename(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)
	ctx := context.Background()

	first, _, err := env.ingestion.ProcessUpload(ctx, "syllabus.txt", strings.NewReader("week one covers processes"), courseID, []string{examID})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second, warning, err := env.ingestion.ProcessUpload(ctx, "syllabus.txt", strings.NewReader("week one covers processes and threads"), courseID, nil)
	if err != nil {
		t.Fatalf("same-name upload: %v", err)
	}
	if warning != WarnDuplicateFilename {
		t.Errorf("expected %q, got %q", WarnDuplicateFilename, warning)
	}
	if second.DocID != first.DocID {
		t.Errorf("same filename should reuse doc %s, got %s", first.DocID, second.DocID)
	}
}

func TestProcessUploadRejectsUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)

	_, _, err := env.ingestion.ProcessUpload(context.Background(), "slides.pdf", strings.NewReader("%PDF"), courseID, []string{examID})
	if !errors.Is(err, util.ErrUnsupportedFormat) {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestIndexProblemContextLogsScopedHits(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)
	ctx := context.Background()

	_, _, err := env.ingestion.ProcessUpload(ctx, "deadlock.txt",
		strings.NewReader("deadlock requires mutual exclusion hold and wait no preemption and circular wait"),
		courseID, []string{examID})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	problem, err := env.problems.Create("explain the four deadlock conditions", examID, nil, nil)
	if err != nil {
		t.Fatalf("create problem: %v", err)
	}
	if err := env.retrieval.IndexProblemContext(ctx, problem.ProblemText, examID, problem.ProblemID, 3, nil); err != nil {
		t.Fatalf("index context: %v", err)
	}

	retrieved, err := env.retrieval.GetChunksForProblem(problem.ProblemID)
	if err != nil {
		t.Fatalf("chunks for problem: %v", err)
	}
	if len(retrieved) == 0 {
		t.Fatal("expected logged retrieval hits")
	}
	for i := 1; i < len(retrieved); i++ {
		if retrieved[i].Score > retrieved[i-1].Score {
			t.Errorf("hits not ordered by score: %v before %v", retrieved[i-1].Score, retrieved[i].Score)
		}
	}
}

func TestIndexProblemContextWithEmptyScopeIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	_, examID := env.seedCourseAndExam(t)

	problem, err := env.problems.Create("anything", examID, nil, nil)
	if err != nil {
		t.Fatalf("create problem: %v", err)
	}
	// Exam has no documents attached: nothing to search, nothing logged.
	if err := env.retrieval.IndexProblemContext(context.Background(), problem.ProblemText, examID, problem.ProblemID, 5, nil); err != nil {
		t.Fatalf("index context: %v", err)
	}

	count, err := env.logs.CountForProblem(problem.ProblemID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("empty scope should log nothing, got %d events", count)
	}
}

func TestAskQuestionPersistsAnswer(t *testing.T) {
	env := newTestEnv(t)
	courseID, examID := env.seedCourseAndExam(t)
	ctx := context.Background()

	_, _, err := env.ingestion.ProcessUpload(ctx, "paging.txt",
		strings.NewReader("a page fault traps to the kernel which loads the missing page"),
		courseID, []string{examID})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	problem, err := env.problems.Create("what happens on a page fault?", examID, nil, nil)
	if err != nil {
		t.Fatalf("create problem: %v", err)
	}
	if err := env.retrieval.IndexProblemContext(ctx, problem.ProblemText, examID, problem.ProblemID, 3, nil); err != nil {
		t.Fatalf("index context: %v", err)
	}

	chat := &fakeChat{reply: "the kernel loads the missing page"}
	qa := NewQAService(env.questions, env.problems, env.retrieval, chat)

	question, err := qa.AskQuestion(ctx, problem.ProblemID, "walk me through it", model.StyleExplanatory)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if question.AnswerText != "the kernel loads the missing page" {
		t.Errorf("answer not returned: %q", question.AnswerText)
	}
	if question.PromptStyle != string(model.StyleExplanatory) {
		t.Errorf("style not recorded: %q", question.PromptStyle)
	}
	if !strings.Contains(chat.lastUser, "[Chunk 0] (Source:") {
		t.Errorf("logged context missing from prompt:\n%s", chat.lastUser)
	}
	if !strings.Contains(chat.lastUser, problem.ProblemText) {
		t.Error("problem text missing from prompt")
	}

	stored, err := env.questions.FindByID(question.QuestionID)
	if err != nil {
		t.Fatalf("reload question: %v", err)
	}
	if stored.AnswerText != question.AnswerText {
		t.Errorf("answer not persisted: %q", stored.AnswerText)
	}
}

func TestAskQuestionFallsBackWhenGenerationFails(t *testing.T) {
	env := newTestEnv(t)
	_, examID := env.seedCourseAndExam(t)

	problem, err := env.problems.Create("what is thrashing?", examID, nil, nil)
	if err != nil {
		t.Fatalf("create problem: %v", err)
	}

	chat := &fakeChat{err: errors.New("upstream down")}
	qa := NewQAService(env.questions, env.problems, env.retrieval, chat)

	question, err := qa.AskQuestion(context.Background(), problem.ProblemID, "help", model.StyleMinimal)
	if err != nil {
		t.Fatalf("ask should not fail when generation fails: %v", err)
	}
	if question.AnswerText != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", question.AnswerText)
	}
}

func TestAskQuestionUnknownStyleFallsBackToMinimal(t *testing.T) {
	env := newTestEnv(t)
	_, examID := env.seedCourseAndExam(t)

	problem, err := env.problems.Create("define locality", examID, nil, nil)
	if err != nil {
		t.Fatalf("create problem: %v", err)
	}

	chat := &fakeChat{reply: "nearby references"}
	qa := NewQAService(env.questions, env.problems, env.retrieval, chat)

	question, err := qa.AskQuestion(context.Background(), problem.ProblemID, "q", model.PromptStyle("sarcastic"))
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if question.PromptStyle != string(model.StyleMinimal) {
		t.Errorf("unknown style should fall back to minimal, got %q", question.PromptStyle)
	}
	if chat.lastSystem != promptStyles[model.StyleMinimal] {
		t.Error("minimal system prompt not used for unknown style")
	}
}

func TestExtractTextSupportedSuffixes(t *testing.T) {
	svc := NewExtractionService()
	for _, name := range []string{"a.txt", "b.MD", "c.py", "d.html", "e.css", "f.js"} {
		text, err := svc.ExtractText(name, strings.NewReader("content"))
		if err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if text != "content" {
			t.Errorf("%s: extracted %q", name, text)
		}
	}
	if _, err := svc.ExtractText("slides.pptx", strings.NewReader("x")); !errors.Is(err, util.ErrUnsupportedFormat) {
		t.Errorf("pptx should be unsupported, got %v", err)
	}
}

func TestFormatContextRespectsBudget(t *testing.T) {
	qa := &QAService{MaxContextTokens: 25} // 100-char budget

	retrieved := []repository.RetrievedChunk{
		{Chunk: model.Chunk{ChunkID: "d-chunk-0", DocID: "d", ChunkIndex: 0, ChunkText: strings.Repeat("a", 40)}, Score: 0.9},
		{Chunk: model.Chunk{ChunkID: "d-chunk-1", DocID: "d", ChunkIndex: 1, ChunkText: strings.Repeat("b", 40)}, Score: 0.8},
		{Chunk: model.Chunk{ChunkID: "d-chunk-2", DocID: "d", ChunkIndex: 2, ChunkText: strings.Repeat("c", 40)}, Score: 0.7},
	}
	out := qa.formatContext(retrieved)
	if !strings.Contains(out, "[Chunk 0]") {
		t.Error("best chunk missing from context")
	}
	if strings.Contains(out, "[Chunk 2]") {
		t.Error("budget should have cut the lowest-ranked chunk")
	}
	if len(out) > 100 {
		t.Errorf("context exceeds budget: %d chars", len(out))
	}
}
