package service

import (
	"context"
	"fmt"
	"strings"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/repository"
	"course_qa_backend/pkg/logger"

	"go.uber.org/zap"
)

// ChatClient is the surface of the AI service the QA flow needs.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DefaultMaxContextTokens caps the context injected into a prompt. The
// character budget is four characters per token.
const DefaultMaxContextTokens = 2000

// FallbackAnswer is stored when answer generation fails. The question row
// already exists by then, so the failure degrades instead of propagating.
const FallbackAnswer = "[answer unavailable] The answer could not be generated at this time. " +
	"The retrieved course material has been saved with this question; please try asking again."

// promptStyles maps each style to its system prompt. Unknown styles fall
// back to minimal.
var promptStyles = map[model.PromptStyle]string{
	model.StyleMinimal: "You are a course assistant. Answer the student's question about the " +
		"given problem using only the provided course material. Be direct and concise.",
	model.StyleExplanatory: "You are a course assistant. Answer the student's question about the " +
		"given problem using only the provided course material. Explain your reasoning step by " +
		"step and point out which excerpt supports each step.",
	model.StyleTutoring: "You are a tutor. Do not give the final answer outright. Using only the " +
		"provided course material, guide the student toward solving the problem themselves with " +
		"hints and leading questions.",
	model.StyleSimilarity: "You are a course assistant. Using only the provided course material, " +
		"identify concepts and worked examples similar to the given problem and explain how each " +
		"one relates to it.",
}

// QAService answers questions about problems using previously logged
// retrieval context. It never searches the vector index itself.
type QAService struct {
	Questions *repository.QuestionRepository
	Problems  *repository.ProblemRepository
	Retrieval *RetrievalService
	Chat      ChatClient

	MaxContextTokens int
}

func NewQAService(
	questions *repository.QuestionRepository,
	problems *repository.ProblemRepository,
	retrieval *RetrievalService,
	chat ChatClient,
) *QAService {
	return &QAService{
		Questions:        questions,
		Problems:         problems,
		Retrieval:        retrieval,
		Chat:             chat,
		MaxContextTokens: DefaultMaxContextTokens,
	}
}

// AskQuestion records the question immediately with an empty answer, then
// generates and persists the answer in place. A generation failure stores
// a labeled fallback instead of returning an error.
func (s *QAService) AskQuestion(ctx context.Context, problemID, questionText string, style model.PromptStyle) (*model.Question, error) {
	problem, err := s.Problems.FindByID(problemID)
	if err != nil {
		return nil, err
	}

	if _, ok := promptStyles[style]; !ok {
		style = model.StyleMinimal
	}

	question, err := s.Questions.Create(problemID, questionText, style)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	retrieved, err := s.Retrieval.GetChunksForProblem(problemID)
	if err != nil {
		return nil, fmt.Errorf("load retrieval context: %w", err)
	}

	contextBlock := s.formatContext(retrieved)
	userPrompt := buildUserPrompt(problem.ProblemText, questionText, contextBlock)

	answer, err := s.Chat.Chat(ctx, promptStyles[style], userPrompt)
	if err != nil {
		logger.Log.Warn("answer generation failed, storing fallback",
			zap.String("questionId", question.QuestionID),
			zap.Error(err))
		answer = FallbackAnswer
	}

	if err := s.Questions.UpdateAnswer(question.QuestionID, answer); err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}
	question.AnswerText = answer
	return question, nil
}

func (s *QAService) FindByID(questionID string) (*model.Question, error) {
	return s.Questions.FindByID(questionID)
}

func (s *QAService) FindByProblem(problemID string) ([]model.Question, error) {
	return s.Questions.FindByProblem(problemID)
}

// formatContext renders logged chunks as labeled excerpts under a
// character budget of four characters per context token. Chunks that
// would overflow the budget are dropped, lowest similarity first (the
// input is already ordered best first).
func (s *QAService) formatContext(retrieved []repository.RetrievedChunk) string {
	maxTokens := s.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	budget := maxTokens * 4

	var b strings.Builder
	for _, rc := range retrieved {
		block := fmt.Sprintf("[Chunk %d] (Source: %s):\n%s", rc.Chunk.ChunkIndex, rc.Chunk.DocID, rc.Chunk.ChunkText)
		if b.Len()+len(block) > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
	}
	return b.String()
}

func buildUserPrompt(problemText, questionText, contextBlock string) string {
	var b strings.Builder
	if contextBlock != "" {
		b.WriteString("Course material:\n")
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}
	b.WriteString("Problem:\n")
	b.WriteString(problemText)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(questionText)
	return b.String()
}
