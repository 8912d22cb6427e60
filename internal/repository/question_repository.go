package repository

import (
	"errors"
	"time"

	"course_qa_backend/internal/model"
	"course_qa_backend/internal/util"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// Create inserts the question with an empty answer, so an identifier
// exists before generation completes.
func (r *QuestionRepository) Create(problemID, questionText string, style model.PromptStyle) (*model.Question, error) {
	question := model.Question{
		QuestionID:   model.NewID("q"),
		ProblemID:    problemID,
		QuestionText: questionText,
		AnswerText:   "",
		PromptStyle:  string(style),
		CreatedAt:    time.Now(),
	}
	if err := r.DB.Create(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// UpdateAnswer stores the generated answer on the existing row.
func (r *QuestionRepository) UpdateAnswer(questionID, answerText string) error {
	res := r.DB.Model(&model.Question{}).
		Where("question_id = ?", questionID).
		Update("answer_text", answerText)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) FindByID(questionID string) (*model.Question, error) {
	var question model.Question
	err := r.DB.Where("question_id = ?", questionID).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) FindByProblem(problemID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("problem_id = ?", problemID).Order("created_at asc").Find(&questions).Error
	return questions, err
}
