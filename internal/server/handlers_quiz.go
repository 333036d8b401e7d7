package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mindloom/internal/extract"
	"mindloom/internal/prompt"
	"mindloom/internal/quiz"
)

type quizCreateRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"num_questions"`
}

type quizChatRequest struct {
	Message     string      `json:"message"`
	QuizContext []quiz.Item `json:"quiz_context"`
}

func (a *App) createQuiz(c *gin.Context) {
	var payload quizCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	request, err := prompt.Quiz(payload.Topic, payload.Difficulty, payload.NumQuestions)
	if errors.Is(err, prompt.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "topic is required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "generation_failed", "Failed to generate quiz.")
		return
	}

	items, err := quiz.ParseSet(text)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "unparseable_model_output", "The generated quiz could not be understood. Try again.")
		return
	}

	// Invalid items are reported, not dropped; the client decides what to
	// do with a question whose answer is not among its options.
	c.JSON(http.StatusOK, gin.H{
		"quizzes":       items,
		"invalid_items": quiz.InvalidIndices(items),
	})
}

// quizChat answers follow-up questions about a quiz the user already took.
// The reply is markdown and intentionally stays a single segment.
func (a *App) quizChat(c *gin.Context) {
	var payload quizChatRequest
	if !mustJSON(c, &payload) {
		return
	}

	request, err := prompt.QuizChat(payload.Message, payload.QuizContext)
	if errors.Is(err, prompt.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "generation_failed", "Failed to generate chat response.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": []string{strings.TrimSpace(text)},
	})
}

// evaluateNote scores a free-text study note for one roadmap step.
func (a *App) evaluateNote(c *gin.Context) {
	var payload struct {
		StepTitle string `json:"step_title"`
		Note      string `json:"note"`
	}
	if !mustJSON(c, &payload) {
		return
	}

	request, err := prompt.Evaluate(payload.StepTitle, payload.Note)
	if errors.Is(err, prompt.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "step_title and note are required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "generation_failed", "Failed to evaluate notes.")
		return
	}

	var result struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := extract.ObjectInto(text, &result); err != nil {
		writeFailure(c, http.StatusBadGateway, "unparseable_model_output", "The evaluation could not be understood. Try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":    result.Score,
		"feedback": result.Feedback,
	})
}
