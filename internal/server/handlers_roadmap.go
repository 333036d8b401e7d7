package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mindloom/internal/extract"
	"mindloom/internal/prompt"
	"mindloom/internal/roadmap"
)

type roadmapCreateRequest struct {
	Topic string `json:"topic"`
}

// aiTaskSource feeds the roadmap engine's lazy task generation from the
// model, passing completed-step context through the prompt builder.
type aiTaskSource struct {
	app *App
}

func (s *aiTaskSource) GenerateTasks(ctx context.Context, topic, stepTitle string, completed []roadmap.Step) ([]roadmap.Todo, error) {
	request, err := prompt.Tasks(topic, stepTitle, completed)
	if err != nil {
		return nil, err
	}
	request.Temperature = s.app.cfg.AITemperature

	text, err := s.app.ai.Generate(ctx, request)
	if err != nil {
		return nil, err
	}

	var todos []roadmap.Todo
	if err := extract.ArrayInto(text, &todos); err != nil {
		return nil, err
	}
	// A fresh checklist always starts unchecked, whatever the model claims.
	for i := range todos {
		todos[i].Completed = false
	}
	return todos, nil
}

func (a *App) createRoadmap(c *gin.Context) {
	var payload roadmapCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	request, err := prompt.Roadmap(payload.Topic)
	if errors.Is(err, prompt.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "topic is required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "generation_failed", "Failed to generate roadmap.")
		return
	}

	var outline []roadmap.Outline
	if err := extract.ArrayInto(text, &outline); err != nil {
		writeFailure(c, http.StatusBadGateway, "unparseable_model_output", "The generated roadmap could not be understood. Try again.")
		return
	}

	engine, err := roadmap.New(c.Request.Context(), payload.Topic, outline, &aiTaskSource{app: a})
	if errors.Is(err, roadmap.ErrInvalidInput) {
		writeFailure(c, http.StatusBadGateway, "unparseable_model_output", "The generated roadmap had no steps. Try again.")
		return
	}

	session := a.sessions.createRoadmap(engine)
	c.JSON(http.StatusOK, gin.H{
		"roadmap_id": session.ID,
		"state":      engine.Snapshot(),
	})
}

func (a *App) getRoadmap(c *gin.Context) {
	session, ok := a.sessions.roadmap(c.Param("roadmap_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Roadmap not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roadmap_id": session.ID,
		"state":      session.Engine.Snapshot(),
	})
}

func (a *App) toggleRoadmapTodo(c *gin.Context) {
	session, ok := a.sessions.roadmap(c.Param("roadmap_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Roadmap not found")
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "todo index must be an integer")
		return
	}

	if err := session.Engine.ToggleTodo(index); err != nil {
		writeError(c, roadmapErrorStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roadmap_id": session.ID,
		"state":      session.Engine.Snapshot(),
	})
}

func (a *App) completeRoadmapStep(c *gin.Context) {
	session, ok := a.sessions.roadmap(c.Param("roadmap_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Roadmap not found")
		return
	}

	if err := session.Engine.CompleteCurrentStep(c.Request.Context()); err != nil {
		writeError(c, roadmapErrorStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roadmap_id": session.ID,
		"state":      session.Engine.Snapshot(),
	})
}

// reloadRoadmapTasks is the explicit retry for a failed task generation; the
// engine itself never retries.
func (a *App) reloadRoadmapTasks(c *gin.Context) {
	session, ok := a.sessions.roadmap(c.Param("roadmap_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Roadmap not found")
		return
	}

	if err := session.Engine.ReloadTasks(c.Request.Context()); err != nil {
		writeError(c, roadmapErrorStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roadmap_id": session.ID,
		"state":      session.Engine.Snapshot(),
	})
}

func roadmapErrorStatus(err error) int {
	switch {
	case errors.Is(err, roadmap.ErrBadTodoIndex):
		return http.StatusBadRequest
	case errors.Is(err, roadmap.ErrTasksOpen), errors.Is(err, roadmap.ErrFullyCompleted):
		return http.StatusConflict
	case errors.Is(err, roadmap.ErrTasksLoading):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
