package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mindloom/internal/conversation"
	"mindloom/internal/extract"
	"mindloom/internal/prompt"
	"mindloom/internal/safety"
)

type therapySessionCreateRequest struct {
	Locale string `json:"locale"`
}

type therapyMessageRequest struct {
	Message string `json:"message"`
}

func (a *App) createTherapySession(c *gin.Context) {
	var payload therapySessionCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	session := a.sessions.createConversation(strings.TrimSpace(payload.Locale))
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"locale":     session.Locale,
		"state":      session.Conv.Snapshot(),
	})
}

func (a *App) getTherapySession(c *gin.Context) {
	session, ok := a.sessions.conversation(c.Param("session_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"locale":     session.Locale,
		"state":      session.Conv.Snapshot(),
	})
}

// postTherapyMessage runs one full turn: submit, generate, classify, chunk,
// resolve. Any failure after submit still closes the turn via Fail so the
// session never sticks in the awaiting state.
func (a *App) postTherapyMessage(c *gin.Context) {
	session, ok := a.sessions.conversation(c.Param("session_id"))
	if !ok {
		writeError(c, http.StatusNotFound, "Session not found")
		return
	}

	var payload therapyMessageRequest
	if !mustJSON(c, &payload) {
		return
	}

	history, err := session.Conv.Submit(payload.Message)
	if errors.Is(err, conversation.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	if errors.Is(err, conversation.ErrBusy) {
		writeError(c, http.StatusConflict, "A response is already being generated for this session")
		return
	}

	request, err := prompt.Therapist(session.Locale, history, payload.Message)
	if err != nil {
		_ = session.Conv.Fail()
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		_ = session.Conv.Fail()
		a.writeTurnFailure(c, session, err)
		return
	}

	classified := safety.Classify(text)
	if classified.CleanText == "" {
		_ = session.Conv.Fail()
		a.writeTurnFailure(c, session, errors.New("model reply was empty after stripping markers"))
		return
	}

	segments := extract.Sentences(classified.CleanText)
	if err := session.Conv.Resolve(segments, classified.Reactions, classified.IsCrisis); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to record assistant reply")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  segments,
		"is_crisis": classified.IsCrisis,
		"reactions": classified.Reactions,
		"state":     session.Conv.Snapshot(),
	})
}

func (a *App) writeTurnFailure(c *gin.Context, session *conversationSession, err error) {
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
		"error":  "generation_failed",
		"detail": "Failed to generate AI response.",
		"cause":  err.Error(),
		"state":  session.Conv.Snapshot(),
	})
}
