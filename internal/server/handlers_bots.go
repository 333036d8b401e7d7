package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mindloom/internal/bots"
	"mindloom/internal/conversation"
	"mindloom/internal/extract"
	"mindloom/internal/prompt"
)

type botCreateRequest struct {
	BotID   string `json:"bot_id"`
	Name    string `json:"name"`
	Context string `json:"context"`
	Locale  string `json:"locale"`
}

type botChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type botChatRequest struct {
	Messages []botChatMessage `json:"messages"`
	Locale   string           `json:"locale"`
}

func (a *App) createBot(c *gin.Context) {
	var payload botCreateRequest
	if !mustJSON(c, &payload) {
		return
	}
	if strings.TrimSpace(payload.BotID) == "" ||
		strings.TrimSpace(payload.Name) == "" ||
		strings.TrimSpace(payload.Context) == "" {
		writeError(c, http.StatusBadRequest, "Missing required bot data: bot_id, name, context")
		return
	}

	created, err := a.bots.Create(c.Request.Context(), bots.Config{
		BotID:   strings.TrimSpace(payload.BotID),
		Name:    strings.TrimSpace(payload.Name),
		Context: payload.Context,
		Locale:  strings.TrimSpace(payload.Locale),
	})
	if errors.Is(err, bots.ErrExists) {
		writeError(c, http.StatusConflict, "A bot with this bot_id already exists")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to create bot")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (a *App) listBots(c *gin.Context) {
	configs, err := a.bots.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to fetch bots")
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (a *App) getBot(c *gin.Context) {
	cfg, err := a.bots.Get(c.Request.Context(), c.Param("bot_id"))
	if errors.Is(err, bots.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Bot not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to fetch bot")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (a *App) updateBot(c *gin.Context) {
	var payload botCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	updated, err := a.bots.Update(c.Request.Context(), c.Param("bot_id"), bots.Config{
		Name:    strings.TrimSpace(payload.Name),
		Context: payload.Context,
		Locale:  strings.TrimSpace(payload.Locale),
	})
	if errors.Is(err, bots.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Bot not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to update bot")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (a *App) deleteBot(c *gin.Context) {
	err := a.bots.Delete(c.Request.Context(), c.Param("bot_id"))
	if errors.Is(err, bots.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Bot not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to delete bot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bot deleted successfully"})
}

// botChat serves the embeddable widget. The widget owns its conversation
// state and posts the full history each turn; the last message must be the
// user's new input.
func (a *App) botChat(c *gin.Context) {
	cfg, err := a.bots.Get(c.Request.Context(), c.Param("bot_id"))
	if errors.Is(err, bots.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Bot not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to fetch bot")
		return
	}

	var payload botChatRequest
	if !mustJSON(c, &payload) {
		return
	}
	if len(payload.Messages) == 0 {
		writeError(c, http.StatusBadRequest, "messages is required")
		return
	}

	last := payload.Messages[len(payload.Messages)-1]
	if !strings.EqualFold(strings.TrimSpace(last.Role), string(conversation.RoleUser)) {
		writeError(c, http.StatusBadRequest, "last message must be from the user")
		return
	}
	userMessage := strings.TrimSpace(last.Content)

	locale := strings.TrimSpace(payload.Locale)
	if locale == "" {
		locale = cfg.Locale
	}

	history := toConversationHistory(payload.Messages[:len(payload.Messages)-1])
	request, err := prompt.BotChat(cfg.Name, cfg.Context, locale, history, userMessage)
	if errors.Is(err, prompt.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	request.Temperature = a.cfg.AITemperature

	text, err := a.ai.Generate(c.Request.Context(), request)
	if err != nil {
		writeFailure(c, http.StatusBadGateway, "generation_failed", "Failed to generate response")
		return
	}

	// Best-effort audit log; a storage failure never reaches the widget.
	if err := a.bots.AppendChatLog(c.Request.Context(), cfg.BotID, userMessage, text); err != nil {
		log.Printf("chat log write failed for bot %s: %v", cfg.BotID, err)
	}

	chunks := extract.Sentences(strings.TrimSpace(text))
	c.JSON(http.StatusOK, gin.H{
		"response": strings.Join(chunks, " "),
		"chunks":   chunks,
	})
}

func toConversationHistory(messages []botChatMessage) []conversation.Message {
	history := make([]conversation.Message, 0, len(messages))
	for _, msg := range messages {
		role := conversation.Role(strings.ToLower(strings.TrimSpace(msg.Role)))
		if role != conversation.RoleUser && role != conversation.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		history = append(history, conversation.Message{
			Role:    role,
			Content: []string{content},
		})
	}
	return history
}
