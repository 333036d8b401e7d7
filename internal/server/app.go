package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mindloom/internal/ai"
	"mindloom/internal/bots"
	"mindloom/internal/config"
)

type App struct {
	cfg      config.Config
	ai       ai.Client
	bots     *bots.Store
	sessions *sessionRegistry
}

func New(cfg config.Config, client ai.Client, botStore *bots.Store) *App {
	return &App{
		cfg:      cfg,
		ai:       client,
		bots:     botStore,
		sessions: newSessionRegistry(),
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// The widget chat endpoint is embedded on third-party pages and must
	// answer any origin; everything else honors the configured allow-list.
	apiCORS := cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	widgetCORS := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	})
	router.Use(func(c *gin.Context) {
		if a.isWidgetPath(c.Request.URL.Path) {
			widgetCORS(c)
			return
		}
		apiCORS(c)
	})

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)

	api.POST("/therapy/sessions", a.createTherapySession)
	api.GET("/therapy/sessions/:session_id", a.getTherapySession)
	api.POST("/therapy/sessions/:session_id/messages", a.postTherapyMessage)

	api.POST("/quizzes", a.createQuiz)
	api.POST("/quizzes/chat", a.quizChat)

	api.POST("/roadmaps", a.createRoadmap)
	api.GET("/roadmaps/:roadmap_id", a.getRoadmap)
	api.POST("/roadmaps/:roadmap_id/todos/:index/toggle", a.toggleRoadmapTodo)
	api.POST("/roadmaps/:roadmap_id/complete-step", a.completeRoadmapStep)
	api.POST("/roadmaps/:roadmap_id/tasks/reload", a.reloadRoadmapTasks)
	api.POST("/evaluations", a.evaluateNote)

	api.POST("/bots", a.createBot)
	api.GET("/bots", a.listBots)
	api.GET("/bots/:bot_id", a.getBot)
	api.PUT("/bots/:bot_id", a.updateBot)
	api.DELETE("/bots/:bot_id", a.deleteBot)
	api.POST("/bots/:bot_id/chat", a.botChat)

	return router
}

func (a *App) isWidgetPath(path string) bool {
	return strings.HasPrefix(path, a.cfg.APIPrefix+"/bots/") && strings.HasSuffix(path, "/chat")
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "mindloom-api",
	})
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// writeFailure carries a machine-readable code so clients can distinguish a
// failed model call from a successful call whose output was unusable.
func writeFailure(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
