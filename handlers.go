package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roastblur/internal/game"
)

// homeHandler renders the main game page for the current session.
func (app *App) homeHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ctrl := app.getController(sessionID)
	c.HTML(http.StatusOK, "index.html", app.pageData(ctrl, ""))
}

// searchHandler submits the prompt form and starts generating the game.
func (app *App) searchHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl := app.getController(sessionID)

	prompt := c.PostForm("prompt")
	if err := ctrl.SubmitPrompt(ctx, prompt); err != nil {
		reqLogger(ctx).Infow("Prompt rejected", "session_id", sessionID, "error", err)
		app.renderGame(c, ctrl, rejectionMessage(err))
		return
	}
	reqLogger(ctx).Infow("Prompt submitted", "session_id", sessionID)
	app.renderGame(c, ctrl, "")
}

// answerHandler records the answer to the current question.
func (app *App) answerHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl := app.getController(sessionID)

	if err := ctrl.SubmitAnswer(ctx, c.PostForm("answer")); err != nil {
		reqLogger(ctx).Infow("Answer rejected", "session_id", sessionID, "error", err)
		app.renderGame(c, ctrl, rejectionMessage(err))
		return
	}
	app.renderGame(c, ctrl, "")
}

// playAgainHandler resets the session to a fresh game.
func (app *App) playAgainHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl := app.getController(sessionID)

	if err := ctrl.Reset(); err != nil {
		reqLogger(ctx).Infow("Reset rejected", "session_id", sessionID, "error", err)
		app.renderGame(c, ctrl, rejectionMessage(err))
		return
	}
	logInfo("Reset game for session: %s", sessionID)
	app.renderGame(c, ctrl, "")
}

// gameStateHandler renders the current game as an HTML fragment. The page
// polls it while a generation request is running.
func (app *App) gameStateHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ctrl := app.getController(sessionID)
	c.HTML(http.StatusOK, "game-content", app.pageData(ctrl, ""))
}

// wordCloudHandler renders the word cloud for the session's answers.
func (app *App) wordCloudHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	s := app.getController(sessionID).Snapshot()
	c.HTML(http.StatusOK, "word-cloud.html", gin.H{
		"title":   pageTitle,
		"words":   wordCloudWords(s.Answers),
		"answers": len(s.Answers),
	})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             app.Config.envName(),
		"active_sessions": app.Sessions.ItemCount(),
		"generator_ready": app.Config.credential() != "",
		"uptime":          formatUptime(uptime),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (app *App) pageData(ctrl *game.Controller, errMsg string) gin.H {
	return gin.H{
		"title": pageTitle,
		"game":  newGameView(ctrl.Snapshot(), ctrl.Busy()),
		"error": errMsg,
	}
}

// renderGame answers a form post. htmx requests get the game fragment;
// plain form posts are redirected home unless there is an error to show.
func (app *App) renderGame(c *gin.Context, ctrl *game.Controller, errMsg string) {
	if errMsg != "" {
		payload := map[string]string{"server_error": errMsg}
		if b, err := json.Marshal(payload); err == nil {
			c.Header("HX-Trigger", string(b))
		} else {
			logWarn("Failed to marshal HX-Trigger payload: %v", err)
		}
	}

	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "game-content", app.pageData(ctrl, errMsg))
		return
	}
	if errMsg != "" {
		c.HTML(http.StatusOK, "index.html", app.pageData(ctrl, errMsg))
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// rejectionMessage maps a controller rejection to the transient form error.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrEmptyPrompt):
		return ErrorPromptRequired
	case errors.Is(err, game.ErrEmptyAnswer):
		return ErrorAnswerRequired
	case errors.Is(err, game.ErrBusy):
		return ErrorRequestInFlight
	case errors.Is(err, game.ErrWrongPhase):
		return ErrorActionNotAllowed
	default:
		return ErrorUnknown
	}
}
