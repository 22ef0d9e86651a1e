package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"roastblur/internal/game"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || !isValidSessionID(sessionID) {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookieName, sessionID, int(app.Config.CookieMaxAge.Seconds()), "/", "", app.IsProduction, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// getController retrieves the controller for a session, restoring it from
// disk or creating a fresh one when it is not cached.
func (app *App) getController(sessionID string) *game.Controller {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()

	if v, ok := app.Sessions.Get(sessionID); ok {
		ctrl := v.(*game.Controller)
		// Touch to extend the expiration.
		app.Sessions.Set(sessionID, ctrl, cache.DefaultExpiration)
		return ctrl
	}

	log := logger.With("session_id", sessionID)
	w := &sessionWriter{dir: app.Config.SessionDir, sessionID: sessionID, log: log}
	opts := []game.Option{
		game.WithLogger(log),
		game.WithSettleHook(w.write),
	}

	var ctrl *game.Controller
	if s, err := loadSessionFromFile(app.Config.SessionDir, sessionID, app.Config.SessionTimeout); err == nil {
		ctrl = game.Restore(app.Generator, s, opts...)
		logInfo("Restored session %s in phase %s", sessionID, ctrl.Snapshot().Phase)
	} else {
		ctrl = game.NewController(app.Generator, opts...)
		logInfo("Creating new game for session: %s", sessionID)
	}
	app.Sessions.Set(sessionID, ctrl, cache.DefaultExpiration)
	return ctrl
}

// sessionWriter persists snapshots for one session. Settle hooks can fire
// from the request goroutine and the generation goroutine at once, so
// writes are serialized and a snapshot older than the last one written is
// dropped.
type sessionWriter struct {
	dir       string
	sessionID string
	log       *zap.SugaredLogger

	mu   sync.Mutex
	last time.Time
}

func (w *sessionWriter) write(s game.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.UpdatedAt.Before(w.last) {
		return
	}
	if err := saveSessionToFile(w.dir, w.sessionID, s); err != nil {
		w.log.Warnw("Failed to persist session", "error", err)
		return
	}
	w.last = s.UpdatedAt
}

// waitForGenerations blocks until every cached session has settled its
// in-flight request, or ctx is done.
func (app *App) waitForGenerations(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, item := range app.Sessions.Items() {
			if ctrl, ok := item.Object.(*game.Controller); ok {
				ctrl.Wait()
			}
		}
	}()
	select {
	case <-done:
		logInfo("All in-flight generations settled")
	case <-ctx.Done():
		logWarn("Gave up waiting for in-flight generations: %v", ctx.Err())
	}
}
