package handler

import (
	"context"
	"net/http"
	"time"

	"docquiz/internal/database"

	"go.uber.org/zap"
)

// ConnectionSource is the part of the connection manager the health check needs
type ConnectionSource interface {
	Acquire(ctx context.Context) (database.Conn, bool, error)
}

// SystemHandler serves the root and health endpoints
type SystemHandler struct {
	db     ConnectionSource
	author string
	logger *zap.Logger
	now    func() time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db ConnectionSource, author string, logger *zap.Logger) *SystemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemHandler{db: db, author: author, logger: logger, now: time.Now}
}

// Root handles GET /
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "API is working properly",
		"author":     h.author,
		"date":       h.now().UnixMilli(),
	})
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	conn, cached, err := h.db.Acquire(r.Context())
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"message": "Failed to check database health",
			"error":   err.Error(),
		})
		return
	}

	state := conn.State()
	if state != database.StateConnected {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":   "error",
			"message":  "Database is not connected",
			"dbStatus": state.String(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Database is connected",
		"dbStatus": state.String(),
		"cached":   cached,
	})
}
