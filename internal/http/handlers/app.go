package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/queue"
	"server/internal/status"
)

// App is the handler container. Everything it needs is injected so
// tests can swap the SQL executor for a fake.
type App struct {
	SQL      infra.SQLExecutor
	Contents *repo.ContentRepositoryPG
	Queue    *queue.Queue
	Status   *status.Reconciler
	Logger   infra.Logger
	JobDelay time.Duration
}

// NewApp wires the handler container over one SQL executor.
func NewApp(sql infra.SQLExecutor, logger infra.Logger, jobDelay time.Duration, queueOpts queue.Options) *App {
	contents := repo.NewContentRepository(sql)
	q := queue.New(sql, logger, queueOpts)
	return &App{
		SQL:      sql,
		Contents: contents,
		Queue:    q,
		Status:   status.New(contents, q),
		Logger:   logger,
		JobDelay: jobDelay,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": errCode, "message": message}})
}

// domainError folds domain sentinels into the HTTP taxonomy. Ownership
// failures arrive here as ErrNotFound already, so absence and foreign
// ownership are indistinguishable to the caller.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid input")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, http.StatusBadRequest, "invalid_state", "operation not allowed in current state")
	case errors.Is(err, domain.ErrDuplicateJob):
		a.error(w, http.StatusConflict, "duplicate_job", "a job for this content is already in flight")
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
