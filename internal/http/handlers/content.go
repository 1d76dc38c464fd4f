package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/queue"
)

type contentCreateRequest struct {
	Topic       string `json:"topic"`
	ContentType string `json:"content_type"`
}

// contentUpdateRequest deliberately accepts only the user-writable
// fields; generated_content and job_status cannot be expressed here.
type contentUpdateRequest struct {
	Topic   *string `json:"topic"`
	Content *string `json:"content"`
}

type contentPayload struct {
	ID               string    `json:"id"`
	Topic            string    `json:"topic"`
	ContentType      string    `json:"content_type"`
	Prompt           string    `json:"prompt"`
	GeneratedContent *string   `json:"generated_content"`
	Content          *string   `json:"content"`
	JobID            string    `json:"job_id"`
	JobStatus        string    `json:"job_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toContentPayload(c *domain.Content) contentPayload {
	return contentPayload{
		ID:               c.ID,
		Topic:            c.Topic,
		ContentType:      string(c.ContentType),
		Prompt:           c.Prompt,
		GeneratedContent: c.GeneratedContent,
		Content:          c.Content,
		JobID:            c.JobID,
		JobStatus:        string(c.JobStatus),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ContentCreate accepts a generation request, persists the content
// record and enqueues the delayed job. The request path never waits on
// generation: the response is 202 with the job handle.
func (a *App) ContentCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req contentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := domain.ValidateTopic(req.Topic); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "topic must be 1-500 characters")
		return
	}
	contentType := domain.ContentType(req.ContentType)
	if !contentType.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported content type")
		return
	}

	id := uuid.NewString()
	content, err := a.Contents.Create(r.Context(), id, userID, req.Topic, contentType)
	if err != nil {
		a.domainError(w, err)
		return
	}

	jobID, err := a.Queue.Submit(r.Context(), queue.Payload{
		ContentID:   content.ID,
		OwnerID:     userID,
		ContentType: contentType,
		Topic:       req.Topic,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"content":           toContentPayload(content),
		"job_id":            jobID,
		"expected_delay_ms": a.JobDelay.Milliseconds(),
	})
}

// ContentJobStatus serves the merged polling view for a job.
func (a *App) ContentJobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	view, err := a.Status.GetStatus(r.Context(), jobID, userID)
	if err != nil {
		a.domainError(w, err)
		return
	}

	jobStatus := map[string]any{
		"state":         string(view.State()),
		"progress":      0,
		"failed_reason": "",
	}
	if view.Queue != nil {
		jobStatus["progress"] = view.Queue.Progress
		jobStatus["failed_reason"] = view.Queue.FailedReason
		jobStatus["attempts_made"] = view.Queue.AttemptsMade
	}

	a.json(w, http.StatusOK, map[string]any{
		"job_id":     view.JobID,
		"job_status": jobStatus,
		"content":    toContentPayload(view.Content),
	})
}

// ContentUpdate applies the restricted user-writable field set.
func (a *App) ContentUpdate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	var req contentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Topic == nil && req.Content == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "nothing to update")
		return
	}

	content, err := a.Contents.Update(r.Context(), id, userID, req.Topic, req.Content)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"content": toContentPayload(content)})
}

// ContentRollback restores the working copy from the last generated
// text, leaving the generated text itself untouched.
func (a *App) ContentRollback(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")

	content, err := a.Contents.Rollback(r.Context(), id, userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"content": toContentPayload(content)})
}

// ContentDelete removes an owned record. Any in-flight job keeps
// running; the worker treats the missing record as a failed attempt.
func (a *App) ContentDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")

	if err := a.Contents.Delete(r.Context(), id, userID); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}
