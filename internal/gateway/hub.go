// Package gateway fans terminal job events out to live subscribers.
// Membership is per job id; delivery is fire-and-forget, at-most-once:
// a slow or disconnected member simply misses the message and must
// fall back to polling.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"server/internal/bridge"
	"server/internal/domain"
	"server/internal/infra"
)

// Update is the frame delivered to subscribers of a job's topic.
type Update struct {
	Type             string           `json:"type"`
	JobID            string           `json:"job_id"`
	ContentID        string           `json:"content_id"`
	Status           domain.JobStatus `json:"status"`
	GeneratedContent string           `json:"generated_content,omitempty"`
	Error            string           `json:"error,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

// Sender is a live connection the hub can push frames to. Send must
// not block indefinitely; an error means the frame is lost.
type Sender interface {
	Send(payload []byte) error
}

// Hub tracks which connections are subscribed to which job ids.
type Hub struct {
	mu     sync.Mutex
	groups map[string]map[Sender]struct{}
	logger infra.Logger
}

// NewHub creates an empty hub.
func NewHub(logger infra.Logger) *Hub {
	return &Hub{groups: make(map[string]map[Sender]struct{}), logger: logger}
}

// Join adds s to the group named by jobID.
func (h *Hub) Join(jobID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[jobID]
	if !ok {
		g = make(map[Sender]struct{})
		h.groups[jobID] = g
	}
	g[s] = struct{}{}
}

// Leave removes s from the group named by jobID.
func (h *Hub) Leave(jobID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.groups[jobID]; ok {
		delete(g, s)
		if len(g) == 0 {
			delete(h.groups, jobID)
		}
	}
}

// LeaveAll removes s from every group. Called on disconnect.
func (h *Hub) LeaveAll(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for jobID, g := range h.groups {
		delete(g, s)
		if len(g) == 0 {
			delete(h.groups, jobID)
		}
	}
}

// Members returns the current size of a group.
func (h *Hub) Members(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[jobID])
}

// Broadcast delivers an event to every current member of the event's
// job group, stamped with the delivery time. Send failures are logged
// and never retried.
func (h *Hub) Broadcast(ev bridge.JobEvent) {
	upd := Update{
		Type:             "job-update",
		JobID:            ev.JobID,
		ContentID:        ev.ContentID,
		Status:           ev.Status,
		GeneratedContent: ev.GeneratedContent,
		Error:            ev.Error,
		Timestamp:        time.Now().UTC(),
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", ev.JobID).Msg("gateway: marshal update")
		return
	}

	h.mu.Lock()
	members := make([]Sender, 0, len(h.groups[ev.JobID]))
	for s := range h.groups[ev.JobID] {
		members = append(members, s)
	}
	h.mu.Unlock()

	for _, s := range members {
		if err := s.Send(payload); err != nil {
			h.logger.Debug().Err(err).Str("job_id", ev.JobID).Msg("gateway: dropped update")
		}
	}
}

// Run consumes the bridge until ctx is cancelled, fanning each event
// out to its group.
func (h *Hub) Run(ctx context.Context, b bridge.Bridge) error {
	events, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		h.Broadcast(ev)
	}
	return nil
}
