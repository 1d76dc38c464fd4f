package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"server/internal/infra"
)

const writeTimeout = 5 * time.Second

// clientFrame is what a live client sends over the socket.
type clientFrame struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}

// wsSession is one upgraded connection. Writes are serialized; a write
// error or timeout loses the frame, per the at-most-once contract.
type wsSession struct {
	conn net.Conn
	mu   sync.Mutex
}

func (s *wsSession) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return wsutil.WriteServerMessage(s.conn, ws.OpText, payload)
}

// Handler upgrades the request to a WebSocket and serves subscribe-job
// and unsubscribe-job frames until the client goes away. Disconnect
// implicitly leaves every group.
func Handler(hub *Hub, logger infra.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Warn().Err(err).Msg("gateway: websocket upgrade failed")
			return
		}

		session := &wsSession{conn: conn}
		go serve(hub, session, logger)
	}
}

func serve(hub *Hub, session *wsSession, logger infra.Logger) {
	defer func() {
		hub.LeaveAll(session)
		_ = session.conn.Close()
	}()

	for {
		payload, op, err := wsutil.ReadClientData(session.conn)
		if err != nil {
			return
		}
		if op != ws.OpText {
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			logger.Debug().Err(err).Msg("gateway: ignoring malformed frame")
			continue
		}
		if frame.JobID == "" {
			continue
		}

		switch frame.Type {
		case "subscribe-job":
			hub.Join(frame.JobID, session)
		case "unsubscribe-job":
			hub.Leave(frame.JobID, session)
		}
	}
}
