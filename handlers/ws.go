package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"github.com/rs/zerolog"

	"github.com/ilyosdev/smeta-api/middleware"
)

// WSHandler pushes request lifecycle events to dashboard clients. Sessions
// are keyed by the authenticated organization, so events never cross the
// tenant boundary.
type WSHandler struct {
	M   *melody.Melody
	log zerolog.Logger
}

func NewWSHandler(log zerolog.Logger) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		orgID, _ := s.Get("org_id")
		log.Debug().Interface("org_id", orgID).Msg("websocket client disconnected")
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Warn().Err(err).Msg("websocket error")
	})

	return &WSHandler{M: m, log: log}
}

// HandleWS upgrades an authenticated connection. The org comes from the
// verified token, never from the client.
func (h *WSHandler) HandleWS(c *gin.Context) {
	orgID := middleware.GetTenant(c).OrgID

	keys := map[string]interface{}{"org_id": orgID}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		h.log.Warn().Err(err).Msg("failed to upgrade websocket")
	}
}

// BroadcastUpdate sends an event to every session of the given organization.
func (h *WSHandler) BroadcastUpdate(orgID, eventType, actorID string) {
	msg, err := json.Marshal(map[string]string{"type": eventType, "actor": actorID})
	if err != nil {
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("org_id")
		return exists && id == orgID
	})
	if err != nil {
		h.log.Warn().Err(err).Str("org_id", orgID).Msg("broadcast failed")
	}
}
