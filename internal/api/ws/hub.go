package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

const (
	writeTimeout        = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Subscriber is the live-query half of taskstore.Client.
type Subscriber interface {
	SubscribeToTeamTasks(ctx context.Context, teamID uuid.UUID, onChange func(domain.Snapshot)) (func(), error)
}

// Hub streams task snapshots to websocket clients.
type Hub struct {
	tasks          Subscriber
	originPatterns []string
	pingInterval   time.Duration
}

// NewHub creates a hub. originPatterns is passed to websocket.Accept; an empty
// list only allows same-origin upgrades.
func NewHub(tasks Subscriber, originPatterns []string) *Hub {
	return &Hub{tasks: tasks, originPatterns: originPatterns, pingInterval: defaultPingInterval}
}

// ServeBoard handles websocket connections for the caller's team board.
// The first frame is the current task set; every later frame follows a change.
// Frames that pile up behind a slow client are collapsed to the newest.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	teamID, ok := middleware.TeamIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing team", http.StatusForbidden)
		return
	}

	// The server's read and write timeouts would otherwise cut the feed.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send frames; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	latest := make(chan domain.Snapshot, 1)
	unsubscribe, err := h.tasks.SubscribeToTeamTasks(ctx, teamID, func(s domain.Snapshot) {
		select {
		case <-latest:
		default:
		}
		latest <- s
	})
	if err != nil {
		log.Error().Err(err).Str("team_id", teamID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsubscribe()

	log.Debug().Str("team_id", teamID.String()).Msg("board client connected")

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug().Err(err).Msg("websocket ping")
				return
			}
		case snap := <-latest:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, snapshotFrame(snap))
			cancel()
			if err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
