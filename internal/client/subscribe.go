package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/domain"
)

// A full board snapshot can outgrow the library's 32 KiB default.
const maxFrameBytes = 8 << 20

// Subscribe opens the board websocket. The server scopes the feed to the
// token's team; a frame for any other team ends the feed.
func (c *Client) Subscribe(ctx context.Context, teamID uuid.UUID) (<-chan domain.Snapshot, func(), error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/board"

	header := http.Header{}
	if tok := c.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		cancel()
		if resp != nil && resp.StatusCode >= 300 {
			return nil, nil, fmt.Errorf("client.Subscribe: %w", &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)})
		}
		return nil, nil, fmt.Errorf("client.Subscribe: %w: %w", domain.ErrBackend, err)
	}
	conn.SetReadLimit(maxFrameBytes)

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		defer conn.CloseNow()

		for {
			var f ws.Frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("team_id", teamID.String()).Msg("board feed ended")
				}
				return
			}
			if f.Type != ws.FrameSnapshot {
				continue
			}
			if f.Snapshot.TeamID != teamID {
				log.Error().
					Str("want", teamID.String()).
					Str("got", f.Snapshot.TeamID.String()).
					Msg("board feed is for another team")
				_ = conn.Close(websocket.StatusPolicyViolation, "team mismatch")
				return
			}

			select {
			case out <- f.Snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}
