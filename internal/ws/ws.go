package ws

import (
	"encoding/json"
	"errors"

	"extci/internal/env"

	githubws "github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
)

// Upgrader upgrades HTTP connections to WebSocket connections.
var Upgrader = githubws.FastHTTPUpgrader{
	// a draining runner sends log followers to its replacement
	CheckOrigin: func(*fasthttp.RequestCtx) bool {
		return !env.Cfg.DrainMode
	},
	Error: func(ctx *fasthttp.RequestCtx, status int, reason error) {
		if env.Cfg.DrainMode {
			status = fasthttp.StatusServiceUnavailable
			reason = errors.New("runner is draining, try again later")
		}
		body, _ := json.Marshal(frame{Type: "error", Message: reason.Error()})
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		ctx.SetBody(body)
	},
}

type frame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteStatus sends a status frame ("info", "error", "done") to the client.
func WriteStatus(conn *githubws.Conn, status string, message string) error {
	return writeFrame(conn, frame{Type: status, Message: message})
}

// WriteLog sends one log line to the client.
func WriteLog(conn *githubws.Conn, line []byte) error {
	return writeFrame(conn, frame{Type: "log", Message: string(line)})
}

func writeFrame(conn *githubws.Conn, f frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(githubws.TextMessage, payload)
}
