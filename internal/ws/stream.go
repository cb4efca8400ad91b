// Package ws streams job output to websocket followers.
package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"
)

var errClientClosed = errors.New("websocket closed by client")

// LogWriter sends every Write as a log frame.
type LogWriter struct {
	conn *websocket.Conn
}

func (w *LogWriter) Write(p []byte) (n int, err error) {
	if err := WriteLog(w.conn, p); err != nil {
		return 0, errClientClosed
	}
	return len(p), nil
}

func (w *LogWriter) WriteStatus(level, message string) {
	_ = WriteStatus(w.conn, level, message)
}

// Stream upgrades the request and runs streamer until it returns or the
// client goes away.
func Stream(c fiber.Ctx, streamer func(ctx context.Context, w *LogWriter) error) error {
	type requestCtxProvider interface {
		RequestCtx() *fasthttp.RequestCtx
	}

	provider, ok := any(c).(requestCtxProvider)
	if !ok {
		return fiber.ErrInternalServerError
	}

	// a failed upgrade has already written its response through Upgrader.Error
	_ = Upgrader.Upgrade(provider.RequestCtx(), func(conn *websocket.Conn) {
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// reads only detect the close frame
		var once sync.Once
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					once.Do(cancel)
					return
				}
			}
		}()

		err := streamer(ctx, &LogWriter{conn: conn})
		switch {
		case err == nil:
			_ = WriteStatus(conn, "done", "log stream ended")
		case errors.Is(err, context.Canceled), errors.Is(err, errClientClosed):
		default:
			_ = WriteStatus(conn, "error", err.Error())
		}
	})
	return nil
}
