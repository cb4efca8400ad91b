package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"extci/internal/env"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, streamer func(ctx context.Context, w *LogWriter) error) *websocket.Dialer {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	app := fiber.New()
	app.Get("/follow", func(c fiber.Ctx) error {
		return Stream(c, streamer)
	})

	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &websocket.Dialer{
		NetDial:          func(string, string) (net.Conn, error) { return ln.Dial() },
		HandshakeTimeout: 5 * time.Second,
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)

	var f frame
	require.NoError(t, json.Unmarshal(payload, &f))
	return f
}

func TestStreamSendsLogFramesThenDone(t *testing.T) {
	dialer := serve(t, func(_ context.Context, w *LogWriter) error {
		if _, err := w.Write([]byte("Compiling rucaptcha v3.2.3\n")); err != nil {
			return err
		}
		w.WriteStatus("info", "job running")
		return nil
	})

	conn, _, err := dialer.Dial("ws://extci.test/follow", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, frame{Type: "log", Message: "Compiling rucaptcha v3.2.3\n"}, readFrame(t, conn))
	require.Equal(t, frame{Type: "info", Message: "job running"}, readFrame(t, conn))
	require.Equal(t, frame{Type: "done", Message: "log stream ended"}, readFrame(t, conn))
}

func TestStreamReportsStreamerError(t *testing.T) {
	dialer := serve(t, func(context.Context, *LogWriter) error {
		return errors.New("job log unavailable")
	})

	conn, _, err := dialer.Dial("ws://extci.test/follow", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, frame{Type: "error", Message: "job log unavailable"}, readFrame(t, conn))
}

func TestStreamRejectedWhileDraining(t *testing.T) {
	prev := env.Cfg.DrainMode
	env.Cfg.DrainMode = true
	t.Cleanup(func() { env.Cfg.DrainMode = prev })

	dialer := serve(t, func(context.Context, *LogWriter) error { return nil })

	_, resp, err := dialer.Dial("ws://extci.test/follow", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
