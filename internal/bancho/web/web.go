package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/xid"

	"github.com/udisondev/gobancho/internal/bancho"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
)

// maxBodySize ограничивает тело поллинга. Больше одной пачки реплея
// клиент за цикл не присылает.
const maxBodySize = 4 << 20

const landingPage = `<!DOCTYPE html>
<html>
<head><title>bancho</title></head>
<body>
<pre>
        _                 _
       | |               | |
  _____| |__  ___    ___ | | _____ _   _
 / _  /  _  \/ __ \ / _  \ |/ / _ \ | | |
( (_| | | | ( (__| ( (_| |   ( (_) ) |_| |
 \___ |_| |_|\____/ \___/|_|\_\___/ \__  |
(_____|                            (____/
</pre>
<p>running.</p>
</body>
</html>
`

// Handler — HTTP-транспорт bancho-протокола: логин без osu-token,
// поллинг с ним. Ответ каждого запроса — накопленный исходящий буфер
// сессии.
type Handler struct {
	bancho *bancho.Bancho
	proto  int
}

// NewHandler создаёт транспорт над ядром.
func NewHandler(b *bancho.Bancho, protocolVersion int) *Handler {
	return &Handler{bancho: b, proto: protocolVersion}
}

// Router собирает echo-приложение с маршрутами транспорта.
func (h *Handler) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/", h.handleIndex)
	e.POST("/", h.handlePost)
	return e
}

// Run поднимает HTTP-транспорт на addr и живёт до отмены контекста.
func (h *Handler) Run(ctx context.Context, addr string) error {
	e := h.Router()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http on %s: %w", addr, err)
	}
}

func (h *Handler) handleIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, landingPage)
}

func (h *Handler) handlePost(c echo.Context) error {
	h.writeHeaders(c)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	token := c.Request().Header.Get("osu-token")
	if token == "" {
		return h.login(c, body)
	}
	return h.poll(c, token, body)
}

func (h *Handler) writeHeaders(c echo.Context) {
	header := c.Response().Header()
	header.Set("server", "bancho")
	header.Set("cho-protocol", strconv.Itoa(h.proto))
}

func (h *Handler) login(c echo.Context, body []byte) error {
	lines := strings.SplitN(string(body), "\n", 4)
	if len(lines) < 3 {
		c.Response().Header().Set("cho-token", "no")
		return c.NoContent(http.StatusBadRequest)
	}
	username := strings.TrimRight(lines[0], "\r")
	passwordMD5 := strings.TrimRight(lines[1], "\r")
	clientData := strings.TrimRight(lines[2], "\r")

	p := session.NewPlayer(session.TransportHTTP, c.RealIP())
	p.SetToken(xid.New().String())

	if err := h.bancho.Login(c.Request().Context(), p, username, passwordMD5, clientData); err != nil {
		c.Response().Header().Set("cho-token", "no")
		if errors.Is(err, bancho.ErrAdapterHash) {
			return c.Blob(http.StatusOK, echo.MIMEOctetStream, []byte("no.\r\n"))
		}
		return c.Blob(http.StatusOK, echo.MIMEOctetStream, p.Drain())
	}

	c.Response().Header().Set("cho-token", p.Token())
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, p.Drain())
}

func (h *Handler) poll(c echo.Context, token string, body []byte) error {
	p := h.bancho.Registry.ByToken(token)
	if p == nil {
		// сессия истекла или токен чужой: клиент должен перелогиниться
		c.Response().Header().Set("cho-token", "")
		return c.NoContent(http.StatusForbidden)
	}

	ctx := c.Request().Context()
	for len(body) > 0 {
		id, payload, rest, err := protocol.SplitFrame(body)
		if err != nil {
			slog.Error("malformed poll body", "player", p.Name(), "error", err)
			p.EnqueueAnnouncement("Your client sent a malformed request; please relog.")
			return c.Blob(http.StatusInternalServerError, echo.MIMEOctetStream, p.Drain())
		}
		body = rest
		h.bancho.Dispatch(ctx, p, id, payload)
	}

	return c.Blob(http.StatusOK, echo.MIMEOctetStream, p.Drain())
}
