package bancho

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
)

// handshakeTimeout ограничивает ожидание трёх строк рукопожатия.
const handshakeTimeout = 5 * time.Second

// Server — TCP-транспорт bancho-протокола. Клиент шлёт три строки
// (имя, md5 пароля, данные клиента), дальше обе стороны обмениваются
// кадрированными пакетами.
type Server struct {
	bancho *Bancho

	listener net.Listener
	mu       sync.Mutex
}

// NewServer создаёт TCP-транспорт над ядром.
func NewServer(b *Bancho) *Server {
	return &Server{bancho: b}
}

// Addr возвращает адрес слушателя (nil до Run/Serve).
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run слушает addr и принимает подключения до отмены контекста.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Graceful shutdown
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("bancho tcp listener started", "address", ln.Addr())

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	username, passwordMD5, clientData, err := readHandshake(reader)
	if err != nil {
		slog.Debug("handshake failed", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	p := session.NewPlayer(session.TransportTCP, conn.RemoteAddr().String())

	if err := s.bancho.Login(ctx, p, username, passwordMD5, clientData); err != nil {
		if errors.Is(err, ErrAdapterHash) {
			conn.Write([]byte("no.\r\n"))
			return
		}
		conn.Write(p.Drain())
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// цепочка отключения дополняется обрывом транспорта
	p.SetOnClose(func(pl *session.Player) {
		s.bancho.Disconnect(pl)
		cancel()
		conn.Close()
	})
	defer p.Close()

	go s.writeLoop(connCtx, conn, p)

	for {
		id, payload, err := protocol.ReadFrame(reader)
		if err != nil {
			if connCtx.Err() == nil && !errors.Is(err, io.EOF) {
				slog.Debug("read loop ended", "player", p.Name(), "error", err)
			}
			return
		}
		s.bancho.Dispatch(ctx, p, id, payload)
	}
}

// writeLoop сливает исходящий буфер сессии в сокет.
func (s *Server) writeLoop(ctx context.Context, conn net.Conn, p *session.Player) {
	// пакеты логина уже в буфере
	if buf := p.Drain(); len(buf) > 0 {
		if _, err := conn.Write(buf); err != nil {
			p.Close()
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.OutboundReady():
			buf := p.Drain()
			if len(buf) == 0 {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if _, err := conn.Write(buf); err != nil {
				p.Close()
				return
			}
		}
	}
}

// readHandshake читает три строки логина. Строки разделены \n,
// завершающий \r отбрасывается.
func readHandshake(r *bufio.Reader) (username, passwordMD5, clientData string, err error) {
	lines := make([]string, 3)
	for i := range lines {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", "", "", fmt.Errorf("reading handshake line %d: %w", i+1, err)
		}
		lines[i] = strings.TrimRight(line, "\r\n")
	}
	if lines[0] == "" {
		return "", "", "", errors.New("empty username")
	}
	return lines[0], lines[1], lines[2], nil
}
