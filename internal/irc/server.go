// Package irc реализует текстовый шлюз чата: классические IRC-клиенты
// подключаются к тем же каналам и личным сообщениям, что и osu-клиенты.
package irc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/gobancho/internal/bancho"
)

// ServerName — имя, которым шлюз представляется в префиксах ответов.
const ServerName = "cho.gobancho"

// Server слушает IRC-порт и обслуживает подключения шлюза.
type Server struct {
	bancho *bancho.Bancho

	mu       sync.Mutex
	listener net.Listener
}

// NewServer создаёт шлюз поверх ядра сервера сессий.
func NewServer(b *bancho.Bancho) *Server {
	return &Server{bancho: b}
}

// Run слушает addr до отмены ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Addr возвращает адрес листенера (для тестов со случайным портом).
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve обслуживает подключения на готовом листенере.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("irc gateway listening", "addr", ln.Addr())

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting irc connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			newConn(s.bancho, conn).serve(ctx)
		}()
	}
}
