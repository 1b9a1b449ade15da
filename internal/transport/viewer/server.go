// Package viewer streams replay frames to websocket clients. One goroutine
// (Run) owns the Player; connections submit commands to it and receive
// encoded frames.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchreplay.ai/internal/config"
	"matchreplay.ai/internal/sim/player"
	"matchreplay.ai/internal/viewproto"
)

const readIdle = 5 * time.Minute

var ErrStopped = errors.New("viewer server stopped")

type Server struct {
	match  string
	player *player.Player
	log    *zap.Logger
	cfg    config.Viewer

	upgrader websocket.Upgrader
	reqs     chan request
	done     chan struct{}
	nextID   atomic.Uint64
	dropped  atomic.Uint64
}

type requestKind int

const (
	reqFrame requestKind = iota + 1
	reqBootstrap
)

type request struct {
	kind   requestKind
	ctx    context.Context
	target int32
	resp   chan response
}

type response struct {
	round int32
	frame []byte
	boot  viewproto.BootstrapResponse
	err   error
}

func NewServer(match string, p *player.Player, cfg config.Viewer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WriteTimeoutMS <= 0 {
		cfg.WriteTimeoutMS = 2000
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return &Server{
		match:  match,
		player: p,
		log:    log,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		reqs: make(chan request),
		done: make(chan struct{}),
	}
}

// Dropped counts frames discarded because a client's send buffer was full.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Run serves player requests until ctx is cancelled. It must be running for
// the handlers to make progress.
func (s *Server) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.reqs:
			req.resp <- s.serve(req)
		}
	}
}

func (s *Server) serve(req request) response {
	if req.kind == reqBootstrap {
		return response{
			round: s.player.Turn(),
			boot:  viewproto.Bootstrap(s.match, s.player.Match(), s.player.Turn()),
		}
	}
	w, err := s.player.Seek(req.ctx, req.target)
	if err != nil {
		return response{round: s.player.Turn(), err: err}
	}
	b, err := json.Marshal(viewproto.BuildFrame(s.match, w, s.player.MaxRound()))
	if err != nil {
		return response{round: w.Turn(), err: err}
	}
	return response{round: w.Turn(), frame: b}
}

func (s *Server) submit(ctx context.Context, req request) (response, error) {
	req.ctx = ctx
	req.resp = make(chan response, 1)
	select {
	case s.reqs <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-s.done:
		return response{}, ErrStopped
	}
	select {
	case r := <-req.resp:
		return r, nil
	case <-s.done:
		return response{}, ErrStopped
	}
}

// Handler routes /v1/viewer and /v1/bootstrap.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/viewer", s.WSHandler())
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	return mux
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.cfg.AllowRemoteBootstrap && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		res, err := s.submit(r.Context(), request{kind: reqBootstrap})
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(res.boot)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid := fmt.Sprintf("V%d", s.nextID.Add(1))
		log := s.log.With(zap.String("session", sid), zap.String("remote", r.RemoteAddr))
		log.Info("viewer connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, s.cfg.SendBuffer)
		writeTimeout := time.Duration(s.cfg.WriteTimeoutMS) * time.Millisecond

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		send := func(b []byte) {
			select {
			case out <- b:
			default:
				s.dropped.Add(1)
			}
		}
		sendError := func(code, msg string) {
			b, _ := json.Marshal(viewproto.ErrorMsg{
				Type:            viewproto.TypeError,
				ProtocolVersion: viewproto.Version,
				Code:            code,
				Message:         msg,
			})
			send(b)
		}

		var cur int32
		seek := func(target int32) {
			res, err := s.submit(ctx, request{kind: reqFrame, target: target})
			if err != nil {
				sendError("UNAVAILABLE", err.Error())
				return
			}
			cur = res.round
			if res.err != nil {
				log.Warn("seek failed", zap.Int32("target", target), zap.Error(res.err))
				sendError("SEEK_FAILED", res.err.Error())
				return
			}
			send(res.frame)
		}

		seek(0)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readIdle))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var cmd viewproto.CommandMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				sendError("BAD_COMMAND", "invalid json")
				continue
			}
			if cmd.ProtocolVersion != viewproto.Version {
				sendError("BAD_COMMAND", "bad protocol_version")
				continue
			}
			switch cmd.Type {
			case viewproto.TypeSeek:
				seek(cmd.Round)
			case viewproto.TypeStep:
				seek(cur + 1)
			case viewproto.TypeBack:
				seek(cur - 1)
			default:
				sendError("BAD_COMMAND", fmt.Sprintf("unknown command %q", cmd.Type))
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(2 * time.Second):
		}
		log.Info("viewer disconnected", zap.Int32("round", cur))
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
