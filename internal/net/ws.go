package net

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsTransport carries one line per WebSocket text frame.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadLine() ([]byte, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, ErrLineTooLong
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return bytes.TrimRight(data, "\r\n"), nil
		}
	}
}

func (t *wsTransport) WriteLine(line []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(line, "\n"))
}

func (t *wsTransport) SetReadDeadline(d time.Time) error  { return t.conn.SetReadDeadline(d) }
func (t *wsTransport) SetWriteDeadline(d time.Time) error { return t.conn.SetWriteDeadline(d) }
func (t *wsTransport) RemoteAddr() string                 { return t.conn.RemoteAddr().String() }
func (t *wsTransport) Close() error                       { return t.conn.Close() }

// WSGateway serves the line protocol over WebSocket at /ws, feeding
// connections into a Server.
type WSGateway struct {
	srv      *Server
	upgrader websocket.Upgrader
	http     *http.Server
	maxLine  int
	log      *zap.Logger
}

func NewWSGateway(addr string, srv *Server, log *zap.Logger) *WSGateway {
	g := &WSGateway{
		srv:     srv,
		maxLine: srv.cfg.MaxLineBytes,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.Handle)
	g.http = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return g
}

// Handle upgrades the request and attaches the connection as a session.
func (g *WSGateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("websocket 升級失敗", zap.Error(err))
		return
	}
	if g.maxLine > 0 {
		conn.SetReadLimit(int64(g.maxLine))
	}
	g.srv.Attach(&wsTransport{conn: conn})
}

// Serve accepts on ln until Shutdown.
func (g *WSGateway) Serve(ln net.Listener) error {
	err := g.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address.
func (g *WSGateway) ListenAndServe() error {
	ln, err := net.Listen("tcp", g.http.Addr)
	if err != nil {
		return err
	}
	return g.Serve(ln)
}

func (g *WSGateway) Shutdown(ctx context.Context) error {
	return g.http.Shutdown(ctx)
}
