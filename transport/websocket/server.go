package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

type coordinator interface {
	Register(conn entity.Conn) *usecase.Client
	HandleMessage(ctx context.Context, client *usecase.Client, data []byte)
	Disconnect(client *usecase.Client)
}

const maxMessageSize = 1024

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	upgrader    websocket.Upgrader
}

func New(logger *slog.Logger, coordinator coordinator) *Server {
	return &Server{
		logger:      logger,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection upgrades one HTTP request and pumps its messages into
// the coordinator until the peer goes away.
func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	ws, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer ws.Close()

	ws.SetReadLimit(maxMessageSize)

	log.Info("WebSocket connection established", "remote", ws.RemoteAddr().String())

	client := that.coordinator.Register(&wsConn{ws: ws})
	defer that.coordinator.Disconnect(client)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		that.coordinator.HandleMessage(ctx, client, data)
	}
}

// wsConn adapts a gorilla connection to the one-way push handle the
// coordinator needs. Writes are serialized; gorilla allows only one
// concurrent writer.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (that *wsConn) Send(payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.ws.WriteJSON(payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
