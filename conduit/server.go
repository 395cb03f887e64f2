package conduit

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vectorframe/conduit/internal/telemetry"
)

// Server upgrades incoming HTTP connections to websockets and hands them to
// a ConduitExec. The teacher repo never had a transport layer of its own
// (api.go's Scheduler is driven in-process); this is new ambient plumbing
// built the way gorilla/websocket's own examples wire an Upgrader, since
// nothing in the pack carries a server of this shape to adapt from.
type Server struct {
	Exec   *ConduitExec
	Logger telemetry.Logger

	upgrader websocket.Upgrader
}

// NewServer constructs a Server fronting exec. logger may be nil.
func NewServer(exec *ConduitExec, logger telemetry.Logger) *Server {
	if logger == nil {
		logger = telemetry.NewNoop()
	}
	return &Server{
		Exec:   exec,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and spawns a dedicated reader goroutine
// that pushes every decoded Envelope onto Exec's InboundQueue until the
// socket closes or errors, at which point the connection is dropped.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("websocket upgrade failed", "err", err)
		return
	}

	conn := s.Exec.RegisterConnection(raw)
	s.Logger.Info("connection accepted", "conn_id", conn.ID, "remote", r.RemoteAddr)

	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *Connection) {
	defer func() {
		s.Exec.dropConnection(conn.ID)
		conn.Close()
		s.Logger.Info("connection closed", "conn_id", conn.ID)
	}()

	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return
		}
		s.Exec.Inbound().Push(conn, env)
	}
}

// ListenAndServe starts an HTTP server on addr routing every request to the
// websocket handler at path.
func ListenAndServe(addr, path string, exec *ConduitExec, logger telemetry.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, NewServer(exec, logger))
	return http.ListenAndServe(addr, mux)
}
