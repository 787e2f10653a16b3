package inspect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hpackCodec/internal/cache"
	"hpackCodec/internal/config"
	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/headers"
	"hpackCodec/internal/logging"
)

const maxBodySize = 1 << 20

// Server keeps named flows of encoder and decoder state and exposes them
// over HTTP so captured header blocks can be decoded with the right context.
type Server struct {
	Port         uint16
	MaxFrameSize uint32
	Logger       logging.Logger

	conf     *config.Config
	interner *cache.Interner

	mutex sync.Mutex
	flows map[string]*Flow
}

func NewServer(conf *config.Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	s := &Server{
		Port:         uint16(conf.Server.Port),
		MaxFrameSize: conf.Server.MaxFrameSize,
		Logger:       logger,
		conf:         conf,
		flows:        make(map[string]*Flow),
	}
	if conf.Decoder.Intern.Enabled {
		s.interner = cache.NewInterner(conf.Decoder.Intern.MaxEntries, conf.Decoder.Intern.MaxLength)
	}
	return s
}

func (s *Server) Log(level logging.LogLevel, message string, args ...interface{}) {
	s.Logger.Log(level, message, args...)
}

// flow returns the named flow, creating it when create is set.
func (s *Server) flow(name string, create bool) (*Flow, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, ok := s.flows[name]
	if ok || !create {
		return f, ok
	}

	var interner hpack.Interner
	if s.interner != nil {
		interner = s.interner
	}
	f = &Flow{
		enc: hpack.NewEncoder(s.conf.Encoder.Options(s.Logger)...),
		dec: hpack.NewDecoder(s.conf.Decoder.Options(s.Logger, interner)...),
	}
	f.reader = headers.NewBlockReader(f.dec, s.Logger)
	s.flows[name] = f
	s.Log(logging.LogLevelDebug, "Created flow %q", name)
	return f, true
}

// dropFlow removes f if it is still registered under name.
func (s *Server) dropFlow(name string, f *Flow) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if current, ok := s.flows[name]; ok && (f == nil || current == f) {
		delete(s.flows, name)
		return true
	}
	return false
}

func (s *Server) flowNames() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(s.NotFoundHandler)
	r.MethodNotAllowed(s.MethodNotAllowedHandler)

	r.Get("/stats", s.StatsHandler)
	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlowsHandler)
		r.Route("/{flow}", func(r chi.Router) {
			r.Get("/table", s.TableHandler)
			r.Post("/decode", s.DecodeHandler)
			r.Post("/encode", s.EncodeHandler)
			r.Post("/settings", s.SettingsHandler)
			r.Delete("/", s.DeleteFlowHandler)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log(logging.LogLevelDebug, "[%s] %s %s -> %d (%d bytes, %v)",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.Log(logging.LogLevelInfo, "Starting inspection server on port %d", s.Port)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port))
	if err != nil {
		s.Log(logging.LogLevelError, "Failed to listen on port %d: %v", s.Port, err)
		return err
	}

	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log(logging.LogLevelInfo, "Listening on http://%s", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Log(logging.LogLevelInfo, "Shutting down inspection server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
