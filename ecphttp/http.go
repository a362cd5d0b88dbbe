// Package ecphttp is the HTTP side of the fake Roku: the device descriptor, the ECP keypress
// endpoint the Harmony hub calls, and the JSON API used by the rules editor.
package ecphttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/cloudkucooland/farremote/device"
	"github.com/cloudkucooland/farremote/logbuf"
	"github.com/cloudkucooland/farremote/rules"
	"github.com/cloudkucooland/farremote/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Engine is what the server needs from the rule engine
type Engine interface {
	Dispatch(ctx context.Context, button string) []rules.Result
	Enabled() bool
	Toggle() bool
	Reload(doc []byte) error
	Current() *rules.RuleSet
}

// RuleStore persists the rules document
type RuleStore interface {
	Read() (store.Document, error)
	Save(store.Document) ([]byte, error)
	Reset() (store.Document, []byte, error)
}

// Tester runs a one-off GET for the editor's test button
type Tester interface {
	TestURL(ctx context.Context, url string) (int, error)
}

// Logs is the in-memory log buffer
type Logs interface {
	Entries() []logbuf.Entry
	Clear()
}

// Server is the HTTP control channel
type Server struct {
	Engine   Engine
	Store    RuleStore
	Tester   Tester
	Logs     Logs
	Resolver *device.Resolver
	Metrics  http.Handler // optional /metrics
	Debug    bool         // dump every request
	Version  string

	srv http.Server
}

// Router builds the routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// ECP, what the hub talks to
	r.HandleFunc(device.DescriptorPath, s.descriptorHandler).Methods(http.MethodGet)
	r.HandleFunc("/query/apps", appsHandler).Methods(http.MethodGet)
	r.HandleFunc("/keypress/{button}", s.keypressHandler).Methods(http.MethodPost)
	r.HandleFunc("/keydown/{button}", ackHandler).Methods(http.MethodPost)
	r.HandleFunc("/keyup/{button}", ackHandler).Methods(http.MethodPost)

	// the editor's API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rules", s.getRulesHandler).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.saveRulesHandler).Methods(http.MethodPost)
	api.HandleFunc("/reset-rules", s.resetRulesHandler).Methods(http.MethodPost)
	api.HandleFunc("/toggle", s.toggleHandler).Methods(http.MethodPost)
	api.HandleFunc("/logs", s.logsHandler).Methods(http.MethodGet)
	api.HandleFunc("/clear-logs", s.clearLogsHandler).Methods(http.MethodPost)
	api.HandleFunc("/test-rule", s.testRuleHandler).Methods(http.MethodPost)
	api.HandleFunc("/freebox-keys", keysHandler).Methods(http.MethodGet)
	api.HandleFunc("/roku-buttons", buttonsHandler).Methods(http.MethodGet)
	api.HandleFunc("/version", s.versionHandler).Methods(http.MethodGet)

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	if s.Debug {
		r.Use(debugMW)
	}
	return r
}

// Start binds address and serves in the background. Failing to bind is fatal to the caller.
func (s *Server) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("unable to start HTTP control channel on %s: %w", address, err)
	}

	s.srv = http.Server{
		WriteTimeout: time.Second * 60, // keypress waits for the rules to finish
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      s.Router(),
	}

	go func() {
		log.Infof("Button API running on http://%s", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()
	return nil
}

// Shutdown stops the server, waiting up to 15 seconds for requests in flight
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func debugMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		dump, _ := httputil.DumpRequest(req, false)
		log.Debug(string(dump))
		next.ServeHTTP(res, req)
	})
}
