package platform

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Control is the interface which all platforms must satisfy
type Control interface {
	Startup() error
	Background()
	Shutdown() error
}

// Registry holds the platforms in the order they were registered
type Registry struct {
	mu        sync.Mutex
	names     []string
	platforms map[string]Control
	started   []string
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]Control)}
}

// Register adds a platform; registering the same name twice keeps the first
func (r *Registry) Register(name string, control Control) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.platforms[name]; ok {
		log.Warnf("platform %s already registered", name)
		return
	}
	r.platforms[name] = control
	r.names = append(r.names, name)
}

// Get looks up a registered platform by name
func (r *Registry) Get(name string) (Control, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.platforms[name]
	return pc, ok
}

// Startup is called at process start to initialize all platforms.
// The first failure stops the ones already started and is returned.
func (r *Registry) Startup() error {
	r.mu.Lock()
	names := append([]string(nil), r.names...)
	r.mu.Unlock()

	for _, name := range names {
		log.Debugf("Starting up: %s", name)
		p, _ := r.Get(name)
		if err := p.Startup(); err != nil {
			r.Shutdown()
			return fmt.Errorf("%s: %w", name, err)
		}
		r.mu.Lock()
		r.started = append(r.started, name)
		r.mu.Unlock()
	}
	return nil
}

// Background starts the background processes for every started platform
func (r *Registry) Background() {
	r.mu.Lock()
	started := append([]string(nil), r.started...)
	r.mu.Unlock()

	for _, name := range started {
		log.Debugf("Starting background processes: %s", name)
		p, _ := r.Get(name)
		p.Background()
	}
}

// Shutdown is called at process stop, in reverse start order
func (r *Registry) Shutdown() {
	r.mu.Lock()
	started := r.started
	r.started = nil
	r.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		name := started[i]
		log.Infof("Shutting down: %s", name)
		p, _ := r.Get(name)
		if err := p.Shutdown(); err != nil {
			log.Errorf("%s shutdown: %s", name, err.Error())
		}
	}
}
