// Package farremote wires the fake Roku together: discovery, the ECP HTTP surface,
// the rule engine and the optional HomeKit and DNS-SD extras.
package farremote

import (
	"fmt"

	"github.com/cloudkucooland/farremote/config"
	"github.com/cloudkucooland/farremote/device"
	"github.com/cloudkucooland/farremote/ecphttp"
	"github.com/cloudkucooland/farremote/homecontrol"
	"github.com/cloudkucooland/farremote/logbuf"
	"github.com/cloudkucooland/farremote/mdns"
	"github.com/cloudkucooland/farremote/metrics"
	"github.com/cloudkucooland/farremote/platform"
	"github.com/cloudkucooland/farremote/rules"
	"github.com/cloudkucooland/farremote/runner"
	"github.com/cloudkucooland/farremote/ssdp"
	"github.com/cloudkucooland/farremote/store"

	log "github.com/sirupsen/logrus"
)

// Version is reported by the CLI and /api/version
var Version = "1.0.0"

// Bridge is a configured but not yet started process
type Bridge struct {
	Config   config.Config
	Engine   *rules.Engine
	Store    *store.Store
	Runner   *runner.Runner
	Resolver *device.Resolver
	Metrics  *metrics.Metrics
	HTTP     *ecphttp.Server
	SSDP     *ssdp.Responder

	platforms *platform.Registry
}

// Bootstrap sets up all the platforms. logs may be nil.
func Bootstrap(c config.Config, logs *logbuf.Buffer) (*Bridge, error) {
	port, err := c.HTTPPort()
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = logbuf.New(logbuf.DefaultSize)
	}

	b := &Bridge{
		Config:    c,
		Metrics:   metrics.New(),
		Resolver:  device.NewResolver(c.AdvertiseIP, c.Name, port),
		platforms: platform.NewRegistry(),
	}

	var interp *runner.Interpreter
	if c.Script.Path != "" {
		interp = &runner.Interpreter{Path: c.Script.Path, Args: c.Script.Args}
	}
	b.Runner = runner.New(c.ActionTimeout(), interp)
	b.Engine = rules.NewEngine(b.Runner, c.DefaultHost, b.Metrics)

	b.Store, err = store.New(c.RulesPath())
	if err != nil {
		return nil, err
	}
	b.LoadRules()

	b.HTTP = &ecphttp.Server{
		Engine:   b.Engine,
		Store:    b.Store,
		Tester:   b.Runner,
		Logs:     logs,
		Resolver: b.Resolver,
		Metrics:  b.Metrics.Handler(),
		Debug:    log.IsLevelEnabled(log.DebugLevel),
		Version:  Version,
	}

	schedule := ""
	if c.Announces() {
		schedule = c.AnnounceSchedule
	}
	b.SSDP = ssdp.New(b.Resolver, ssdp.Options{Delay: c.Delay(), Schedule: schedule}, b.Metrics)

	// the descriptor has to be reachable before anything points the hub at it
	b.platforms.Register("HTTP", &httpPlatform{srv: b.HTTP, address: c.HTTPAddress})
	b.platforms.Register("SSDP", ssdpPlatform{b.SSDP})
	if c.HomeKit.Enabled {
		b.platforms.Register("HomeControl", homecontrol.New(c, b.Engine))
	}
	if c.MDNS {
		b.platforms.Register("MDNS", mdns.New(c.Name, port))
	}
	return b, nil
}

// LoadRules reads the rules document, seeding it on first run. A bad document is
// logged and whatever was loaded before stays in force.
func (b *Bridge) LoadRules() {
	raw, err := b.Store.Load()
	if err != nil {
		log.Errorf("Error loading rules: %s", err.Error())
		return
	}
	if err := b.Engine.Reload(raw); err != nil {
		return
	}
	log.Infof("Rules loaded successfully from %s", b.Store.Path())
}

// Start brings every platform up; only a failure to bind HTTP or SSDP gets here
func (b *Bridge) Start() error {
	if err := b.platforms.Startup(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	b.platforms.Background()
	log.Infof("Harmony Hub to Freebox Remote Control Mapper started, %d rules loaded", b.Engine.Current().Len())
	return nil
}

// Shutdown is called at process stop
func (b *Bridge) Shutdown() {
	b.platforms.Shutdown()
}

type httpPlatform struct {
	srv     *ecphttp.Server
	address string
}

func (h *httpPlatform) Startup() error  { return h.srv.Start(h.address) }
func (h *httpPlatform) Background()     {}
func (h *httpPlatform) Shutdown() error { return h.srv.Shutdown() }

type ssdpPlatform struct {
	*ssdp.Responder
}

func (s ssdpPlatform) Startup() error  { return s.Start() }
func (s ssdpPlatform) Background()     {}
func (s ssdpPlatform) Shutdown() error { return s.Close() }
