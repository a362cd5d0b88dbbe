// Package homecontrol exposes the rule engine's on/off state as a HomeKit switch,
// so "pause the remote" can be done from the Home app.
package homecontrol

import (
	"fmt"
	"path/filepath"

	"github.com/cloudkucooland/farremote/config"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/log"
	"github.com/brutella/hc/util"
)

// Toggler is the part of the rule engine the switch drives
type Toggler interface {
	Enabled() bool
	SetEnabled(bool) bool
	Subscribe(func(bool))
}

type transport interface {
	Start()
	Stop() <-chan struct{}
}

// Platform is the platform handle for the HomeKit bridge
type Platform struct {
	cfg     config.HomeKit
	dir     string
	name    string
	engine  Toggler
	bridge  *accessory.Bridge
	sw      *accessory.Switch
	running transport
}

// New returns the HomeKit platform; nothing is published until Startup
func New(c config.Config, engine Toggler) *Platform {
	return &Platform{
		cfg:    c.HomeKit,
		dir:    c.ConfigDir,
		name:   c.Name,
		engine: engine,
	}
}

// Startup is called by the platform management to publish the bridge
func (p *Platform) Startup() error {
	storagePath := p.cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		storagePath = filepath.Join(p.dir, storagePath)
	}
	storage, err := util.NewFileStorage(storagePath)
	if err != nil {
		return fmt.Errorf("unable to get storage: %w", err)
	}

	p.build(util.GetSerialNumberForAccessoryName(p.name, storage))

	t, err := hc.NewIPTransport(hc.Config{
		Pin:         p.cfg.Pin,
		StoragePath: storagePath,
	}, p.bridge.Accessory, p.sw.Accessory)
	if err != nil {
		return err
	}
	p.running = t

	go t.Start()
	if uri, err := t.XHMURI(); err == nil {
		log.Info.Printf("add this bridge with: %s", uri)
	}
	return nil
}

func (p *Platform) build(serial string) {
	p.bridge = accessory.NewBridge(accessory.Info{
		Name:             p.name,
		ID:               1,
		SerialNumber:     serial,
		Manufacturer:     "farremote",
		Model:            "FarRemote",
		FirmwareRevision: "1.0.0",
	})
	p.bridge.Accessory.OnIdentify(func() {
		log.Info.Printf("bridge root identify called: %+v", p.bridge.Accessory)
	})

	p.sw = accessory.NewSwitch(accessory.Info{
		Name:         "Remote Rules",
		ID:           2,
		SerialNumber: serial + "-rules",
		Manufacturer: "farremote",
		Model:        "FarRemoteSwitch",
	})
	p.sw.Switch.On.SetValue(p.engine.Enabled())
	p.sw.Switch.On.OnValueRemoteUpdate(p.remoteUpdate)
	p.engine.Subscribe(p.localUpdate)
}

// from the Home app
func (p *Platform) remoteUpdate(on bool) {
	log.Info.Printf("HomeKit set rule execution to %t", on)
	p.engine.SetEnabled(on)
}

// from the web UI or anywhere else
func (p *Platform) localUpdate(on bool) {
	log.Debug.Printf("updating HomeKit switch to %t", on)
	p.sw.Switch.On.SetValue(on)
}

// Background runs the various background tasks: none for HC
func (p *Platform) Background() {}

// Shutdown is called at process teardown
func (p *Platform) Shutdown() error {
	if p.running != nil {
		<-p.running.Stop()
		p.running = nil
	}
	return nil
}
