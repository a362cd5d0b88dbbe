package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaults, mostly what the Harmony expects to find
const (
	DefaultHTTPAddress = "0.0.0.0:8042"
	DefaultName        = "Harmony2FreeboxRCMapper"
	DefaultHost        = "hd1.freebox.fr"
	DefaultRulesFile   = "rules.json"
	DefaultSchedule    = "@every 15m"
)

// Config is the primary daemon configuration...
type Config struct {
	ConfigDir        string  `json:"-" yaml:"-"`                               // passed in from CLI
	ConfigFile       string  `json:"-" yaml:"-"`                               // server.json or server.yaml
	HTTPAddress      string  `json:"HTTPAddress" yaml:"httpAddress"`           // net.Dial address format; the port is also what SSDP announces
	AdvertiseIP      string  `json:"AdvertiseIP" yaml:"advertiseIP"`           // overrides interface detection for the SSDP Location
	Name             string  `json:"Name" yaml:"name"`                         // friendlyName in the device descriptor
	RulesFile        string  `json:"RulesFile" yaml:"rulesFile"`               // relative to ConfigDir
	DefaultHost      string  `json:"DefaultHost" yaml:"defaultHost"`           // appliance host used when the rules document has none
	HTTPTimeout      int     `json:"HTTPTimeout" yaml:"httpTimeout"`           // (seconds) for HttpGet/HttpPost actions
	ResponseDelay    int     `json:"ResponseDelay" yaml:"responseDelay"`       // (milliseconds) wait before answering an M-SEARCH
	AnnounceSchedule string  `json:"AnnounceSchedule" yaml:"announceSchedule"` // cron spec for unsolicited ssdp:alive, "off" to disable
	Script           Script  `json:"Script" yaml:"script"`                     // leave Path empty if there is no interpreter
	HomeKit          HomeKit `json:"HomeKit" yaml:"homekit"`                   // expose the enable toggle as a HomeKit switch
	MDNS             bool    `json:"MDNS" yaml:"mdns"`                         // advertise the web UI with DNS-SD
}

// Script is the optional interpreter for ScriptInterpreter rules
type Script struct {
	Path string   `json:"Path" yaml:"path"`
	Args []string `json:"Args" yaml:"args"`
}

// HomeKit exposes the enable/disable toggle as a HomeKit switch
type HomeKit struct {
	Enabled     bool   `json:"Enabled" yaml:"enabled"`
	Pin         string `json:"Pin" yaml:"pin"`
	StoragePath string `json:"StoragePath" yaml:"storagePath"`
}

// Default returns a Config with every default filled in
func Default() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// Load reads file from dir; JSON unless the extension says YAML.
// A missing file is not an error, the defaults are used.
func Load(dir, file string) (Config, error) {
	var c Config

	fulldir, err := filepath.Abs(dir)
	if err != nil {
		return c, fmt.Errorf("unable to get config directory %s: %w", dir, err)
	}
	cfd := filepath.Join(fulldir, file)

	raw, err := os.ReadFile(cfd)
	switch {
	case os.IsNotExist(err):
		// run with defaults
	case err != nil:
		return c, fmt.Errorf("unable to open config %s: %w", cfd, err)
	default:
		switch strings.ToLower(filepath.Ext(cfd)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &c)
		default:
			err = json.Unmarshal(raw, &c)
		}
		if err != nil {
			return c, fmt.Errorf("unable to parse config %s: %w", cfd, err)
		}
	}

	c.ConfigDir = fulldir
	c.ConfigFile = cfd
	c.applyDefaults()
	return c, c.Validate()
}

func (c *Config) applyDefaults() {
	if c.HTTPAddress == "" {
		c.HTTPAddress = DefaultHTTPAddress
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.RulesFile == "" {
		c.RulesFile = DefaultRulesFile
	}
	if c.DefaultHost == "" {
		c.DefaultHost = DefaultHost
	}
	// unset/0 -- use the default of 10 seconds
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10
	}
	if c.AnnounceSchedule == "" {
		c.AnnounceSchedule = DefaultSchedule
	}
	if c.ResponseDelay <= 0 {
		c.ResponseDelay = 100
	}
	if c.HomeKit.Pin == "" {
		c.HomeKit.Pin = "00102003"
	}
	if c.HomeKit.StoragePath == "" {
		c.HomeKit.StoragePath = "homekit"
	}
}

// Validate checks the fields that would otherwise fail late
func (c Config) Validate() error {
	if _, err := c.HTTPPort(); err != nil {
		return err
	}
	if c.AdvertiseIP != "" {
		ip := net.ParseIP(c.AdvertiseIP)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("advertise address %q is not an IPv4 address", c.AdvertiseIP)
		}
	}
	return nil
}

// HTTPPort is the port part of HTTPAddress
func (c Config) HTTPPort() (int, error) {
	_, p, err := net.SplitHostPort(c.HTTPAddress)
	if err != nil {
		return 0, fmt.Errorf("bad HTTPAddress %q: %w", c.HTTPAddress, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("bad HTTPAddress port %q", p)
	}
	return port, nil
}

// ActionTimeout is HTTPTimeout as a duration
func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// Delay is ResponseDelay as a duration
func (c Config) Delay() time.Duration {
	return time.Duration(c.ResponseDelay) * time.Millisecond
}

// Announces reports whether periodic announcements are on
func (c Config) Announces() bool {
	return c.AnnounceSchedule != "off"
}

// RulesPath is where the rules document lives
func (c Config) RulesPath() string {
	if filepath.IsAbs(c.RulesFile) {
		return c.RulesFile
	}
	return filepath.Join(c.ConfigDir, c.RulesFile)
}
