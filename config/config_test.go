package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir, "server.json")
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddress, c.HTTPAddress)
	assert.Equal(t, DefaultName, c.Name)
	assert.Equal(t, DefaultHost, c.DefaultHost)
	assert.Equal(t, 10*time.Second, c.ActionTimeout())
	assert.Equal(t, 100*time.Millisecond, c.Delay())
	assert.Equal(t, filepath.Join(dir, "rules.json"), c.RulesPath())

	port, err := c.HTTPPort()
	require.NoError(t, err)
	assert.Equal(t, 8042, port)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	raw := `{"HTTPAddress": ":9000", "AdvertiseIP": "192.168.1.20", "HTTPTimeout": 3, "Script": {"Path": "/bin/sh", "Args": ["-s"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.json"), []byte(raw), 0o644))

	c, err := Load(dir, "server.json")
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.HTTPAddress)
	assert.Equal(t, "192.168.1.20", c.AdvertiseIP)
	assert.Equal(t, 3*time.Second, c.ActionTimeout())
	assert.Equal(t, "/bin/sh", c.Script.Path)
	assert.Equal(t, []string{"-s"}, c.Script.Args)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	raw := "httpAddress: \"0.0.0.0:8060\"\nname: Living Room\nannounceSchedule: \"@every 5m\"\nhomekit:\n  enabled: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.yaml"), []byte(raw), 0o644))

	c, err := Load(dir, "server.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Living Room", c.Name)
	assert.Equal(t, "@every 5m", c.AnnounceSchedule)
	assert.True(t, c.HomeKit.Enabled)
	assert.Equal(t, "00102003", c.HomeKit.Pin)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.AdvertiseIP = "fe80::1"
	assert.Error(t, c.Validate())

	c = Default()
	c.HTTPAddress = "nope"
	assert.Error(t, c.Validate())

	assert.NoError(t, Default().Validate())
}

func TestLoadBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.json"), []byte("{"), 0o644))
	_, err := Load(dir, "server.json")
	assert.Error(t, err)
}

func TestAnnounceSchedule(t *testing.T) {
	// empty is the default schedule, only "off" turns announcements off
	c := Default()
	assert.Equal(t, DefaultSchedule, c.AnnounceSchedule)
	assert.True(t, c.Announces())

	c.AnnounceSchedule = "off"
	assert.False(t, c.Announces())
}
