// Package device describes the Roku the Harmony hub thinks it is talking to.
package device

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"
)

// these have to match what the hub expects from a Roku TV
const (
	Manufacturer    = "TCL"
	ManufacturerURL = "http://www.github.com/albanvn75/VirtualFreeboxRC"
	ModelName       = "7108X"
	ServerString    = "Roku/9.3.0 UPnP/1.0 Roku/9.3.0"
	DescriptorPath  = "/device-desc.xml"
)

// ErrNoAddress means there is no override and no usable interface address
var ErrNoAddress = errors.New("no network adapters with an IPv4 address available")

// Identity is recomputed every time it is needed so address and hostname changes are picked up
type Identity struct {
	IP           net.IP
	Hostname     string
	FriendlyName string
	Port         int
}

// Resolver works out the current Identity
type Resolver struct {
	Override     string // operator supplied IPv4, wins over everything
	FriendlyName string
	Port         int

	// replaced in tests
	InterfaceAddrs func() ([]net.Addr, error)
	Hostname       func() (string, error)
}

// NewResolver returns a Resolver that asks the host
func NewResolver(override, name string, port int) *Resolver {
	return &Resolver{
		Override:       override,
		FriendlyName:   name,
		Port:           port,
		InterfaceAddrs: net.InterfaceAddrs,
		Hostname:       os.Hostname,
	}
}

// Resolve returns the Identity as of now
func (r *Resolver) Resolve() (Identity, error) {
	host, err := r.hostname()
	if err != nil {
		return Identity{}, err
	}
	ip, err := r.LocalIP()
	if err != nil {
		return Identity{}, err
	}
	return Identity{IP: ip, Hostname: host, FriendlyName: r.FriendlyName, Port: r.Port}, nil
}

// LocalIP is the override if set, otherwise the first non-loopback IPv4 address
func (r *Resolver) LocalIP() (net.IP, error) {
	if r.Override != "" {
		ip := net.ParseIP(r.Override).To4()
		if ip == nil {
			return nil, fmt.Errorf("override %q is not an IPv4 address", r.Override)
		}
		return ip, nil
	}

	lookup := r.InterfaceAddrs
	if lookup == nil {
		lookup = net.InterfaceAddrs
	}
	addrs, err := lookup()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAddress, err.Error())
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4, nil
		}
	}
	return nil, ErrNoAddress
}

func (r *Resolver) hostname() (string, error) {
	h := r.Hostname
	if h == nil {
		h = os.Hostname
	}
	name, err := h()
	if err != nil {
		return "", fmt.Errorf("unable to get hostname: %w", err)
	}
	return name, nil
}

// Location is the descriptor URL put in SSDP messages
func (id Identity) Location() string {
	return fmt.Sprintf("http://%s:%d%s", id.IP.String(), id.Port, DescriptorPath)
}

// Serial is the serial number reported to the hub
func (id Identity) Serial() string {
	return id.Hostname
}

// UDN is a stable uuid derived from the hostname
func (id Identity) UDN() string {
	return "uuid:" + uuid.NewSHA1(uuid.NameSpaceDNS, []byte(id.Hostname)).String()
}

// USN is the SSDP unique service name
func (id Identity) USN() string {
	return "uuid:roku:ecp:" + id.Serial()
}
