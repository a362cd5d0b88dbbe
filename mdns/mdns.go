// Package mdns advertises the web UI over DNS-SD and browses for the appliance.
package mdns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brutella/dnssd"
	log "github.com/sirupsen/logrus"
)

// ServiceType is what the web UI is advertised as
const ServiceType = "_http._tcp"

// FreeboxType is what a Freebox Server advertises its API as
const FreeboxType = "_fbx-api._tcp.local."

// Platform advertises the HTTP surface while it runs
type Platform struct {
	Name string
	Port int

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an advertiser for name on port
func New(name string, port int) *Platform {
	return &Platform{Name: name, Port: port}
}

func (p *Platform) service() (dnssd.Service, error) {
	return dnssd.NewService(dnssd.Config{
		Name: p.Name,
		Type: ServiceType,
		Port: p.Port,
		Text: map[string]string{"path": "/api/rules"},
	})
}

// Startup is called by the platform management to start responding
func (p *Platform) Startup() error {
	sv, err := p.service()
	if err != nil {
		return fmt.Errorf("dnssd service: %w", err)
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("dnssd responder: %w", err)
	}
	if _, err := rp.Add(sv); err != nil {
		return fmt.Errorf("dnssd add: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		log.Infof("advertising %s.%s on port %d", p.Name, ServiceType, p.Port)
		if err := rp.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("dnssd: %s", err.Error())
		}
	}()
	return nil
}

// Background runs the various background tasks: none for mdns
func (p *Platform) Background() {}

// Shutdown stops responding
func (p *Platform) Shutdown() error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	return nil
}

// Browse looks for the first instance of service advertising an IPv4 address and returns host:port
func Browse(ctx context.Context, service string, timeout time.Duration) (string, error) {
	discovered := ""
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := func(e dnssd.BrowseEntry) {
		for _, ipa := range e.IPs {
			if ipa.To4() != nil {
				discovered = fmt.Sprintf("%s:%d", ipa.String(), e.Port)
				cancel()
				return
			}
		}
	}

	if err := dnssd.LookupType(ctx, service, found, reject); err != nil {
		if !strings.Contains(err.Error(), "context") {
			log.Errorf("dnssd lookup %s: %s", service, err.Error())
			return discovered, err
		}
	}
	if discovered == "" {
		return "", fmt.Errorf("no %s found", service)
	}
	return discovered, nil
}

func reject(e dnssd.BrowseEntry) {
	log.Debugf("dnssd-lookup: %+v", e)
}
