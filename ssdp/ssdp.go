// Package ssdp makes the bridge show up as a Roku when the Harmony hub searches the LAN.
package ssdp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cloudkucooland/farremote/device"
	"github.com/cloudkucooland/farremote/metrics"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// standard SSDP group
const (
	MulticastAddr = "239.255.255.250"
	Port          = 1900
	groupHostPort = "239.255.255.250:1900"
)

type packetWriter interface {
	WriteToUDP([]byte, *net.UDPAddr) (int, error)
}

// Options configures a Responder
type Options struct {
	Delay    time.Duration // wait before answering a search
	Schedule string        // cron spec for unsolicited announcements, empty for none
}

// Responder answers M-SEARCH requests and announces the device
type Responder struct {
	resolver *device.Resolver
	opts     Options
	metrics  *metrics.Metrics
	group    *net.UDPAddr

	conn      *net.UDPConn // joined to the group, replies go out on it
	client    *net.UDPConn // multicast sends
	unicast   packetWriter
	multicast packetWriter

	cron    *cron.Cron
	done    chan struct{}
	wg      sync.WaitGroup // listener
	replies sync.WaitGroup // delayed search responses
	mu      sync.Mutex
	closed  bool
	once    sync.Once
}

// New returns a Responder that has not yet bound anything
func New(resolver *device.Resolver, opts Options, m *metrics.Metrics) *Responder {
	return &Responder{
		resolver: resolver,
		opts:     opts,
		metrics:  m,
		group:    &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: Port},
		done:     make(chan struct{}),
	}
}

// Start binds the multicast socket and starts listening. A bind failure is returned,
// everything after that is logged and survived.
func (r *Responder) Start() error {
	conn, err := net.ListenMulticastUDP("udp4", nil, r.group)
	if err != nil {
		return fmt.Errorf("unable to start SSDP listener on %s: %w", groupHostPort, err)
	}
	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		conn.Close()
		return fmt.Errorf("unable to open SSDP client socket: %w", err)
	}
	r.conn, r.client = conn, client
	r.unicast, r.multicast = conn, client

	log.Infof("SSDP Server listening on %s", conn.LocalAddr().String())
	if ip, err := r.resolver.LocalIP(); err != nil {
		log.Errorf("SSDP: %s", err.Error())
	} else {
		log.Warnf("SSDP Multicasting with address %s (if this is not your preferred interface, provide an IPv4 address with --ip)", ip.String())
	}

	r.wg.Add(1)
	go r.listen()

	if r.opts.Schedule != "" {
		r.cron = cron.New()
		if _, err := r.cron.AddFunc(r.opts.Schedule, r.Announce); err != nil {
			log.Errorf("SSDP: bad announce schedule %q: %s", r.opts.Schedule, err.Error())
		} else {
			r.cron.Start()
		}
		r.Announce()
	}
	return nil
}

// Close sends ssdp:byebye and stops listening
func (r *Responder) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
		if r.cron != nil {
			<-r.cron.Stop().Done()
		}
		// a reply whose delay already ran out is still sending
		r.replies.Wait()
		if r.conn == nil {
			return
		}
		if id, rerr := r.resolver.Resolve(); rerr == nil {
			r.send("byebye", r.multicast, ByeByeMessage(id), r.group)
		}
		err = r.conn.Close()
		r.client.Close()
		r.wg.Wait()
	})
	return err
}

func (r *Responder) listen() {
	defer r.wg.Done()

	buffer := make([]byte, 2048)
	for {
		n, addr, err := r.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Errorf("SSDP read: %s", err.Error())
			continue
		}
		r.handle(buffer[:n], addr)
	}
}

// handle answers data if it is a search we care about, reporting whether it was
func (r *Responder) handle(data []byte, from *net.UDPAddr) bool {
	st, ok := ParseSearch(data)
	if !ok || !Matches(st) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	log.Infof("Received M-SEARCH from %s, responding...", from.String())
	r.metrics.Discovery("search", true)

	// copy, the read buffer is reused
	to := &net.UDPAddr{IP: append(net.IP(nil), from.IP...), Port: from.Port, Zone: from.Zone}
	r.replies.Add(1)
	go func() {
		defer r.replies.Done()
		select {
		case <-time.After(r.opts.Delay):
			r.respond(to)
		case <-r.done:
		}
	}()
	return true
}

// respond sends the alive announcement to the group and the search response to the requester
func (r *Responder) respond(to *net.UDPAddr) {
	id, err := r.resolver.Resolve()
	if err != nil {
		log.Errorf("SSDP: not responding to %s: %s", to.String(), err.Error())
		r.metrics.Discovery("search", false)
		return
	}
	r.send("notify", r.multicast, NotifyMessage(id), r.group)
	r.send("response", r.unicast, ResponseMessage(id), to)
}

// Announce sends an unsolicited ssdp:alive
func (r *Responder) Announce() {
	id, err := r.resolver.Resolve()
	if err != nil {
		log.Errorf("SSDP: not announcing: %s", err.Error())
		return
	}
	r.send("notify", r.multicast, NotifyMessage(id), r.group)
}

func (r *Responder) send(what string, w packetWriter, msg []byte, to *net.UDPAddr) {
	if w == nil {
		log.Errorf("SSDP: no socket for %s", what)
		r.metrics.Discovery(what, false)
		return
	}
	if _, err := w.WriteToUDP(msg, to); err != nil {
		log.Errorf("Error sending %s to %s: %s", what, to.String(), err.Error())
		r.metrics.Discovery(what, false)
		return
	}
	log.Infof("Sent %s to %s", what, to.String())
	r.metrics.Discovery(what, true)
}
