package ssdp

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudkucooland/farremote/device"
	"github.com/cloudkucooland/farremote/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	msg string
	to  string
}

type fakeWriter struct {
	mu   sync.Mutex
	out  []sent
	fail bool
}

func (f *fakeWriter) WriteToUDP(b []byte, to *net.UDPAddr) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("network is unreachable")
	}
	f.out = append(f.out, sent{msg: string(b), to: to.String()})
	return len(b), nil
}

func (f *fakeWriter) Sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]sent, len(f.out))
	copy(cp, f.out)
	return cp
}

func testResolver(ifaces ...string) *device.Resolver {
	r := device.NewResolver("", "Harmony2FreeboxRCMapper", 8042)
	r.Hostname = func() (string, error) { return "mediabox", nil }
	r.InterfaceAddrs = func() ([]net.Addr, error) {
		var out []net.Addr
		for _, s := range ifaces {
			ip, n, _ := net.ParseCIDR(s)
			n.IP = ip
			out = append(out, n)
		}
		return out, nil
	}
	return r
}

func testResponder(res *device.Resolver) (*Responder, *fakeWriter, *fakeWriter) {
	r := New(res, Options{}, metrics.New())
	uni, multi := &fakeWriter{}, &fakeWriter{}
	r.unicast, r.multicast = uni, multi
	return r, uni, multi
}

func search(st string) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 3\r\n" +
		"ST: " + st + "\r\n\r\n")
}

var locationRe = regexp.MustCompile(`(?m)^Location: (\S+)\r$`)

func location(t *testing.T, msg string) string {
	t.Helper()
	m := locationRe.FindStringSubmatch(msg)
	require.Len(t, m, 2, msg)
	_, err := url.ParseRequestURI(m[1])
	require.NoError(t, err)
	return m[1]
}

func TestSearchAllGetsOneOfEach(t *testing.T) {
	for _, st := range []string{TargetAll, TargetRoot, TargetRokuECP} {
		r, uni, multi := testResponder(testResolver("192.168.1.20/24"))
		from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 50123}

		require.True(t, r.handle(search(st), from), st)
		require.Eventually(t, func() bool {
			return len(uni.Sent()) == 1 && len(multi.Sent()) == 1
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		u, m := uni.Sent(), multi.Sent()
		require.Len(t, u, 1)
		require.Len(t, m, 1)

		assert.Equal(t, "192.168.1.50:50123", u[0].to)
		assert.True(t, strings.HasPrefix(u[0].msg, "HTTP/1.1 200 OK\r\n"))
		assert.Contains(t, u[0].msg, "SERVER: "+device.ServerString)
		assert.Equal(t, "http://192.168.1.20:8042/device-desc.xml", location(t, u[0].msg))

		assert.Equal(t, groupHostPort, m[0].to)
		assert.True(t, strings.HasPrefix(m[0].msg, "NOTIFY * HTTP/1.1\r\n"))
		assert.Contains(t, m[0].msg, "NTS: ssdp:alive\r\n")
		assert.Contains(t, m[0].msg, "Cache-Control: max-age=3600\r\n")
		assert.Contains(t, m[0].msg, "USN: uuid:roku:ecp:mediabox\r\n")
		assert.Equal(t, "http://192.168.1.20:8042/device-desc.xml", location(t, m[0].msg))
	}
}

func TestUnrelatedSearchIgnored(t *testing.T) {
	r, uni, multi := testResponder(testResolver("192.168.1.20/24"))
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 1900}

	assert.False(t, r.handle(search("urn:dial-multiscreen-org:service:dial:1"), from))
	assert.False(t, r.handle([]byte("NOTIFY * HTTP/1.1\r\nNT: upnp:rootdevice\r\nNTS: ssdp:alive\r\n\r\n"), from))
	assert.False(t, r.handle([]byte("garbage"), from))

	assert.Never(t, func() bool {
		return len(uni.Sent())+len(multi.Sent()) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNoAddressSkipsSend(t *testing.T) {
	r, uni, multi := testResponder(testResolver("127.0.0.1/8"))
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 1900}

	r.respond(from)
	assert.Empty(t, uni.Sent())
	assert.Empty(t, multi.Sent())

	// still answers once the network shows up
	res := testResolver("192.168.1.20/24")
	r.resolver = res
	r.respond(from)
	assert.Len(t, uni.Sent(), 1)
	assert.Len(t, multi.Sent(), 1)
}

func TestSendFailureDoesNotStopOtherSend(t *testing.T) {
	r, uni, multi := testResponder(testResolver("192.168.1.20/24"))
	multi.fail = true

	r.respond(&net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 1900})
	assert.Len(t, uni.Sent(), 1)
}

func TestAnnounce(t *testing.T) {
	r, uni, multi := testResponder(testResolver("192.168.1.20/24"))
	r.Announce()
	assert.Empty(t, uni.Sent())
	require.Len(t, multi.Sent(), 1)
	assert.Contains(t, multi.Sent()[0].msg, "NTS: ssdp:alive")
}

func TestParseSearch(t *testing.T) {
	st, ok := ParseSearch(search("ssdp:all"))
	assert.True(t, ok)
	assert.Equal(t, "ssdp:all", st)

	_, ok = ParseSearch([]byte("HTTP/1.1 200 OK\r\nST: roku:ecp\r\n\r\n"))
	assert.False(t, ok)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("ssdp:all"))
	assert.True(t, Matches("upnp:rootdevice"))
	assert.True(t, Matches("roku:ecp"))
	assert.False(t, Matches("urn:schemas-upnp-org:device:MediaRenderer:1"))
	assert.False(t, Matches(""))
}

func TestByeBye(t *testing.T) {
	msg := string(ByeByeMessage(device.Identity{Hostname: "mediabox"}))
	assert.Contains(t, msg, "NTS: ssdp:byebye\r\n")
	assert.NotContains(t, msg, "Location:")
}

type slowWriter struct {
	fakeWriter
	started chan struct{}
	once    sync.Once
}

func (s *slowWriter) WriteToUDP(b []byte, to *net.UDPAddr) (int, error) {
	s.once.Do(func() { close(s.started) })
	time.Sleep(100 * time.Millisecond)
	return s.fakeWriter.WriteToUDP(b, to)
}

func TestCloseWaitsForReplyInFlight(t *testing.T) {
	r, uni, _ := testResponder(testResolver("192.168.1.20/24"))
	multi := &slowWriter{started: make(chan struct{})}
	r.multicast = multi
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 50123}

	require.True(t, r.handle(search(TargetRokuECP), from))
	select {
	case <-multi.started:
	case <-time.After(time.Second):
		t.Fatal("reply never started")
	}

	require.NoError(t, r.Close())
	// nothing is left to send once Close returns
	assert.Len(t, multi.Sent(), 1)
	assert.Len(t, uni.Sent(), 1)

	assert.False(t, r.handle(search(TargetRokuECP), from))
	assert.Never(t, func() bool {
		return len(uni.Sent()) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}
