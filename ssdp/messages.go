package ssdp

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudkucooland/farremote/device"
)

// the ECP search targets a Roku answers to
const (
	TargetAll     = "ssdp:all"
	TargetRoot    = "upnp:rootdevice"
	TargetRokuECP = "roku:ecp"
	maxAge        = 3600
)

// NotifyMessage is the ssdp:alive announcement sent to the group
func NotifyMessage(id device.Identity) []byte {
	return notify(id, "ssdp:alive")
}

// ByeByeMessage withdraws the announcement
func ByeByeMessage(id device.Identity) []byte {
	return []byte(fmt.Sprintf("NOTIFY * HTTP/1.1\r\n"+
		"Host: %s\r\n"+
		"NT: roku:ecp\r\n"+
		"NTS: ssdp:byebye\r\n"+
		"USN: %s\r\n\r\n",
		groupHostPort, id.USN()))
}

func notify(id device.Identity, nts string) []byte {
	return []byte(fmt.Sprintf("NOTIFY * HTTP/1.1\r\n"+
		"Host: %s\r\n"+
		"Cache-Control: max-age=%d\r\n"+
		"NT: roku:ecp\r\n"+
		"NTS: %s\r\n"+
		"Location: %s\r\n"+
		"USN: %s\r\n\r\n",
		groupHostPort, maxAge, nts, id.Location(), id.USN()))
}

// ResponseMessage is the unicast answer to an M-SEARCH
func ResponseMessage(id device.Identity) []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"ST: roku:ecp\r\n"+
		"USN: %s::roku:ecp\r\n"+
		"Cache-Control: max-age=%d\r\n"+
		"EXT:\r\n"+
		"SERVER: %s\r\n"+
		"Location: %s\r\n\r\n",
		id.USN(), maxAge, device.ServerString, id.Location()))
}

// ParseSearch returns the ST of an M-SEARCH datagram; ok is false for anything else
func ParseSearch(data []byte) (st string, ok bool) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return "", false
	}
	if req.Method != "M-SEARCH" {
		return "", false
	}
	return strings.TrimSpace(req.Header.Get("ST")), true
}

// Matches reports whether a search target should be answered
func Matches(st string) bool {
	switch strings.ToLower(st) {
	case TargetAll, TargetRoot, TargetRokuECP:
		return true
	}
	return false
}
