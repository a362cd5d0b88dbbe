package device

import "regexp"

// Buttons are the ECP key names a Harmony sends for a Roku
var Buttons = []string{
	"Back",
	"ChannelDown",
	"ChannelUp",
	"Down",
	"Fwd",
	"Home",
	"Info",
	"Left",
	"Pause",
	"Play",
	"PowerOff",
	"PowerOn",
	"Rev",
	"Right",
	"Search",
	"Select",
	"Up",
	"VolumeDown",
	"VolumeMute",
	"VolumeUp",
}

var validButton = regexp.MustCompile(`^[a-zA-Z]+$`)

// ValidButton reports whether b is acceptable as a button name: letters only
func ValidButton(b string) bool {
	return validButton.MatchString(b)
}
