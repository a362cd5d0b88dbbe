package rules

// Key is a Freebox remote key a templated rule can send
type Key struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FreeboxKeys is what the editor offers for the Key field
var FreeboxKeys = []Key{
	{"", "-- Select a key --"},
	{"power", "Power"},
	{"up", "Up"},
	{"down", "Down"},
	{"left", "Left"},
	{"right", "Right"},
	{"ok", "OK"},
	{"back", "Back"},
	{"home", "Home"},
	{"vol_inc", "Volume +"},
	{"vol_dec", "Volume -"},
	{"mute", "Mute"},
	{"prgm_inc", "Channel +"},
	{"prgm_dec", "Channel -"},
	{"play", "Play"},
	{"pause", "Pause"},
	{"fwd", "Forward"},
	{"bwd", "Backward"},
	{"rec", "Record"},
	{"list", "List"},
	{"red", "Red"},
	{"green", "Green"},
	{"yellow", "Yellow"},
	{"blue", "Blue"},
	{"tv", "TV"},
	{"media", "Media"},
	{"free", "Free"},
}
