package rules

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudkucooland/farremote/action"
	"github.com/cloudkucooland/farremote/runner"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ErrMalformed is the cause of a ConfigError for documents that are not a JSON object with a rules list
var ErrMalformed = errors.New("malformed rules document")

// ConfigError is returned when a rules document cannot be used at all.
// Individual bad entries are skipped instead.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "rules: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RemoteURL is the Freebox remote control endpoint on host
func RemoteURL(host string) string {
	return fmt.Sprintf("http://%s/pub/remote_control", host)
}

// KeyURL is the templated target for a key press on host
func KeyURL(host, remoteID, key string) string {
	q := url.Values{}
	q.Set("code", remoteID)
	q.Set("key", key)
	return RemoteURL(host) + "?" + q.Encode()
}

// Parse builds a RuleSet from a rules document:
//
//	{"remoteControlId": "...", "freeboxHost": "...", "rules": [{"Button": "Home", "Key": "home"}, ...]}
//
// An entry may instead carry Action, EndPoint and ExData to run something other than the
// templated GET. Entries without a Button, or templated entries without a Key, are skipped.
func Parse(doc []byte, defaultHost string) (*RuleSet, error) {
	if !gjson.ValidBytes(doc) {
		return nil, &ConfigError{Err: fmt.Errorf("%w: not valid JSON", ErrMalformed)}
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, &ConfigError{Err: fmt.Errorf("%w: expected an object", ErrMalformed)}
	}
	list := root.Get("rules")
	if list.Exists() && !list.IsArray() {
		return nil, &ConfigError{Err: fmt.Errorf("%w: rules is not a list", ErrMalformed)}
	}

	set := &RuleSet{
		RemoteID: strings.TrimSpace(root.Get("remoteControlId").String()),
		Host:     root.Get("freeboxHost").String(),
	}
	if set.Host == "" {
		set.Host = defaultHost
	}
	if set.RemoteID == "" {
		log.Warn("Freebox remote control code is empty! Please configure it in the web interface at /edit")
	}

	for i, entry := range list.Array() {
		r, ok := parseEntry(entry, set)
		if !ok {
			log.Debugf("skipping rules entry %d: %s", i, entry.Raw)
			continue
		}
		set.rules = append(set.rules, r)
		log.Infof("Loaded %s rule %q for button %q", r.Action.Kind(), r.Name, r.Button)
	}
	return set, nil
}

func parseEntry(e gjson.Result, set *RuleSet) (Rule, bool) {
	button := e.Get("Button").String()
	if !e.IsObject() || button == "" {
		return Rule{}, false
	}
	name := e.Get("Name").String()
	if name == "" {
		name = button
	}

	kind, err := action.ParseKind(e.Get("Action").String())
	if err != nil {
		log.Warnf("rule %q: %s", name, err.Error())
		return Rule{}, false
	}

	endpoint := e.Get("EndPoint").String()
	exdata := e.Get("ExData").String()

	var a action.Action
	switch kind {
	case action.KindHTTPGet:
		if endpoint == "" {
			key := e.Get("Key").String()
			if key == "" {
				return Rule{}, false
			}
			endpoint = KeyURL(set.Host, set.RemoteID, key)
		}
		a = action.HTTPGet{URL: endpoint}
	case action.KindHTTPPost:
		if endpoint == "" {
			return Rule{}, false
		}
		a = action.HTTPPost{URL: endpoint, Body: exdata}
	case action.KindProcess:
		if endpoint == "" {
			return Rule{}, false
		}
		a = action.ProcessSpawn{Path: endpoint, Args: runner.SplitArgs(exdata)}
	case action.KindScript:
		a = action.Script{Input: exdata}
	case action.KindDebug:
		a = action.Debug{}
	}

	return Rule{Name: name, Button: button, Action: a}, true
}
