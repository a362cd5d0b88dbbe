package ecphttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cloudkucooland/farremote/device"
	"github.com/cloudkucooland/farremote/rules"
	"github.com/cloudkucooland/farremote/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func (s *Server) descriptorHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("Client requested device-desc.xml from %s - User-Agent: %s", r.RemoteAddr, userAgent(r))

	id, err := s.Resolver.Resolve()
	if err != nil {
		log.Errorf("device descriptor: %s", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := id.Descriptor()
	if err != nil {
		log.Errorf("device descriptor: %s", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}

func appsHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("Client requested /query/apps")
	w.Header().Set("Content-Type", "application/xml")
	w.Write(device.Apps())
}

func (s *Server) keypressHandler(w http.ResponseWriter, r *http.Request) {
	button := mux.Vars(r)["button"]
	if !device.ValidButton(button) {
		http.Error(w, "Invalid button name", http.StatusBadRequest)
		return
	}

	log.Infof("Got button press %s", button)
	// the hub hanging up must not cut the rules short
	s.Engine.Dispatch(context.WithoutCancel(r.Context()), button)

	fmt.Fprint(w, "OK")
}

// keydown/keyup are acknowledged so the hub is happy, only keypress runs rules
func ackHandler(w http.ResponseWriter, r *http.Request) {
	button := mux.Vars(r)["button"]
	if !device.ValidButton(button) {
		http.Error(w, "Invalid button name", http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, "OK")
}

type rulesResponse struct {
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	RemoteControlID string        `json:"remoteControlId"`
	FreeboxHost     string        `json:"freeboxHost,omitempty"`
	Rules           []store.Entry `json:"rules"`
	Enabled         bool          `json:"enabled"`
	Loaded          int           `json:"loaded"`
}

func (s *Server) getRulesHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Store.Read()
	if err != nil {
		log.Errorf("Error reading rules: %s", err.Error())
		writeFailure(w, err)
		return
	}
	writeJSON(w, rulesResponse{
		Success:         true,
		RemoteControlID: doc.RemoteControlID,
		FreeboxHost:     doc.FreeboxHost,
		Rules:           doc.Rules,
		Enabled:         s.Engine.Enabled(),
		Loaded:          s.Engine.Current().Len(),
	})
}

func (s *Server) saveRulesHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("Client saving rules to /api/rules")

	var doc store.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		log.Errorf("Error saving rules: %s", err.Error())
		writeFailure(w, err)
		return
	}
	raw, err := s.Store.Save(doc)
	if err != nil {
		log.Errorf("Error saving rules: %s", err.Error())
		writeFailure(w, err)
		return
	}
	if err := s.Engine.Reload(raw); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) resetRulesHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("Client requesting reset to default rules")

	doc, raw, err := s.Store.Reset()
	if err != nil {
		log.Errorf("Error resetting rules: %s", err.Error())
		writeFailure(w, err)
		return
	}
	if err := s.Engine.Reload(raw); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, rulesResponse{
		Success:         true,
		RemoteControlID: doc.RemoteControlID,
		FreeboxHost:     doc.FreeboxHost,
		Rules:           doc.Rules,
		Enabled:         s.Engine.Enabled(),
		Loaded:          s.Engine.Current().Len(),
	})
}

func (s *Server) toggleHandler(w http.ResponseWriter, r *http.Request) {
	on := s.Engine.Toggle()
	writeJSON(w, map[string]interface{}{"success": true, "enabled": on})
}

func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"success": true,
		"logs":    s.Logs.Entries(),
		"enabled": s.Engine.Enabled(),
	})
}

func (s *Server) clearLogsHandler(w http.ResponseWriter, r *http.Request) {
	s.Logs.Clear()
	log.Info("Logs cleared")
	writeJSON(w, map[string]interface{}{"success": true})
}

type testRuleRequest struct {
	RemoteControlID string `json:"remoteControlId"`
	Key             string `json:"key"`
}

func (s *Server) testRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req testRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.Key == "" {
		writeJSON(w, map[string]interface{}{"success": false, "error": "Key is required"})
		return
	}

	url := rules.KeyURL(s.Engine.Current().Host, req.RemoteControlID, req.Key)
	log.Infof("Testing rule: %s", url)

	status, err := s.Tester.TestURL(r.Context(), url)
	if status == 0 {
		log.Errorf("Test failed: %s", err.Error())
		writeFailure(w, err)
		return
	}
	log.Infof("Test: %d from %s", status, url)
	writeJSON(w, map[string]interface{}{
		"success": true,
		"status":  status,
		"message": fmt.Sprintf("HTTP %d", status),
	})
}

func keysHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"success": true, "keys": rules.FreeboxKeys})
}

func buttonsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"success": true, "buttons": device.Buttons})
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"success": true, "version": s.Version})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err)
	}
}

// configuration callers always get a 200 with success false and the reason
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, map[string]interface{}{"success": false, "error": err.Error()})
}

func userAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "unknown"
}
