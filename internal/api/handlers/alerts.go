package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/reddit-pulse/internal/alert"
)

// GetAlerts returns recent alert history, newest first.
// GET /alerts
func GetAlerts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := pagination(r, 100, 1000)
		writeJSON(w, http.StatusOK, d.Alerts.History(limit))
	}
}

// GetAlertRules lists the configured rules in evaluation order.
// GET /alerts/rules
func GetAlertRules(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Alerts.Rules())
	}
}

// CreateAlertRule appends a rule.
// POST /alerts/rules
func CreateAlertRule(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule alert.Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid rule payload")
			return
		}
		if rule.Name == "" {
			writeError(w, http.StatusBadRequest, "rule name is required")
			return
		}
		for _, existing := range d.Alerts.Rules() {
			if existing.Name == rule.Name {
				writeError(w, http.StatusConflict, "rule name already exists")
				return
			}
		}
		d.Alerts.AddRule(rule)
		writeJSON(w, http.StatusCreated, rule)
	}
}

// DeleteAlertRule removes a rule by name.
// DELETE /alerts/rules/{name}
func DeleteAlertRule(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if !d.Alerts.RemoveRule(name) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "rule": name})
	}
}

// SetAlertRuleEnabled enables or disables a rule.
// POST /alerts/rules/{name}/enable, POST /alerts/rules/{name}/disable
func SetAlertRuleEnabled(d Deps, enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if !d.Alerts.SetRuleEnabled(name, enabled) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		status := "disabled"
		if enabled {
			status = "enabled"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status, "rule": name})
	}
}
