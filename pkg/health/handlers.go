package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves Check. Degraded is still 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Check()
		code := http.StatusOK
		if response.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, response)
	}
}

// ReadinessHandler serves CheckReadiness. Anything but healthy is 503.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.CheckReadiness()
		code := http.StatusOK
		if response.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, response)
	}
}

func writeResponse(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}
