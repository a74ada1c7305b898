package observability

import (
	"encoding/json"
	"net/http"
)

const healthStatusOK = "ok"

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)

		//nolint:errchkjson // the payload is a static string map.
		_ = json.NewEncoder(rw).Encode(map[string]string{"status": healthStatusOK})
	})
}
