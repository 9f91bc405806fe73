package ingest

import (
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// NewMux routes the endpoint and its supporting resources: the submission
// path from def, /openapi.json, /healthz and, when metrics is set,
// /metrics.
func NewMux(def *model.Definition, handler http.Handler, metrics *Metrics) (*http.ServeMux, error) {
	doc, err := json.Marshal(OpenAPIDocument(def))
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(Path(def), handler)
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msgMethodNotAllowed})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux, nil
}
