package browser

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"serverbrowser-go/internal/index"
)

// NewHandler builds the local HTTP surface: the server list, manual
// add/remove, search, and the websocket event stream.
func NewHandler(session *Session, hub *WSHub, idx *index.Manager, logger *zap.Logger) http.Handler {
	log := logger.Named("http")
	mux := http.NewServeMux()

	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, session.Servers())
		case http.MethodPost:
			var req struct {
				Address string `json:"address"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
				http.Error(w, "missing address", http.StatusBadRequest)
				return
			}
			session.AddServer(req.Address)
			w.WriteHeader(http.StatusAccepted)
		case http.MethodDelete:
			address := r.URL.Query().Get("address")
			if address == "" {
				http.Error(w, "missing address", http.StatusBadRequest)
				return
			}
			session.RemoveServer(address)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if idx == nil {
			http.Error(w, "search index disabled", http.StatusNotImplemented)
			return
		}
		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}
		results, err := idx.Search(q, 50)
		if err != nil {
			log.Warn("Search failed", zap.String("query", q), zap.Error(err))
			http.Error(w, "search failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	})

	mux.HandleFunc("/ws", hub.HandleWebSocket)

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
