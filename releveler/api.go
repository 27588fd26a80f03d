package releveler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/relevel/kit"
)

// HTTPHandler exposes the orchestrator over HTTP:
//
//	POST /v1/rewrite    {"url": "...", "level": "B1"}
//	POST /v1/summarize  {"url": "...", "level": "B1"}
//	POST /v1/reset
//	GET  /v1/status
//	GET  /v1/history?limit=20
//
// Operation outcomes are always 200 with the Outcome body; failures
// are data (success=false), matching the other surfaces. 400 covers
// malformed requests, 409 a busy orchestrator.
func (r *Releveler) HTTPHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	mux.Post("/v1/rewrite", r.handleOperation(r.rewriteEndpoint()))
	mux.Post("/v1/summarize", r.handleOperation(r.summarizeEndpoint()))

	mux.Post("/v1/reset", func(w http.ResponseWriter, req *http.Request) {
		ctx := kit.WithRequestID(req.Context(), middleware.GetReqID(req.Context()))
		resp, err := r.resetEndpoint()(ctx, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, outcomeStatus(resp), resp)
	})

	mux.Get("/v1/status", func(w http.ResponseWriter, req *http.Request) {
		resp, err := r.statusEndpoint()(req.Context(), nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.Get("/v1/history", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		resp, err := r.historyEndpoint()(req.Context(), &HistoryRequest{Limit: limit})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func (r *Releveler) handleOperation(endpoint kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var op OperationRequest
		if err := json.NewDecoder(req.Body).Decode(&op); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := kit.WithRequestID(req.Context(), middleware.GetReqID(req.Context()))
		resp, err := endpoint(ctx, &op)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, outcomeStatus(resp), resp)
	}
}

// outcomeStatus maps an operation outcome to its HTTP status: 409 when
// the orchestrator slot was busy, 200 otherwise (failures are data).
func outcomeStatus(resp any) int {
	if out, ok := resp.(Outcome); ok && !out.Success && out.Error == ErrSessionBusy.Error() {
		return http.StatusConflict
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
