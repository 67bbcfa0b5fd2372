package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/core/usecase"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/export/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type historyResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

type settingsResponse struct {
	CacheTTLDays          int   `json:"cacheTtlDays"`
	MinCacheTTLDays       int   `json:"minCacheTtlDays"`
	MaxCacheTTLDays       int   `json:"maxCacheTtlDays"`
	LookupConfigured      *bool `json:"lookupConfigured,omitempty"`
	RecognitionConfigured *bool `json:"recognitionConfigured,omitempty"`
}

type cacheTTLRequest struct {
	Days int `json:"days"`
}

func (rt *Router) historyCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := rt.history.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
	case http.MethodDelete:
		if err := rt.history.Clear(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (rt *Router) exportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := rt.history.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteHistory(&buf, entries, rt.now().Location()); err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("vehicle-history-%s.xlsx", rt.now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) clearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	removed, err := rt.cache.Clear(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCacheRemoval(rt.service, "clear", removed)
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: removed})
}

func (rt *Router) sweepCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	removed, err := rt.cache.ClearExpired(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCacheRemoval(rt.service, "sweep", removed)
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: removed})
}

func (rt *Router) getSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, rt.settings())
}

func (rt *Router) putCacheTTL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req cacheTTLRequest
	if err := rt.decodeJSON(r, "CacheTTLRequest", &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.cache.SetTTLDays(r.Context(), req.Days); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.settings())
}

func (rt *Router) settings() settingsResponse {
	resp := settingsResponse{
		CacheTTLDays:    rt.cache.TTLDays(),
		MinCacheTTLDays: usecase.MinTTLDays,
		MaxCacheTTLDays: usecase.MaxTTLDays,
	}
	if rt.lookupChecker != nil {
		ok := rt.lookupChecker.CheckConfigured() == nil
		resp.LookupConfigured = &ok
	}
	if rt.recognitionChecker != nil {
		ok := rt.recognitionChecker.CheckConfigured() == nil
		resp.RecognitionConfigured = &ok
	}
	return resp
}
