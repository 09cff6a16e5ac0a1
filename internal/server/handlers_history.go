package server

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/store"
)

type historyResponse struct {
	History []store.Calculation `json:"history"`
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidLimit)
		return
	}
	calcs, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.historyFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: calcs})
}

func (s *Server) handleVoiceHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidLimit)
		return
	}
	calcs, err := s.history.VoiceHistory(r.Context(), limit)
	if err != nil {
		s.historyFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: calcs})
}

type historyAddRequest struct {
	Entry      string `json:"entry"`
	Expression string `json:"expression"`
	Result     string `json:"result"`
	VoiceInput bool   `json:"voice_input"`
}

// splitEntry splits "expr = result" on the last "=".
func splitEntry(entry string) (expression, result string, ok bool) {
	i := strings.LastIndex(entry, "=")
	if i < 0 {
		return "", "", false
	}
	expression = strings.TrimSpace(entry[:i])
	result = strings.TrimSpace(entry[i+1:])
	return expression, result, expression != "" && result != ""
}

func (s *Server) handleHistoryAdd(w http.ResponseWriter, r *http.Request) {
	var req historyAddRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}

	expression, result := strings.TrimSpace(req.Expression), strings.TrimSpace(req.Result)
	if expression == "" || result == "" {
		if req.Entry == "" {
			writeError(w, http.StatusBadRequest, msgNoEntry)
			return
		}
		var ok bool
		if expression, result, ok = splitEntry(req.Entry); !ok {
			writeError(w, http.StatusBadRequest, msgInvalidEntry)
			return
		}
	}

	id, err := s.history.AddCalculation(r.Context(), expression, result, req.VoiceInput)
	if err != nil {
		s.historyFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.history.ClearHistory(r.Context())
	if err != nil {
		s.historyFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	deleted, err := s.history.DeleteCalculation(r.Context(), id)
	if err != nil {
		s.historyFailed(w, r, err)
		return
	}
	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]bool{"success": deleted})
}

func (s *Server) historyFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("history operation failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, msgHistoryFailed)
}

const defaultTheme = "light"

type themeBody struct {
	Theme string `json:"theme"`
}

func (s *Server) handleThemeGet(w http.ResponseWriter, r *http.Request) {
	theme, err := s.history.Setting(r.Context(), store.SettingTheme, defaultTheme)
	if err != nil {
		s.logger.Error("read theme failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgThemeFailed)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (s *Server) handleThemeSet(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}
	if req.Theme == "" {
		req.Theme = defaultTheme
	}
	if req.Theme != "light" && req.Theme != "dark" {
		writeError(w, http.StatusBadRequest, msgInvalidTheme)
		return
	}
	if err := s.history.SetSetting(r.Context(), store.SettingTheme, req.Theme); err != nil {
		s.logger.Error("write theme failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgThemeFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLastCalculation(w http.ResponseWriter, r *http.Request) {
	last, ok, err := s.history.Last(r.Context())
	if err != nil {
		s.logger.Error("read last calculation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgLastFailed)
		return
	}
	result := ""
	if ok {
		result = last.Result
	}
	writeJSON(w, http.StatusOK, map[string]string{"calculation": result})
}
