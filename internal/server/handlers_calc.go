package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/speech"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type calculateRequest struct {
	Expression string `json:"expression"`
}

type calculateResponse struct {
	Result calc.Value `json:"result"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}
	if req.Expression == "" {
		writeError(w, http.StatusBadRequest, msgNoExpression)
		return
	}

	value, err := s.processor.Evaluator().Calculate(req.Expression)
	if err != nil {
		var ce *calc.Error
		if !errors.As(err, &ce) {
			s.logger.Error("calculate failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
			writeError(w, http.StatusInternalServerError, msgServerError)
			return
		}
		s.logger.Debug("calculation rejected",
			zap.String("expression", req.Expression),
			zap.String("code", string(ce.Code)),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, msgInvalidExpression)
		return
	}

	writeJSON(w, http.StatusOK, calculateResponse{Result: value})
}

type voiceRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleVoiceProcess(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, msgNoTranscript)
		return
	}

	out := s.processor.Process(req.Transcript)
	if out.Success {
		if _, err := s.history.AddCalculation(r.Context(), out.Expression, *out.Result, true); err != nil {
			s.logger.Warn("failed to record voice calculation",
				zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		}
	} else {
		s.logger.Debug("voice command not evaluated",
			zap.String("transcript", req.Transcript),
			zap.String("code", string(out.Code)),
		)
	}

	writeJSON(w, http.StatusOK, out)
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
	Slow *bool  `json:"slow"`
}

type ttsResponse struct {
	AudioURL string `json:"audio_url"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.speaker == nil {
		writeError(w, http.StatusServiceUnavailable, msgTTSDisabled)
		return
	}

	var req ttsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, msgNoText)
		return
	}
	lang := req.Lang
	if lang == "" {
		lang = s.cfg.TTSLang
	}
	slow := s.cfg.TTSSlow
	if req.Slow != nil {
		slow = *req.Slow
	}

	name, err := s.speaker.Generate(r.Context(), req.Text, lang, slow)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, msgNoText)
			return
		}
		s.logger.Error("tts failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		writeError(w, http.StatusInternalServerError, msgTTSFailed)
		return
	}

	writeJSON(w, http.StatusOK, ttsResponse{AudioURL: "/audio/" + name})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.speaker == nil {
		http.NotFound(w, r)
		return
	}
	path, err := s.speaker.Path(r.PathValue("file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
