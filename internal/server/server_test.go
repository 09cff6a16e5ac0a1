package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/speech"
	"github.com/roach88/voicecalc/internal/store"
	"github.com/roach88/voicecalc/internal/testutil"
)

// recordingSynth returns the request text as audio and remembers requests.
type recordingSynth struct {
	mu   sync.Mutex
	reqs []speech.Request
	err  error
}

func (s *recordingSynth) Synthesize(_ context.Context, req speech.Request) (speech.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return speech.Audio{}, s.err
	}
	return speech.Audio{Data: []byte(req.Text), Format: speech.FormatMP3}, nil
}

type fixture struct {
	server *Server
	store  *store.Store
	synth  *recordingSynth
}

type fixtureOption func(*Config, *Deps)

func withoutSpeech() fixtureOption {
	return func(_ *Config, d *Deps) { d.Speaker = nil }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	synth := &recordingSynth{}
	cache, err := speech.NewCache(filepath.Join(t.TempDir(), "voice"), synth,
		speech.WithNameFunc(testutil.NewSequentialNames("clip-").Next))
	require.NoError(t, err)

	cfg := Config{Addr: "127.0.0.1:0", TTSLang: "en"}
	deps := Deps{
		Processor:    calc.NewProcessor(nil, nil),
		History:      st,
		Speaker:      cache,
		Logger:       zaptest.NewLogger(t),
		NewRequestID: testutil.NewSequentialNames("req-").Next,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	srv, err := New(cfg, deps)
	require.NoError(t, err)
	return &fixture{server: srv, store: st, synth: synth}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, Deps{History: &store.Store{}})
	assert.Error(t, err)

	_, err = New(Config{}, Deps{Processor: calc.NewProcessor(nil, nil)})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCalculate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"integer", `{"expression":"2+2"}`, 200, `{"result":4}`},
		{"fraction", `{"expression":"10/4"}`, 200, `{"result":2.5}`},
		{"power", `{"expression":"2^10"}`, 200, `{"result":1024}`},
		{"scientific", `{"expression":"100000000000.5"}`, 200, `{"result":"1.0000000000e+11"}`},
		{"missing", `{}`, 400, `{"error":"No expression provided"}`},
		{"forbidden", `{"expression":"import os"}`, 400, `{"error":"Invalid expression"}`},
		{"division by zero", `{"expression":"1/0"}`, 400, `{"error":"Invalid expression"}`},
		{"garbage", `{"expression":"2 +"}`, 400, `{"error":"Invalid expression"}`},
		{"bad json", `{"expression":`, 400, `{"error":"Invalid request body"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/calculate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCalculate_WrongMethod(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/calculate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVoiceProcess_Golden(t *testing.T) {
	f := newFixture(t)

	transcripts := []string{
		"2 plus 2",
		"10 divided by 4",
		"5 divided by 0",
		"hello there",
		"!!!",
	}

	var buf bytes.Buffer
	for _, tr := range transcripts {
		body, err := json.Marshal(map[string]string{"transcript": tr})
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/api/voice-process", string(body))
		require.Equal(t, http.StatusOK, rec.Code)
		fmt.Fprintf(&buf, "%s => %s", tr, rec.Body.String())
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "voice_process", buf.Bytes())

	// Only successful voice results are recorded.
	history, err := f.store.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "10 / 4", history[0].Expression)
	assert.Equal(t, "2.5", history[0].Result)
	assert.True(t, history[0].VoiceInput)
}

func TestVoiceProcess_MissingTranscript(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/voice-process", `{"transcript":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No transcript provided"}`, rec.Body.String())
}

func TestTTS(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tts", `{"text":"The result is 4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"audio_url":"/audio/clip-0001.mp3"}`, rec.Body.String())

	require.Len(t, f.synth.reqs, 1)
	assert.Equal(t, speech.Request{Text: "The result is 4", Lang: "en"}, f.synth.reqs[0])

	audio := f.do(t, http.MethodGet, "/audio/clip-0001.mp3", "")
	assert.Equal(t, http.StatusOK, audio.Code)
	assert.Equal(t, "The result is 4", audio.Body.String())
}

func TestTTS_Options(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tts", `{"text":"hola","lang":"es","slow":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, speech.Request{Text: "hola", Lang: "es", Slow: true}, f.synth.reqs[0])
}

func TestTTS_Errors(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/tts", `{"text":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No text provided"}`, rec.Body.String())
	})

	t.Run("blank text", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/tts", `{"text":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("synthesis failure", func(t *testing.T) {
		f := newFixture(t)
		f.synth.err = errors.New("upstream down")
		rec := f.do(t, http.MethodPost, "/api/tts", `{"text":"hi"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Text-to-speech generation failed"}`, rec.Body.String())
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, withoutSpeech())
		rec := f.do(t, http.MethodPost, "/api/tts", `{"text":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		audio := f.do(t, http.MethodGet, "/audio/x.mp3", "")
		assert.Equal(t, http.StatusNotFound, audio.Code)
	})
}

func TestAudio_RejectsBadNames(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/audio/missing.mp3", "/audio/notes.txt", "/audio/..%2Fhistory.db"} {
		rec := f.do(t, http.MethodGet, p, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
	}
}

func TestHistory_AddListDelete(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/history", `{"entry":"3 * 3 = 9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"id":1}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/history", `{"expression":"2 ** 3","result":"8","voice_input":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.History, 2)
	assert.Equal(t, "2 ** 3", list.History[0].Expression)
	assert.Equal(t, "3 * 3", list.History[1].Expression)
	assert.Equal(t, "9", list.History[1].Result)

	rec = f.do(t, http.MethodGet, "/api/history?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.History, 1)

	rec = f.do(t, http.MethodGet, "/api/history/voice", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.History, 1)
	assert.True(t, list.History[0].VoiceInput)

	rec = f.do(t, http.MethodDelete, "/api/history/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/history/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deleted":1}`, rec.Body.String())
}

func TestHistory_EmptyListIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/history", "")
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestHistory_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method, path, body string
		want               string
	}{
		{http.MethodPost, "/api/history", `{}`, `{"error":"No entry provided"}`},
		{http.MethodPost, "/api/history", `{"entry":"no equals sign"}`, `{"error":"Invalid entry"}`},
		{http.MethodPost, "/api/history", `{"entry":"= 4"}`, `{"error":"Invalid entry"}`},
		{http.MethodDelete, "/api/history/abc", "", `{"error":"Invalid id"}`},
		{http.MethodGet, "/api/history?limit=-1", "", `{"error":"Invalid limit"}`},
		{http.MethodGet, "/api/history/voice?limit=x", "", `{"error":"Invalid limit"}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.body, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestSplitEntry(t *testing.T) {
	expr, result, ok := splitEntry("1 + 1 = 2")
	assert.True(t, ok)
	assert.Equal(t, "1 + 1", expr)
	assert.Equal(t, "2", result)

	expr, result, ok = splitEntry("a = b = c")
	assert.True(t, ok)
	assert.Equal(t, "a = b", expr)
	assert.Equal(t, "c", result)
}

func TestTheme(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/preferences/theme", "")
	assert.JSONEq(t, `{"theme":"light"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/preferences/theme", `{"theme":"dark"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/preferences/theme", "")
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/preferences/theme", `{"theme":"solarized"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid theme"}`, rec.Body.String())
}

func TestLastCalculation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/calculation/last", "")
	assert.JSONEq(t, `{"calculation":""}`, rec.Body.String())

	_, err := f.store.AddCalculation(context.Background(), "6 * 7", "42", false)
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/calculation/last", "")
	assert.JSONEq(t, `{"calculation":"42"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, "req-0001", rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

// historyIface aliases History so the embedded field name does not
// collide with the promoted History method.
type historyIface = History

// panicHistory panics on Last to exercise recovery.
type panicHistory struct {
	historyIface
}

func (panicHistory) Last(context.Context) (store.Calculation, bool, error) {
	panic("boom")
}

func TestRecover(t *testing.T) {
	f := newFixture(t, func(_ *Config, d *Deps) {
		d.History = panicHistory{historyIface: d.History}
	})

	rec := f.do(t, http.MethodGet, "/api/calculation/last", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, rec.Body.String())
}

func TestStatic_Embedded(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Voice Calculator")
}

func TestStatic_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>custom</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	f := newFixture(t, func(c *Config, _ *Deps) { c.StaticDir = dir })

	rec := f.do(t, http.MethodGet, "/", "")
	assert.Contains(t, rec.Body.String(), "custom")

	rec = f.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())
}

func TestStatic_MissingDir(t *testing.T) {
	_, err := New(Config{StaticDir: filepath.Join(t.TempDir(), "nope")}, Deps{
		Processor: calc.NewProcessor(nil, nil),
		History:   &store.Store{},
	})
	assert.ErrorContains(t, err, "static dir")
}

func TestServe_GracefulShutdown(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
