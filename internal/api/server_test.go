package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leandrodaf/midistream/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(logger.NewNopLogger())
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w, body := doJSON(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "healthy", body["status"], path)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/convert", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListKinds(t *testing.T) {
	w, body := doJSON(t, newTestRouter(), http.MethodGet, "/api/v1/kinds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"midi", "metric", "barbeat", "musical"}, body["kinds"])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		span   string
		code   int
		status string
		kind   string
	}{
		{"ticks", "480", http.StatusOK, "parsed", "midi"},
		{"bar beat", "1.2.120", http.StatusOK, "parsed", "barbeat"},
		{"metric", "1:30", http.StatusOK, "parsed", "metric"},
		{"musical", "3/8", http.StatusOK, "parsed", "musical"},
		{"empty", "  ", http.StatusBadRequest, "empty_input", ""},
		{"garbage", "abc", http.StatusBadRequest, "not_matched", ""},
		{"zero denominator", "1/0", http.StatusBadRequest, "format_error", ""},
	}

	r := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(parseRequest{Span: tt.span})
			require.NoError(t, err)

			w, body := doJSON(t, r, http.MethodPost, "/api/v1/parse", string(payload))
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.status, body["status"])
			if tt.kind != "" {
				assert.Equal(t, tt.kind, body["kind"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ticks  float64
		result string
	}{
		{
			name:   "quarter note to metric",
			body:   `{"span": "1/4", "to": "metric"}`,
			ticks:  96,
			result: "0:0:0:500",
		},
		{
			name:   "one second to ticks",
			body:   `{"span": "0:0:1:0", "to": "midi"}`,
			ticks:  192,
			result: "192",
		},
		{
			name:   "beat in three four",
			body:   `{"ticksPerQuarterNote": 480, "timeSignatures": [{"tick": 0, "numerator": 3, "denominator": 4}], "span": "1920", "to": "barbeat"}`,
			ticks:  1920,
			result: "1.1.0",
		},
		{
			name:   "after a tempo change",
			body:   `{"tempos": [{"tick": 0, "microsecondsPerQuarterNote": 500000}, {"tick": 96, "microsecondsPerQuarterNote": 250000}], "span": "96", "at": "1.0.0", "to": "metric"}`,
			ticks:  96,
			result: "0:0:0:250",
		},
	}

	r := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, r, http.MethodPost, "/api/v1/convert", tt.body)
			require.Equal(t, http.StatusOK, w.Code, body)
			assert.Equal(t, tt.ticks, body["ticks"])
			assert.Equal(t, tt.result, body["result"])
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{"span": `, http.StatusBadRequest},
		{"missing target", `{"span": "96"}`, http.StatusBadRequest},
		{"unknown kind", `{"span": "96", "to": "seconds"}`, http.StatusBadRequest},
		{"bad span", `{"span": "x", "to": "midi"}`, http.StatusBadRequest},
		{"bad start", `{"span": "96", "at": "x", "to": "midi"}`, http.StatusBadRequest},
		{"bad tempo map", `{"tempos": [{"tick": 0, "microsecondsPerQuarterNote": 0}], "span": "96", "to": "midi"}`, http.StatusBadRequest},
		{"math target", `{"span": "96", "to": "math"}`, http.StatusUnprocessableEntity},
	}

	r := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, r, http.MethodPost, "/api/v1/convert", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func songFile(t *testing.T) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)

	var track smf.Track
	track.Add(0, gomidi.NoteOn(0, 60, 100))
	track.Add(192, gomidi.NoteOff(0, 60))
	track.Close(0)
	require.NoError(t, s.Add(track))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, r http.Handler, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "song.mid")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/song", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestSong(t *testing.T) {
	w, body := upload(t, newTestRouter(), songFile(t))
	require.Equal(t, http.StatusOK, w.Code, body)

	assert.Equal(t, float64(96), body["ticksPerQuarterNote"])
	assert.Equal(t, float64(2), body["events"])
	assert.Equal(t, float64(192), body["lengthTicks"])
	assert.Equal(t, float64(1000), body["durationMs"])
	assert.Equal(t, "0:0:1:0", body["duration"])
	assert.Len(t, body["tempos"], 1)
	assert.Len(t, body["timeSignatures"], 1)
}

func TestSongRejectsBadUploads(t *testing.T) {
	r := newTestRouter()

	w, body := upload(t, r, []byte("not a midi file"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["error"])

	w, body = doJSON(t, r, http.MethodPost, "/api/v1/song", "{}")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", body["error"])
}
