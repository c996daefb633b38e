// Package api provides the REST API for time span conversion.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/leandrodaf/midistream/sdk/midi"
	"github.com/leandrodaf/midistream/sdk/timespan"
)

// DefaultTicksPerQuarterNote is used when a conversion request omits the resolution.
const DefaultTicksPerQuarterNote = 96

// StartServer starts the API server on the specified port.
func StartServer(port int, logger contracts.Logger) error {
	logger.Info("API server listening", logger.Field().Int("port", port))
	return NewRouter(logger).Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine serving every route.
func NewRouter(logger contracts.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/kinds", listKinds)
		v1.POST("/parse", handleParse)
		v1.POST("/convert", handleConvert)
		v1.POST("/song", handleSong)
	}

	return r
}

func requestLogger(logger contracts.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("API request",
			logger.Field().String("method", c.Request.Method),
			logger.Field().String("path", c.Request.URL.Path),
			logger.Field().Int("status", c.Writer.Status()),
			logger.Field().Int64("latencyUs", time.Since(start).Microseconds()))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midistream",
	})
}

func listKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"kinds": []string{
			timespan.KindMidi.String(),
			timespan.KindMetric.String(),
			timespan.KindBarBeat.String(),
			timespan.KindMusical.String(),
		},
	})
}

var parsingStatusNames = map[timespan.ParsingStatus]string{
	timespan.Parsed:      "parsed",
	timespan.EmptyInput:  "empty_input",
	timespan.NotMatched:  "not_matched",
	timespan.FormatError: "format_error",
}

type parseRequest struct {
	Span string `json:"span"`
}

func handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ts, res := timespan.TryParse(req.Span)
	if res.Status != timespan.Parsed {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": parsingStatusNames[res.Status],
			"error":  res.Err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": parsingStatusNames[res.Status],
		"kind":   ts.Kind().String(),
		"span":   ts.String(),
	})
}

type tempoJSON struct {
	Tick                       int64 `json:"tick"`
	MicrosecondsPerQuarterNote int64 `json:"microsecondsPerQuarterNote"`
}

type signatureJSON struct {
	Tick        int64 `json:"tick"`
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

type convertRequest struct {
	TicksPerQuarterNote int64           `json:"ticksPerQuarterNote"`
	Tempos              []tempoJSON     `json:"tempos"`
	TimeSignatures      []signatureJSON `json:"timeSignatures"`
	Span                string          `json:"span" binding:"required"`
	At                  string          `json:"at"`
	To                  string          `json:"to" binding:"required"`
}

func (r *convertRequest) tempoMap() (*timespan.TempoMap, error) {
	tpq := r.TicksPerQuarterNote
	if tpq == 0 {
		tpq = DefaultTicksPerQuarterNote
	}

	tempos := make([]timespan.TempoChange, len(r.Tempos))
	for i, t := range r.Tempos {
		tempos[i] = timespan.TempoChange{Tick: t.Tick, MicrosecondsPerQuarterNote: t.MicrosecondsPerQuarterNote}
	}
	signatures := make([]timespan.TimeSignatureChange, len(r.TimeSignatures))
	for i, s := range r.TimeSignatures {
		signatures[i] = timespan.TimeSignatureChange{Tick: s.Tick, Numerator: s.Numerator, Denominator: s.Denominator}
	}
	return timespan.NewTempoMap(tpq, tempos, signatures)
}

func handleConvert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, ticks, err := convert(&req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"span":   req.Span,
		"ticks":  ticks,
		"kind":   result.Kind().String(),
		"result": result.String(),
	})
}

func convert(req *convertRequest) (timespan.TimeSpan, int64, error) {
	tm, err := req.tempoMap()
	if err != nil {
		return nil, 0, err
	}
	kind, err := timespan.ParseKind(req.To)
	if err != nil {
		return nil, 0, err
	}
	span, err := timespan.Parse(req.Span)
	if err != nil {
		return nil, 0, err
	}

	var at int64
	if req.At != "" {
		start, err := timespan.Parse(req.At)
		if err != nil {
			return nil, 0, err
		}
		if at, err = timespan.ConvertTimeFrom(start, tm); err != nil {
			return nil, 0, err
		}
	}

	ticks, err := timespan.ConvertLengthFrom(span, at, tm)
	if err != nil {
		return nil, 0, err
	}
	result, err := timespan.ConvertLengthTo(ticks, kind, at, tm)
	if err != nil {
		return nil, 0, err
	}
	return result, ticks, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, timespan.ErrNotSupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, timespan.ErrInvalidArgument), errors.Is(err, timespan.ErrParse):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleSong summarizes an uploaded Standard MIDI File.
func handleSong(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	song, err := midi.Load(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	duration, err := song.Duration()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tempos := make([]tempoJSON, 0)
	for _, t := range song.TempoMap.TempoChanges() {
		tempos = append(tempos, tempoJSON{Tick: t.Tick, MicrosecondsPerQuarterNote: t.MicrosecondsPerQuarterNote})
	}
	signatures := make([]signatureJSON, 0)
	for _, s := range song.TempoMap.TimeSignatureChanges() {
		signatures = append(signatures, signatureJSON{Tick: s.Tick, Numerator: s.Numerator, Denominator: s.Denominator})
	}

	c.JSON(http.StatusOK, gin.H{
		"ticksPerQuarterNote": song.Resolution,
		"events":              len(song.Events),
		"lengthTicks":         song.Length,
		"duration":            duration.String(),
		"durationMs":          duration.TotalMilliseconds(),
		"tempos":              tempos,
		"timeSignatures":      signatures,
	})
}
