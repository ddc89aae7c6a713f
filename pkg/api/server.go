// Package api provides the REST API server for wav2instrument
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/wav2instrument/pkg/assembler"
	"github.com/james-see/wav2instrument/pkg/host/offline"
	"github.com/james-see/wav2instrument/pkg/instrument"
	"github.com/james-see/wav2instrument/pkg/notename"
	"github.com/james-see/wav2instrument/pkg/preset"
)

// @title wav2instrument API
// @version 1.0
// @description API for turning recorded WAV samples into playable sampler instruments
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/backends", listBackends)
		v1.POST("/build/preset", handleBuildPreset)
		v1.POST("/build/instances", handleBuildInstances)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("starting server", "port", port)
	return r.Run(fmt.Sprintf(":%d", port))
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

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "wav2instrument",
	})
}

// listBackends godoc
// @Summary List available back-ends
// @Description Returns the sampler back-ends an instrument can be built for
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/backends [get]
func listBackends(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"backends": []map[string]string{
			{"id": string(instrument.BackendInstances), "name": "Per-note instances", "description": "One sampler plugin instance per sample with calibrated envelopes"},
			{"id": string(instrument.BackendPreset), "name": "Preset document", "description": "Single multi-region program file referencing the samples"},
		},
	})
}

// buildForm is the option set shared by the build endpoints
type buildForm struct {
	Name        string  `form:"name"`
	BaseNote    string  `form:"base_note"`
	NoIncrement bool    `form:"no_increment"`
	ObeyNoteOff bool    `form:"obey_note_off"`
	AttackMs    float64 `form:"attack_ms"`
	DecayMs     float64 `form:"decay_ms"`
	SustainDB   float64 `form:"sustain_db"`
	ReleaseMs   float64 `form:"release_ms"`
	LoopStart   float64 `form:"loop_start_beats"`
	LoopLength  float64 `form:"loop_length_beats"`
	LoopBPM     float64 `form:"loop_bpm"`
	Tempo       float64 `form:"tempo"`
}

func (f buildForm) options() instrument.Options {
	opts := instrument.DefaultOptions()
	if f.Name != "" {
		opts.Name = f.Name
	}
	if pitch, ok := notename.New().Parse(f.BaseNote); ok {
		opts.BasePitch = pitch
	}
	opts.NoIncrement = f.NoIncrement
	opts.ObeyNoteOff = f.ObeyNoteOff
	if f.AttackMs > 0 {
		opts.ADSR.AttackMs = f.AttackMs
	}
	if f.DecayMs > 0 {
		opts.ADSR.DecayMs = f.DecayMs
	}
	if f.SustainDB != 0 {
		opts.ADSR.SustainDB = f.SustainDB
	}
	if f.ReleaseMs > 0 {
		opts.ADSR.ReleaseMs = f.ReleaseMs
	}
	if f.LoopLength > 0 {
		opts.Loop = instrument.LoopSpec{
			Enabled:     true,
			BPM:         f.LoopBPM,
			StartBeats:  f.LoopStart,
			LengthBeats: f.LoopLength,
		}
	}
	return opts
}

// sessionFromUpload saves the uploaded WAV files into a scratch directory
// and lays them out as a session. The caller owns the directory.
func sessionFromUpload(c *gin.Context, form buildForm) (*offline.Session, string, error) {
	mp, err := c.MultipartForm()
	if err != nil {
		return nil, "", fmt.Errorf("no multipart form: %w", err)
	}
	uploads := mp.File["files"]
	if len(uploads) == 0 {
		return nil, "", fmt.Errorf("no sample files uploaded")
	}

	dir, err := os.MkdirTemp("", "wav2instrument-*")
	if err != nil {
		return nil, "", err
	}

	paths := make([]string, 0, len(uploads))
	for _, fh := range uploads {
		dst := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			_ = os.RemoveAll(dir)
			return nil, "", fmt.Errorf("failed to store %s: %w", fh.Filename, err)
		}
		paths = append(paths, dst)
	}

	session := offline.NewSessionFromFiles(paths, form.Tempo, func(path string) (int, int64, error) {
		info, err := preset.ProbeWAV(path)
		if err != nil {
			return 0, 0, err
		}
		return info.SampleRate, info.Frames, nil
	})
	return session, dir, nil
}

// handleBuildPreset godoc
// @Summary Build a preset document from WAV samples
// @Description Upload WAV files and receive a multi-region .txprog program
// @Tags build
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param files formData file true "WAV samples"
// @Param name formData string false "Instrument name"
// @Param base_note formData string false "Base note for unnamed samples (default C4)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/build/preset [post]
func handleBuildPreset(c *gin.Context) {
	var form buildForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, dir, err := sessionFromUpload(c, form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	opts := form.options()
	opts.Backend = instrument.BackendPreset
	opts.OutDir = dir

	report, err := instrument.New(preset.New()).Run(session, opts)
	if err != nil {
		slog.Error("preset build failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := os.ReadFile(report.PresetPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(report.PresetPath)))
	c.Data(http.StatusOK, "application/xml", data)
}

// handleBuildInstances godoc
// @Summary Assemble per-note sampler instances from WAV samples
// @Description Upload WAV files, run the calibration pipeline against the modeled sampler and receive the mapping report
// @Tags build
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "WAV samples"
// @Param name formData string false "Instrument name"
// @Param base_note formData string false "Base note for unnamed samples (default C4)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/build/instances [post]
func handleBuildInstances(c *gin.Context) {
	var form buildForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, dir, err := sessionFromUpload(c, form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	opts := form.options()
	opts.Backend = instrument.BackendInstances
	opts.OutDir = "" // no trigger file for API runs

	report, err := instrument.New(assembler.New()).Run(session, opts)
	if err != nil {
		slog.Error("instance build failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type mappingView struct {
		Sample       string             `json:"sample"`
		Note         string             `json:"note"`
		Pitch        int                `json:"pitch"`
		LoopActive   bool               `json:"loop_active"`
		WindowStart  float64            `json:"window_start"`
		WindowEnd    float64            `json:"window_end"`
		Calibrations map[string]float64 `json:"calibrations"`
	}
	mappings := make([]mappingView, len(report.Mappings))
	for i, m := range report.Mappings {
		cals := make(map[string]float64, len(m.Calibrations))
		for _, cal := range m.Calibrations {
			cals[cal.Param] = cal.Result.Value
		}
		mappings[i] = mappingView{
			Sample:       m.Item,
			Note:         notename.Name(m.Pitch),
			Pitch:        m.Pitch,
			LoopActive:   m.LoopActive,
			WindowStart:  m.Window.Start,
			WindowEnd:    m.Window.End,
			Calibrations: cals,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"backend":    report.Backend,
		"pitch_low":  notename.Name(report.PitchLow),
		"pitch_high": notename.Name(report.PitchHigh),
		"mappings":   mappings,
	})
}
