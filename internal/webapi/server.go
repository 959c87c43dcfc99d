package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/platform"
	"brand-dna-studio/internal/registry"
	"brand-dna-studio/internal/studio"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 25 << 20
)

type Options struct {
	Studio         *studio.Service
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Server struct {
	studio  *studio.Service
	timeout time.Duration
	logger  *slog.Logger
	valid   *validator.Validate
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	return &Server{
		studio:  opts.Studio,
		timeout: timeout,
		logger:  logger,
		valid:   brand.Validator(),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/specs", s.handleSpecs)
	mux.HandleFunc("POST /api/brand/extract", s.handleExtract)
	mux.HandleFunc("POST /api/brand/screenshots", s.handleScreenshots)
	mux.HandleFunc("GET /api/brand/{id}", s.handleGetBrand)
	mux.HandleFunc("PATCH /api/brand/{id}", s.handleUpdateBrand)
	mux.HandleFunc("POST /api/brand/{id}/verify", s.handleVerifyBrand)
	mux.HandleFunc("POST /api/brand/{id}/logo", s.handleLogo)
	mux.HandleFunc("POST /api/generate/image", s.handleGenerateImage)
	mux.HandleFunc("POST /api/generate/video", s.handleGenerateVideo)
	mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.studio.StorageRoot()))))
	return withLogging(mux, s.logger)
}

type apiError struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type extractRequest struct {
	URL       string `json:"url" validate:"required,http_url"`
	BrandName string `json:"brand_name"`
}

type extractResponse struct {
	BrandDNA  brand.DNA         `json:"brand_dna"`
	Recovered map[string]string `json:"recovered,omitempty"`
}

// updateRequest replaces whole vectors; omitted vectors are kept.
type updateRequest struct {
	Chromatic    *brand.ChromaticVector   `json:"vector_cromatico"`
	Typographic  *brand.TypographicVector `json:"vector_tipografico"`
	Semantic     *brand.SemanticVector    `json:"vector_semantico"`
	Visual       *brand.VisualVector      `json:"vector_visual"`
	LogoPosition string                   `json:"logo_position"`
	Verified     *bool                    `json:"is_verified"`
}

type imageRequest struct {
	BrandID      string `json:"brand_id" validate:"required"`
	Platform     string `json:"platform" validate:"required"`
	Prompt       string `json:"prompt" validate:"required"`
	OverlayText  string `json:"overlay_text"`
	LogoPosition string `json:"logo_position"`
}

type imageResponse struct {
	URL          string   `json:"url"`
	Platform     string   `json:"platform"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Format       string   `json:"format"`
	HasLogo      bool     `json:"has_logo"`
	LogoPosition string   `json:"logo_position,omitempty"`
	Degraded     bool     `json:"degraded"`
	Warnings     []string `json:"warnings,omitempty"`
}

type videoRequest struct {
	BrandID         string `json:"brand_id" validate:"required"`
	Platform        string `json:"platform"`
	Prompt          string `json:"prompt" validate:"required"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Voiceover       string `json:"voiceover"`
	LogoPosition    string `json:"logo_position"`
}

type videoResponse struct {
	URL             string   `json:"url"`
	Platform        string   `json:"platform"`
	Format          string   `json:"format"`
	DurationSeconds float64  `json:"duration_seconds"`
	Audio           string   `json:"audio,omitempty"`
	HasLogo         bool     `json:"has_logo"`
	Degraded        bool     `json:"degraded"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (s *Server) handleSpecs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, platform.All())
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	ex, err := s.studio.ExtractBrand(ctx, req.URL, req.BrandName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExtractResponse(ex))
}

func (s *Server) handleScreenshots(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}

	var shots [][]byte
	for _, fh := range r.MultipartForm.File["screenshots"] {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read screenshot"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read screenshot"})
			return
		}
		shots = append(shots, data)
	}
	if len(shots) == 0 {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing screenshots"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	ex, err := s.studio.ExtractScreenshots(ctx, shots, r.FormValue("brand_name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExtractResponse(ex))
}

func (s *Server) handleGetBrand(w http.ResponseWriter, r *http.Request) {
	dna, err := s.studio.Brand(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dna)
}

func (s *Server) handleUpdateBrand(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !s.decode(w, r, &req) {
		return
	}
	u := brand.Update{
		Chromatic:   req.Chromatic,
		Typographic: req.Typographic,
		Semantic:    req.Semantic,
		Visual:      req.Visual,
		Verified:    req.Verified,
	}
	if req.LogoPosition != "" {
		position := anchorOf(req.LogoPosition)
		u.LogoPosition = &position
	}
	dna, err := s.studio.UpdateBrand(r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dna)
}

func (s *Server) handleVerifyBrand(w http.ResponseWriter, r *http.Request) {
	dna, err := s.studio.VerifyBrand(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dna)
}

func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}
	file, _, err := r.FormFile("logo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing logo"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read logo"})
		return
	}

	position := anchorOf(r.FormValue("position"))
	dna, err := s.studio.SetLogo(r.Context(), r.PathValue("id"), data, position)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dna)
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	out, err := s.studio.GenerateImage(ctx, studio.ImageRequest{
		BrandID:      req.BrandID,
		Platform:     req.Platform,
		Prompt:       req.Prompt,
		Overlay:      req.OverlayText,
		LogoPosition: anchorOf(req.LogoPosition),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	a := out.Asset
	resp := imageResponse{
		URL:      out.URL,
		Platform: a.Platform.Key,
		Width:    a.Width,
		Height:   a.Height,
		Format:   a.Format,
		HasLogo:  a.HasLogo,
		Degraded: a.Degraded,
		Warnings: a.Warnings,
	}
	if a.HasLogo {
		resp.LogoPosition = string(out.LogoPosition)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	out, err := s.studio.GenerateVideo(ctx, studio.VideoRequest{
		BrandID:      req.BrandID,
		Platform:     req.Platform,
		Prompt:       req.Prompt,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
		Voiceover:    req.Voiceover,
		LogoPosition: anchorOf(req.LogoPosition),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	res := out.Result
	resp := videoResponse{
		URL:             out.URL,
		Platform:        res.Platform.Key,
		Format:          res.Media.Format,
		DurationSeconds: res.State.Duration().Seconds(),
		HasLogo:         res.State.HasLogo(),
		Degraded:        res.Degraded,
		Warnings:        res.Warnings,
	}
	if a, ok := res.State.Audio(); ok {
		resp.Audio = string(a.Kind)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json: " + err.Error()})
		return false
	}
	if err := s.valid.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var stageErr *capability.StageError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, capability.ErrInvalidPlatform), errors.Is(err, studio.ErrInvalidLogo), errors.Is(err, studio.ErrInvalidUpdate):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	case errors.As(err, &stageErr):
		s.logger.Error("generation failed", "stage", stageErr.Stage, "capability", stageErr.Capability, "err", stageErr.Err)
		writeJSON(w, http.StatusBadGateway, apiError{Error: err.Error(), Stage: stageErr.Stage})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	}
}

func toExtractResponse(ex extract.Extraction) extractResponse {
	resp := extractResponse{BrandDNA: ex.DNA}
	if len(ex.Recovered) > 0 {
		resp.Recovered = make(map[string]string, len(ex.Recovered))
		for stage, reason := range ex.Recovered {
			resp.Recovered[stage] = reason.Error()
		}
	}
	return resp
}

// anchorOf accepts both "top-left" and "top_left".
func anchorOf(s string) brand.Anchor {
	return brand.Anchor(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
