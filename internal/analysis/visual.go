package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
)

const maxReferenceImages = 5

const visualPrompt = `Basándote en estas URLs de imágenes de un sitio web empresarial, describe el estilo visual probable de la marca:

URLs de imágenes: %s

Responde en formato JSON con:
- estilo_fotografico: descripción del estilo de fotografía (iluminación, composición, colores)
- elementos_visuales: lista de elementos visuales comunes
- recomendacion_imagen: prompt para generar imágenes coherentes con este estilo

Solo responde con el JSON.`

const visionPrompt = `Estas son imágenes de un sitio web empresarial. Describe el estilo visual de la marca.

Responde en formato JSON con:
- estilo_fotografico: descripción del estilo de fotografía (iluminación, composición, colores)
- elementos_visuales: lista de elementos visuales comunes
- recomendacion_imagen: prompt para generar imágenes coherentes con este estilo

Solo responde con el JSON.`

const defaultStyle = "Fotografía profesional con iluminación natural, " +
	"paleta de colores coherente, enfoque nítido, " +
	"composición equilibrada."

// DefaultVisual returns the fallback vector with refs attached.
func DefaultVisual(refs []string) brand.VisualVector {
	return brand.VisualVector{
		EstiloFotografico:      defaultStyle,
		ElementosVisuales:      []string{"limpio", "moderno", "profesional"},
		RecomendacionImagen:    "Estilo corporativo moderno con colores de marca",
		ReferenciaImagenesURLs: firstRefs(refs),
	}
}

func VisualPrompt(urls []string) string {
	quoted := make([]string, 0, len(urls))
	for _, u := range firstRefs(urls) {
		quoted = append(quoted, "'"+u+"'")
	}
	return fmt.Sprintf(visualPrompt, "["+strings.Join(quoted, ", ")+"]")
}

type visualResponse struct {
	EstiloFotografico   string   `json:"estilo_fotografico" validate:"required"`
	ElementosVisuales   []string `json:"elementos_visuales" validate:"required,min=1,dive,required"`
	RecomendacionImagen string   `json:"recomendacion_imagen" validate:"required"`
}

type VisualOptions struct {
	Analyzer capability.Analyzer
	// Vision and Store together enable the pixel-based variant.
	Vision capability.VisionAnalyzer
	Store  capability.Store
	Logger *slog.Logger
}

type VisualStyleAnalyzer struct {
	analyzer capability.Analyzer
	vision   capability.VisionAnalyzer
	store    capability.Store
	logger   *slog.Logger
}

func NewVisual(opts VisualOptions) *VisualStyleAnalyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &VisualStyleAnalyzer{
		analyzer: opts.Analyzer,
		vision:   opts.Vision,
		store:    opts.Store,
		logger:   logger,
	}
}

// Analyze uses the first five URLs. The result always carries those URLs
// and a nil embedding id, default or not.
func (a *VisualStyleAnalyzer) Analyze(ctx context.Context, urls []string) brand.Result[brand.VisualVector] {
	refs := firstRefs(urls)

	raw, err := a.request(ctx, refs)
	if err != nil {
		return a.recover(refs, fmt.Errorf("%w: %w", capability.ErrCapabilityUnavailable, err))
	}
	vec, err := ParseVisual(raw)
	if err != nil {
		return a.recover(refs, fmt.Errorf("%w: %w", capability.ErrCapabilityUnavailable, err))
	}
	vec.ReferenciaImagenesURLs = refs
	vec.EmbeddingID = nil
	return brand.OK(vec)
}

func (a *VisualStyleAnalyzer) request(ctx context.Context, refs []string) (string, error) {
	if a.vision != nil && a.store != nil && len(refs) > 0 {
		images := a.fetchImages(ctx, refs)
		if len(images) > 0 {
			return a.vision.AnalyzeImages(ctx, visionPrompt, images)
		}
		a.logger.Warn("no reference images could be fetched, using url-only analysis", "stage", "visual", "urls", len(refs))
	}
	if a.analyzer == nil {
		return "", fmt.Errorf("no text analyzer configured")
	}
	return a.analyzer.Analyze(ctx, VisualPrompt(refs))
}

func (a *VisualStyleAnalyzer) fetchImages(ctx context.Context, refs []string) []capability.InlineImage {
	fetched := make([]capability.InlineImage, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		if !isRemote(ref) {
			a.logger.Debug("skipping non-http reference image", "url", ref)
			continue
		}
		g.Go(func() error {
			data, err := a.store.Fetch(gctx, ref)
			if err != nil {
				a.logger.Debug("reference image fetch failed", "url", ref, "error", err)
				return nil
			}
			mime := http.DetectContentType(data)
			if !strings.HasPrefix(mime, "image/") {
				a.logger.Debug("reference is not an image", "url", ref, "mime", mime)
				return nil
			}
			fetched[i] = capability.InlineImage{Data: data, MimeType: mime}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]capability.InlineImage, 0, len(fetched))
	for _, img := range fetched {
		if len(img.Data) > 0 {
			out = append(out, img)
		}
	}
	return out
}

// isRemote reports whether ref is an absolute http(s) URL. Crawled pages
// choose their image URLs, so local paths are never read on their behalf.
func isRemote(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (a *VisualStyleAnalyzer) recover(refs []string, reason error) brand.Result[brand.VisualVector] {
	a.logger.Warn("visual style analysis fell back to defaults", "stage", "visual", "reason", reason)
	return brand.Recover(DefaultVisual(refs), reason)
}

// ParseVisual decodes and validates a visual style response. Reference URLs
// are left for the caller to attach.
func ParseVisual(raw string) (brand.VisualVector, error) {
	var resp visualResponse
	if err := json.Unmarshal([]byte(StripFence(raw)), &resp); err != nil {
		return brand.VisualVector{}, fmt.Errorf("decode visual response: %w", err)
	}
	if err := brand.Validator().Struct(resp); err != nil {
		return brand.VisualVector{}, fmt.Errorf("visual response contract: %w", err)
	}
	return brand.VisualVector{
		EstiloFotografico:   strings.TrimSpace(resp.EstiloFotografico),
		ElementosVisuales:   resp.ElementosVisuales,
		RecomendacionImagen: strings.TrimSpace(resp.RecomendacionImagen),
	}, nil
}

func firstRefs(urls []string) []string {
	out := make([]string, 0, maxReferenceImages)
	for _, u := range urls {
		if len(out) == maxReferenceImages {
			break
		}
		out = append(out, u)
	}
	return out
}
