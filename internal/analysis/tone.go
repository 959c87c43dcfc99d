package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
)

const maxToneChars = 3000

const tonePrompt = `Analiza el siguiente texto de una página web empresarial y extrae información sobre el tono de comunicación de la marca.

Texto a analizar:
%s

Responde en formato JSON con los siguientes campos:
- formalidad: número entre 0 y 1 (0=muy informal, 1=muy formal)
- emocion: una palabra que describa la emoción principal (ej: "profesional", "entusiasta", "serio", "amigable")
- longitud_sentencia: "corta", "media" o "larga"
- vocabulario: lista de 5 palabras clave que definen la marca
- system_prompt: un prompt de sistema de 2-3 oraciones que describa cómo debería escribir una IA para esta marca

Solo responde con el JSON, sin explicaciones adicionales.`

const defaultSystemPrompt = "Actúa como un experto en marketing digital que usa un tono " +
	"profesional pero accesible, evitando jerga innecesaria y " +
	"priorizando la claridad y la confianza."

func DefaultSemantic() brand.SemanticVector {
	return brand.SemanticVector{
		Formalidad:        0.7,
		Emocion:           brand.EmotionProfesional,
		LongitudSentencia: brand.SentenceMedium,
		Vocabulario:       []string{"innovación", "calidad", "confianza", "servicio", "excelencia"},
		SystemPrompt:      defaultSystemPrompt,
	}
}

func TonePrompt(text string) string {
	return fmt.Sprintf(tonePrompt, truncateRunes(text, maxToneChars))
}

type toneResponse struct {
	Formalidad        *float64 `json:"formalidad" validate:"required,gte=0,lte=1"`
	Emocion           string   `json:"emocion" validate:"required"`
	LongitudSentencia string   `json:"longitud_sentencia" validate:"required"`
	Vocabulario       []string `json:"vocabulario" validate:"required,min=1,dive,required"`
	SystemPrompt      string   `json:"system_prompt" validate:"required"`
}

var sentenceLengths = map[string]brand.SentenceLength{
	"corta":  brand.SentenceShort,
	"short":  brand.SentenceShort,
	"media":  brand.SentenceMedium,
	"medio":  brand.SentenceMedium,
	"medium": brand.SentenceMedium,
	"larga":  brand.SentenceLong,
	"long":   brand.SentenceLong,
}

type ToneOptions struct {
	Analyzer capability.Analyzer
	Logger   *slog.Logger
}

type ToneAnalyzer struct {
	analyzer capability.Analyzer
	logger   *slog.Logger
}

func NewTone(opts ToneOptions) *ToneAnalyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ToneAnalyzer{analyzer: opts.Analyzer, logger: logger}
}

// Analyze never fails: capability errors and contract violations yield
// DefaultSemantic with the reason recorded.
func (a *ToneAnalyzer) Analyze(ctx context.Context, text string) brand.Result[brand.SemanticVector] {
	if a.analyzer == nil {
		return a.recover(fmt.Errorf("%w: no text analyzer configured", capability.ErrCapabilityUnavailable))
	}
	if strings.TrimSpace(text) == "" {
		return a.recover(fmt.Errorf("%w: no text content to analyse", capability.ErrSignalUnavailable))
	}
	raw, err := a.analyzer.Analyze(ctx, TonePrompt(text))
	if err != nil {
		return a.recover(fmt.Errorf("%w: %w", capability.ErrCapabilityUnavailable, err))
	}
	vec, err := ParseTone(raw)
	if err != nil {
		return a.recover(fmt.Errorf("%w: %w", capability.ErrCapabilityUnavailable, err))
	}
	return brand.OK(vec)
}

func (a *ToneAnalyzer) recover(reason error) brand.Result[brand.SemanticVector] {
	a.logger.Warn("tone analysis fell back to defaults", "stage", "tone", "reason", reason)
	return brand.Recover(DefaultSemantic(), reason)
}

// ParseTone decodes and validates a tone response.
func ParseTone(raw string) (brand.SemanticVector, error) {
	var resp toneResponse
	if err := json.Unmarshal([]byte(StripFence(raw)), &resp); err != nil {
		return brand.SemanticVector{}, fmt.Errorf("decode tone response: %w", err)
	}
	if err := brand.Validator().Struct(resp); err != nil {
		return brand.SemanticVector{}, fmt.Errorf("tone response contract: %w", err)
	}

	vec := brand.SemanticVector{
		Formalidad:   *resp.Formalidad,
		Emocion:      brand.Emotion(fold(resp.Emocion)),
		SystemPrompt: strings.TrimSpace(resp.SystemPrompt),
	}
	length, ok := sentenceLengths[fold(resp.LongitudSentencia)]
	if !ok {
		return brand.SemanticVector{}, fmt.Errorf("tone response contract: unknown longitud_sentencia %q", resp.LongitudSentencia)
	}
	vec.LongitudSentencia = length
	for _, w := range resp.Vocabulario {
		if w = strings.TrimSpace(w); w != "" {
			vec.Vocabulario = append(vec.Vocabulario, w)
		}
	}
	if err := brand.Validator().Struct(vec); err != nil {
		return brand.SemanticVector{}, fmt.Errorf("tone response contract: %w", err)
	}
	return vec, nil
}
