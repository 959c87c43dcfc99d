package brand

type Emotion string

const (
	EmotionProfesional  Emotion = "profesional"
	EmotionAmigable     Emotion = "amigable"
	EmotionAutoritativo Emotion = "autoritativo"
	EmotionEmpatico     Emotion = "empatico"
	EmotionEntusiasta   Emotion = "entusiasta"
	EmotionSerio        Emotion = "serio"
	EmotionJugueton     Emotion = "jugueton"
)

func Emotions() []Emotion {
	return []Emotion{
		EmotionProfesional,
		EmotionAmigable,
		EmotionAutoritativo,
		EmotionEmpatico,
		EmotionEntusiasta,
		EmotionSerio,
		EmotionJugueton,
	}
}

type SentenceLength string

const (
	SentenceShort  SentenceLength = "corta"
	SentenceMedium SentenceLength = "media"
	SentenceLong   SentenceLength = "larga"
)

// Anchor is a named logo position inside an image.
type Anchor string

const (
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopRight     Anchor = "top-right"
	AnchorTopCenter    Anchor = "top-center"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorBottomCenter Anchor = "bottom-center"
	AnchorCenter       Anchor = "center"
)

func Anchors() []Anchor {
	return []Anchor{
		AnchorTopLeft,
		AnchorTopRight,
		AnchorTopCenter,
		AnchorBottomLeft,
		AnchorBottomRight,
		AnchorBottomCenter,
		AnchorCenter,
	}
}

type ChromaticVector struct {
	Primary       string `json:"primary" validate:"hexrgb"`
	Secondary     string `json:"secondary" validate:"hexrgb"`
	Accent        string `json:"accent" validate:"hexrgb"`
	Background    string `json:"background" validate:"hexrgb"`
	TextOnPrimary string `json:"text_on_primary" validate:"hexrgb"`
}

type TypographicVector struct {
	Headings             string `json:"headings" validate:"required"`
	Body                 string `json:"body" validate:"required"`
	GoogleFontsAvailable bool   `json:"google_fonts_available"`
	FallbackHeadings     string `json:"fallback_headings" validate:"required"`
	FallbackBody         string `json:"fallback_body" validate:"required"`
}

type SemanticVector struct {
	Formalidad        float64        `json:"formalidad" validate:"gte=0,lte=1"`
	Emocion           Emotion        `json:"emocion" validate:"oneof=profesional amigable autoritativo empatico entusiasta serio jugueton"`
	LongitudSentencia SentenceLength `json:"longitud_sentencia" validate:"oneof=corta media larga"`
	Vocabulario       []string       `json:"vocabulario" validate:"dive,required"`
	SystemPrompt      string         `json:"system_prompt" validate:"required"`
}

type VisualVector struct {
	EstiloFotografico      string   `json:"estilo_fotografico" validate:"required"`
	ElementosVisuales      []string `json:"elementos_visuales"`
	RecomendacionImagen    string   `json:"recomendacion_imagen"`
	ReferenciaImagenesURLs []string `json:"referencia_imagenes_urls" validate:"max=5"`
	EmbeddingID            *string  `json:"ip_adapter_embedding_id"`
}

// LogoAsset describes the brand logo. An empty LogoURL means no logo is
// configured; sizes and padding are fractions of the image width.
type LogoAsset struct {
	LogoURL           string  `json:"logo_url"`
	Format            string  `json:"logo_format"`
	HasTransparency   bool    `json:"has_transparency"`
	PreferredPosition Anchor  `json:"preferred_position" validate:"oneof=top-left top-right top-center bottom-left bottom-right bottom-center center"`
	MinSizePercent    float64 `json:"min_size_percent" validate:"gt=0,lt=1"`
	MaxSizePercent    float64 `json:"max_size_percent" validate:"gt=0,lt=1,gtefield=MinSizePercent"`
	PaddingPercent    float64 `json:"padding_percent" validate:"gt=0,lt=1"`
}

func DefaultLogo() LogoAsset {
	return LogoAsset{
		Format:            "png",
		HasTransparency:   true,
		PreferredPosition: AnchorBottomRight,
		MinSizePercent:    0.08,
		MaxSizePercent:    0.15,
		PaddingPercent:    0.03,
	}
}

func (l LogoAsset) Configured() bool {
	return l.LogoURL != ""
}

func (s SemanticVector) clone() SemanticVector {
	s.Vocabulario = cloneStrings(s.Vocabulario)
	return s
}

func (v VisualVector) clone() VisualVector {
	v.ElementosVisuales = cloneStrings(v.ElementosVisuales)
	v.ReferenciaImagenesURLs = cloneStrings(v.ReferenciaImagenesURLs)
	if v.EmbeddingID != nil {
		id := *v.EmbeddingID
		v.EmbeddingID = &id
	}
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
