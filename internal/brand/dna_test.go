package brand

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		BrandName:  "Acme",
		WebsiteURL: "https://acme.test",
		Chromatic: ChromaticVector{
			Primary:       "#1a365d",
			Secondary:     "#4a5568",
			Accent:        "#38b2ac",
			Background:    "#ffffff",
			TextOnPrimary: "#ffffff",
		},
		Typographic: TypographicVector{
			Headings:             "Georgia",
			Body:                 "Helvetica",
			GoogleFontsAvailable: true,
			FallbackHeadings:     "sans-serif",
			FallbackBody:         "sans-serif",
		},
		Semantic: SemanticVector{
			Formalidad:        0.4,
			Emocion:           EmotionAmigable,
			LongitudSentencia: SentenceShort,
			Vocabulario:       []string{"café", "barrio"},
			SystemPrompt:      "Escribe cercano.",
		},
		Visual: VisualVector{
			EstiloFotografico:      "Luz cálida",
			ReferenciaImagenesURLs: []string{"https://acme.test/a.jpg"},
		},
		Now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewStampsDefaults(t *testing.T) {
	dna, err := New(testParams())
	require.NoError(t, err)

	assert.NotEmpty(t, dna.ID)
	assert.Equal(t, ExtractionVersion, dna.ExtractionVersion)
	assert.Equal(t, dna.CreatedAt, dna.UpdatedAt)
	assert.False(t, dna.Verified)
	assert.Equal(t, DefaultLogo(), dna.Logo)
	assert.False(t, dna.Logo.Configured())
}

func TestNewRejectsInvalidVectors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"uppercase hex", func(p *Params) { p.Chromatic.Primary = "#1A365D" }},
		{"short hex", func(p *Params) { p.Chromatic.Accent = "#fff" }},
		{"empty heading font", func(p *Params) { p.Typographic.Headings = "" }},
		{"formality above one", func(p *Params) { p.Semantic.Formalidad = 1.2 }},
		{"unknown emotion", func(p *Params) { p.Semantic.Emocion = "furioso" }},
		{"unknown sentence length", func(p *Params) { p.Semantic.LongitudSentencia = "enorme" }},
		{"empty system prompt", func(p *Params) { p.Semantic.SystemPrompt = "" }},
		{"too many reference urls", func(p *Params) {
			p.Visual.ReferenciaImagenesURLs = []string{"1", "2", "3", "4", "5", "6"}
		}},
		{"min above max logo size", func(p *Params) {
			l := DefaultLogo()
			l.MinSizePercent = 0.2
			l.MaxSizePercent = 0.1
			p.Logo = &l
		}},
		{"unknown anchor", func(p *Params) {
			l := DefaultLogo()
			l.PreferredPosition = "middle-ish"
			p.Logo = &l
		}},
		{"missing brand name", func(p *Params) { p.BrandName = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			_, err := New(p)
			assert.Error(t, err)
		})
	}
}

func TestNewCopiesSlices(t *testing.T) {
	p := testParams()
	dna, err := New(p)
	require.NoError(t, err)

	p.Semantic.Vocabulario[0] = "mutated"
	p.Visual.ReferenciaImagenesURLs[0] = "mutated"

	assert.Equal(t, "café", dna.Semantic.Vocabulario[0])
	assert.Equal(t, "https://acme.test/a.jpg", dna.Visual.ReferenciaImagenesURLs[0])
}

func TestApplyReplacesWholeVectorsAndRestamps(t *testing.T) {
	dna, err := New(testParams())
	require.NoError(t, err)

	later := dna.UpdatedAt.Add(time.Hour)
	logo := DefaultLogo()
	logo.LogoURL = "https://cdn.test/logo.png"
	logo.PreferredPosition = AnchorTopLeft
	verified := true

	next, err := dna.Apply(Update{Logo: &logo, Verified: &verified}, later)
	require.NoError(t, err)

	assert.Equal(t, later, next.UpdatedAt)
	assert.Equal(t, dna.CreatedAt, next.CreatedAt)
	assert.Equal(t, logo, next.Logo)
	assert.True(t, next.Verified)

	assert.False(t, dna.Logo.Configured(), "original must be untouched")
	assert.False(t, dna.Verified)
}

func TestApplyKeepsOriginalOnInvalidUpdate(t *testing.T) {
	dna, err := New(testParams())
	require.NoError(t, err)

	bad := dna.Chromatic
	bad.Primary = "red"
	got, err := dna.Apply(Update{Chromatic: &bad}, time.Now())
	require.Error(t, err)
	assert.Equal(t, dna, got)
}

func TestUpdateEmpty(t *testing.T) {
	assert.True(t, Update{}.Empty())
	v := false
	assert.False(t, Update{Verified: &v}.Empty())
	a := AnchorCenter
	assert.False(t, Update{LogoPosition: &a}.Empty())
}

func TestApplyLogoPosition(t *testing.T) {
	dna, err := New(testParams())
	require.NoError(t, err)

	center := AnchorCenter
	next, err := dna.Apply(Update{LogoPosition: &center}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, AnchorCenter, next.Logo.PreferredPosition)
	assert.Equal(t, dna.Logo.MaxSizePercent, next.Logo.MaxSizePercent)

	unknown := Anchor("nowhere")
	got, err := dna.Apply(Update{LogoPosition: &unknown}, time.Time{})
	require.Error(t, err)
	assert.Equal(t, dna, got)
}

func TestHexRoundTrip(t *testing.T) {
	c, err := ParseHex("#1A365D")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x1a, G: 0x36, B: 0x5d, A: 0xff}, c)
	assert.Equal(t, "#1a365d", Hex(c))

	short, err := NormalizeHex("#FFF")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", short)

	_, err = ParseHex("333333")
	assert.Error(t, err)
	_, err = ParseHex("#zzzzzz")
	assert.Error(t, err)
}

func TestResultConstructors(t *testing.T) {
	ok := OK(3)
	assert.False(t, ok.Recovered)
	assert.NoError(t, ok.Reason)

	rec := Recover(4, assert.AnError)
	assert.True(t, rec.Recovered)
	assert.ErrorIs(t, rec.Reason, assert.AnError)
	assert.Equal(t, 4, rec.Value)
}
