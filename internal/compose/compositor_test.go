package compose

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
)

type generatorFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f generatorFunc) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

type logoFunc func(ctx context.Context, url string) (image.Image, error)

func (f logoFunc) FetchLogo(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

type countingStore struct {
	data  []byte
	delay time.Duration
	calls atomic.Int32
}

func (s *countingStore) Fetch(ctx context.Context, _ string) ([]byte, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.data, nil
}

func (s *countingStore) Upload(context.Context, []byte, string) (string, error) {
	return "", errors.New("read only")
}

func testDNA(t *testing.T, logoURL string) brand.DNA {
	t.Helper()
	logo := brand.DefaultLogo()
	logo.LogoURL = logoURL
	dna, err := brand.New(brand.Params{
		BrandName: "Acme",
		Chromatic: brand.ChromaticVector{
			Primary: "#1a365d", Secondary: "#4a5568", Accent: "#38b2ac",
			Background: "#ffffff", TextOnPrimary: "#ffffff",
		},
		Typographic: brand.TypographicVector{
			Headings: "Georgia", Body: "Arial",
			FallbackHeadings: "sans-serif", FallbackBody: "sans-serif",
		},
		Semantic: brand.SemanticVector{
			Formalidad: 0.7, Emocion: brand.EmotionProfesional, LongitudSentencia: brand.SentenceMedium,
			Vocabulario: []string{"calidad"}, SystemPrompt: "x",
		},
		Visual: brand.VisualVector{EstiloFotografico: "Luz natural"},
		Logo:   &logo,
	})
	require.NoError(t, err)
	return dna
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newCompositor(t *testing.T, gen capability.ImageGenerator, logos LogoFetcher) *Compositor {
	t.Helper()
	c, err := New(Options{Generator: gen, Logos: logos})
	require.NoError(t, err)
	return c
}

func TestEnhancePrompt(t *testing.T) {
	got := EnhancePrompt(" a coffee cup ", testDNA(t, ""))
	assert.Equal(t, "a coffee cup. Style: Luz natural. Color palette: #1a365d, #4a5568.", got)
}

func TestGenerateWithoutLogoIsDegraded(t *testing.T) {
	var prompt string
	gen := generatorFunc(func(ctx context.Context, p string) ([]byte, error) {
		prompt = p
		return SolidGenerator{Color: "#336699", Size: 800}.GenerateImage(ctx, p)
	})

	asset, err := newCompositor(t, gen, nil).Generate(context.Background(), Request{
		Prompt:   "summer sale",
		DNA:      testDNA(t, ""),
		Platform: "instagram_post",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Color palette: #1a365d, #4a5568.")
	assert.False(t, asset.HasLogo)
	assert.True(t, asset.Degraded)
	assert.Len(t, asset.Warnings, 1)
	assert.Equal(t, 1080, asset.Width)
	assert.Equal(t, 1080, asset.Height)
	assert.Equal(t, "jpg", asset.Format)
	assert.Equal(t, "image/jpeg", asset.MimeType())

	decoded, format, err := image.Decode(bytes.NewReader(asset.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 1080, 1080), decoded.Bounds())
}

func TestGenerateRejectsUnknownPlatform(t *testing.T) {
	called := false
	gen := generatorFunc(func(context.Context, string) ([]byte, error) {
		called = true
		return nil, nil
	})

	asset, err := newCompositor(t, gen, nil).Generate(context.Background(), Request{
		Prompt: "x", DNA: testDNA(t, ""), Platform: "tiktok_banner",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, capability.ErrInvalidPlatform)
	var stageErr *capability.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "platform", stageErr.Stage)
	assert.False(t, called)
	assert.Empty(t, asset.Data)
}

func TestGenerateBaseImageFailureIsFatal(t *testing.T) {
	cases := map[string]generatorFunc{
		"capability error": func(context.Context, string) ([]byte, error) { return nil, errors.New("503") },
		"undecodable":      func(context.Context, string) ([]byte, error) { return []byte("junk"), nil },
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			asset, err := newCompositor(t, gen, nil).Generate(context.Background(), Request{
				Prompt: "x", DNA: testDNA(t, ""), Platform: "instagram_post",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, capability.ErrGenerationUnavailable)
			var stageErr *capability.StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageBaseImage, stageErr.Stage)
			assert.Equal(t, "image_generator", stageErr.Capability)
			assert.Nil(t, asset.Data)
		})
	}
}

func TestGenerateWithoutGenerator(t *testing.T) {
	_, err := newCompositor(t, nil, nil).Generate(context.Background(), Request{
		Prompt: "x", DNA: testDNA(t, ""), Platform: "instagram_post",
	})
	assert.ErrorIs(t, err, capability.ErrGenerationUnavailable)
}

func TestComposeAppliesLogo(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	logos := logoFunc(func(context.Context, string) (image.Image, error) {
		return imaging.New(100, 80, red), nil
	})
	base := imaging.New(1000, 1000, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	spec := testSpec(1000, 1000, "png")

	asset, err := newCompositor(t, nil, logos).Compose(context.Background(), base, testDNA(t, "https://cdn/logo.png"), spec, "")
	require.NoError(t, err)
	assert.True(t, asset.HasLogo)
	assert.False(t, asset.Degraded)
	assert.Empty(t, asset.Warnings)
	assert.Equal(t, "png", asset.Format)

	// 150x120 logo at (820, 850) with 30px padding.
	assert.Equal(t, red, asset.Image.NRGBAAt(900, 900))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, asset.Image.NRGBAAt(800, 900))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, asset.Image.NRGBAAt(900, 990))
}

func TestComposeLogoFailureDegrades(t *testing.T) {
	logos := logoFunc(func(context.Context, string) (image.Image, error) {
		return nil, capability.ErrLogoUnavailable
	})
	base := imaging.New(400, 300, color.NRGBA{G: 200, A: 255})

	asset, err := newCompositor(t, nil, logos).Compose(context.Background(), base, testDNA(t, "https://cdn/logo.png"), testSpec(200, 200, "jpg"), "")
	require.NoError(t, err)
	assert.False(t, asset.HasLogo)
	assert.True(t, asset.Degraded)
	require.Len(t, asset.Warnings, 1)
	assert.Contains(t, asset.Warnings[0], "logo unavailable")
	assert.NotEmpty(t, asset.Data)
}

func TestComposeWideLogoIsDrawn(t *testing.T) {
	logos := logoFunc(func(context.Context, string) (image.Image, error) {
		return imaging.New(2000, 10, color.NRGBA{R: 255, A: 255}), nil
	})
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	base := imaging.New(1024, 1024, white)

	asset, err := newCompositor(t, nil, logos).Compose(context.Background(), base, testDNA(t, "https://cdn/logo.png"), testSpec(1024, 1024, "png"), "")
	require.NoError(t, err)
	assert.True(t, asset.HasLogo)
	assert.False(t, asset.Degraded)

	// 153x1 logo at (841, 993).
	px := asset.Image.NRGBAAt(900, 993)
	assert.Greater(t, px.R, uint8(200))
	assert.Less(t, px.G, uint8(50))
	assert.Equal(t, white, asset.Image.NRGBAAt(900, 992))
}

func TestComposeUnplaceableLogoDegrades(t *testing.T) {
	logos := logoFunc(func(context.Context, string) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
	})
	base := imaging.New(400, 400, color.NRGBA{G: 200, A: 255})

	asset, err := newCompositor(t, nil, logos).Compose(context.Background(), base, testDNA(t, "https://cdn/logo.png"), testSpec(400, 400, "png"), "")
	require.NoError(t, err)
	assert.False(t, asset.HasLogo)
	assert.True(t, asset.Degraded)
	assert.Equal(t, []string{"logo could not be placed"}, asset.Warnings)
}

func TestComposeDrawsOverlay(t *testing.T) {
	base := imaging.New(1000, 1000, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	dna := testDNA(t, "")
	dna.Chromatic.TextOnPrimary = "#ff0000"

	asset, err := newCompositor(t, nil, nil).Compose(context.Background(), base, dna, testSpec(1000, 1000, "png"), "HELLO")
	require.NoError(t, err)

	minY, maxY, minX, maxX := 1000, -1, 1000, -1
	for y := 0; y < 1000; y++ {
		for x := 0; x < 1000; x++ {
			if asset.Image.NRGBAAt(x, y).G < 128 {
				minY, maxY = min(minY, y), max(maxY, y)
				minX, maxX = min(minX, x), max(maxX, x)
			}
		}
	}
	require.GreaterOrEqual(t, maxY, 0, "overlay not drawn")
	assert.Greater(t, minY, 750)
	assert.Less(t, maxY, 860)
	assert.InDelta(t, 500, (minX+maxX)/2, 10)
}

func TestTextOrigin(t *testing.T) {
	x, y := TextOrigin(1000, 1000, 200, 40)
	assert.Equal(t, 400, x)
	assert.Equal(t, 810, y)
}

func TestLogoSourceCachesAndSharesFetches(t *testing.T) {
	store := &countingStore{data: pngBytes(t, imaging.New(20, 10, color.NRGBA{B: 255, A: 255}))}
	src := NewLogoSource(LogoSourceOptions{Store: store})

	for i := 0; i < 3; i++ {
		img, err := src.FetchLogo(context.Background(), "https://cdn/logo.png")
		require.NoError(t, err)
		assert.Equal(t, 20, img.Bounds().Dx())
	}
	assert.EqualValues(t, 1, store.calls.Load())
}

func TestLogoSourceErrors(t *testing.T) {
	slow := &countingStore{data: []byte("x"), delay: time.Second}
	_, err := NewLogoSource(LogoSourceOptions{Store: slow, Timeout: 20 * time.Millisecond}).
		FetchLogo(context.Background(), "https://cdn/slow.png")
	assert.ErrorIs(t, err, capability.ErrLogoUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	junk := &countingStore{data: []byte("not an image")}
	_, err = NewLogoSource(LogoSourceOptions{Store: junk}).FetchLogo(context.Background(), "https://cdn/junk.png")
	assert.ErrorIs(t, err, capability.ErrLogoUnavailable)

	_, err = NewLogoSource(LogoSourceOptions{Store: junk}).FetchLogo(context.Background(), "")
	assert.ErrorIs(t, err, capability.ErrLogoUnavailable)
}

func TestEncodeFormats(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{A: 255})

	_, format, err := Encode(img, "PNG")
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	data, format, err := Encode(img, "webp")
	require.NoError(t, err)
	assert.Equal(t, "jpg", format)
	_, decoded, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", decoded)
}
