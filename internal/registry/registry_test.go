package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-dna-studio/internal/brand"
)

func sampleDNA(t *testing.T) brand.DNA {
	t.Helper()
	dna, err := brand.New(brand.Params{
		BrandName: "Acme",
		Chromatic: brand.ChromaticVector{
			Primary: "#112233", Secondary: "#445566", Accent: "#778899",
			Background: "#ffffff", TextOnPrimary: "#ffffff",
		},
		Typographic: brand.TypographicVector{
			Headings: "Georgia", Body: "Arial",
			FallbackHeadings: "sans-serif", FallbackBody: "sans-serif",
		},
		Semantic: brand.SemanticVector{
			Formalidad: 0.5, Emocion: brand.EmotionSerio, LongitudSentencia: brand.SentenceShort,
			Vocabulario: []string{"uno"}, SystemPrompt: "x",
		},
		Visual: brand.VisualVector{EstiloFotografico: "y"},
	})
	require.NoError(t, err)
	return dna
}

func TestPutGet(t *testing.T) {
	r := New(Options{})
	dna := sampleDNA(t)
	r.Put(dna)

	got, err := r.Get(dna.ID)
	require.NoError(t, err)
	assert.Equal(t, dna, got)
	assert.Equal(t, 1, r.Len())

	r.Delete(dna.ID)
	_, err = r.Get(dna.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesStoredBrand(t *testing.T) {
	r := New(Options{})
	dna := sampleDNA(t)
	r.Put(dna)

	logo := brand.DefaultLogo()
	logo.LogoURL = "https://cdn.example.com/logo.png"
	next, err := r.Update(dna.ID, brand.Update{Logo: &logo})
	require.NoError(t, err)
	assert.Equal(t, logo.LogoURL, next.Logo.LogoURL)

	stored, err := r.Get(dna.ID)
	require.NoError(t, err)
	assert.Equal(t, next, stored)
	assert.Empty(t, dna.Logo.LogoURL)
}

func TestUpdateUnknown(t *testing.T) {
	_, err := New(Options{}).Update("nope", brand.Update{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	r := New(Options{})
	dna := sampleDNA(t)
	r.Put(dna)

	chromatic := dna.Chromatic
	chromatic.Primary = "#aa0000"
	visual := brand.VisualVector{EstiloFotografico: "Minimalista"}
	verified := true
	updates := []brand.Update{
		{Chromatic: &chromatic},
		{Visual: &visual},
		{Verified: &verified},
	}

	for i := 0; i < 50; i++ {
		r.Put(dna)
		var wg sync.WaitGroup
		for _, u := range updates {
			wg.Add(1)
			go func(u brand.Update) {
				defer wg.Done()
				_, err := r.Update(dna.ID, u)
				assert.NoError(t, err)
			}(u)
		}
		wg.Wait()

		got, err := r.Get(dna.ID)
		require.NoError(t, err)
		require.Equal(t, "#aa0000", got.Chromatic.Primary)
		require.Equal(t, "Minimalista", got.Visual.EstiloFotografico)
		require.True(t, got.Verified)
	}
}
