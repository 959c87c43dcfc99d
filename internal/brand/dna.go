package brand

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const ExtractionVersion = "1.0.0"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hexrgb", func(fl validator.FieldLevel) bool {
		return IsHexRGB(fl.Field().String())
	})
	return v
}

// Validator exposes the package validator so response contracts elsewhere
// share the same custom tags.
func Validator() *validator.Validate {
	return validate
}

// DNA is the brand identity record. Values are read-only once built; use
// Apply to replace whole sub-vectors.
type DNA struct {
	ID                string            `json:"id"`
	BrandName         string            `json:"brand_name"`
	WebsiteURL        string            `json:"website_url"`
	Chromatic         ChromaticVector   `json:"vector_cromatico"`
	Typographic       TypographicVector `json:"vector_tipografico"`
	Semantic          SemanticVector    `json:"vector_semantico"`
	Visual            VisualVector      `json:"vector_visual"`
	Logo              LogoAsset         `json:"logo"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ExtractionVersion string            `json:"extraction_version"`
	Verified          bool              `json:"is_verified"`
}

type Params struct {
	ID          string
	BrandName   string
	WebsiteURL  string
	Chromatic   ChromaticVector
	Typographic TypographicVector
	Semantic    SemanticVector
	Visual      VisualVector
	Logo        *LogoAsset
	Now         time.Time
}

func New(p Params) (DNA, error) {
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	logo := DefaultLogo()
	if p.Logo != nil {
		logo = *p.Logo
	}

	dna := DNA{
		ID:                id,
		BrandName:         strings.TrimSpace(p.BrandName),
		WebsiteURL:        strings.TrimSpace(p.WebsiteURL),
		Chromatic:         p.Chromatic,
		Typographic:       p.Typographic,
		Semantic:          p.Semantic.clone(),
		Visual:            p.Visual.clone(),
		Logo:              logo,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExtractionVersion: ExtractionVersion,
	}
	if err := dna.Validate(); err != nil {
		return DNA{}, err
	}
	return dna, nil
}

func (d DNA) Validate() error {
	if d.BrandName == "" {
		return errors.New("brand dna: brand name is required")
	}
	parts := []struct {
		name string
		v    any
	}{
		{"vector_cromatico", d.Chromatic},
		{"vector_tipografico", d.Typographic},
		{"vector_semantico", d.Semantic},
		{"vector_visual", d.Visual},
		{"logo", d.Logo},
	}
	for _, p := range parts {
		if err := validate.Struct(p.v); err != nil {
			return fmt.Errorf("brand dna: %s: %w", p.name, err)
		}
	}
	return nil
}

// Update replaces whole sub-vectors; nil fields are kept. LogoPosition is
// applied after Logo and changes only the preferred anchor.
type Update struct {
	Chromatic    *ChromaticVector
	Typographic  *TypographicVector
	Semantic     *SemanticVector
	Visual       *VisualVector
	Logo         *LogoAsset
	LogoPosition *Anchor
	Verified     *bool
}

func (u Update) Empty() bool {
	return u.Chromatic == nil && u.Typographic == nil && u.Semantic == nil &&
		u.Visual == nil && u.Logo == nil && u.LogoPosition == nil && u.Verified == nil
}

// Apply returns a new DNA with the update applied and UpdatedAt re-stamped.
// The receiver is left untouched.
func (d DNA) Apply(u Update, now time.Time) (DNA, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	next := d
	next.Semantic = d.Semantic.clone()
	next.Visual = d.Visual.clone()

	if u.Chromatic != nil {
		next.Chromatic = *u.Chromatic
	}
	if u.Typographic != nil {
		next.Typographic = *u.Typographic
	}
	if u.Semantic != nil {
		next.Semantic = u.Semantic.clone()
	}
	if u.Visual != nil {
		next.Visual = u.Visual.clone()
	}
	if u.Logo != nil {
		next.Logo = *u.Logo
	}
	if u.LogoPosition != nil {
		next.Logo.PreferredPosition = *u.LogoPosition
	}
	if u.Verified != nil {
		next.Verified = *u.Verified
	}
	next.UpdatedAt = now

	if err := next.Validate(); err != nil {
		return d, err
	}
	return next, nil
}
