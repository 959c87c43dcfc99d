package platform

import (
	"fmt"
	"strings"

	"brand-dna-studio/internal/capability"
)

type Spec struct {
	Key                string `json:"key"`
	Name               string `json:"name"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	AspectRatio        string `json:"aspect_ratio"`
	Format             string `json:"format"`
	MaxDurationSeconds int    `json:"max_duration,omitempty"`
}

const (
	InstagramPost  = "instagram_post"
	InstagramStory = "instagram_story"
	InstagramReel  = "instagram_reel"
	LinkedInPost   = "linkedin_post"
	FacebookPost   = "facebook_post"
	FacebookStory  = "facebook_story"
)

var specs = map[string]Spec{
	InstagramPost:  {Name: "Instagram post", Width: 1080, Height: 1080, AspectRatio: "1:1", Format: "jpg"},
	InstagramStory: {Name: "Instagram story", Width: 1080, Height: 1920, AspectRatio: "9:16", Format: "jpg"},
	InstagramReel:  {Name: "Instagram reel", Width: 1080, Height: 1920, AspectRatio: "9:16", Format: "mp4", MaxDurationSeconds: 90},
	LinkedInPost:   {Name: "LinkedIn post", Width: 1200, Height: 628, AspectRatio: "1.91:1", Format: "jpg"},
	FacebookPost:   {Name: "Facebook post", Width: 1200, Height: 630, AspectRatio: "1.91:1", Format: "jpg"},
	FacebookStory:  {Name: "Facebook story", Width: 1080, Height: 1920, AspectRatio: "9:16", Format: "jpg"},
}

var order = []string{
	InstagramPost,
	InstagramStory,
	InstagramReel,
	LinkedInPost,
	FacebookPost,
	FacebookStory,
}

// Lookup rejects unknown keys with capability.ErrInvalidPlatform.
func Lookup(key string) (Spec, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	s, ok := specs[k]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", capability.ErrInvalidPlatform, key)
	}
	s.Key = k
	return s, nil
}

func All() []Spec {
	out := make([]Spec, 0, len(order))
	for _, key := range order {
		s := specs[key]
		s.Key = key
		out = append(out, s)
	}
	return out
}

func (s Spec) IsVideo() bool {
	return s.Format == "mp4"
}

func (s Spec) String() string {
	out := fmt.Sprintf("%s %dx%d (%s) %s", s.Key, s.Width, s.Height, s.AspectRatio, s.Format)
	if s.MaxDurationSeconds > 0 {
		out += fmt.Sprintf(" max %ds", s.MaxDurationSeconds)
	}
	return out
}
