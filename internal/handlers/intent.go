package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/platform"
)

type brandArgs struct {
	URL  string
	Name string
}

// parseBrandArgs reads "/brand <url> [name...]". A bare host gets https://.
func parseBrandArgs(args string) (brandArgs, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return brandArgs{}, errors.New("missing url")
	}
	raw := fields[0]
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return brandArgs{}, fmt.Errorf("invalid url %q", fields[0])
	}
	return brandArgs{URL: u.String(), Name: strings.Join(fields[1:], " ")}, nil
}

type imageArgs struct {
	Platform string
	Prompt   string
	Overlay  string
}

// parseImageArgs reads "/image <platform> <prompt> [| overlay text]".
func parseImageArgs(args string) (imageArgs, error) {
	body, overlay, _ := strings.Cut(args, "|")
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return imageArgs{}, errors.New("usage: /image <platform> <prompt> [| overlay text]")
	}
	spec, err := platform.Lookup(fields[0])
	if err != nil {
		return imageArgs{}, err
	}
	if spec.IsVideo() {
		return imageArgs{}, fmt.Errorf("%s is a video platform, use /video", spec.Key)
	}
	return imageArgs{
		Platform: spec.Key,
		Prompt:   strings.Join(fields[1:], " "),
		Overlay:  strings.TrimSpace(overlay),
	}, nil
}

type videoArgs struct {
	Platform  string
	Duration  time.Duration
	Prompt    string
	Voiceover string
}

// parseVideoArgs reads "/video [platform] [seconds] <prompt> [| voice-over]".
func parseVideoArgs(args string) (videoArgs, error) {
	body, voiceover, _ := strings.Cut(args, "|")
	fields := strings.Fields(body)
	var out videoArgs

	if len(fields) > 0 {
		if spec, err := platform.Lookup(fields[0]); err == nil {
			out.Platform = spec.Key
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		if d, ok := parseSeconds(fields[0]); ok {
			out.Duration = d
			fields = fields[1:]
		}
	}
	if len(fields) == 0 {
		return videoArgs{}, errors.New("usage: /video [platform] [seconds] <prompt> [| voice-over]")
	}
	out.Prompt = strings.Join(fields, " ")
	out.Voiceover = strings.TrimSpace(voiceover)
	return out, nil
}

func parseSeconds(s string) (time.Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(s), "s"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// captionCommand splits a photo caption such as "/logo@bot top-left" into
// its command and arguments.
func captionCommand(caption string) (string, string, bool) {
	caption = strings.TrimSpace(caption)
	if !strings.HasPrefix(caption, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(caption[1:], " ")
	cmd, _, _ := strings.Cut(head, "@")
	return strings.ToLower(cmd), strings.TrimSpace(rest), cmd != ""
}

func parseAnchor(s string) (brand.Anchor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	s = strings.ReplaceAll(s, "_", "-")
	for _, a := range brand.Anchors() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown position %q", s)
}
