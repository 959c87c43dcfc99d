package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/platform"
	"brand-dna-studio/internal/studio"
)

type studioFactory func() (*studio.Service, error)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(out io.Writer, newStudio studioFactory) *cli.App {
	app := &cli.App{
		Name:    "brandctl",
		Usage:   "Extract brand DNA and generate branded assets",
		Version: Version,
		Writer:  out,
		Commands: []*cli.Command{
			extractCmd(newStudio),
			imageCmd(newStudio),
			videoCmd(newStudio),
			animateCmd(newStudio),
			specsCmd(),
			placeCmd(),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// brandFlags are shared by every command that renders for an existing brand.
func brandFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "dna", Aliases: []string{"d"}, Required: true, Usage: "Brand DNA JSON file written by extract"},
		&cli.StringFlag{Name: "logo", Usage: "Logo image file"},
		&cli.StringFlag{Name: "position", Usage: "Logo position (top-left, bottom-right, center, ...)"},
	}, extra...)
}

func extractCmd(newStudio studioFactory) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract brand DNA from a website or screenshots",
		ArgsUsage: "[url]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Brand name (defaults to the page title)"},
			&cli.StringSliceFlag{Name: "screenshot", Aliases: []string{"s"}, Usage: "Screenshot file; skips the crawl (repeatable)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the DNA JSON here instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			shots := c.StringSlice("screenshot")
			if c.NArg() == 0 && len(shots) == 0 {
				return cli.Exit("a url or at least one --screenshot is required", 1)
			}
			svc, err := newStudio()
			if err != nil {
				return outputError(err)
			}

			var ex extract.Extraction
			if len(shots) > 0 {
				data, err := readFiles(shots)
				if err != nil {
					return outputError(err)
				}
				ex, err = svc.ExtractScreenshots(c.Context, data, c.String("name"))
				if err != nil {
					return outputError(err)
				}
			} else {
				ex, err = svc.ExtractBrand(c.Context, c.Args().First(), c.String("name"))
				if err != nil {
					return outputError(err)
				}
			}

			for stage, reason := range ex.Recovered {
				fmt.Fprintf(c.App.ErrWriter, "warning: %s used defaults: %v\n", stage, reason)
			}
			if path := c.String("out"); path != "" {
				return writeJSONFile(path, ex.DNA)
			}
			return outputJSON(c.App.Writer, ex.DNA)
		},
	}
}

func imageCmd(newStudio studioFactory) *cli.Command {
	return &cli.Command{
		Name:  "image",
		Usage: "Generate a branded image for a platform",
		Flags: brandFlags(
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Value: platform.InstagramPost, Usage: "Target platform"},
			&cli.StringFlag{Name: "prompt", Required: true, Usage: "Image description"},
			&cli.StringFlag{Name: "overlay", Usage: "Text drawn over the image"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output file"},
		),
		Action: func(c *cli.Context) error {
			svc, dna, err := loadBrand(c, newStudio)
			if err != nil {
				return outputError(err)
			}
			res, err := svc.GenerateImage(c.Context, studio.ImageRequest{
				BrandID:  dna.ID,
				Platform: c.String("platform"),
				Prompt:   c.String("prompt"),
				Overlay:  c.String("overlay"),
			})
			if err != nil {
				return outputError(err)
			}
			if err := os.WriteFile(c.String("out"), res.Asset.Data, 0o644); err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"file":     c.String("out"),
				"url":      res.URL,
				"platform": res.Asset.Platform.Key,
				"width":    res.Asset.Width,
				"height":   res.Asset.Height,
				"has_logo": res.Asset.HasLogo,
				"warnings": res.Asset.Warnings,
			})
		},
	}
}

func videoCmd(newStudio studioFactory) *cli.Command {
	return &cli.Command{
		Name:  "video",
		Usage: "Generate a branded clip preview",
		Flags: brandFlags(
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Value: platform.InstagramReel, Usage: "Target video platform"},
			&cli.StringFlag{Name: "prompt", Required: true, Usage: "Clip description"},
			&cli.DurationFlag{Name: "duration", Usage: "Clip length (clamped to the platform maximum)"},
			&cli.StringFlag{Name: "voiceover", Usage: "Voice-over script; background music when empty"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output file"},
		),
		Action: func(c *cli.Context) error {
			svc, dna, err := loadBrand(c, newStudio)
			if err != nil {
				return outputError(err)
			}
			res, err := svc.GenerateVideo(c.Context, studio.VideoRequest{
				BrandID:   dna.ID,
				Platform:  c.String("platform"),
				Prompt:    c.String("prompt"),
				Duration:  c.Duration("duration"),
				Voiceover: c.String("voiceover"),
			})
			if err != nil {
				return outputError(err)
			}
			return writeClip(c, res)
		},
	}
}

func animateCmd(newStudio studioFactory) *cli.Command {
	return &cli.Command{
		Name:  "animate",
		Usage: "Turn a still image into a short watermarked clip",
		Flags: brandFlags(
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Required: true, Usage: "Still image file"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output file"},
		),
		Action: func(c *cli.Context) error {
			svc, dna, err := loadBrand(c, newStudio)
			if err != nil {
				return outputError(err)
			}
			still, err := os.ReadFile(c.String("image"))
			if err != nil {
				return outputError(err)
			}
			res, err := svc.AnimateImage(c.Context, dna.ID, still)
			if err != nil {
				return outputError(err)
			}
			return writeClip(c, res)
		},
	}
}

func specsCmd() *cli.Command {
	return &cli.Command{
		Name:  "specs",
		Usage: "List supported platforms",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("json") {
				return outputJSON(c.App.Writer, platform.All())
			}
			for _, spec := range platform.All() {
				fmt.Fprintln(c.App.Writer, spec.String())
			}
			return nil
		},
	}
}

func placeCmd() *cli.Command {
	return &cli.Command{
		Name:  "place",
		Usage: "Compute where a logo lands inside an image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Required: true, Usage: "Image size as WxH"},
			&cli.StringFlag{Name: "logo", Required: true, Usage: "Logo size as WxH"},
			&cli.StringFlag{Name: "anchor", Value: string(brand.AnchorBottomRight), Usage: "Logo position"},
			&cli.Float64Flag{Name: "max-size", Value: 0.15, Usage: "Logo size as a fraction of image width"},
			&cli.Float64Flag{Name: "padding", Value: 0.03, Usage: "Padding as a fraction of image width"},
		},
		Action: func(c *cli.Context) error {
			imgW, imgH, err := parseSize(c.String("image"))
			if err != nil {
				return outputError(err)
			}
			logoW, logoH, err := parseSize(c.String("logo"))
			if err != nil {
				return outputError(err)
			}
			w, h := compose.LogoSize(imgW, logoW, logoH, c.Float64("max-size"))
			pad := compose.Padding(imgW, c.Float64("padding"))
			x, y := compose.Place(imgW, imgH, w, h, brand.Anchor(c.String("anchor")), pad)
			return outputJSON(c.App.Writer, map[string]int{
				"x":       x,
				"y":       y,
				"width":   w,
				"height":  h,
				"padding": pad,
			})
		},
	}
}

// loadBrand imports the DNA file into a fresh service and applies --logo.
func loadBrand(c *cli.Context, newStudio studioFactory) (*studio.Service, brand.DNA, error) {
	raw, err := os.ReadFile(c.String("dna"))
	if err != nil {
		return nil, brand.DNA{}, err
	}
	var dna brand.DNA
	if err := json.Unmarshal(raw, &dna); err != nil {
		return nil, brand.DNA{}, fmt.Errorf("parse %s: %w", c.String("dna"), err)
	}

	svc, err := newStudio()
	if err != nil {
		return nil, brand.DNA{}, err
	}
	if err := svc.Import(dna); err != nil {
		return nil, brand.DNA{}, err
	}

	if logoPath := c.String("logo"); logoPath != "" {
		logo, err := os.ReadFile(logoPath)
		if err != nil {
			return nil, brand.DNA{}, err
		}
		dna, err = svc.SetLogo(c.Context, dna.ID, logo, brand.Anchor(strings.ToLower(c.String("position"))))
		if err != nil {
			return nil, brand.DNA{}, err
		}
	}
	return svc, dna, nil
}

func writeClip(c *cli.Context, res studio.VideoOutput) error {
	if err := os.WriteFile(c.String("out"), res.Result.Media.Data, 0o644); err != nil {
		return outputError(err)
	}
	out := map[string]any{
		"file":             c.String("out"),
		"url":              res.URL,
		"platform":         res.Result.Platform.Key,
		"format":           res.Result.Media.Format,
		"duration_seconds": res.Result.State.Duration().Seconds(),
		"has_logo":         res.Result.State.HasLogo(),
		"warnings":         res.Result.Warnings,
	}
	if a, ok := res.Result.State.Audio(); ok {
		out["audio"] = string(a.Kind)
	}
	return outputJSON(c.App.Writer, out)
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WxH", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q is not WxH", s)
	}
	return w, h, nil
}

func readFiles(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}
