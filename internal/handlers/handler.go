package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/capability"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/mediagroup"
	"brand-dna-studio/internal/platform"
	"brand-dna-studio/internal/registry"
	"brand-dna-studio/internal/session"
	"brand-dna-studio/internal/studio"
	"brand-dna-studio/internal/telegram"
)

// Messenger is the part of the Telegram client the handler uses.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, data []byte, name, caption string) error
	SendAnimation(chatID int64, data []byte, name, caption string) error
	SendTyping(chatID int64)
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Service
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	studio     *studio.Service
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	return &Handler{
		tg:       opts.Telegram,
		studio:   opts.Studio,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

const helpText = "Brand DNA Studio\n\n" +
	"/brand <url> [name] - extract a brand from a website\n" +
	"Send screenshots (one photo or an album, caption = brand name) to extract from images\n" +
	"Send a photo with caption /logo [position] - set the brand logo\n" +
	"/image <platform> <prompt> [| overlay text] - branded image\n" +
	"/video [platform] [seconds] <prompt> [| voice-over] - branded clip\n" +
	"Send a photo with caption /animate - animate a still\n" +
	"/dna - show the active brand\n" +
	"/position <anchor> - move the logo (top-left, bottom-right, center, ...)\n" +
	"/verify - confirm the brand DNA looks right\n" +
	"/specs - list platforms"

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	var userID int64
	var username string
	if msg.From != nil {
		userID = msg.From.ID
		username = msg.From.UserName
	}

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, username, msg)
	}

	if fileID := imageFileID(msg); fileID != "" {
		return h.handleImage(ctx, chatID, userID, username, msg, fileID)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, "Send /help to see what I can do.")
	}
	return nil
}

// HandleMediaGroup extracts a brand from an album of screenshots.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.extractScreenshots(ctx, group.ChatID, group.Username, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, username string, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "specs":
		return h.tg.SendText(chatID, specsText())
	case "brand":
		return h.handleBrand(ctx, chatID, username, args)
	case "dna":
		dna, ok, err := h.activeBrand(chatID)
		if !ok {
			return err
		}
		return h.tg.SendText(chatID, formatDNA(extract.Extraction{DNA: dna}))
	case "image":
		return h.handleGenerateImage(ctx, chatID, args)
	case "video":
		return h.handleGenerateVideo(ctx, chatID, args)
	case "position":
		return h.handlePosition(chatID, args)
	case "verify":
		return h.handleVerify(chatID)
	case "logo", "animate":
		return h.tg.SendText(chatID, "Send a photo with /"+msg.Command()+" as its caption.")
	default:
		return h.tg.SendText(chatID, "Unknown command. Use /help.")
	}
}

func (h *Handler) handleBrand(ctx context.Context, chatID int64, username, args string) error {
	parsed, err := parseBrandArgs(args)
	if err != nil {
		return h.tg.SendText(chatID, "Usage: /brand <url> [name]\n"+err.Error())
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "Analysing "+parsed.URL+", this can take a minute...")

	ex, err := h.studio.ExtractBrand(ctx, parsed.URL, parsed.Name)
	if err != nil {
		h.logger.Error("brand extraction failed", "url", parsed.URL, "err", err)
		return h.tg.SendText(chatID, "Brand extraction failed. Please try again.")
	}
	h.sessions.SetBrand(chatID, username, ex.DNA.ID)
	return h.tg.SendText(chatID, formatDNA(ex))
}

func (h *Handler) handlePosition(chatID int64, args string) error {
	position, err := parseAnchor(args)
	if err != nil || position == "" {
		return h.tg.SendText(chatID, "Usage: /position <"+anchorList()+">")
	}
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}
	dna, err := h.studio.UpdateBrand(brandID, brand.Update{LogoPosition: &position})
	if err != nil {
		return h.reportGenerationError(chatID, "update", err)
	}
	return h.tg.SendText(chatID, fmt.Sprintf("Logo position for %s is now %s.", dna.BrandName, dna.Logo.PreferredPosition))
}

func (h *Handler) handleVerify(chatID int64) error {
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}
	dna, err := h.studio.VerifyBrand(brandID)
	if err != nil {
		return h.reportGenerationError(chatID, "verification", err)
	}
	return h.tg.SendText(chatID, dna.BrandName+" is marked as verified.")
}

func (h *Handler) handleImage(ctx context.Context, chatID, userID int64, username string, msg *tgbotapi.Message, fileID string) error {
	cmd, args, isCmd := captionCommand(msg.Caption)
	switch {
	case isCmd && cmd == "logo":
		return h.handleLogo(ctx, chatID, fileID, args)
	case isCmd && cmd == "animate":
		return h.handleAnimate(ctx, chatID, fileID)
	case isCmd:
		return h.tg.SendText(chatID, "Unknown caption command. Use /help.")
	}

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     username,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}
	return h.extractScreenshots(ctx, chatID, username, msg.Caption, []string{fileID})
}

func (h *Handler) extractScreenshots(ctx context.Context, chatID int64, username, caption string, fileIDs []string) error {
	h.tg.SendTyping(chatID)

	shots, err := h.download(ctx, fileIDs)
	if err != nil {
		h.logger.Error("screenshot download failed", "err", err)
		return h.tg.SendText(chatID, "Could not download the screenshots.")
	}

	ex, err := h.studio.ExtractScreenshots(ctx, shots, strings.TrimSpace(caption))
	if err != nil {
		h.logger.Error("screenshot extraction failed", "err", err)
		return h.tg.SendText(chatID, "Brand extraction failed. Please try again.")
	}
	h.sessions.SetBrand(chatID, username, ex.DNA.ID)
	return h.tg.SendText(chatID, formatDNA(ex))
}

func (h *Handler) handleLogo(ctx context.Context, chatID int64, fileID, args string) error {
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}
	position, err := parseAnchor(args)
	if err != nil {
		return h.tg.SendText(chatID, err.Error()+"\nPositions: "+anchorList())
	}

	data, _, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("logo download failed", "err", err)
		return h.tg.SendText(chatID, "Could not download the logo.")
	}

	dna, err := h.studio.SetLogo(ctx, brandID, data, position)
	if err != nil {
		if errors.Is(err, studio.ErrInvalidLogo) {
			return h.tg.SendText(chatID, "That logo could not be used: "+err.Error())
		}
		h.logger.Error("logo update failed", "brand_id", brandID, "err", err)
		return h.tg.SendText(chatID, "Could not save the logo.")
	}
	return h.tg.SendText(chatID, fmt.Sprintf("Logo saved for %s (%s, %s).",
		dna.BrandName, dna.Logo.Format, dna.Logo.PreferredPosition))
}

func (h *Handler) handleGenerateImage(ctx context.Context, chatID int64, args string) error {
	parsed, err := parseImageArgs(args)
	if err != nil {
		return h.tg.SendText(chatID, err.Error()+"\n\n"+specsText())
	}
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}

	h.tg.SendTyping(chatID)
	out, err := h.studio.GenerateImage(ctx, studio.ImageRequest{
		BrandID:  brandID,
		Platform: parsed.Platform,
		Prompt:   parsed.Prompt,
		Overlay:  parsed.Overlay,
	})
	if err != nil {
		return h.reportGenerationError(chatID, "image", err)
	}

	caption := fmt.Sprintf("%s %dx%d", out.Asset.Platform.Name, out.Asset.Width, out.Asset.Height)
	caption += warningsSuffix(out.Asset.Warnings)
	return h.tg.SendPhoto(chatID, out.Asset.Data, "image."+out.Asset.Format, caption)
}

func (h *Handler) handleGenerateVideo(ctx context.Context, chatID int64, args string) error {
	parsed, err := parseVideoArgs(args)
	if err != nil {
		return h.tg.SendText(chatID, err.Error())
	}
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}

	h.tg.SendTyping(chatID)
	out, err := h.studio.GenerateVideo(ctx, studio.VideoRequest{
		BrandID:   brandID,
		Platform:  parsed.Platform,
		Prompt:    parsed.Prompt,
		Duration:  parsed.Duration,
		Voiceover: parsed.Voiceover,
	})
	if err != nil {
		return h.reportGenerationError(chatID, "video", err)
	}
	return h.sendClip(chatID, out)
}

func (h *Handler) handleAnimate(ctx context.Context, chatID int64, fileID string) error {
	brandID, ok, err := h.activeBrandID(chatID)
	if !ok {
		return err
	}
	data, _, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("still download failed", "err", err)
		return h.tg.SendText(chatID, "Could not download the image.")
	}

	h.tg.SendTyping(chatID)
	out, err := h.studio.AnimateImage(ctx, brandID, data)
	if err != nil {
		return h.reportGenerationError(chatID, "animation", err)
	}
	return h.sendClip(chatID, out)
}

func (h *Handler) sendClip(chatID int64, out studio.VideoOutput) error {
	res := out.Result
	caption := fmt.Sprintf("%s preview, %ds", res.Platform.Name, int(res.State.Duration().Seconds()))
	if a, ok := res.State.Audio(); ok {
		caption += ", audio: " + string(a.Kind)
	}
	caption += warningsSuffix(res.Warnings)
	return h.tg.SendAnimation(chatID, res.Media.Data, "clip."+res.Media.Format, caption)
}

func (h *Handler) reportGenerationError(chatID int64, what string, err error) error {
	var stageErr *capability.StageError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return h.tg.SendText(chatID, "Your brand expired. Run /brand again.")
	case errors.Is(err, capability.ErrInvalidPlatform):
		return h.tg.SendText(chatID, err.Error()+"\n\n"+specsText())
	case errors.Is(err, studio.ErrInvalidUpdate):
		return h.tg.SendText(chatID, "The "+what+" was rejected: "+err.Error())
	case errors.As(err, &stageErr):
		h.logger.Error(what+" generation failed", "stage", stageErr.Stage, "capability", stageErr.Capability, "err", stageErr.Err)
		return h.tg.SendText(chatID, fmt.Sprintf("The %s could not be generated (%s step failed). Please try again.", what, stageErr.Stage))
	default:
		h.logger.Error(what+" generation failed", "err", err)
		return h.tg.SendText(chatID, fmt.Sprintf("The %s could not be generated. Please try again.", what))
	}
}

// activeBrandID reports ok=false after telling the user to run /brand.
func (h *Handler) activeBrandID(chatID int64) (string, bool, error) {
	id, ok := h.sessions.Brand(chatID)
	if !ok {
		return "", false, h.tg.SendText(chatID, "No brand yet. Run /brand <url> or send screenshots first.")
	}
	return id, true, nil
}

func (h *Handler) activeBrand(chatID int64) (brand.DNA, bool, error) {
	id, ok, err := h.activeBrandID(chatID)
	if !ok {
		return brand.DNA{}, false, err
	}
	dna, err := h.studio.Brand(id)
	if err != nil {
		return brand.DNA{}, false, h.tg.SendText(chatID, "Your brand expired. Run /brand again.")
	}
	return dna, true, nil
}

func (h *Handler) download(ctx context.Context, fileIDs []string) ([][]byte, error) {
	out := make([][]byte, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			data, _, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// imageFileID picks the largest photo size, or an image sent as a file.
func imageFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}

func specsText() string {
	var b strings.Builder
	b.WriteString("Platforms:\n")
	for _, spec := range platform.All() {
		b.WriteString(spec.String())
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func anchorList() string {
	return "top-left, top-right, top-center, bottom-left, bottom-right, bottom-center, center"
}

func warningsSuffix(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	return "\nNote: " + strings.Join(warnings, "; ")
}

func formatDNA(ex extract.Extraction) string {
	dna := ex.DNA
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", dna.BrandName)
	if dna.WebsiteURL != "" {
		fmt.Fprintf(&b, "%s\n", dna.WebsiteURL)
	}
	c := dna.Chromatic
	fmt.Fprintf(&b, "\nColors: primary %s, secondary %s, accent %s, background %s, text %s\n",
		c.Primary, c.Secondary, c.Accent, c.Background, c.TextOnPrimary)
	fmt.Fprintf(&b, "Fonts: %s / %s\n", dna.Typographic.Headings, dna.Typographic.Body)
	s := dna.Semantic
	fmt.Fprintf(&b, "Tone: %s, formality %.2f, sentences %s\n", s.Emocion, s.Formalidad, s.LongitudSentencia)
	if len(s.Vocabulario) > 0 {
		fmt.Fprintf(&b, "Vocabulary: %s\n", strings.Join(s.Vocabulario, ", "))
	}
	fmt.Fprintf(&b, "Visual style: %s\n", dna.Visual.EstiloFotografico)
	if dna.Logo.Configured() {
		fmt.Fprintf(&b, "Logo: %s at %s\n", dna.Logo.Format, dna.Logo.PreferredPosition)
	} else {
		b.WriteString("Logo: none (send a photo with caption /logo)\n")
	}

	if ex.Degraded() {
		stages := make([]string, 0, len(ex.Recovered))
		for stage := range ex.Recovered {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		fmt.Fprintf(&b, "\nDefaults used for: %s\n", strings.Join(stages, ", "))
	}
	return strings.TrimSpace(b.String())
}
