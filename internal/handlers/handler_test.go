package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-dna-studio/internal/brand"
	"brand-dna-studio/internal/compose"
	"brand-dna-studio/internal/extract"
	"brand-dna-studio/internal/mediagroup"
	"brand-dna-studio/internal/session"
	"brand-dna-studio/internal/storage"
	"brand-dna-studio/internal/studio"
	"brand-dna-studio/internal/telegram"
	"brand-dna-studio/internal/video"
)

type sent struct {
	kind    string
	name    string
	caption string
	data    []byte
}

type fakeMessenger struct {
	mu    sync.Mutex
	out   []sent
	files map[string][]byte
}

func (m *fakeMessenger) record(s sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, s)
	return nil
}

func (m *fakeMessenger) SendText(_ int64, text string) error {
	return m.record(sent{kind: "text", caption: text})
}

func (m *fakeMessenger) SendPhoto(_ int64, data []byte, name, caption string) error {
	return m.record(sent{kind: "photo", name: name, caption: caption, data: data})
}

func (m *fakeMessenger) SendAnimation(_ int64, data []byte, name, caption string) error {
	return m.record(sent{kind: "animation", name: name, caption: caption, data: data})
}

func (m *fakeMessenger) SendTyping(int64) {}

func (m *fakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, string, error) {
	data, ok := m.files[fileID]
	if !ok {
		return nil, "", errors.New("no such file")
	}
	return data, "image/png", nil
}

func (m *fakeMessenger) last() sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.out) == 0 {
		return sent{}
	}
	return m.out[len(m.out)-1]
}

type crawlFunc func(ctx context.Context, url string) (extract.Signals, error)

func (f crawlFunc) Crawl(ctx context.Context, url string) (extract.Signals, error) {
	return f(ctx, url)
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, c)
			} else {
				img.Set(x, y, color.NRGBA{R: 20, G: 60, B: 160, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newHandler(t *testing.T) (*Handler, *fakeMessenger) {
	t.Helper()
	store, err := storage.New(storage.Options{Root: t.TempDir()})
	require.NoError(t, err)
	logos := compose.NewLogoSource(compose.LogoSourceOptions{Store: store})
	compositor, err := compose.New(compose.Options{
		Generator: compose.SolidGenerator{Color: "#ffcc00", Size: 256},
		Logos:     logos,
	})
	require.NoError(t, err)

	shot := solidPNG(t, 120, 60, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	svc := studio.New(studio.Options{
		Extractor: extract.New(extract.Options{
			Source: crawlFunc(func(context.Context, string) (extract.Signals, error) {
				return extract.Signals{Title: "Acme", Screenshots: [][]byte{shot}}, nil
			}),
			BranchTimeout: time.Second,
		}),
		Compositor: compositor,
		Video: video.New(video.Options{
			Animator: video.FrameHoldAnimator{FPS: 2},
			Music:    video.MoodLibrary{},
			Voices:   video.VoiceCatalogue{},
			Renderer: video.GIFRenderer{FPS: 2, MaxSide: 48},
			Logos:    logos,
		}),
		Store: store,
	})

	msgr := &fakeMessenger{files: map[string][]byte{
		"logo": solidPNG(t, 32, 32, color.NRGBA{G: 255, A: 255}),
		"shot": shot,
	}}
	h := New(Options{Telegram: msgr, Studio: svc, Sessions: session.NewStore(session.Options{})})
	return h, msgr
}

func command(text string) telegram.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return telegram.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 42},
		From:     &tgbotapi.User{ID: 7, UserName: "ana"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func photo(fileID, caption, group string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		Caption:      caption,
		MediaGroupID: group,
		Chat:         &tgbotapi.Chat{ID: 42},
		From:         &tgbotapi.User{ID: 7, UserName: "ana"},
		Photo:        []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func TestSpecsListsPlatforms(t *testing.T) {
	h, msgr := newHandler(t)
	require.NoError(t, h.HandleUpdate(context.Background(), command("/specs")))
	text := msgr.last().caption
	assert.Contains(t, text, "instagram_reel 1080x1920 (9:16) mp4 max 90s")
	assert.Contains(t, text, "linkedin_post 1200x628")
}

func TestGenerateNeedsBrand(t *testing.T) {
	h, msgr := newHandler(t)
	require.NoError(t, h.HandleUpdate(context.Background(), command("/image instagram_post a desk")))
	assert.Contains(t, msgr.last().caption, "No brand yet")
}

func TestBrandThenImage(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))
	summary := msgr.last().caption
	assert.Contains(t, summary, "Acme")
	assert.Contains(t, summary, "https://acme.com")
	assert.Contains(t, summary, "Defaults used for: tone, visual")

	require.NoError(t, h.HandleUpdate(ctx, command("/image instagram_post a desk | Hello")))
	got := msgr.last()
	assert.Equal(t, "photo", got.kind)
	assert.Equal(t, "image.jpg", got.name)
	assert.Contains(t, got.caption, "Instagram post 1080x1080")
	assert.Contains(t, got.caption, "Note:")
	assert.NotEmpty(t, got.data)
}

func TestLogoCaptionSetsLogo(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))

	require.NoError(t, h.HandleUpdate(ctx, photo("logo", "/logo top-left", "")))
	assert.Equal(t, "Logo saved for Acme (png, top-left).", msgr.last().caption)

	require.NoError(t, h.HandleUpdate(ctx, command("/image linkedin_post team")))
	got := msgr.last()
	assert.Equal(t, "photo", got.kind)
	assert.NotContains(t, got.caption, "Note:")
}

func TestLogoCaptionRejectsPosition(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))

	require.NoError(t, h.HandleUpdate(ctx, photo("logo", "/logo upstairs", "")))
	assert.Contains(t, msgr.last().caption, "unknown position")
}

func TestSinglePhotoExtractsFromScreenshot(t *testing.T) {
	h, msgr := newHandler(t)
	require.NoError(t, h.HandleUpdate(context.Background(), photo("shot", "Shots Inc", "")))
	assert.True(t, strings.HasPrefix(msgr.last().caption, "Shots Inc"))
}

func TestAlbumGoesThroughAggregator(t *testing.T) {
	h, msgr := newHandler(t)
	done := make(chan struct{})
	ag := mediagroup.New(mediagroup.Options{
		Debounce: 10 * time.Millisecond,
		OnFlush: func(g mediagroup.Group) {
			h.HandleMediaGroup(context.Background(), g)
			close(done)
		},
	})
	h.SetMediaGroupAggregator(ag)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("shot", "Album Co", "g1")))
	require.NoError(t, h.HandleUpdate(context.Background(), photo("shot", "", "g1")))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("album was not flushed")
	}
	assert.True(t, strings.HasPrefix(msgr.last().caption, "Album Co"))
}

func TestVideoCommandSendsClip(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))

	require.NoError(t, h.HandleUpdate(ctx, command("/video 2 teaser")))
	got := msgr.last()
	assert.Equal(t, "animation", got.kind)
	assert.Equal(t, "clip.gif", got.name)
	assert.Contains(t, got.caption, "Instagram reel preview, 2s")
	assert.Contains(t, got.caption, "audio: music")
}

func TestVideoOnImagePlatformIsRejected(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))

	require.NoError(t, h.HandleUpdate(ctx, command("/video instagram_post promo")))
	assert.Contains(t, msgr.last().caption, "Platforms:")
}

func TestFormatDNAWithoutRecoveries(t *testing.T) {
	h, msgr := newHandler(t)
	require.NoError(t, h.HandleUpdate(context.Background(), command("/brand acme.com")))
	require.NoError(t, h.HandleUpdate(context.Background(), command("/dna")))
	text := msgr.last().caption
	assert.Contains(t, text, "Logo: none")
	assert.NotContains(t, text, "Defaults used for")
}

func TestPositionAndVerifyCommands(t *testing.T) {
	h, msgr := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, command("/verify")))
	assert.Contains(t, msgr.last().caption, "No brand yet")

	require.NoError(t, h.HandleUpdate(ctx, command("/brand acme.com")))

	require.NoError(t, h.HandleUpdate(ctx, command("/position top_center")))
	assert.Equal(t, "Logo position for Acme is now top-center.", msgr.last().caption)

	require.NoError(t, h.HandleUpdate(ctx, command("/position upstairs")))
	assert.Contains(t, msgr.last().caption, "Usage: /position")

	require.NoError(t, h.HandleUpdate(ctx, command("/verify")))
	assert.Equal(t, "Acme is marked as verified.", msgr.last().caption)

	id, ok := h.sessions.Brand(42)
	require.True(t, ok)
	dna, err := h.studio.Brand(id)
	require.NoError(t, err)
	assert.True(t, dna.Verified)
	assert.Equal(t, brand.AnchorTopCenter, dna.Logo.PreferredPosition)
}
