package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-dna-studio/internal/capability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, interval time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		APIKey:             "test-key",
		BaseURL:            srv.URL,
		GenerationInterval: interval,
		HTTPClient:         srv.Client(),
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("content-type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func textReply(text string) generateContentResponse {
	return generateContentResponse{Candidates: []candidate{{Content: content{Parts: []part{{Text: text}}}}}}
}

func TestAnalyzeSendsPromptToTextModel(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		writeJSON(t, w, textReply(`{"formalidad": 0.5}`))
	}, 0)

	out, err := client.Analyze(context.Background(), "analiza esto")
	require.NoError(t, err)
	assert.Equal(t, `{"formalidad": 0.5}`, out)
	assert.Equal(t, "/v1beta/models/"+defaultTextModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "analiza esto", gotReq.Contents[0].Parts[0].Text)
}

func TestAnalyzeImagesInlinesBase64(t *testing.T) {
	var gotReq generateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		writeJSON(t, w, textReply("ok"))
	}, 0)

	images := []capability.InlineImage{
		{Data: []byte("abc"), MimeType: "image/png"},
		{Data: nil},
	}
	_, err := client.AnalyzeImages(context.Background(), "describe", images)
	require.NoError(t, err)

	parts := gotReq.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abc")), parts[1].InlineData.Data)
}

func TestAnalyzeErrorsAreCapabilityUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota", http.StatusTooManyRequests)
			},
		},
		{
			name: "blocked",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, generateContentResponse{PromptFeedback: &promptFeedback{BlockReason: "SAFETY"}})
			},
		},
		{
			name: "empty",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, generateContentResponse{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, 0)
			_, err := client.Analyze(context.Background(), "hola")
			assert.ErrorIs(t, err, capability.ErrCapabilityUnavailable)
		})
	}
}

func TestGenerateImageDecodesFirstImage(t *testing.T) {
	var gotReq generateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		writeJSON(t, w, generateContentResponse{Candidates: []candidate{{Content: content{Parts: []part{
			{Text: "here you go"},
			{InlineData: &blob{Data: base64.StdEncoding.EncodeToString([]byte("png-bytes")), MimeType: "image/png"}},
		}}}}})
	}, 0)

	data, err := client.GenerateImage(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, []string{"IMAGE"}, gotReq.GenerationConfig.ResponseModalities)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, "a lighthouse")
}

func TestGenerateImageRetriesWithoutImageConfig(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if calls.Add(1) == 1 {
			require.True(t, strings.Contains(string(body), "imageConfig"))
			http.Error(w, `Invalid JSON payload received. Unknown name "imageConfig"`, http.StatusBadRequest)
			return
		}
		assert.NotContains(t, string(body), "imageConfig")
		writeJSON(t, w, generateContentResponse{Candidates: []candidate{{Content: content{Parts: []part{
			{InlineData: &blob{Data: base64.StdEncoding.EncodeToString([]byte("img")), MimeType: "image/png"}},
		}}}}})
	}, 0)

	data, err := client.GenerateImage(context.Background(), "logo")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerateImageWithoutImageIsGenerationUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, textReply("I cannot draw that"))
	}, 0)

	_, err := client.GenerateImage(context.Background(), "anything")
	assert.ErrorIs(t, err, capability.ErrGenerationUnavailable)
}

func TestGenerateImageHonoursInterval(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, generateContentResponse{Candidates: []candidate{{Content: content{Parts: []part{
			{InlineData: &blob{Data: base64.StdEncoding.EncodeToString([]byte("x")), MimeType: "image/png"}},
		}}}}})
	}, time.Hour)

	_, err := client.GenerateImage(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GenerateImage(ctx, "second")
	assert.ErrorIs(t, err, capability.ErrGenerationUnavailable)
}

func TestEmptyPromptRejected(t *testing.T) {
	client := New(Options{HTTPClient: http.DefaultClient})
	_, err := client.Analyze(context.Background(), "  ")
	assert.ErrorIs(t, err, capability.ErrCapabilityUnavailable)
	_, err = client.GenerateImage(context.Background(), "")
	assert.ErrorIs(t, err, capability.ErrGenerationUnavailable)
}
