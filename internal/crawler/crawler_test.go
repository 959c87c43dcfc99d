package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title>Acme Coffee</title>
<style>
body { background: #fafafa; color: #222222; font-family: Lato, sans-serif; }
h1 { font-family: "Playfair Display", serif; }
</style></head>
<body>
<h1>Acme Coffee</h1>
<p>Roasted   daily in small batches.</p>
<img src="/a.png"><img src="/b.png">
</body></html>`

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary available")
}

func TestCrawlRejectsEmptyURL(t *testing.T) {
	_, err := New(Options{}).Crawl(context.Background(), " ")
	assert.Error(t, err)
}

func TestCrawlCollectsSignals(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sig, err := New(Options{Headless: true, Settle: 100 * time.Millisecond}).Crawl(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Coffee", sig.Title)
	assert.Contains(t, sig.TextContent, "Roasted daily in small batches.")
	assert.Contains(t, sig.CSS.HeadingFont, "Playfair Display")
	assert.Contains(t, sig.CSS.BodyFont, "Lato")
	assert.Len(t, sig.Images, 2)
	require.Len(t, sig.Screenshots, 1)
	assert.NotEmpty(t, sig.Screenshots[0])
}
