package renderer

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title> Homepage - Example.com </title>
<script>document.cookie = "x=1"</script></head>
<body><h1>Welcome</h1><p onclick="steal()">Read the <a href="/blog">blog</a>.</p></body></html>`

func TestFrameDefaultOrigin(t *testing.T) {
	r := New("")
	f := r.Frame("example.com", "2024-06-21T10:30:00Z", ModeRaw)

	assert.Equal(t, "/raw/example.com/2024-06-21T10:30:00Z", f.Src)
	assert.Equal(t, "allow-scripts", f.Sandbox)
	assert.NotContains(t, f.Sandbox, "allow-same-origin")
}

func TestFrameSeparateOrigin(t *testing.T) {
	r := New("https://sandbox.example.net/")
	f := r.Frame("example.com", "2024-06-21T10:30:00Z", ModeSafe)

	assert.Equal(t, "https://sandbox.example.net/raw/example.com/2024-06-21T10:30:00Z?mode=safe", f.Src)
	assert.Equal(t, "allow-same-origin allow-scripts", f.Sandbox)
}

func TestApplyHeaders(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		csp    string
		corp   string
	}{
		{name: "shared origin", origin: "", csp: "sandbox allow-scripts", corp: "same-origin"},
		{name: "separate origin", origin: "http://localhost:8081", csp: "sandbox allow-same-origin allow-scripts", corp: "cross-origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("Set-Cookie", "session=1")
			New(tt.origin).ApplyHeaders(h)

			assert.Equal(t, tt.csp, h.Get("Content-Security-Policy"))
			assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
			assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
			assert.Equal(t, tt.corp, h.Get("Cross-Origin-Resource-Policy"))
			assert.Empty(t, h.Get("Set-Cookie"))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Homepage - Example.com", Title([]byte(page)))
	assert.Equal(t, "", Title([]byte("<p>no title</p>")))
}

func TestSanitizeRemovesScripts(t *testing.T) {
	out := string(New("").Sanitize([]byte(page)))

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "Welcome")
}

func TestMarkdownReaderMode(t *testing.T) {
	md, err := New("").Markdown([]byte(page), "https://example.com")
	require.NoError(t, err)

	assert.Contains(t, md, "# Welcome")
	assert.Contains(t, md, "https://example.com/blog")
	assert.False(t, strings.Contains(md, "document.cookie"))
}

func TestRenderModes(t *testing.T) {
	r := New("")

	body, ct, err := r.Render([]byte(page), "", ModeRaw)
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
	assert.Equal(t, "text/html; charset=utf-8", ct)

	body, ct, err = r.Render([]byte(page), "", ModeReader)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", ct)
	assert.True(t, strings.HasPrefix(string(body), "# Welcome"))
}

func TestRenderReaderUsesDocumentTitle(t *testing.T) {
	doc := `<html><head><title>Archived Post</title></head><body><p>Body text.</p></body></html>`

	body, _, err := New("").Render([]byte(doc), "https://example.com/post", ModeReader)
	require.NoError(t, err)
	assert.Equal(t, "# Archived Post\n\nBody text.", string(body))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeSafe, ParseMode("SAFE"))
	assert.Equal(t, ModeReader, ParseMode("reader"))
	assert.Equal(t, ModeRaw, ParseMode(""))
	assert.Equal(t, ModeRaw, ParseMode("other"))
}
