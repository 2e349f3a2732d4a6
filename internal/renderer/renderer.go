package renderer

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Mode selects how captured HTML is presented.
type Mode string

const (
	ModeRaw    Mode = "raw"
	ModeSafe   Mode = "safe"
	ModeReader Mode = "reader"
)

func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeSafe:
		return ModeSafe
	case ModeReader:
		return ModeReader
	default:
		return ModeRaw
	}
}

// Frame describes the iframe that embeds a captured document.
type Frame struct {
	Src     string
	Sandbox string
	Title   string
}

// Renderer serves captured page bodies in an isolated browsing context.
// Captured markup is never inlined into the viewer's own origin.
type Renderer struct {
	sandboxOrigin string
	policy        *bluemonday.Policy
	md            *converter.Converter
}

// New returns a Renderer. sandboxOrigin is the scheme://host of a
// separate origin serving /raw; empty means the viewer origin with an
// opaque-origin sandbox.
func New(sandboxOrigin string) *Renderer {
	return &Renderer{
		sandboxOrigin: strings.TrimRight(sandboxOrigin, "/"),
		policy:        bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (r *Renderer) SeparateOrigin() bool {
	return r.sandboxOrigin != ""
}

func RawPath(domain, timestamp string) string {
	return "/raw/" + url.PathEscape(domain) + "/" + url.PathEscape(timestamp)
}

// Frame builds the iframe for one snapshot.
func (r *Renderer) Frame(domain, timestamp string, mode Mode) Frame {
	src := r.sandboxOrigin + RawPath(domain, timestamp)
	if mode != ModeRaw {
		src += "?mode=" + string(mode)
	}
	return Frame{
		Src:     src,
		Sandbox: r.sandboxTokens(),
		Title:   fmt.Sprintf("Snapshot of %s at %s", domain, timestamp),
	}
}

func (r *Renderer) sandboxTokens() string {
	if r.SeparateOrigin() {
		return "allow-same-origin allow-scripts"
	}
	return "allow-scripts"
}

// ApplyHeaders sets the isolation headers every raw response carries.
func (r *Renderer) ApplyHeaders(h http.Header) {
	h.Set("Content-Security-Policy", "sandbox "+r.sandboxTokens())
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	if r.SeparateOrigin() {
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
	} else {
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
	}
	h.Set("Cache-Control", "private, max-age=300")
	h.Del("Set-Cookie")
}

// Render converts a captured body for the given mode and returns the
// bytes with their content type.
func (r *Renderer) Render(content []byte, pageURL string, mode Mode) ([]byte, string, error) {
	switch mode {
	case ModeSafe:
		return r.Sanitize(content), "text/html; charset=utf-8", nil
	case ModeReader:
		md, err := r.Markdown(content, pageURL)
		if err != nil {
			return nil, "", err
		}
		// Reader output always opens with a heading.
		if t := Title(content); t != "" && !strings.HasPrefix(md, "# ") {
			md = "# " + t + "\n\n" + md
		}
		return []byte(md), "text/markdown; charset=utf-8", nil
	default:
		return content, "text/html; charset=utf-8", nil
	}
}

// Sanitize strips scripts, handlers and other active content.
func (r *Renderer) Sanitize(content []byte) []byte {
	return r.policy.SanitizeBytes(content)
}

// Markdown converts a captured page into reader-mode markdown. Relative
// links are resolved against pageURL.
func (r *Renderer) Markdown(content []byte, pageURL string) (string, error) {
	var (
		md  string
		err error
	)
	if pageURL != "" {
		md, err = r.md.ConvertString(string(content), converter.WithDomain(pageURL))
	} else {
		md, err = r.md.ConvertString(string(content))
	}
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Title returns the document's <title>, or "" if there is none.
func Title(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			extract(c)
		}
	}
	extract(doc)

	return title
}
