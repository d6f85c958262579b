package resolver

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// Page is a fetched upstream embed page.
type Page struct {
	Ref  string
	URL  string
	Body string

	once sync.Once
	doc  *goquery.Document
	err  error
}

// Document parses Body once and returns the DOM.
func (p *Page) Document() (*goquery.Document, error) {
	p.once.Do(func() {
		p.doc, p.err = goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	})
	return p.doc, p.err
}

// Strategy attempts to extract a media URL from a page. A strategy that
// finds nothing returns ok=false; it never fails the resolution itself.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, page *Page) (string, bool)
}

// patternStrategy returns the first capture group of a regular expression.
type patternStrategy struct {
	name string
	re   *regexp.Regexp
}

func (s *patternStrategy) Name() string { return s.name }

func (s *patternStrategy) Extract(_ context.Context, page *Page) (string, bool) {
	m := s.re.FindStringSubmatch(page.Body)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// sourceTagStrategy picks the first <source src> pointing at a video file.
type sourceTagStrategy struct {
	ext *regexp.Regexp
}

func (s *sourceTagStrategy) Name() string { return "source_tag" }

func (s *sourceTagStrategy) Extract(_ context.Context, page *Page) (string, bool) {
	doc, err := page.Document()
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("source[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if s.ext.MatchString(src) {
			found = strings.TrimSpace(src)
			return false
		}
		return true
	})
	return found, found != ""
}

// probeStrategy builds candidate URLs from CDN templates and probes them
// one at a time, in order, accepting the first servable one.
type probeStrategy struct {
	prober    upstream.Prober
	templates []string
	logger    *slog.Logger
}

func (s *probeStrategy) Name() string { return "cdn_probe" }

func (s *probeStrategy) Extract(ctx context.Context, page *Page) (string, bool) {
	for _, tmpl := range s.templates {
		if ctx.Err() != nil {
			return "", false
		}
		candidate := config.ExpandRef(tmpl, page.Ref)

		result, err := s.prober.Probe(ctx, candidate)
		if err != nil {
			s.logger.Debug("cdn probe failed", "ref", page.Ref, "error", err)
			continue
		}
		if result.Accessible {
			return candidate, true
		}
		s.logger.Debug("cdn candidate rejected", "ref", page.Ref, "status", result.StatusCode, "reason", result.Error)
	}
	return "", false
}

// extensionAlternation turns ["mp4","webm"] into "mp4|webm".
func extensionAlternation(exts []string) string {
	quoted := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			quoted = append(quoted, regexp.QuoteMeta(e))
		}
	}
	return strings.Join(quoted, "|")
}

// DefaultStrategies returns the extraction chain ordered from the most
// structured match to the least specific one.
func DefaultStrategies(cfg config.UpstreamConfig, prober upstream.Prober, logger *slog.Logger) []Strategy {
	video := extensionAlternation(cfg.VideoExtensions)

	return []Strategy{
		&patternStrategy{
			name: "sources_list",
			re:   regexp.MustCompile(`(?i)sources["']?\s*:\s*\[\s*\{[^}]*?["']?file["']?\s*:\s*["']([^"']+)["']`),
		},
		&patternStrategy{
			name: "file_property",
			re:   regexp.MustCompile(`(?i)["']?file["']?\s*:\s*["']([^"']+\.(?:` + video + `)[^"']*)["']`),
		},
		&sourceTagStrategy{
			ext: regexp.MustCompile(`(?i)\.(?:` + video + `)(?:[?#]|$)`),
		},
		&patternStrategy{
			name: "quoted_video_url",
			re:   regexp.MustCompile(`(?i)["'](https?:\\?/\\?/[^"']*\.(?:` + video + `)[^"']*)["']`),
		},
		&patternStrategy{
			name: "quoted_playlist_url",
			re:   regexp.MustCompile(`(?i)["'](https?:\\?/\\?/[^"']*\.m3u8[^"']*)["']`),
		},
		&probeStrategy{
			prober:    prober,
			templates: cfg.CDNTemplates,
			logger:    logger,
		},
		newPackedStrategy(video),
	}
}
