package transform

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// chromeSelectors are removed from preview HTML before conversion
var chromeSelectors = []string{
	"script", "style", "noscript", "link", "meta",
	"nav", "header.toolbar", "footer", "aside",
	"button", "[role='toolbar']", "[role='button']",
	".docsmith-toolbar", ".page-break",
}

// Service converts template preview HTML to markdown for terminal display
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Service{
		logger: logger,
	}
}

// CleanHTML strips scripts, styles and UI chrome, returning the body content
func (s *Service) CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse preview HTML: %w", err)
	}

	for _, selector := range chromeSelectors {
		doc.Find(selector).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Html()
	}
	return body.Html()
}

// Title returns the preview document title, falling back to the first heading
func (s *Service) Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1, h2").First().Text())
}

// HTMLToMarkdown converts preview HTML to markdown.
// baseURL is used for resolving relative links.
func (s *Service) HTMLToMarkdown(html string, baseURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	cleaned, err := s.CleanHTML(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Preview cleanup failed, converting raw HTML")
		cleaned = html
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(cleaned)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using stripped text")
		return stripHTMLTags(cleaned), nil
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, using stripped text")
		return stripHTMLTags(cleaned), nil
	}

	s.logger.Debug().
		Int("markdown_length", len(converted)).
		Int("html_length", len(html)).
		Msg("Converted preview to markdown")

	return converted, nil
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
	entities     = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// stripHTMLTags removes tags and collapses whitespace
func stripHTMLTags(html string) string {
	stripped := tagPattern.ReplaceAllString(html, " ")
	collapsed := spacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(entities.Replace(collapsed))
}
