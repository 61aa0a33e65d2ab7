// Package help provides the embedded help topics with user override support.
// Topics are loaded with resolution order:
// 1. User override: helpDir/{name}.md
// 2. Embedded default: internal/help/topics/{name}.md
package help

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed topics/*.md
var topics embed.FS

// ErrTopicNotFound is returned for unknown or invalid topic names
var ErrTopicNotFound = errors.New("help topic not found")

var topicName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Topic is a help page
type Topic struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Get returns the markdown for a topic
func Get(name, helpDir string) ([]byte, error) {
	if !topicName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrTopicNotFound, name)
	}

	if helpDir != "" {
		if data, err := os.ReadFile(filepath.Join(helpDir, name+".md")); err == nil {
			return data, nil
		}
	}

	data, err := topics.ReadFile("topics/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrTopicNotFound, name)
	}
	return data, nil
}

// List returns all topics sorted by name, including user-only topics
func List(helpDir string) ([]Topic, error) {
	names := make(map[string]bool)

	embedded, err := fs.ReadDir(topics, "topics")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded topics: %w", err)
	}
	for _, entry := range embedded {
		names[strings.TrimSuffix(entry.Name(), ".md")] = true
	}

	if helpDir != "" {
		if entries, err := os.ReadDir(helpDir); err == nil {
			for _, entry := range entries {
				name := strings.TrimSuffix(entry.Name(), ".md")
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") && topicName.MatchString(name) {
					names[name] = true
				}
			}
		}
	}

	result := make([]Topic, 0, len(names))
	for name := range names {
		data, err := Get(name, helpDir)
		if err != nil {
			continue
		}
		result = append(result, Topic{Name: name, Title: Title(data, name)})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Title returns the first level-one heading, or fallback
func Title(markdown []byte, fallback string) string {
	scanner := bufio.NewScanner(bytes.NewReader(markdown))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return fallback
}

// Renderer converts topic markdown to HTML
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub flavoured tables
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Render converts markdown to an HTML fragment
func (r *Renderer) Render(markdown []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(markdown, &buf); err != nil {
		return "", fmt.Errorf("failed to render help: %w", err)
	}
	return buf.String(), nil
}
