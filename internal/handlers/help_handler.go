package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/help"
)

var helpPage = template.Must(template.New("help").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - DocSmith help</title>
</head>
<body>
<nav><a href="/help">Help topics</a></nav>
<main>
{{if .Topics}}<h1>Help topics</h1>
<ul>
{{range .Topics}}<li><a href="/help/{{.Name}}">{{.Title}}</a></li>
{{end}}</ul>
{{else}}{{.Body}}{{end}}
</main>
</body>
</html>
`))

type helpView struct {
	Title  string
	Topics []help.Topic
	Body   template.HTML
}

// HelpHandler serves the help pages
type HelpHandler struct {
	helpDir  string
	renderer *help.Renderer
	logger   arbor.ILogger
}

// NewHelpHandler creates a help handler. helpDir may hold user override topics.
func NewHelpHandler(helpDir string, logger arbor.ILogger) *HelpHandler {
	return &HelpHandler{
		helpDir:  helpDir,
		renderer: help.NewRenderer(),
		logger:   logger,
	}
}

// ServeHelp handles GET /help and GET /help/{topic}. JSON is returned when
// the client asks for it.
func (h *HelpHandler) ServeHelp(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/help"), "/")
	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")

	if name == "" {
		topics, err := help.List(h.helpDir)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if wantsJSON {
			WriteJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
			return
		}
		h.render(w, helpView{Title: "Help", Topics: topics})
		return
	}

	markdown, err := help.Get(name, h.helpDir)
	if err != nil {
		if errors.Is(err, help.ErrTopicNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := h.renderer.Render(markdown)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := help.Title(markdown, name)
	if wantsJSON {
		WriteJSON(w, http.StatusOK, map[string]string{
			"name":     name,
			"title":    title,
			"markdown": string(markdown),
			"html":     body,
		})
		return
	}

	h.render(w, helpView{Title: title, Body: template.HTML(body)})
}

func (h *HelpHandler) render(w http.ResponseWriter, view helpView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := helpPage.Execute(w, view); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render help page")
	}
}
