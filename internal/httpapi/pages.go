package httpapi

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/cyberhelp/internal/model"
	"github.com/tyemirov/cyberhelp/internal/site"
)

//go:embed web/templates/*.tmpl
var templateFiles embed.FS

//go:embed web/assets
var assetFiles embed.FS

type incidentOption struct {
	Value string
	Label string
}

type pageView struct {
	Site          site.Config
	Page          string
	Title         string
	IncidentTypes []incidentOption
	Year          int
}

type pageHandler struct {
	site          site.Config
	incidentTypes []incidentOption
	now           func() time.Time
}

var pageRoutes = []struct {
	path     string
	template string
	title    string
}{
	{path: "/", template: "home", title: ""},
	{path: "/about", template: "about", title: "About"},
	{path: "/services", template: "services", title: "Services"},
	{path: "/resources", template: "resources", title: "Resources"},
	{path: "/contact", template: "contact", title: "Contact"},
	{path: "/report", template: "report", title: "Report an Incident"},
}

func parsePageTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"isCurrent": func(current string, href string) bool {
			return current == href
		},
	}).ParseFS(templateFiles, "web/templates/*.tmpl")
}

func assetFileSystem() (http.FileSystem, error) {
	assets, err := fs.Sub(assetFiles, "web/assets")
	if err != nil {
		return nil, err
	}
	return http.FS(assets), nil
}

func newPageHandler(siteConfig site.Config) *pageHandler {
	options := make([]incidentOption, 0, len(model.IncidentTypes()))
	for _, incidentType := range model.IncidentTypes() {
		options = append(options, incidentOption{Value: string(incidentType), Label: incidentType.Label()})
	}
	return &pageHandler{site: siteConfig, incidentTypes: options, now: time.Now}
}

func (handler *pageHandler) register(engine *gin.Engine) {
	for _, pageRoute := range pageRoutes {
		templateName := pageRoute.template
		path := pageRoute.path
		title := pageRoute.title
		engine.GET(path, func(contextGin *gin.Context) {
			contextGin.HTML(http.StatusOK, templateName, handler.view(path, title))
		})
	}
}

func (handler *pageHandler) notFound(contextGin *gin.Context) {
	contextGin.HTML(http.StatusNotFound, "not_found", handler.view("", "Page Not Found"))
}

func (handler *pageHandler) view(path string, title string) pageView {
	fullTitle := handler.site.Site.Title
	if title != "" {
		fullTitle = title + " | " + handler.site.Site.Title
	}
	return pageView{
		Site:          handler.site,
		Page:          path,
		Title:         fullTitle,
		IncidentTypes: handler.incidentTypes,
		Year:          handler.now().Year(),
	}
}
