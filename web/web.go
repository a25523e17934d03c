// Package web embeds the dashboard's templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

var funcs = template.FuncMap{
	// Custom styles and scripts are authored by the site admin.
	"trustedCSS": func(s string) template.CSS { return template.CSS(s) },
	"trustedJS":  func(s string) template.JS { return template.JS(s) },
	"add":        func(a, b int) int { return a + b },
}

func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
}

// Assets serves the static directory at its root.
func Assets() http.FileSystem {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
