package main

import (
	"embed"
	htmltemplate "html/template"
	"os"
	"path"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed default_templates/*
var defaultTemplates embed.FS

const (
	templatesDir        = "templates"
	columnsTemplateName = "columns.tmpl"
	hocrTemplateName    = "hocr.tmpl"
)

var (
	columnsTemplate *template.Template
	hocrTemplate    *htmltemplate.Template
	templateMutex   sync.RWMutex
)

// readTemplate returns the user's copy from templates/, writing the embedded default
// there first when it is missing.
func readTemplate(name string) ([]byte, error) {
	userPath := filepath.Join(templatesDir, name)
	content, err := os.ReadFile(userPath)
	if err == nil {
		return content, nil
	}

	log.Infof("Could not read %s, using default template: %v", userPath, err)
	content, err = defaultTemplates.ReadFile(path.Join("default_templates", name))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(templatesDir, os.ModePerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(userPath, content, 0644); err != nil {
		log.Warnf("Failed to write default template %s to disk: %v", userPath, err)
	}
	return content, nil
}

// loadTemplates parses the output templates. Sprig functions are available in both.
func loadTemplates() error {
	templateMutex.Lock()
	defer templateMutex.Unlock()

	columnsContent, err := readTemplate(columnsTemplateName)
	if err != nil {
		return err
	}
	ct, err := template.New("columns").Funcs(sprig.FuncMap()).Parse(string(columnsContent))
	if err != nil {
		return err
	}

	hocrContent, err := readTemplate(hocrTemplateName)
	if err != nil {
		return err
	}
	ht, err := htmltemplate.New("hocr").Funcs(sprig.HtmlFuncMap()).Parse(string(hocrContent))
	if err != nil {
		return err
	}

	columnsTemplate, hocrTemplate = ct, ht
	return nil
}
