package core

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/asistencia/fs"
)

var (
	templates   map[string]*texttmpl.Template // {name: template}
	templatesMu sync.RWMutex
	tmplDir     = "templates/email"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent from BodyStr or from the named template.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	templatesMu.RLock()
	tmpl, ok := templates[m.TemplateName]
	templatesMu.RUnlock()
	if !ok {
		return errors.Errorf("email template %q not found", m.TemplateName)
	}

	var buff bytes.Buffer
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
	if err := tmpl.Execute(&buff, data); err != nil {
		return errors.Wrapf(err, "executing template %q", m.TemplateName)
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }

// ParseEmailTemplates parses the embedded .txt templates, each one on top of _base.txt.
func ParseEmailTemplates(logger Logger, strict bool) {
	parsed := make(map[string]*texttmpl.Template)

	names, err := fs.Glob(appfs.FS, path.Join(tmplDir, "*.txt"))
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}
	base := path.Join(tmplDir, "_base.txt")
	for _, name := range names {
		fname := path.Base(name)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := texttmpl.ParseFS(appfs.FS, base, name)
		if err != nil {
			logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
			continue
		}
		if strict {
			tmpl = tmpl.Option("missingkey=error")
		}
		parsed[strings.TrimSuffix(fname, ".txt")] = tmpl
	}

	templatesMu.Lock()
	templates = parsed
	templatesMu.Unlock()
}
