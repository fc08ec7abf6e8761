package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

const subject = "Tu reporte semanal de búsqueda"

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<p>Hola {{.FirstName}},</p>
<p>Es momento de contarnos cómo fue tu semana de búsqueda laboral.</p>
<p><a href="{{.URL}}">Completar reporte semanal</a></p>
{{if .Expires}}<p>El enlace vence el {{.Expires}}.</p>{{end}}`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`Hola {{.FirstName}},

Es momento de contarnos cómo fue tu semana de búsqueda laboral.

{{.URL}}
{{if .Expires}}
El enlace vence el {{.Expires}}.{{end}}
`))

type templateData struct {
	FirstName string
	URL       string
	Expires   string
}

// Rendered holds the bodies shared by the HTML-capable senders.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render fills the invitation templates for msg.
func Render(msg Message) (Rendered, error) {
	data := templateData{FirstName: FirstName(msg.StudentName), URL: msg.ReportURL}
	if !msg.ExpiresAt.IsZero() {
		data.Expires = msg.ExpiresAt.Format(time.DateOnly)
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}
	if err := textBody.Execute(&text, data); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}
	return Rendered{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

// FirstName returns the first word of a full name.
func FirstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
