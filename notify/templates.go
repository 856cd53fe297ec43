package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/MrEthical07/goAccount"
)

const (
	defaultConfirmationSubject = "Confirm your account"
	defaultResetSubject        = "Reset your password"
)

const defaultConfirmationText = `Hello {{.Username}},

Thanks for signing up for {{.ProductName}}. Confirm your account by opening
the link below:

{{.Link}}

The link expires {{.ExpiresAt}}. If you did not create an account you can
ignore this message.
`

const defaultConfirmationHTML = `<p>Hello {{.Username}},</p>
<p>Thanks for signing up for {{.ProductName}}. Confirm your account by opening the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires {{.ExpiresAt}}. If you did not create an account you can ignore this message.</p>
`

const defaultResetText = `Hello {{.Username}},

We received a request to reset your {{.ProductName}} password. Choose a new
password by opening the link below:

{{.Link}}

The link expires {{.ExpiresAt}}. If you did not ask for a reset your
password has not been changed.
`

const defaultResetHTML = `<p>Hello {{.Username}},</p>
<p>We received a request to reset your {{.ProductName}} password. Choose a new password by opening the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires {{.ExpiresAt}}. If you did not ask for a reset your password has not been changed.</p>
`

// TemplateSource holds the raw templates for one notification kind. An
// empty HTML template produces a text-only message.
type TemplateSource struct {
	Subject string
	Text    string
	HTML    string
}

// TemplateData is the value templates are executed against.
type TemplateData struct {
	ProductName string
	Username    string
	Email       string
	Link        string
	ExpiresAt   string
}

type compiledTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Templates maps notification kinds to parsed templates.
type Templates struct {
	byKind map[goAccount.NotificationKind]compiledTemplate
}

// DefaultTemplateSources returns the built-in English templates.
func DefaultTemplateSources() map[goAccount.NotificationKind]TemplateSource {
	return map[goAccount.NotificationKind]TemplateSource{
		goAccount.KindConfirmation: {
			Subject: defaultConfirmationSubject,
			Text:    defaultConfirmationText,
			HTML:    defaultConfirmationHTML,
		},
		goAccount.KindPasswordReset: {
			Subject: defaultResetSubject,
			Text:    defaultResetText,
			HTML:    defaultResetHTML,
		},
	}
}

// ParseTemplates compiles sources. Every kind needs a subject and a text
// template.
func ParseTemplates(sources map[goAccount.NotificationKind]TemplateSource) (*Templates, error) {
	t := &Templates{byKind: make(map[goAccount.NotificationKind]compiledTemplate, len(sources))}

	for kind, src := range sources {
		if src.Subject == "" {
			return nil, fmt.Errorf("notify: template %s: empty subject", kind)
		}
		if src.Text == "" {
			return nil, fmt.Errorf("notify: template %s: empty text body", kind)
		}

		text, err := texttemplate.New(string(kind) + ".txt").Option("missingkey=error").Parse(src.Text)
		if err != nil {
			return nil, fmt.Errorf("notify: parse template %s: %w", kind, err)
		}

		compiled := compiledTemplate{subject: src.Subject, text: text}
		if src.HTML != "" {
			html, err := htmltemplate.New(string(kind) + ".html").Option("missingkey=error").Parse(src.HTML)
			if err != nil {
				return nil, fmt.Errorf("notify: parse template %s: %w", kind, err)
			}
			compiled.html = html
		}
		t.byKind[kind] = compiled
	}

	return t, nil
}

// Render produces the subject and bodies for kind.
func (t *Templates) Render(kind goAccount.NotificationKind, data TemplateData) (Message, error) {
	compiled, ok := t.byKind[kind]
	if !ok {
		return Message{}, fmt.Errorf("notify: no template for %s", kind)
	}

	var text bytes.Buffer
	if err := compiled.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("notify: execute template %s: %w", kind, err)
	}

	msg := Message{
		Subject: compiled.subject,
		Text:    text.String(),
	}
	if compiled.html != nil {
		var html bytes.Buffer
		if err := compiled.html.Execute(&html, data); err != nil {
			return Message{}, fmt.Errorf("notify: execute template %s: %w", kind, err)
		}
		msg.HTML = html.String()
	}
	return msg, nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "soon"
	}
	return "at " + t.UTC().Format("2006-01-02 15:04 MST")
}
