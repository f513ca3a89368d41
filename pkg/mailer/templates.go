package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var verifyEmailHTML = template.Must(template.New(TemplateVerifyEmail).Parse(`
<html>
  <body>
    <p>Hi {{.Username}},</p>
    <p>Confirm your email address to finish setting up your account:</p>
    <p><a href="{{.Link}}">Verify email</a></p>
    <p>This link expires in 24 hours. If you did not create an account, you can ignore this message.</p>
  </body>
</html>`))

// Render produces subject, text, and HTML bodies for a named template.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case TemplateVerifyEmail:
		var buf bytes.Buffer
		if err := verifyEmailHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		subject = "Verify your email address"
		text = fmt.Sprintf("Hi %v, confirm your email address: %v", data["Username"], data["Link"])
		return subject, text, buf.String(), nil
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
}
