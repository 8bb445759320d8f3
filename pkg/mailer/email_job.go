package mailer

import "github.com/oksasatya/go-task-manager/pkg/mailer/templates"

// TemplateWelcome is sent once after signup.
const TemplateWelcome = templates.Welcome

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (with Data) or a ready Subject/Text/HTML is expected.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Content resolves the subject and bodies to send, rendering Template when set.
func (j EmailJob) Content() (subject, text, html string, err error) {
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	subject, text, html, err = templates.Render(j.Template, j.Data)
	if err != nil {
		return "", "", "", err
	}
	if j.Subject != "" {
		subject = j.Subject
	}
	return subject, text, html, nil
}
