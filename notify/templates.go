package notify

import (
	"fmt"
	"strings"
	"text/template"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[Kind]messageTemplate{
	KindApprovalRequest: mustTemplate(
		"New submission awaiting approval: {{.Submission.Title}}",
		`A new document was submitted{{with .Submission.WriterEmail}} by {{.}}{{end}}.

Title: {{.Submission.Title}}

{{.Submission.Content}}
{{if .ApproveURL}}
Approve: {{.ApproveURL}}
Reject:  {{.RejectURL}}
{{end}}`,
	),
	KindApproved: mustTemplate(
		"Your submission was approved: {{.Submission.Title}}",
		`Good news! "{{.Submission.Title}}" has been approved.`,
	),
	KindRejected: mustTemplate(
		"Your submission was rejected: {{.Submission.Title}}",
		`"{{.Submission.Title}}" was not approved. Please review and submit again.`,
	),
}

func mustTemplate(subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// Render produces the subject and body for a message
func Render(msg Message) (string, string, error) {
	tmpl, ok := templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", msg.Kind)
	}
	if msg.Submission == nil {
		return "", "", fmt.Errorf("render %s: submission is required", msg.Kind)
	}

	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, msg); err != nil {
		return "", "", fmt.Errorf("render template %s subject: %w", msg.Kind, err)
	}
	if err := tmpl.body.Execute(&body, msg); err != nil {
		return "", "", fmt.Errorf("render template %s body: %w", msg.Kind, err)
	}
	return subject.String(), body.String(), nil
}
