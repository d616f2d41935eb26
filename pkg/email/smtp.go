package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	texttemplate "text/template"

	"course_study_backend/internal/config"
)

// Kind 邮件类型，与通知消息中的 kind 一致
type Kind string

const (
	KindRetakeRequested          Kind = "retake_requested"
	KindRetakeApproved           Kind = "retake_approved"
	KindRetakeDenied             Kind = "retake_denied"
	KindStudentVerificationReady Kind = "student_verification_ready"
	KindVerificationApproved     Kind = "verification_approved"
	KindVerificationRejected     Kind = "verification_rejected"
)

const layout = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .highlight { color: #007bff; font-weight: bold; }
        .note { border-left: 3px solid #ccc; padding-left: 10px; color: #555; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        {{template "content" .}}
        {{if .Link}}<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
        <div class="footer">
            <p>This is an automated message from the course system.</p>
        </div>
    </div>
</body>
</html>
`

var contents = map[Kind]struct {
	subject string
	body    string
}{
	KindRetakeRequested: {
		subject: "Retake requested: {{.TestTitle}}",
		body: `<h2>Retake Request</h2>
<p><span class="highlight">{{.StudentName}}</span> has requested a retake of <span class="highlight">{{.TestTitle}}</span>.</p>
<p>Please review the request in the staff retake queue.</p>`,
	},
	KindRetakeApproved: {
		subject: "Retake approved: {{.TestTitle}}",
		body: `<h2>Retake Approved</h2>
<p>Your retake of <span class="highlight">{{.TestTitle}}</span> has been approved. A new attempt is ready for you.</p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}`,
	},
	KindRetakeDenied: {
		subject: "Retake denied: {{.TestTitle}}",
		body: `<h2>Retake Denied</h2>
<p>Your retake request for <span class="highlight">{{.TestTitle}}</span> was not approved.</p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}`,
	},
	KindStudentVerificationReady: {
		subject: "Student ready for verification: {{.StudentName}}",
		body: `<h2>Student Verification</h2>
<p><span class="highlight">{{.StudentName}}</span> has uploaded all required identification documents.</p>
<p>Please review the documents and verify the student.</p>`,
	},
	KindVerificationApproved: {
		subject: "Your account has been verified",
		body: `<h2>Verification Complete</h2>
<p>Hello {{.StudentName}}, your identification documents have been reviewed and your account is verified.</p>`,
	},
	KindVerificationRejected: {
		subject: "Action required: identification documents",
		body: `<h2>Verification Incomplete</h2>
<p>Hello {{.StudentName}}, we could not verify your identification documents. Please upload them again.</p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}`,
	},
}

type SMTPClient struct {
	config *config.SMTPConfig
}

func NewSMTPClient(cfg *config.SMTPConfig) *SMTPClient {
	return &SMTPClient{
		config: cfg,
	}
}

type EmailData struct {
	To      []string
	Subject string
	Body    string
}

// Render 渲染主题与 HTML 正文，data 中缺失的字段渲染为空
func Render(kind Kind, data map[string]string) (subject, body string, err error) {
	c, ok := contents[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}

	st, err := texttemplate.New("subject").Option("missingkey=zero").Parse(c.subject)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template: %w", err)
	}
	var sb bytes.Buffer
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	t, err := template.New(string(kind)).Option("missingkey=zero").Parse(layout)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template: %w", err)
	}
	if _, err := t.New("content").Parse(c.body); err != nil {
		return "", "", fmt.Errorf("failed to parse template: %w", err)
	}
	var bb bytes.Buffer
	if err := t.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	return sb.String(), bb.String(), nil
}

func (c *SMTPClient) SendEmail(data EmailData) error {
	var auth smtp.Auth
	if c.config.Username != "" || c.config.Password != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	msg := c.buildMessage(data)
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	if err := smtp.SendMail(addr, auth, c.config.From, data.To, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (c *SMTPClient) buildMessage(data EmailData) string {
	msg := fmt.Sprintf("From: %s\r\n", c.config.From)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(data.To, ", "))
	msg += fmt.Sprintf("Subject: %s\r\n", data.Subject)
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: text/html; charset=UTF-8\r\n"
	msg += "\r\n"
	msg += data.Body

	return msg
}

// Send 渲染指定类型的邮件并发送
func (c *SMTPClient) Send(to []string, kind Kind, data map[string]string) error {
	if len(to) == 0 {
		return nil
	}
	subject, body, err := Render(kind, data)
	if err != nil {
		return err
	}
	return c.SendEmail(EmailData{
		To:      to,
		Subject: subject,
		Body:    body,
	})
}
