package notification

import (
	"bytes"
	"html/template"
)

// AlertEmailData feeds the alert email template.
type AlertEmailData struct {
	Name       string
	URL        string
	Status     string
	StatusText string
	Message    string
	Color      string
	SentAt     string
}

var alertEmailTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; background-color: #f6f9fc; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;">
	<div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 6px rgba(0,0,0,0.05);">
		<div style="background-color: {{.Color}}; padding: 24px 40px; text-align: center;">
			<h1 style="margin: 0; color: #ffffff; font-size: 22px; font-weight: 700;">{{.Name}} is {{.Status}}</h1>
			<p style="margin: 8px 0 0; color: rgba(255,255,255,0.9); font-size: 14px;">{{.StatusText}}</p>
		</div>
		<div style="padding: 30px 40px;">
			{{if .URL}}<p style="margin: 0 0 20px; text-align: center;"><a href="{{.URL}}" style="font-size: 14px; color: #64748b; text-decoration: none; word-break: break-all;">{{.URL}}</a></p>{{end}}
			<div style="border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px 20px; color: #334155; font-size: 14px; line-height: 1.6; word-break: break-word;">{{.Message}}</div>
		</div>
		<div style="padding: 16px 40px; background-color: #f8fafc; border-top: 1px solid #f1f5f9; text-align: center; color: #94a3b8; font-size: 12px;">
			Sent at {{.SentAt}} by API Monitor
		</div>
	</div>
</body>
</html>
`))

// RenderAlertEmail renders the HTML body of an alert email.
func RenderAlertEmail(data AlertEmailData) (string, error) {
	var buf bytes.Buffer
	if err := alertEmailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
