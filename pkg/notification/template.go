package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var codeEmailTemplate = template.Must(template.ParseFS(templateFS, "templates/verification_code.html"))

type codeEmailData struct {
	Code     string
	Duration int
}

// RenderCodeEmail renders the HTML body sent for a verification code.
func RenderCodeEmail(code string, durationMinutes int) (string, error) {
	var buf bytes.Buffer
	if err := codeEmailTemplate.Execute(&buf, codeEmailData{Code: code, Duration: durationMinutes}); err != nil {
		return "", fmt.Errorf("failed to render code email: %w", err)
	}
	return buf.String(), nil
}
