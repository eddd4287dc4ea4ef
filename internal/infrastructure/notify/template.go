// Package notify renders reminder messages and provides a sender that only logs them.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/garyjia/daco-workflow/internal/application/port"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
)

var subjects = map[entity.EmailType]string{
	entity.EmailDraftInactive:           "Your data access application is still a draft",
	entity.EmailRepReviewPending:        "A data access application is waiting for your review",
	entity.EmailRepRevisionsOutstanding: "Your representative requested changes to your application",
	entity.EmailDACReviewPending:        "A data access application is waiting for DAC review",
	entity.EmailDACRevisionsOutstanding: "The DAC requested changes to your application",
}

var bodies = template.Must(template.New("reminder").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`{{define "sections"}}{{if .SectionsNeedingWork}}
Sections needing work: {{join .SectionsNeedingWork ", "}}{{end}}{{end}}
{{- define "DRAFT_INACTIVE"}}Application {{.ApplicationID}} ("{{.ProjectTitle}}") has not been touched for {{.ElapsedDays}} days. Complete and submit it when you are ready.{{end}}
{{- define "REP_REVIEW_PENDING"}}Application {{.ApplicationID}} ("{{.ProjectTitle}}") has been waiting {{.ElapsedDays}} days for institutional sign-off.{{end}}
{{- define "REP_REVISIONS_OUTSTANDING"}}Your institutional representative asked for changes to application {{.ApplicationID}} ("{{.ProjectTitle}}") {{.ElapsedDays}} days ago.{{template "sections" .}}{{end}}
{{- define "DAC_REVIEW_PENDING"}}Application {{.ApplicationID}} ("{{.ProjectTitle}}") has been in DAC review for {{.ElapsedDays}} days.{{end}}
{{- define "DAC_REVISIONS_OUTSTANDING"}}The DAC asked for changes to application {{.ApplicationID}} ("{{.ProjectTitle}}") {{.ElapsedDays}} days ago.{{template "sections" .}}{{end}}`))

// Subject returns the headline for a reminder type
func Subject(emailType entity.EmailType) string {
	if s, ok := subjects[emailType]; ok {
		return s
	}
	return "Data access application reminder"
}

// Render produces the plain-text body of a reminder
func Render(emailType entity.EmailType, data port.TemplateData) (string, error) {
	tmpl := bodies.Lookup(string(emailType))
	if tmpl == nil {
		return "", fmt.Errorf("no template for email type %s", emailType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", emailType, err)
	}
	if data.PortalURL != "" {
		buf.WriteString("\n")
		buf.WriteString(strings.TrimRight(data.PortalURL, "/"))
		buf.WriteString("/applications/")
		buf.WriteString(data.ApplicationID)
	}
	return buf.String(), nil
}
