package monitor

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const reportTemplate = `FareFlow Pipeline Health Report
Generated: {{ .GeneratedAt.Format "2006-01-02 15:04:05 MST" }}
Overall status: {{ .Status }}

Components:
{{- range .Components }}
  [{{ .State }}] {{ .Name }}{{ if .Detail }} - {{ .Detail }}{{ end }}
{{- end }}

Pipeline runs since {{ .Performance.WindowStart.Format "2006-01-02" }}:
  runs: {{ .Performance.Runs }} (failed: {{ .Performance.Failed }})
  avg duration: {{ .Performance.AvgDuration }}
  rows inserted: {{ .Performance.RowsInserted }}, updated: {{ .Performance.RowsUpdated }}, deactivated: {{ .Performance.RowsDeactivated }}

Data quality:
  active records: {{ .Quality.ActiveRecords }}
  total fare mean/min/max: {{ .Quality.MeanTotalFare }} / {{ .Quality.MinTotalFare }} / {{ .Quality.MaxTotalFare }}
  records without season: {{ .Quality.UnknownSeasons }}

Anomalies ({{ len .Anomalies }}):
{{- if .Anomalies }}
{{- range .Anomalies }}
  [{{ .Type }}] {{ .Detail }}
{{- end }}
{{- else }}
  none detected
{{- end }}
`

// RenderReport renders a plain-text health report from a snapshot
func RenderReport(snapshot *Snapshot) (string, error) {
	tmpl, err := template.New("report").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, snapshot); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	return buf.String(), nil
}
