package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/session"
	"github.com/aula-hub/aula-classroom-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT EXPORT
// ══════════════════════════════════════════════════════════════════════════════

// Report is the view of a session the exporter consumes: the session itself
// plus the derived attendance and incident views.
type Report struct {
	TeacherName string                 `json:"teacherName"`
	Session     *session.Session       `json:"session"`
	Attendance  session.Tally          `json:"attendance"`
	Incidents   []session.IncidentView `json:"incidents"`
}

// BuildReport assembles a Report from a session.
func BuildReport(teacherName string, s *session.Session) *Report {
	return &Report{
		TeacherName: teacherName,
		Session:     s.Clone(),
		Attendance:  s.AttendanceTally(),
		Incidents:   s.StudentsWithIncidents(),
	}
}

// ReportExporter renders a session report. The PDF renderer lives outside
// this module; the journal only owns the report contract and the filename
// convention.
type ReportExporter interface {
	// Export writes the rendered report to w.
	Export(w io.Writer, report *Report) error

	// FileExtension returns the extension of rendered files, without dot.
	FileExtension() string
}

// ReportFilename returns the export filename for a session:
// Bitacora_{sanitizedGroup}_{YYYYMMDD}.{ext}. The group is sanitized to
// alphanumerics so the name is safe on every filesystem.
func ReportFilename(group, date, ext string) string {
	compact := strings.ReplaceAll(date, "-", "")
	if t, err := timeutil.ParseDate(date); err == nil {
		compact = timeutil.CompactDate(t)
	}
	return fmt.Sprintf("Bitacora_%s_%s.%s", sanitizeGroup(group), compact, ext)
}

// sanitizeGroup drops every non-alphanumeric character from the group name.
func sanitizeGroup(group string) string {
	var b strings.Builder
	for _, r := range group {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JSONReportExporter renders the report as indented JSON. It is the in-repo
// exporter used by the CLI; the PDF exporter plugs in through the same
// interface.
type JSONReportExporter struct{}

// Export implements ReportExporter.
func (JSONReportExporter) Export(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// FileExtension implements ReportExporter.
func (JSONReportExporter) FileExtension() string {
	return "json"
}
