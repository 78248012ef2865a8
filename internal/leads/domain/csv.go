package domain

import (
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the fixed column order of lead exports.
var CSVHeader = []string{
	"Name", "Email", "Company", "Phone", "Status", "Score", "Source",
	"Budget", "Timeline", "Project Type", "Created At", "Message",
}

// CSVRow is the flattened form of a lead for export.
type CSVRow struct {
	Name        string
	Email       string
	Company     string
	Phone       string
	Status      Status
	Score       int
	Source      string
	Budget      string
	Timeline    string
	ProjectType string
	CreatedAt   time.Time
	Message     string
}

// ExportCSV renders rows under CSVHeader. Every field is double-quoted and
// embedded quotes are doubled, so the output is identical whatever the
// content. Lines end in "\n".
func ExportCSV(rows []CSVRow) string {
	var b strings.Builder
	writeCSVLine(&b, CSVHeader)
	for _, r := range rows {
		writeCSVLine(&b, []string{
			r.Name,
			r.Email,
			r.Company,
			r.Phone,
			string(r.Status),
			strconv.Itoa(r.Score),
			r.Source,
			r.Budget,
			r.Timeline,
			r.ProjectType,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Message,
		})
	}
	return b.String()
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
