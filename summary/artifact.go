package summary

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/hazyhaar/relevel/level"
)

// Format selects the artifact rendering.
type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// Artifact is the downloadable document produced by a summarize
// operation. It is handed to the sink layer; file saving itself is the
// consumer's concern.
type Artifact struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	PageTitle   string    `json:"page_title"`
	PageURL     string    `json:"page_url"`
	Level       string    `json:"level"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildArtifact packages a summary body into a document with the fixed
// header block (PAGE SUMMARY, source title, URL, level, timestamp).
func BuildArtifact(pageTitle, pageURL string, lvl level.Level, body string, format Format, now time.Time) (Artifact, error) {
	a := Artifact{
		PageTitle:   pageTitle,
		PageURL:     pageURL,
		Level:       lvl.String(),
		GeneratedAt: now,
	}

	switch format {
	case FormatPDF:
		data, err := renderPDF(pageTitle, pageURL, lvl, body, now)
		if err != nil {
			return Artifact{}, err
		}
		a.Data = data
		a.ContentType = "application/pdf"
		a.Filename = artifactFilename(pageTitle, lvl, "pdf")
	default:
		a.Data = []byte(renderText(pageTitle, pageURL, lvl, body, now))
		a.ContentType = "text/plain; charset=utf-8"
		a.Filename = artifactFilename(pageTitle, lvl, "txt")
	}
	return a, nil
}

func renderText(pageTitle, pageURL string, lvl level.Level, body string, now time.Time) string {
	var b strings.Builder
	b.WriteString("PAGE SUMMARY\n")
	fmt.Fprintf(&b, "Title: %s\n", pageTitle)
	fmt.Fprintf(&b, "URL: %s\n", pageURL)
	fmt.Fprintf(&b, "Level: %s\n", lvl)
	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format(time.RFC3339))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}

func renderPDF(pageTitle, pageURL string, lvl level.Level, body string, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, "PAGE SUMMARY", "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "Title: "+pageTitle, "", "L", false)
	pdf.MultiCell(0, 5, "URL: "+pageURL, "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Level: %s    Generated: %s", lvl, now.UTC().Format(time.RFC3339)), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	for _, para := range strings.Split(body, "\n\n") {
		pdf.MultiCell(0, 5.5, strings.TrimSpace(para), "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("summary: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// artifactFilename builds "{sanitizedTitle:30}_{level}_summary.{ext}".
// Every non-alphanumeric character in the title becomes an underscore.
func artifactFilename(pageTitle string, lvl level.Level, ext string) string {
	sanitized := make([]byte, 0, len(pageTitle))
	for i := 0; i < len(pageTitle) && len(sanitized) < 30; i++ {
		c := pageTitle[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sanitized = append(sanitized, c)
		default:
			sanitized = append(sanitized, '_')
		}
	}
	if len(sanitized) == 0 {
		sanitized = []byte("page")
	}
	return fmt.Sprintf("%s_%s_summary.%s", sanitized, lvl, ext)
}
