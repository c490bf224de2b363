package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format is an output encoding.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat reads a format name. An empty value selects HTML.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
}

// Extension is the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "html"
	}
}

// ContentType is the media type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/html; charset=utf-8"
	}
}

// FileName builds the download name, e.g. "escalas_Outubro_2025.html".
func FileName(monthName string, year int, format Format) string {
	return fmt.Sprintf("escalas_%s_%d.%s", monthName, year, format.Extension())
}

// markdownRenderer escapes raw HTML found in cell values.
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(goldmarkHTML.WithXHTML()),
)

// Render writes doc to w in the given format.
func Render(w io.Writer, doc Document, format Format, rowsPerPage int) error {
	switch format {
	case FormatMarkdown:
		return RenderMarkdown(w, doc, rowsPerPage)
	case FormatHTML:
		return RenderHTML(w, doc, rowsPerPage)
	case FormatCSV:
		return RenderCSV(w, doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// RenderMarkdown writes the paginated document as GitHub flavoured Markdown.
func RenderMarkdown(w io.Writer, doc Document, rowsPerPage int) error {
	var b strings.Builder

	b.WriteString("# " + escapeMarkdown(doc.Title) + "\n\n")
	b.WriteString("## " + escapeMarkdown(doc.Subtitle) + "\n\n")

	for i, page := range Paginate(doc, rowsPerPage) {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		for _, section := range page.Sections {
			b.WriteString("### " + escapeMarkdown(section.Heading) + "\n\n")
			writeTableRow(&b, Columns)
			b.WriteString("|" + strings.Repeat(" --- |", len(Columns)) + "\n")
			for _, row := range section.Rows {
				writeTableRow(&b, row.Cells())
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "*%s* · *Gerado em: %s*\n\n", page.Footer(), escapeMarkdown(doc.GeneratedOn))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderHTML writes a standalone HTML page converted from the Markdown form.
func RenderHTML(w io.Writer, doc Document, rowsPerPage int) error {
	var source bytes.Buffer
	if err := RenderMarkdown(&source, doc, rowsPerPage); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := markdownRenderer.Convert(source.Bytes(), &body); err != nil {
		return fmt.Errorf("export: convert markdown: %w", err)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(doc.Title+" - "+doc.Subtitle) + "</title>\n")
	b.WriteString("<style>table{border-collapse:collapse;width:100%}th,td{border:1px solid #ccc;padding:4px}th{background:#808080;color:#fff}h3{background:#667eea;color:#fff;padding:4px}hr{page-break-after:always;border:0}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderCSV writes one record per row with the ISO date first. CSV output is
// not paginated.
func RenderCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Data"}, Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, section := range doc.Sections {
		for _, row := range section.Rows {
			record := append([]string{section.Date}, row.Cells()...)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTableRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" " + escapeMarkdown(c) + " |")
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"#", `\#`,
	"&", `\&`,
	"~", `\~`,
)

func escapeMarkdown(value string) string {
	return markdownEscaper.Replace(value)
}
