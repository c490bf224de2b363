// Package export renders schedule listings as printable, paginated documents.
package export

import (
	"fmt"
	"strings"
)

// Columns are the table headings of every section.
var Columns = []string{"Culto", "Departamento", "Setor", "Membro"}

// Placeholder stands in for a missing cell value.
const Placeholder = "-"

// Row is one schedule line.
type Row struct {
	Service    string
	Department string
	Sector     string
	Member     string
}

// Cells returns the row values in column order with blanks replaced by Placeholder.
func (r Row) Cells() []string {
	return []string{cell(r.Service), cell(r.Department), cell(r.Sector), cell(r.Member)}
}

// Section is every row of one date. Heading is the label printed above the
// table, e.g. "Quinta-feira, 02/10/2025".
type Section struct {
	Date    string
	Heading string
	Rows    []Row
}

// Document is a renderable schedule export.
type Document struct {
	Title       string
	Subtitle    string
	Sections    []Section
	GeneratedOn string
}

// RowCount returns the number of rows across all sections.
func (d Document) RowCount() int {
	total := 0
	for _, section := range d.Sections {
		total += len(section.Rows)
	}
	return total
}

// Page is a slice of the document that fits the rows-per-page limit.
type Page struct {
	Number   int
	Total    int
	Sections []Section
}

// Footer is the page label printed at the bottom of every page.
func (p Page) Footer() string {
	return fmt.Sprintf("Página %d de %d", p.Number, p.Total)
}

// Paginate splits the document so that no page holds more than rowsPerPage
// rows. A section that does not fit continues on the next page under the same
// heading. A non-positive limit puts everything on one page.
func Paginate(doc Document, rowsPerPage int) []Page {
	if rowsPerPage <= 0 {
		return []Page{{Number: 1, Total: 1, Sections: doc.Sections}}
	}

	var pages []Page
	current := Page{}
	used := 0

	flush := func() {
		if len(current.Sections) == 0 {
			return
		}
		pages = append(pages, current)
		current = Page{}
		used = 0
	}

	for _, section := range doc.Sections {
		rows := section.Rows
		if len(rows) == 0 {
			continue
		}
		for len(rows) > 0 {
			if used == rowsPerPage {
				flush()
			}
			take := min(rowsPerPage-used, len(rows))
			current.Sections = append(current.Sections, Section{
				Date:    section.Date,
				Heading: section.Heading,
				Rows:    rows[:take],
			})
			used += take
			rows = rows[take:]
		}
	}
	flush()

	if len(pages) == 0 {
		pages = []Page{{}}
	}
	for i := range pages {
		pages[i].Number = i + 1
		pages[i].Total = len(pages)
	}
	return pages
}

func cell(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Placeholder
	}
	return trimmed
}
