package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/zpapi/zpapi/internal/zotero"
)

// printer writes handler output. The indent travels with it so no
// handler reads formatting state from package scope.
type printer struct {
	out    io.Writer
	indent int
	human  bool
	tty    bool
}

func newPrinter(out io.Writer, indent int, human bool) *printer {
	p := &printer{out: out, indent: indent, human: human}
	if f, ok := out.(*os.File); ok {
		p.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

// JSON writes a value as JSON with the configured indentation.
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	if p.indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", p.indent))
	}
	return enc.Encode(v)
}

// progress writes a per-item progress line.
func (p *printer) progress(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// tableOut renders a go-pretty table. Piped output gets the plain
// ASCII style so downstream tools see clean text.
func (p *printer) tableOut(headers []string, rows [][]string) {
	tw := table.NewWriter()
	if p.tty {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range header {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	fmt.Fprintln(p.out, tw.Render())
}

func (p *printer) items(items []zotero.Item) error {
	if !p.human {
		return p.JSON(items)
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		s := item.Summary()
		title := s.Title
		if title == "" {
			title = s.Filename
		}
		rows[i] = []string{item.Key, s.ItemType, s.Date, title}
	}
	p.tableOut([]string{"Key", "Type", "Date", "Title"}, rows)
	return nil
}

func (p *printer) collections(collections []zotero.Collection) error {
	if !p.human {
		return p.JSON(collections)
	}
	rows := make([][]string, len(collections))
	for i, c := range collections {
		rows[i] = []string{c.Key, c.Name(), strconv.Itoa(c.Version)}
	}
	p.tableOut([]string{"Key", "Name", "Version"}, rows)
	return nil
}

func (p *printer) tags(tags []zotero.Tag) error {
	if !p.human {
		return p.JSON(tags)
	}
	rows := make([][]string, len(tags))
	for i, t := range tags {
		rows[i] = []string{t.Tag}
	}
	p.tableOut([]string{"Tag"}, rows)
	return nil
}

func (p *printer) searches(searches []zotero.SavedSearch) error {
	if !p.human {
		return p.JSON(searches)
	}
	rows := make([][]string, len(searches))
	for i, s := range searches {
		rows[i] = []string{s.Key, s.Name()}
	}
	p.tableOut([]string{"Key", "Name"}, rows)
	return nil
}

func (p *printer) groups(groups []zotero.Group) error {
	if !p.human {
		return p.JSON(groups)
	}
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{strconv.Itoa(g.ID), g.Name()}
	}
	p.tableOut([]string{"ID", "Name"}, rows)
	return nil
}
