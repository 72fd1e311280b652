// Package pdfmeta pulls identifying metadata out of PDF files. The
// attachment workflow uses it to decide which library item an upload
// belongs under.
package pdfmeta

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Journal PDFs carry the DOI on the title page or in a running footer,
// so scanning beyond the front matter is wasted work.
const maxScanPages = 3

// Directory-indicator form: 10.<registrant>/<suffix>. The suffix stops
// at whitespace and at characters Crossref disallows.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// ExtractDOI returns the first DOI found in the leading pages of the
// PDF at path. A readable document with no DOI yields "" and a nil
// error; only open and parse failures are reported.
func ExtractDOI(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > maxScanPages {
		pages = maxScanPages
	}
	for n := 1; n <= pages; n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Undecodable page, keep scanning.
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, m := range doiPattern.FindAllString(text, -1) {
		// DOIs often close a sentence or sit inside parentheses.
		m = strings.TrimRight(m, ".,;:)")
		if plausibleDOI(m) {
			return m
		}
	}
	return ""
}

func plausibleDOI(s string) bool {
	if len(s) < 10 || !strings.HasPrefix(s, "10.") {
		return false
	}
	slash := strings.IndexByte(s, '/')
	return slash > 0 && slash < len(s)-1
}
