package main

import (
	"context"
	"fmt"

	"github.com/zpapi/zpapi/internal/pdfmeta"
	"github.com/zpapi/zpapi/internal/zotero"
)

// runAttachment uploads each positional PDF as an attachment. When the
// file carries a DOI that matches an item in the library, the upload is
// filed under that item; otherwise it is created standalone.
func runAttachment(ctx context.Context, client *zotero.Client, req *request) error {
	if len(req.files) == 0 {
		return &usageError{"attachment needs at least one PDF file, e.g.:\n  zpapi --action attachment paper.pdf"}
	}

	results := make([]*zotero.AttachmentResult, 0, len(req.files))
	for _, path := range req.files {
		doi, err := pdfmeta.ExtractDOI(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		parent := ""
		if doi != "" {
			req.log.Info("looking up parent item", "file", path, "doi", doi)
			matches, err := client.Items(ctx, zotero.Params{"q": doi, "qmode": "everything"})
			if err != nil {
				return fmt.Errorf("searching for %s: %w", doi, err)
			}
			if len(matches) > 0 {
				parent = matches[0].Key
			}
		}

		result, err := client.UploadAttachment(ctx, path, "application/pdf", parent)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
		result.DOI = doi

		if parent != "" {
			req.print.progress("%s %s (key %s, parent %s)", result.Status, path, result.Key, parent)
		} else {
			req.print.progress("%s %s (key %s, standalone)", result.Status, path, result.Key)
		}
		results = append(results, result)
	}

	return req.print.JSON(results)
}
