package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zpapi/zpapi/internal/zotero"
)

// savedSearchSummary is the JSON document printed after all
// definitions have been processed.
type savedSearchSummary struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// runSavedSearch reads saved-search definitions from the positional
// files and creates each one, printing per-item progress.
func runSavedSearch(ctx context.Context, client *zotero.Client, req *request) error {
	if len(req.files) == 0 {
		return &usageError{"saved_search needs at least one JSON file of search definitions, e.g.:\n  zpapi --action saved_search searches.json"}
	}

	var summary savedSearchSummary
	for _, path := range req.files {
		defs, err := readSearchDefinitions(path)
		if err != nil {
			return err
		}
		req.log.Info("creating saved searches", "file", path, "count", len(defs))

		// One request per definition so a failure names its search.
		for _, def := range defs {
			wr, err := client.CreateSearches(ctx, []zotero.SearchDefinition{def})
			if err != nil {
				return fmt.Errorf("creating saved search %q: %w", def.Name, err)
			}
			if werr := wr.FirstError(); werr != nil {
				req.print.progress("failed: %q: %v", def.Name, werr)
				summary.Failed++
				continue
			}
			req.print.progress("created saved search %q (key %s)", def.Name, wr.FirstKey())
			summary.Created++
		}
	}

	return req.print.JSON(summary)
}

func readSearchDefinitions(path string) ([]zotero.SearchDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var defs []zotero.SearchDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return defs, nil
}
