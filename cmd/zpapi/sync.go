package main

import (
	"context"
	"fmt"
	"time"

	"github.com/zpapi/zpapi/internal/cache"
	"github.com/zpapi/zpapi/internal/zotero"
)

// syncSummary is the JSON document printed after a sync.
type syncSummary struct {
	Items       int    `json:"items"`
	Collections int    `json:"collections"`
	Path        string `json:"path"`
}

// runSync snapshots the library (items and collections, everything)
// into the local SQLite cache.
func runSync(ctx context.Context, client *zotero.Client, req *request) error {
	items, err := client.Items(ctx, req.filter)
	if err != nil {
		return err
	}
	collections, err := client.Collections(ctx, nil)
	if err != nil {
		return err
	}

	path := req.cachePath
	if path == "" {
		path = cache.DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("cannot determine cache location: no home directory")
	}

	db, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	nItems, err := db.ReplaceItems(items)
	if err != nil {
		return err
	}
	nCollections, err := db.ReplaceCollections(collections)
	if err != nil {
		return err
	}
	if err := db.TouchSync(time.Now()); err != nil {
		return err
	}

	req.log.Info("library cached", "items", nItems, "collections", nCollections, "path", path)
	return req.print.JSON(syncSummary{Items: nItems, Collections: nCollections, Path: path})
}
