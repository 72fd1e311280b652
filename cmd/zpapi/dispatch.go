package main

import (
	"context"
	"log/slog"
	"sort"

	"github.com/zpapi/zpapi/internal/zotero"
)

// request carries everything a handler needs for one invocation.
type request struct {
	filter zotero.Params
	files  []string
	print  *printer
	log    *slog.Logger

	// cachePath overrides the default sync cache location (tests).
	cachePath string
}

// actionFunc handles one --action value.
type actionFunc func(ctx context.Context, client *zotero.Client, req *request) error

// actions is the explicit action-to-handler mapping. Building it here,
// rather than looking handlers up by name, means a broken entry is a
// compile error or a failing test, never a runtime surprise.
var actions = map[string]actionFunc{
	"items":            runItems,
	"top":              runTop,
	"trash":            runTrash,
	"publications":     runPublications,
	"collections":      runCollections,
	"collections_top":  runCollectionsTop,
	"collection_items": runCollectionItems,
	"children":         runChildren,
	"tags":             runTags,
	"item_tags":        runItemTags,
	"searches":         runSearches,
	"groups":           runGroups,
	"saved_search":     runSavedSearch,
	"attachment":       runAttachment,
	"sync":             runSync,
}

// actionNames returns the sorted action allow-list.
func actionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// usageError marks failures the user can fix by changing their
// invocation; run maps it to the configuration exit code.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func isUsageError(err error) bool {
	_, ok := err.(*usageError)
	return ok
}

func runItems(ctx context.Context, client *zotero.Client, req *request) error {
	items, err := client.Items(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runTop(ctx context.Context, client *zotero.Client, req *request) error {
	items, err := client.TopItems(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runTrash(ctx context.Context, client *zotero.Client, req *request) error {
	items, err := client.TrashItems(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runPublications(ctx context.Context, client *zotero.Client, req *request) error {
	items, err := client.PublicationItems(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runCollections(ctx context.Context, client *zotero.Client, req *request) error {
	collections, err := client.Collections(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.collections(collections)
}

func runCollectionsTop(ctx context.Context, client *zotero.Client, req *request) error {
	collections, err := client.TopCollections(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.collections(collections)
}

func runCollectionItems(ctx context.Context, client *zotero.Client, req *request) error {
	key, ok := req.filter.TakeString("collection")
	if !ok {
		return &usageError{`collection_items needs a collection key: --filter '{"collection":"ABCD1234"}'`}
	}
	items, err := client.CollectionItems(ctx, key, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runChildren(ctx context.Context, client *zotero.Client, req *request) error {
	key, ok := req.filter.TakeString("item")
	if !ok {
		return &usageError{`children needs an item key: --filter '{"item":"ABCD1234"}'`}
	}
	items, err := client.Children(ctx, key, req.filter)
	if err != nil {
		return err
	}
	return req.print.items(items)
}

func runTags(ctx context.Context, client *zotero.Client, req *request) error {
	tags, err := client.Tags(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.tags(tags)
}

func runItemTags(ctx context.Context, client *zotero.Client, req *request) error {
	key, ok := req.filter.TakeString("item")
	if !ok {
		return &usageError{`item_tags needs an item key: --filter '{"item":"ABCD1234"}'`}
	}
	tags, err := client.ItemTags(ctx, key, req.filter)
	if err != nil {
		return err
	}
	return req.print.tags(tags)
}

func runSearches(ctx context.Context, client *zotero.Client, req *request) error {
	searches, err := client.Searches(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.searches(searches)
}

func runGroups(ctx context.Context, client *zotero.Client, req *request) error {
	groups, err := client.Groups(ctx, req.filter)
	if err != nil {
		return err
	}
	return req.print.groups(groups)
}
