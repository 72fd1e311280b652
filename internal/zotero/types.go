package zotero

import "encoding/json"

// Item is a Zotero item as returned by the API. The data and meta
// payloads are kept raw so output reproduces the server's JSON exactly.
type Item struct {
	Key     string          `json:"key"`
	Version int             `json:"version"`
	Library json.RawMessage `json:"library,omitempty"`
	Links   json.RawMessage `json:"links,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// ItemSummary holds the handful of data fields used for table output.
type ItemSummary struct {
	Title    string `json:"title"`
	ItemType string `json:"itemType"`
	Date     string `json:"date"`
	Filename string `json:"filename"`
}

// Summary decodes the display fields from the item's data payload.
func (i Item) Summary() ItemSummary {
	var s ItemSummary
	_ = json.Unmarshal(i.Data, &s)
	return s
}

// Collection is a Zotero collection.
type Collection struct {
	Key     string          `json:"key"`
	Version int             `json:"version"`
	Library json.RawMessage `json:"library,omitempty"`
	Links   json.RawMessage `json:"links,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Name decodes the collection name from the data payload.
func (c Collection) Name() string {
	var d struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(c.Data, &d)
	return d.Name
}

// Tag is a Zotero tag with its usage metadata.
type Tag struct {
	Tag   string          `json:"tag"`
	Links json.RawMessage `json:"links,omitempty"`
	Meta  json.RawMessage `json:"meta,omitempty"`
}

// SavedSearch is a Zotero saved search.
type SavedSearch struct {
	Key     string          `json:"key"`
	Version int             `json:"version"`
	Library json.RawMessage `json:"library,omitempty"`
	Links   json.RawMessage `json:"links,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Name decodes the search name from the data payload.
func (s SavedSearch) Name() string {
	var d struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(s.Data, &d)
	return d.Name
}

// Group is a Zotero group library accessible to the API key.
type Group struct {
	ID      int             `json:"id"`
	Version int             `json:"version"`
	Links   json.RawMessage `json:"links,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Name decodes the group name from the data payload.
func (g Group) Name() string {
	var d struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(g.Data, &d)
	return d.Name
}

// SearchCondition is one condition of a saved search definition.
type SearchCondition struct {
	Condition string `json:"condition"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// SearchDefinition is a saved search to be created, as read from the
// JSON files passed to the saved_search action.
type SearchDefinition struct {
	Name       string            `json:"name"`
	Conditions []SearchCondition `json:"conditions"`
}

// WriteResponse is the Zotero multi-object write response.
type WriteResponse struct {
	Successful map[string]json.RawMessage `json:"successful"`
	Unchanged  map[string]string          `json:"unchanged"`
	Failed     map[string]WriteError      `json:"failed"`
}

// WriteError describes a single failed object in a write response.
type WriteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FirstKey returns the key of the first successfully written object,
// or the empty string if nothing succeeded.
func (r *WriteResponse) FirstKey() string {
	obj, ok := r.Successful["0"]
	if !ok {
		return ""
	}
	var v struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(obj, &v); err != nil {
		return ""
	}
	return v.Key
}

// FirstError returns the error of the first failed object, or nil.
func (r *WriteResponse) FirstError() error {
	we, ok := r.Failed["0"]
	if !ok {
		return nil
	}
	return &APIError{StatusCode: we.Code, Message: we.Message}
}
