package zotero

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Attachment upload statuses.
const (
	AttachmentUploaded = "uploaded"
	AttachmentExists   = "exists"
)

// AttachmentResult describes the outcome of one attachment upload.
type AttachmentResult struct {
	File       string `json:"file"`
	Key        string `json:"key"`
	ParentItem string `json:"parentItem,omitempty"`
	DOI        string `json:"doi,omitempty"`
	Status     string `json:"status"`
}

// uploadAuthorization is the server's answer to an upload request:
// either the file already exists, or instructions for a direct upload.
type uploadAuthorization struct {
	Exists      int    `json:"exists"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	UploadKey   string `json:"uploadKey"`
}

// UploadAttachment uploads a local file as an imported_file attachment,
// optionally under a parent item. This is the full three-step flow:
// create the attachment item, request upload authorization, then POST
// the file and register the upload.
func (c *Client) UploadAttachment(ctx context.Context, path, contentType, parentKey string) (*AttachmentResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}

	filename := filepath.Base(path)
	key, err := c.createAttachmentItem(ctx, filename, contentType, parentKey)
	if err != nil {
		return nil, err
	}

	sum := md5.Sum(data)
	form := url.Values{}
	form.Set("md5", hex.EncodeToString(sum[:]))
	form.Set("filename", filename)
	form.Set("filesize", strconv.FormatInt(info.Size(), 10))
	form.Set("mtime", strconv.FormatInt(info.ModTime().UnixMilli(), 10))

	auth, err := c.requestUploadAuthorization(ctx, key, form)
	if err != nil {
		return nil, err
	}

	result := &AttachmentResult{File: path, Key: key, ParentItem: parentKey}
	if auth.Exists == 1 {
		result.Status = AttachmentExists
		return result, nil
	}

	if err := c.uploadFile(ctx, auth, data); err != nil {
		return nil, err
	}
	if err := c.registerUpload(ctx, key, auth.UploadKey); err != nil {
		return nil, err
	}

	result.Status = AttachmentUploaded
	return result, nil
}

// createAttachmentItem creates the attachment item and returns its key.
func (c *Client) createAttachmentItem(ctx context.Context, filename, contentType, parentKey string) (string, error) {
	item := map[string]any{
		"itemType":    "attachment",
		"linkMode":    "imported_file",
		"title":       filename,
		"filename":    filename,
		"contentType": contentType,
	}
	if parentKey != "" {
		item["parentItem"] = parentKey
	}

	body, err := json.Marshal([]map[string]any{item})
	if err != nil {
		return "", fmt.Errorf("encoding attachment item: %w", err)
	}

	respBody, _, err := c.do(ctx, http.MethodPost, c.prefix()+"/items", nil, "application/json", body, nil)
	if err != nil {
		return "", err
	}

	var wr WriteResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return "", fmt.Errorf("%w: parsing write response: %v", ErrInvalidResponse, err)
	}
	if err := wr.FirstError(); err != nil {
		return "", err
	}
	key := wr.FirstKey()
	if key == "" {
		return "", fmt.Errorf("%w: no item key in write response", ErrInvalidResponse)
	}
	return key, nil
}

// requestUploadAuthorization asks the API for upload instructions.
// If-None-Match: * asserts the attachment has no stored file yet.
func (c *Client) requestUploadAuthorization(ctx context.Context, itemKey string, form url.Values) (*uploadAuthorization, error) {
	headers := map[string]string{"If-None-Match": "*"}
	body, _, err := c.do(ctx, http.MethodPost, c.prefix()+"/items/"+url.PathEscape(itemKey)+"/file",
		nil, "application/x-www-form-urlencoded", []byte(form.Encode()), headers)
	if err != nil {
		return nil, err
	}

	var auth uploadAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("%w: parsing upload authorization: %v", ErrInvalidResponse, err)
	}
	if auth.Exists == 0 && auth.URL == "" {
		return nil, fmt.Errorf("%w: upload authorization missing URL", ErrInvalidResponse)
	}
	return &auth, nil
}

// uploadFile POSTs prefix + file + suffix to the storage URL from the
// authorization. The target is external storage, so no API headers.
func (c *Client) uploadFile(ctx context.Context, auth *uploadAuthorization, data []byte) error {
	payload := make([]byte, 0, len(auth.Prefix)+len(data)+len(auth.Suffix))
	payload = append(payload, auth.Prefix...)
	payload = append(payload, data...)
	payload = append(payload, auth.Suffix...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", auth.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: "file upload rejected by storage"}
	}
	return nil
}

// registerUpload tells the API the storage upload completed.
func (c *Client) registerUpload(ctx context.Context, itemKey, uploadKey string) error {
	form := url.Values{}
	form.Set("upload", uploadKey)
	headers := map[string]string{"If-None-Match": "*"}

	_, _, err := c.do(ctx, http.MethodPost, c.prefix()+"/items/"+url.PathEscape(itemKey)+"/file",
		nil, "application/x-www-form-urlencoded", []byte(form.Encode()), headers)
	return err
}
