package fizzy

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/xaenox/fizzy-bot/internal/models"
	"go.uber.org/zap"
)

type directUploadRequest struct {
	Blob struct {
		Filename    string `json:"filename"`
		ByteSize    int    `json:"byte_size"`
		Checksum    string `json:"checksum"`
		ContentType string `json:"content_type"`
	} `json:"blob"`
}

type directUploadResponse struct {
	DirectUpload struct {
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"direct_upload"`
	SignedID string `json:"signed_id"`
}

type uploadedBlob struct {
	SignedID    string
	Filename    string
	ContentType string
	ByteSize    int
	URL         string
}

func (b *uploadedBlob) attachmentTag() string {
	return fmt.Sprintf(`<action-text-attachment sgid="%s" content-type="%s" url="%s" filename="%s" filesize="%d" previewable="true"></action-text-attachment>`,
		b.SignedID, b.ContentType, b.URL, b.Filename, b.ByteSize)
}

// Checksum is the base64 MD5 digest the direct upload endpoint verifies.
func Checksum(content []byte) string {
	sum := md5.Sum(content)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// uploadImage runs the two-step direct upload: request an upload slot, then
// PUT the bytes to the returned URL with the returned headers.
func (c *Client) uploadImage(ctx context.Context, t Target, image *models.Image) (*uploadedBlob, error) {
	var reqBody directUploadRequest
	reqBody.Blob.Filename = image.Filename
	reqBody.Blob.ByteSize = len(image.Content)
	reqBody.Blob.Checksum = Checksum(image.Content)
	reqBody.Blob.ContentType = image.ContentType

	endpoint := fmt.Sprintf("%s/%s/rails/active_storage/direct_uploads", c.baseURL, t.AccountSlug)
	resp, err := c.do(ctx, http.MethodPost, endpoint, t.Token, reqBody)
	if err != nil {
		c.logger.Error("Image upload exception",
			zap.Error(err),
			zap.String("account_slug", t.AccountSlug),
			zap.String("filename", image.Filename))
		return nil, &Error{Op: "direct upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError("direct upload", resp)
		c.logger.Error("Direct upload failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("error", apiErr.Body),
			zap.String("account_slug", t.AccountSlug))
		return nil, fmt.Errorf("direct upload: %w", apiErr)
	}

	var slot directUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return nil, &Error{Op: "direct upload", Err: fmt.Errorf("decode response: %w", err)}
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, slot.DirectUpload.URL, bytes.NewReader(image.Content))
	if err != nil {
		return nil, &Error{Op: "storage upload", Err: err}
	}
	for k, v := range slot.DirectUpload.Headers {
		putReq.Header.Set(k, v)
	}

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		c.logger.Error("Image upload exception",
			zap.Error(err),
			zap.String("account_slug", t.AccountSlug),
			zap.String("filename", image.Filename))
		return nil, &Error{Op: "storage upload", Err: err}
	}
	defer putResp.Body.Close()

	if putResp.StatusCode < 200 || putResp.StatusCode > 299 {
		apiErr := newStatusError("storage upload", putResp)
		c.logger.Error("Storage upload failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("error", apiErr.Body),
			zap.String("account_slug", t.AccountSlug),
			zap.String("filename", image.Filename))
		return nil, fmt.Errorf("storage upload: %w", apiErr)
	}
	io.Copy(io.Discard, putResp.Body)

	blob := &uploadedBlob{
		SignedID:    slot.SignedID,
		Filename:    image.Filename,
		ContentType: image.ContentType,
		ByteSize:    len(image.Content),
		URL: fmt.Sprintf("%s/%s/rails/active_storage/blobs/redirect/%s/%s",
			c.baseURL, t.AccountSlug, slot.SignedID, url.PathEscape(image.Filename)),
	}

	c.logger.Info("Image uploaded successfully",
		zap.String("account_slug", t.AccountSlug),
		zap.String("filename", image.Filename),
		zap.Int("byte_size", blob.ByteSize))

	return blob, nil
}
