// Package api is the typed HTTP boundary to the KoalaSwap marketplace
// service: account registration, login, product creation and the
// image-upload handshake.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/httputil"
)

// Client talks to the marketplace API. Every call waits on the shared rate
// limiter so seeding never hammers the backend's auth endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient creates a Client for the configured base URL.
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    httputil.NewHTTPClient(0),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		log:     log,
	}
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// ProductPayload is the payload for product creation.
type ProductPayload struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	CategoryID   int     `json:"categoryId"`
	Condition    string  `json:"condition"`
	FreeShipping bool    `json:"freeShipping"`
}

// UploadRequest asks the backend for an upload destination.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// UploadTarget is the backend's answer to an upload request: where to PUT
// the bytes and the public reference to attach afterwards.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	CDNURL    string `json:"cdnUrl"`
	ObjectKey string `json:"objectKey"`
}

// RegisterUser creates an account and returns the service's user object.
func (c *Client) RegisterUser(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	return c.postJSON(ctx, "register_user", "/api/auth/register", "", req)
}

// Login authenticates and returns the bearer token. A success response
// without a recognized token field is ErrMissingToken: callers must never
// proceed with an unusable credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	data, err := c.postJSON(ctx, "login", "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	for _, key := range []string{"accessToken", "token"} {
		if token, ok := data[key].(string); ok && token != "" {
			return token, nil
		}
	}
	return "", ErrMissingToken
}

// CreateProduct creates a product on behalf of the authenticated seller.
func (c *Client) CreateProduct(ctx context.Context, token string, payload ProductPayload) (map[string]any, error) {
	return c.postJSON(ctx, "create_product", "/api/products", token, payload)
}

// RequestImageUpload starts the upload handshake for one image.
func (c *Client) RequestImageUpload(ctx context.Context, token string, req UploadRequest) (*UploadTarget, error) {
	data, err := c.postJSON(ctx, "request_image_upload", "/api/products/images/request-upload", token, req)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var target UploadTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, err
	}
	if target.UploadURL == "" || target.CDNURL == "" {
		return nil, &OperationError{Op: "request_image_upload", Status: http.StatusOK, Detail: "response missing uploadUrl or cdnUrl"}
	}
	return &target, nil
}

// UploadFile transfers raw bytes to the presigned upload destination.
func (c *Client) UploadFile(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload_file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := httputil.ReadBody(resp)
		return &OperationError{Op: "upload_file", Status: resp.StatusCode, Detail: string(detail)}
	}
	return nil
}

// AttachProductImages associates uploaded public references with a product.
func (c *Client) AttachProductImages(ctx context.Context, token, productID string, cdnURLs []string) error {
	_, err := c.doJSON(ctx, "attach_product_images", http.MethodPatch,
		"/api/products/"+productID, token, map[string]any{"images": cdnURLs})
	return err
}

func (c *Client) postJSON(ctx context.Context, op, path, token string, body any) (map[string]any, error) {
	return c.doJSON(ctx, op, http.MethodPost, path, token, body)
}

// doJSON performs one API call and unwraps the service's response envelope.
// Any status >= 400 becomes an OperationError carrying the parsed body.
func (c *Client) doJSON(ctx context.Context, op, method, path, token string, body any) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := httputil.NewJSONRequest(ctx, method, c.baseURL+path, token, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &OperationError{Op: op, Status: resp.StatusCode, Detail: errorDetail(raw)}
	}
	c.log.Debug("api call succeeded", "op", op, "status", resp.StatusCode)

	if len(raw) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", op, err)
	}
	if data, ok := payload["data"].(map[string]any); ok {
		return data, nil
	}
	return payload, nil
}

// errorDetail prefers the parsed JSON body, falling back to raw text.
func errorDetail(raw []byte) string {
	var payload map[string]any
	if json.Unmarshal(raw, &payload) == nil {
		if msg, ok := payload["message"].(string); ok && msg != "" {
			return msg
		}
		if compact, err := json.Marshal(payload); err == nil {
			return string(compact)
		}
	}
	return string(raw)
}
