package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/logging"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DatasetDir = t.TempDir()
	cfg.ImagesDir = filepath.Join(cfg.DatasetDir, "images")
	cfg.OutputDir = t.TempDir()
	return cfg
}

func writeUserSnapshot(t *testing.T, cfg *config.Config, entries []snapshot.UserEntry) {
	t.Helper()
	require.NoError(t, snapshot.WriteUsers(cfg.OutputFile("user_seed_snapshot.json"), entries))
}

func writeProductSnapshot(t *testing.T, cfg *config.Config, entries []snapshot.ProductEntry) {
	t.Helper()
	require.NoError(t, snapshot.WriteProducts(cfg.OutputFile("product_seed_snapshot.json"), entries))
}

func quietLogger() *slog.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

// duplicateEmailError mimics the backend's duplicate-registration rejection.
func duplicateEmailError() error {
	return &api.OperationError{Op: "register user", Status: 409, Detail: "该邮箱已注册，请直接登录"}
}

func badCredentialsError() error {
	return &api.OperationError{Op: "login", Status: 401, Detail: "账号或密码错误"}
}

func unverifiedEmailError() error {
	return &api.OperationError{Op: "login", Status: 403, Detail: "EMAIL_NOT_VERIFIED"}
}

// fakeService scripts the remote boundary for stage tests and records the
// order of calls.
type fakeService struct {
	calls []string

	registerFn func(req api.RegisterRequest) (map[string]any, error)
	loginFn    func(email, password string) (string, error)
	createFn   func(token string, payload api.ProductPayload) (map[string]any, error)
	requestFn  func(token string, req api.UploadRequest) (*api.UploadTarget, error)
	uploadFn   func(uploadURL, contentType string, size int64) error
	attachFn   func(token, productID string, cdnURLs []string) error
}

func (f *fakeService) RegisterUser(_ context.Context, req api.RegisterRequest) (map[string]any, error) {
	f.calls = append(f.calls, "register:"+req.Email)
	if f.registerFn == nil {
		return map[string]any{"id": "user-" + req.Email}, nil
	}
	return f.registerFn(req)
}

func (f *fakeService) Login(_ context.Context, email, password string) (string, error) {
	f.calls = append(f.calls, "login:"+email)
	if f.loginFn == nil {
		return "token-" + email, nil
	}
	return f.loginFn(email, password)
}

func (f *fakeService) CreateProduct(_ context.Context, token string, payload api.ProductPayload) (map[string]any, error) {
	f.calls = append(f.calls, "create:"+payload.Title)
	if f.createFn == nil {
		return map[string]any{"id": "remote-" + payload.Title}, nil
	}
	return f.createFn(token, payload)
}

func (f *fakeService) RequestImageUpload(_ context.Context, token string, req api.UploadRequest) (*api.UploadTarget, error) {
	f.calls = append(f.calls, "request:"+req.FileName)
	if f.requestFn == nil {
		return &api.UploadTarget{
			UploadURL: "https://s3.example.com/" + req.FileName,
			CDNURL:    "https://cdn.example.com/" + req.FileName,
		}, nil
	}
	return f.requestFn(token, req)
}

func (f *fakeService) UploadFile(_ context.Context, uploadURL, contentType string, _ io.Reader, size int64) error {
	f.calls = append(f.calls, "upload:"+uploadURL)
	if f.uploadFn == nil {
		return nil
	}
	return f.uploadFn(uploadURL, contentType, size)
}

func (f *fakeService) AttachProductImages(_ context.Context, token, productID string, cdnURLs []string) error {
	f.calls = append(f.calls, fmt.Sprintf("attach:%s:%d", productID, len(cdnURLs)))
	if f.attachFn == nil {
		return nil
	}
	return f.attachFn(token, productID, cdnURLs)
}
