package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/logging"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = srv.URL
	cfg.RatePerSecond = 1000
	return NewClient(cfg, logging.NewWithWriter("info", os.Stderr))
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestRegisterUserUnwrapsData(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@x", req.Email)
		jsonResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "user-1", "email": "a@x"},
		})
	}))

	data, err := client.RegisterUser(context.Background(), RegisterRequest{Email: "a@x", Password: "pw", DisplayName: "A"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", data["id"])
}

func TestLoginTokenFields(t *testing.T) {
	for _, field := range []string{"accessToken", "token"} {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jsonResponse(w, http.StatusOK, map[string]any{
				"data": map[string]any{field: "jwt-abc"},
			})
		}))
		token, err := client.Login(context.Background(), "a@x", "pw")
		require.NoError(t, err, "field %s", field)
		assert.Equal(t, "jwt-abc", token)
	}
}

func TestLoginMissingToken(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"profile": "x"}})
	}))

	_, err := client.Login(context.Background(), "a@x", "pw")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestOperationErrorCarriesDetail(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "账号或密码错误",
		})
	}))

	_, err := client.Login(context.Background(), "a@x", "bad")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "login", opErr.Op)
	assert.Equal(t, http.StatusBadRequest, opErr.Status)
	assert.Equal(t, "账号或密码错误", opErr.Detail)
}

func TestOperationErrorRawTextDetail(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))

	_, err := client.RegisterUser(context.Background(), RegisterRequest{})
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "upstream unavailable", opErr.Detail)
}

func TestCreateProductSendsBearerToken(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
		var payload ProductPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "AUD", payload.Currency)
		jsonResponse(w, http.StatusCreated, map[string]any{
			"data": map[string]any{"id": "prod-9"},
		})
	}))

	data, err := client.CreateProduct(context.Background(), "jwt-abc", ProductPayload{
		Title: "iPhone", Price: 100, Currency: "AUD", CategoryID: 1011, Condition: "GOOD",
	})
	require.NoError(t, err)
	assert.Equal(t, "prod-9", data["id"])
}

func TestImageUploadHandshake(t *testing.T) {
	var gotPut []byte
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("POST /api/products/images/request-upload", func(w http.ResponseWriter, r *http.Request) {
		var req UploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p1_0.jpg", req.FileName)
		jsonResponse(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"uploadUrl": srvURL + "/s3/p1_0.jpg",
				"cdnUrl":    "https://cdn.example.com/p1_0.jpg",
				"objectKey": "products/p1_0.jpg",
			},
		})
	})
	mux.HandleFunc("PUT /s3/p1_0.jpg", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		gotPut = body
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PATCH /api/products/prod-9", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"https://cdn.example.com/p1_0.jpg"}, payload["images"])
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = srv.URL
	cfg.RatePerSecond = 1000
	client := NewClient(cfg, logging.NewWithWriter("info", os.Stderr))

	ctx := context.Background()
	target, err := client.RequestImageUpload(ctx, "jwt", UploadRequest{FileName: "p1_0.jpg", FileSize: 9, MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p1_0.jpg", target.CDNURL)

	require.NoError(t, client.UploadFile(ctx, target.UploadURL, "image/jpeg", strings.NewReader("jpegbytes"), 9))
	assert.Equal(t, "jpegbytes", string(gotPut))

	require.NoError(t, client.AttachProductImages(ctx, "jwt", "prod-9", []string{target.CDNURL}))
}
