package fizzy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/fizzy-bot/internal/models"
	"go.uber.org/zap"
)

var target = Target{AccountSlug: "1111", BoardID: "03f770pvr5f56", Token: "secret-token"}

func TestCreateCardUsesLocationHeader(t *testing.T) {
	var got cardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/1111/boards/03f770pvr5f56/cards.json", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Location", "/1111/cards/42.json")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	url, err := c.CreateCard(context.Background(), target, "Fix bug", "details", nil)
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/1111/cards/42", url)
	assert.Equal(t, "Fix bug", got.Card.Title)
	assert.Equal(t, "details", got.Card.Description)
}

func TestCreateCardFallsBackToBoardURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	url, err := c.CreateCard(context.Background(), target, "Fix bug", "details", nil)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/1111/boards/03f770pvr5f56", url)
}

func TestCreateCardStatusError(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, long)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	_, err := c.CreateCard(context.Background(), target, "Fix bug", "details", nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Len(t, apiErr.Body, maxErrorBody)
	assert.True(t, strings.HasPrefix(err.Error(), "HTTP 401: "))
}

func TestCreateCardWithImage(t *testing.T) {
	image := &models.Image{Content: []byte("png-bytes"), Filename: "photo_abc.jpg", ContentType: "image/jpeg"}

	var (
		uploadReq directUploadRequest
		stored    []byte
		card      cardRequest
	)
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/1111/rails/active_storage/direct_uploads", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&uploadReq))
		var resp directUploadResponse
		resp.DirectUpload.URL = srv.URL + "/storage/blob"
		resp.DirectUpload.Headers = map[string]string{"Content-MD5": uploadReq.Blob.Checksum, "X-Test": "yes"}
		resp.SignedID = "signed123"
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/storage/blob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		stored, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/1111/boards/03f770pvr5f56/cards.json", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&card))
		w.Header().Set("Location", "/1111/cards/7")
		w.WriteHeader(http.StatusCreated)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	_, err := c.CreateCard(context.Background(), target, "Screenshot", "line one\nline two", image)
	require.NoError(t, err)

	assert.Equal(t, "photo_abc.jpg", uploadReq.Blob.Filename)
	assert.Equal(t, len(image.Content), uploadReq.Blob.ByteSize)
	assert.Equal(t, Checksum(image.Content), uploadReq.Blob.Checksum)
	assert.Equal(t, "image/jpeg", uploadReq.Blob.ContentType)
	assert.Equal(t, image.Content, stored)

	assert.True(t, strings.HasPrefix(card.Card.Description, `<action-text-attachment sgid="signed123" content-type="image/jpeg"`))
	assert.Contains(t, card.Card.Description, `url="`+srv.URL+`/1111/rails/active_storage/blobs/redirect/signed123/photo_abc.jpg"`)
	assert.Contains(t, card.Card.Description, `filesize="9" previewable="true"></action-text-attachment>`)
	assert.True(t, strings.HasSuffix(card.Card.Description, "<p>line one<br>line two</p>"))
}

func TestUploadFailureSkipsCardCreation(t *testing.T) {
	var cardCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/1111/rails/active_storage/direct_uploads", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "nope")
	})
	mux.HandleFunc("/1111/boards/03f770pvr5f56/cards.json", func(w http.ResponseWriter, r *http.Request) {
		cardCalls.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	_, err := c.CreateCard(context.Background(), target, "t", "d", &models.Image{Content: []byte("x"), Filename: "a.jpg", ContentType: "image/jpeg"})
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(err.Error(), "image upload failed: "))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Equal(t, int32(0), cardCalls.Load())
}

func TestFetchBoardInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/1111/boards/03f770pvr5f56.json":
			io.WriteString(w, `{"name":"Roadmap"}`)
		case "/1111/boards/unnamed00000.json":
			io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())

	board, err := c.FetchBoardInfo(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", board.Name)
	assert.Equal(t, "03f770pvr5f56", board.ID)

	unnamed := target
	unnamed.BoardID = "unnamed00000"
	board, err = c.FetchBoardInfo(context.Background(), unnamed)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Board", board.Name)

	missing := target
	missing.BoardID = "missing00000"
	_, err = c.FetchBoardInfo(context.Background(), missing)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil, zap.NewNop())
	_, err := c.CreateCard(context.Background(), target, "t", "d", nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Contains(t, err.Error(), "create card: ")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"forbidden", &Error{StatusCode: 403}, []string{"'work' (1111)", "doesn't have access"}},
		{"unauthorized", &Error{StatusCode: 401}, []string{"Token 'work' (1111)", "invalid or expired"}},
		{"not found", &Error{StatusCode: 404}, []string{"Board not found", "Used account: work (1111)"}},
		{"server error", &Error{StatusCode: 500, Body: "boom"}, []string{"Failed: HTTP 500: boom", "Used account: work (1111)"}},
		{"wrapped upload error", errors.Join(errors.New("image upload failed"), &Error{StatusCode: 401}), []string{"invalid or expired"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.err, "work", "1111")
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	// md5("") base64-encoded with padding.
	assert.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", Checksum(nil))
}
