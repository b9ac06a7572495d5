package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transfer "github.com/input-output-hk/catalyst-forge-libs/storage/transfer"
	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

func TestNew_Defaults(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, b.baseURL)
}

func TestPut_WireShape(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"item1"}`))
	}))
	defer server.Close()

	b, err := New(WithBaseURL(server.URL), WithAccessToken("tok123"))
	require.NoError(t, err)

	payload := []byte("file contents")
	resp, err := b.Put(context.Background(), "docs/report.txt", int64(len(payload)), "text/plain",
		strings.NewReader("file contents"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/drive/root:/docs/report.txt:/content", gotPath)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, payload, gotBody)
}

func TestPut_EncodesPathSegments(t *testing.T) {
	var gotRawPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = b.Put(context.Background(), "my docs/q2 report.txt", 1, "", strings.NewReader("x"))
	require.NoError(t, err)

	assert.Contains(t, gotRawPath, "my%20docs/q2%20report.txt")
}

func TestPost_WireShape(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uploadUrl":"https://upload.example/s1","expirationDateTime":"2026-09-03T00:00:00Z"}`))
	}))
	defer server.Close()

	b, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	reqBody := `{"item":{"name":"big.bin"}}`
	resp, err := b.Post(context.Background(), "media/big.bin", strings.NewReader(reqBody))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/drive/root:/media/big.bin:/createUploadSession", gotPath)
	assert.JSONEq(t, reqBody, string(gotBody))

	var session transfer.UploadSession
	require.NoError(t, json.Unmarshal(resp.Body, &session))
	assert.Equal(t, "https://upload.example/s1", session.UploadURL)
}

func TestSessionUpload_ContentRange(t *testing.T) {
	var gotRange, gotLength string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Content-Range")
		gotLength = r.Header.Get("Content-Length")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"nextExpectedRanges":["327680-"]}`))
	}))
	defer server.Close()

	b, err := New()
	require.NoError(t, err)

	chunk := strings.Repeat("x", 327_680)
	resp, err := b.SessionUpload(context.Background(), server.URL+"/session/1",
		327_680, 655_359, 1_000_000, strings.NewReader(chunk))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "bytes 327680-655359/1000000", gotRange, "range header is inclusive")
	assert.Equal(t, "327680", gotLength)
	assert.Equal(t, chunk, string(gotBody))
}

func TestBackend_NonSuccessStatusPassesThrough(t *testing.T) {
	// Non-success statuses are reported through the Response, not as errors:
	// the engine owns status interpretation.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
		w.Write([]byte(`{"error":{"code":"quotaLimitReached","message":"full"}}`))
	}))
	defer server.Close()

	b, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	resp, err := b.Put(context.Background(), "a.txt", 1, "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)

	remote := transfererrors.ParseRemote(resp.StatusCode, resp.Body)
	assert.Equal(t, "quotaLimitReached", remote.Code)
}

func TestList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drive/root/children":
			w.Write([]byte(`{"value":[
				{"name":"docs","folder":{"childCount":2}},
				{"name":"readme.md","file":{}}
			]}`))
		case "/drive/root:/docs:/children":
			w.Write([]byte(`{"value":[{"name":"a.txt","file":{}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"itemNotFound","message":"missing"}}`))
		}
	}))
	defer server.Close()

	b, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("root listing", func(t *testing.T) {
		entries, err := b.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "docs", entries[0].Key)
		assert.True(t, entries[0].Dir)
		assert.Equal(t, "readme.md", entries[1].Key)
		assert.False(t, entries[1].Dir)
	})

	t.Run("nested listing prefixes keys", func(t *testing.T) {
		entries, err := b.List(ctx, "docs")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "docs/a.txt", entries[0].Key)
	})

	t.Run("missing container", func(t *testing.T) {
		_, err := b.List(ctx, "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, transfererrors.ErrBackend)
	})
}
