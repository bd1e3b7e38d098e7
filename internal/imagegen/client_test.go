// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deck-engine/internal/httputil"
	"github.com/pdiddy/deck-engine/internal/refimage"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake image payload")

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
	minImageBytes = 1 // test fixtures are tiny
}

// testAPI is an httptest server that serves both the chat-completions
// endpoint and the image download endpoint.
type testAPI struct {
	*httptest.Server
	genCalls      int32
	downloadCalls int32

	mu          sync.Mutex
	lastGenBody []byte

	// genHandler overrides the generation response when set.
	genHandler func(n int32, w http.ResponseWriter)
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&api.genCalls, 1)
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.lastGenBody = body
		api.mu.Unlock()
		if api.genHandler != nil {
			api.genHandler(n, w)
			return
		}
		api.writeImageLink(w)
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&api.downloadCalls, 1)
		w.Write(fakePNG)
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func (api *testAPI) writeImageLink(w http.ResponseWriter) {
	content := fmt.Sprintf("Here is your slide: ![slide](%s/image.png)", api.URL)
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func (api *testAPI) client(maxAttempts int) *Client {
	return New(types.APIConfig{
		BaseURL:     api.URL + "/v1",
		APIKey:      "test-key",
		MaxAttempts: maxAttempts,
	}, io.Discard)
}

func TestGenerate_Success(t *testing.T) {
	api := newTestAPI(t)

	data, attempts, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.NoError(t, err)

	assert.Equal(t, fakePNG, data)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.genCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.downloadCalls))
}

func TestGenerate_TransientThenSuccess(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(n int32, w http.ResponseWriter) {
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		api.writeImageLink(w)
	}

	data, attempts, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.NoError(t, err)

	// Two transient failures, success on the third underlying call.
	assert.Equal(t, fakePNG, data)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&api.genCalls))
}

func TestGenerate_ExhaustedRetriesIsTransient(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	}

	_, attempts, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.Error(t, err)

	assert.True(t, types.IsTransient(err))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&api.genCalls))
}

func TestGenerate_ClientErrorIsFatal(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	_, _, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.Error(t, err)

	assert.False(t, types.IsTransient(err))
	// Fatal statuses are not retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.genCalls))
}

func TestGenerate_MissingImageLinkIsFatal(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(_ int32, w http.ResponseWriter) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sorry, text only"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}

	_, _, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.ErrorIs(t, err, ErrNoImageLink)

	assert.False(t, types.IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.genCalls))
}

func TestGenerate_MalformedResponseIsFatal(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(_ int32, w http.ResponseWriter) {
		io.WriteString(w, "{not json")
	}

	_, _, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.Error(t, err)
	assert.False(t, types.IsTransient(err))
}

func TestGenerate_DownloadFailureIsFatal(t *testing.T) {
	api := newTestAPI(t)
	api.genHandler = func(_ int32, w http.ResponseWriter) {
		// Link to a path the server does not serve.
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": fmt.Sprintf("![x](%s/missing.png)", api.URL)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}

	_, _, err := api.client(3).Generate(context.Background(), "a slide", nil)
	require.Error(t, err)

	// No re-generation after a failed download.
	assert.False(t, types.IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.genCalls))
}

func TestGenerate_NoAPIKey(t *testing.T) {
	c := New(types.APIConfig{BaseURL: "http://localhost:1"}, io.Discard)
	_, _, err := c.Generate(context.Background(), "a slide", nil)
	assert.ErrorContains(t, err, "no API key")
}

func TestGenerate_ReferenceImagesInPayload(t *testing.T) {
	api := newTestAPI(t)

	refs := []refimage.Encoded{{DataURI: "data:image/png;base64,QUJD", Width: 1, Height: 1}}
	_, _, err := api.client(1).Generate(context.Background(), "styled slide", refs)
	require.NoError(t, err)

	api.mu.Lock()
	gotBody := api.lastGenBody
	api.mu.Unlock()

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL *struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
		Modalities []string `json:"modalities"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &req))

	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, []string{"image", "text"}, req.Modalities)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Content, 2)
	assert.Equal(t, "image_url", req.Messages[0].Content[0].Type)
	assert.Equal(t, "data:image/png;base64,QUJD", req.Messages[0].Content[0].ImageURL.URL)
	assert.Equal(t, "text", req.Messages[0].Content[1].Type)
	assert.Equal(t, "styled slide", req.Messages[0].Content[1].Text)
}

func TestGenerateToFile_WritesAndSkips(t *testing.T) {
	api := newTestAPI(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "slides", "01_title.png")

	c := api.client(3)

	skipped, attempts, err := c.GenerateToFile(context.Background(), "a slide", nil, out)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, 1, attempts)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fakePNG, data)

	// Second run skips the existing file without touching the API.
	skipped, attempts, err = c.GenerateToFile(context.Background(), "a slide", nil, out)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.genCalls))
}

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"markdown link", "done ![slide](https://cdn.example.com/a.png)", "https://cdn.example.com/a.png", true},
		{"markdown link no alt", "![](https://cdn.example.com/a.png) enjoy", "https://cdn.example.com/a.png", true},
		{"bare url", "saved at https://cdn.example.com/out.jpeg today", "https://cdn.example.com/out.jpeg", true},
		{"bare url uppercase ext", "https://cdn.example.com/OUT.PNG", "https://cdn.example.com/OUT.PNG", true},
		{"markdown preferred over bare", "![x](https://a.example/1.png) and https://b.example/2.png", "https://a.example/1.png", true},
		{"no url", "I cannot generate that image", "", false},
		{"non-image bare url", "see https://example.com/page.html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractImageURL(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
