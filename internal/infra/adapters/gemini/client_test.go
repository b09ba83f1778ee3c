package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/TaleRoom/internal/domain/models"
)

func TestClient_Generate(t *testing.T) {
	var got generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" cat \n"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", "test-model", time.Second)

	text, err := c.Generate(context.Background(), models.Prompt{
		Text:   "what is it",
		Images: []models.Image{{Filename: "a.png", Data: []byte("img")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cat", text)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "what is it", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img")), got.Contents[0].Parts[1].InlineData.Data)
	assert.Nil(t, got.GenerationConfig)
}

func TestClient_GenerateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"title\":\"t\",\"story\":\"s\"}"}]}}]}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "", "m", time.Second).Generate(context.Background(), models.Prompt{Text: "story", JSON: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t","story":"s"}`, text)
}

func TestClient_GenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "quota", http.StatusTooManyRequests)
			},
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
		},
		{
			name: "blank text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
			},
		},
		{
			name: "garbled body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", "m", time.Second).Generate(context.Background(), models.Prompt{Text: "x"})
			assert.Error(t, err)
		})
	}
}

func TestStatic_Generate(t *testing.T) {
	s := NewStatic()

	label, err := s.Generate(context.Background(), models.Prompt{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "object", label)

	story, err := s.Generate(context.Background(), models.Prompt{Text: "x", JSON: true})
	require.NoError(t, err)

	var decoded models.Story
	require.NoError(t, json.Unmarshal([]byte(story), &decoded))
	assert.NoError(t, decoded.Validate())
}
