package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repocard/github"
	"repocard/reference"
	"repocard/render"
)

func TestHandleCard(t *testing.T) {
	testCases := []struct {
		name           string
		repo           string
		expectedStatus int
		expectedState  string
		expectedError  string
		expectedHits   int32
	}{
		{
			name:           "success",
			repo:           "https://github.com/acme/widget",
			expectedStatus: http.StatusOK,
			expectedState:  "success",
			expectedHits:   1,
		},
		{
			name:           "upstream 404",
			repo:           "https://github.com/acme/missing",
			expectedStatus: http.StatusBadGateway,
			expectedState:  "failure",
			expectedError:  github.FetchMessage,
			expectedHits:   1,
		},
		{
			name:           "invalid reference",
			repo:           "not-a-url",
			expectedStatus: http.StatusBadRequest,
			expectedState:  "failure",
			expectedError:  reference.Message,
		},
		{
			name:           "missing parameter",
			expectedStatus: http.StatusBadRequest,
			expectedState:  "failure",
			expectedError:  reference.Message,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			upstream := newGitHubServer(t, &hits)
			svc := newTestService(t, upstream.URL)

			req := httptest.NewRequest(http.MethodGet, "/card?repo="+url.QueryEscape(tc.repo), nil)
			rec := httptest.NewRecorder()
			svc.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.expectedHits, atomic.LoadInt32(&hits))

			var view render.View
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
			assert.Equal(t, tc.expectedState, view.State)
			assert.Equal(t, tc.expectedError, view.Error)

			if tc.expectedState == "success" {
				require.NotNil(t, view.Repo)
				assert.Equal(t, "acme", view.Repo.Owner)
				assert.Equal(t, "widget", view.Repo.Name)
				assert.Equal(t, 42, view.Repo.Stars)
				assert.Equal(t, 3, view.Repo.Forks)
				require.NotNil(t, view.Repo.Language)
				assert.Equal(t, "Go", *view.Repo.Language)
				assert.Equal(t, render.DescriptionPlaceholder, view.Repo.Description)
			}
		})
	}
}

func TestHandleCardText(t *testing.T) {
	upstream := newGitHubServer(t, nil)
	svc := newTestService(t, upstream.URL)

	req := httptest.NewRequest(http.MethodGet, "/card?format=text&repo="+url.QueryEscape("https://github.com/acme/widget"), nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), render.Title)
	assert.Contains(t, rec.Body.String(), "★ 42")
}

func TestHandleCardFetchesPerRequest(t *testing.T) {
	var hits int32
	upstream := newGitHubServer(t, &hits)
	svc := newTestService(t, upstream.URL)
	handler := svc.Handler()

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/card?repo="+url.QueryEscape("https://github.com/acme/widget"), nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHealthz(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
