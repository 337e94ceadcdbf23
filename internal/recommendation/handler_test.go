package recommendation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dustin/movie-recommender/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, svc Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(svc, testLogger(t))
	h.RegisterRoutes(router)
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Recommend(t *testing.T) {
	svc, _ := readyService(t, &config.EngineConfig{}, nil)
	router := setupRouter(t, svc)

	t.Run("two liked movies rank their co-rated partner", func(t *testing.T) {
		w := postJSON(router, "/recommend", `{"movies":["Inception","Interstellar"],"n":2,"method":"item_cf"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp RecommendResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Recommendations, 1)
		assert.Equal(t, "Tenet (2020)", resp.Recommendations[0].Title)
		assert.Equal(t, "because you liked Inception (2010)", resp.Recommendations[0].Explanation)
		assert.NotEmpty(t, resp.IndexID)
		assert.Equal(t, MethodItemCF, resp.Method)
	})

	t.Run("versioned path and defaults", func(t *testing.T) {
		w := postJSON(router, "/api/v1/recommend", `{"movies":["Inception"]}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp RecommendResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Recommendations, 2)
		assert.Equal(t, MethodItemCF, resp.Method)
	})

	t.Run("non-positive n returns an empty array", func(t *testing.T) {
		w := postJSON(router, "/recommend", `{"movies":["Inception"],"n":0}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"recommendations":[]`)
		assert.Contains(t, w.Body.String(), `"unresolved":[]`)
	})

	testCases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown title", `{"movies":["Unknown Movie"],"n":2}`, http.StatusUnprocessableEntity, "no_liked_items_resolved"},
		{"unsupported method", `{"movies":["Inception"],"n":2,"method":"user_cf"}`, http.StatusBadRequest, "unsupported_method"},
		{"explicit empty method", `{"movies":["Inception"],"method":""}`, http.StatusBadRequest, "unsupported_method"},
		{"empty input", `{"movies":[],"n":2}`, http.StatusBadRequest, "empty_input"},
		{"malformed body", `{"movies":`, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(router, "/recommend", tc.body)
			assert.Equal(t, tc.status, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}

	t.Run("unresolved titles listed on 422", func(t *testing.T) {
		w := postJSON(router, "/recommend", `{"movies":["Unknown Movie"]}`)
		assert.Contains(t, w.Body.String(), `"unresolved":["Unknown Movie"]`)
	})
}

func TestHandler_IndexUnavailable(t *testing.T) {
	f := newTestFacade(t, &fakeSource{})
	svc, err := NewService(f, &config.EngineConfig{}, nil, testLogger(t))
	require.NoError(t, err)
	router := setupRouter(t, svc)

	w := postJSON(router, "/recommend", `{"movies":["Inception"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "index_unavailable")
}
