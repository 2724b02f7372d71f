package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"agora/internal/models"
	"agora/internal/viewer"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getPost fetches a post detail, optionally with an explicit viewer key, and
// returns the rendered post plus the view_counted flag.
func getPost(t *testing.T, app *fiber.App, postID uint, token, viewerKey string) (models.Post, bool, int) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, fmtPostPath(postID), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if viewerKey != "" {
		req.Header.Set("X-Viewer-Key", viewerKey)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return models.Post{}, false, resp.StatusCode
	}

	env := decodeEnvelope(t, resp)
	var data struct {
		Post        models.Post `json:"post"`
		ViewCounted bool        `json:"view_counted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Post, data.ViewCounted, resp.StatusCode
}

func fmtPostPath(postID uint) string {
	return "/api/posts/" + uitoa(postID)
}

func uitoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestCreatePost(t *testing.T) {
	app, _ := setupTestServer(t)
	token, userID := signupUser(t, app, "author")

	t.Run("requires authentication", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", "", map[string]string{
			"title": "No auth",
			"body":  "body",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("success", func(t *testing.T) {
		post := createPost(t, app, token, "First post", "Hello world")
		assert.Equal(t, "First post", post.Title)
		assert.Equal(t, userID, post.UserID)
		assert.EqualValues(t, 0, post.ViewCount)
		assert.EqualValues(t, 0, post.CommentsCount)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, map[string]string{
			"title": "",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetPost_ViewRegistration(t *testing.T) {
	app, _ := setupTestServer(t)
	token, _ := signupUser(t, app, "viewer_author")
	post := createPost(t, app, token, "Viewed post", "content")

	t.Run("first guest view is counted", func(t *testing.T) {
		got, counted, status := getPost(t, app, post.ID, "", "")
		require.Equal(t, http.StatusOK, status)
		assert.True(t, counted)
		assert.EqualValues(t, 1, got.ViewCount)
	})

	t.Run("repeat guest view is suppressed", func(t *testing.T) {
		// Same origin and agent produce the same fingerprint.
		got, counted, status := getPost(t, app, post.ID, "", "")
		require.Equal(t, http.StatusOK, status)
		assert.False(t, counted)
		assert.EqualValues(t, 1, got.ViewCount)
	})

	t.Run("authenticated view counts separately from guest", func(t *testing.T) {
		got, counted, status := getPost(t, app, post.ID, token, "")
		require.Equal(t, http.StatusOK, status)
		assert.True(t, counted)
		assert.EqualValues(t, 2, got.ViewCount)

		// Repeat by the same user stays at 2.
		got, counted, status = getPost(t, app, post.ID, token, "")
		require.Equal(t, http.StatusOK, status)
		assert.False(t, counted)
		assert.EqualValues(t, 2, got.ViewCount)
	})

	t.Run("explicit viewer keys are distinct identities", func(t *testing.T) {
		got, counted, status := getPost(t, app, post.ID, "", "device-a")
		require.Equal(t, http.StatusOK, status)
		assert.True(t, counted)
		assert.EqualValues(t, 3, got.ViewCount)

		got, counted, status = getPost(t, app, post.ID, "", "device-b")
		require.Equal(t, http.StatusOK, status)
		assert.True(t, counted)
		assert.EqualValues(t, 4, got.ViewCount)

		_, counted, _ = getPost(t, app, post.ID, "", "device-a")
		assert.False(t, counted)
	})

	t.Run("unknown post is 404", func(t *testing.T) {
		_, _, status := getPost(t, app, 99999, "", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/posts/abc", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetPost_UntrustedViewerKeyIsIgnored(t *testing.T) {
	app, srv := setupTestServer(t)
	srv.config.TrustViewerKey = false

	token, _ := signupUser(t, app, "paranoid_author")
	post := createPost(t, app, token, "Locked down", "content")

	// Both requests fabricate different explicit keys, but with the header
	// ignored they collapse into the same guest fingerprint.
	_, counted, status := getPost(t, app, post.ID, "", "spoof-1")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, counted)

	got, counted, status := getPost(t, app, post.ID, "", "spoof-2")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, counted)
	assert.EqualValues(t, 1, got.ViewCount)
}

func TestGetPost_OversizedViewerKeyRejected(t *testing.T) {
	app, _ := setupTestServer(t)
	token, _ := signupUser(t, app, "oversize_author")
	post := createPost(t, app, token, "Guarded post", "content")

	// An explicit key wider than the ledger column must fail validation
	// instead of blowing up the storage transaction.
	_, _, status := getPost(t, app, post.ID, "", strings.Repeat("k", viewer.MaxKeyLength+1))
	assert.Equal(t, http.StatusBadRequest, status)

	// The post stays viewable and uncounted by the rejected request.
	got, counted, status := getPost(t, app, post.ID, "", "reader-ok")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, counted)
	assert.EqualValues(t, 1, got.ViewCount)
}

func TestGetPosts_ListAndSort(t *testing.T) {
	app, _ := setupTestServer(t)
	token, _ := signupUser(t, app, "lister")

	first := createPost(t, app, token, "Quiet post", "nothing to see")
	popular := createPost(t, app, token, "Popular post", "everyone reads this")

	// Give the popular post a view from a distinct identity.
	_, counted, _ := getPost(t, app, popular.ID, "", "reader-1")
	require.True(t, counted)

	t.Run("default listing returns both", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts", "", nil)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var posts []models.Post
		require.NoError(t, json.Unmarshal(env.Data, &posts))
		assert.Len(t, posts, 2)
	})

	t.Run("views sort puts the viewed post first", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts?sort=views", "", nil)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var posts []models.Post
		require.NoError(t, json.Unmarshal(env.Data, &posts))
		require.Len(t, posts, 2)
		assert.Equal(t, popular.ID, posts[0].ID)
		assert.Equal(t, first.ID, posts[1].ID)
	})
}

func TestSearchPosts(t *testing.T) {
	app, _ := setupTestServer(t)
	token, _ := signupUser(t, app, "searcher")
	createPost(t, app, token, "Gardening tips", "How to grow tomatoes")
	createPost(t, app, token, "Cooking basics", "A guide to TOMATO sauce")

	t.Run("case-insensitive match on title and body", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/search?q=tomato", "", nil)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var posts []models.Post
		require.NoError(t, json.Unmarshal(env.Data, &posts))
		assert.Len(t, posts, 2)
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/search?q=", "", nil)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdatePost_Ownership(t *testing.T) {
	app, _ := setupTestServer(t)
	ownerToken, _ := signupUser(t, app, "owner")
	otherToken, _ := signupUser(t, app, "other")
	post := createPost(t, app, ownerToken, "Original", "original body")

	t.Run("non-owner is forbidden", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, fmtPostPath(post.ID), otherToken, map[string]string{
			"title": "Hijacked",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner can update", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, fmtPostPath(post.ID), ownerToken, map[string]string{
			"title": "Renamed",
		})
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var updated models.Post
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "original body", updated.Body)
	})
}

func TestDeletePost_Ownership(t *testing.T) {
	app, _ := setupTestServer(t)
	ownerToken, _ := signupUser(t, app, "del_owner")
	otherToken, _ := signupUser(t, app, "del_other")
	post := createPost(t, app, ownerToken, "Doomed", "body")

	resp := doJSON(t, app, http.MethodDelete, fmtPostPath(post.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, fmtPostPath(post.ID), ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	_, _, status := getPost(t, app, post.ID, "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetUserPosts(t *testing.T) {
	app, _ := setupTestServer(t)
	token, userID := signupUser(t, app, "prolific")
	createPost(t, app, token, "One", "body one")
	createPost(t, app, token, "Two", "body two")

	resp := doJSON(t, app, http.MethodGet, "/api/users/"+uitoa(userID)+"/posts", "", nil)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	assert.Len(t, posts, 2)
}
