package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/auth"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// newTestServer builds a Server over a fresh in-memory database and a Fiber
// app with all routes registered. Redis stays nil so caching and rate
// limiting fall through.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	db := setupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	s := &Server{
		db:       db,
		userRepo: userRepo,
		postRepo: postRepo,
		verifier: auth.NewVerifier(userRepo),
	}
	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

func createTestUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    email,
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, userID, title string) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:   title,
		Content: "some content",
		UserID:  userID,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestListPostsEmptyStore(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodGet, "/posts", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "opps no blogposts here yet try get users to post", body["status"])
}

func TestListPostsReturnsViews(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "alice", "alice@example.com")
	createTestPost(t, s.db, user.ID, "First")
	createTestPost(t, s.db, user.ID, "Second")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var views []models.PostView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, user.ID, v.UserID)
	}
}

func TestCreatePost(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "bob", "bob@example.com")

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedError  string
	}{
		{
			name: "Valid post",
			body: map[string]any{
				"title":   "T",
				"content": "C",
				"user_id": user.ID,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Missing title",
			body: map[string]any{
				"content": "C",
				"user_id": user.ID,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "title is required",
		},
		{
			name: "Missing content",
			body: map[string]any{
				"title":   "T",
				"user_id": user.ID,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "content is required",
		},
		{
			name: "Missing user_id",
			body: map[string]any{
				"title":   "T",
				"content": "C",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "user_id is required",
		},
		{
			name: "Wrong title type",
			body: map[string]any{
				"title":   42,
				"content": "C",
				"user_id": user.ID,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "title must be a string",
		},
		{
			name: "Malformed user id",
			body: map[string]any{
				"title":   "T",
				"content": "C",
				"user_id": "not-a-uuid",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown user",
			body: map[string]any{
				"title":   "T",
				"content": "C",
				"user_id": uuid.NewString(),
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/posts", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
			}
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, "T", body["title"])
				assert.Equal(t, user.ID, body["user_id"])
				assert.NotEmpty(t, body["id"])
			}
		})
	}
}

func TestCreatePostMalformedIDMessage(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodPost, "/posts", map[string]any{
		"title":   "T",
		"content": "C",
		"user_id": "nope",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Invalid UUID")
}

func TestCreatePostUnknownUserMessage(t *testing.T) {
	_, app := newTestServer(t)
	ghost := uuid.NewString()

	resp, body := doJSON(t, app, http.MethodPost, "/posts", map[string]any{
		"title":   "T",
		"content": "C",
		"user_id": ghost,
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("user with %s doesn't exist", ghost), body["error"])
}

func TestCountPosts(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "carol", "carol@example.com")
	createTestPost(t, s.db, user.ID, "One")
	createTestPost(t, s.db, user.ID, "Two")
	createTestPost(t, s.db, user.ID, "Three")

	resp, body := doJSON(t, app, http.MethodGet, "/posts/count", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["No of posts"])
}

func TestGetPost(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "dave", "dave@example.com")
	post := createTestPost(t, s.db, user.ID, "Found")

	resp, body := doJSON(t, app, http.MethodGet, "/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Found", body["title"])
	assert.Equal(t, user.ID, body["user_id"])

	ghost := uuid.NewString()
	resp, body = doJSON(t, app, http.MethodGet, "/posts/"+ghost, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("BlogPost with id %s does not exist", ghost), body["error"])

	// Malformed ids collapse to the same 404
	resp, body = doJSON(t, app, http.MethodGet, "/posts/garbage", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "garbage")
}

func TestListUserPosts(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "erin", "erin@example.com")

	// No posts yet: informational status, not an error
	resp, body := doJSON(t, app, http.MethodGet, "/users/"+user.ID+"/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["status"])

	createTestPost(t, s.db, user.ID, "Mine")

	req := httptest.NewRequest(http.MethodGet, "/users/"+user.ID+"/posts", nil)
	listResp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
	var views []models.PostView
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "Mine", views[0].Title)

	// Unknown and malformed user ids both answer 403 here
	ghost := uuid.NewString()
	resp, body = doJSON(t, app, http.MethodGet, "/users/"+ghost+"/posts", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("user with %s doesn't exist", ghost), body["error"])

	resp, _ = doJSON(t, app, http.MethodGet, "/users/junk/posts", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetUserPostOwnership(t *testing.T) {
	s, app := newTestServer(t)
	owner := createTestUser(t, s.db, "frank", "frank@example.com")
	other := createTestUser(t, s.db, "grace", "grace@example.com")
	post := createTestPost(t, s.db, owner.ID, "Private")

	// Owner gets the post
	resp, body := doJSON(t, app, http.MethodGet, "/users/"+owner.ID+"/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Private", body["title"])

	// Another user's id: ownership violation answers like a missing post
	resp, body = doJSON(t, app, http.MethodGet, "/users/"+other.ID+"/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("BlogPost with id %s does not exist", post.ID), body["error"])

	// Unknown user
	ghost := uuid.NewString()
	resp, body = doJSON(t, app, http.MethodGet, "/users/"+ghost+"/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("User with id %s does not exist", ghost), body["error"])

	// Unknown post
	ghostPost := uuid.NewString()
	resp, body = doJSON(t, app, http.MethodGet, "/users/"+owner.ID+"/posts/"+ghostPost, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("BlogPost with id %s does not exist", ghostPost), body["error"])
}

func TestDeleteUserPosts(t *testing.T) {
	s, app := newTestServer(t)
	u1 := createTestUser(t, s.db, "henry", "henry@example.com")
	u2 := createTestUser(t, s.db, "iris", "iris@example.com")
	createTestPost(t, s.db, u1.ID, "A")
	createTestPost(t, s.db, u1.ID, "B")
	createTestPost(t, s.db, u2.ID, "Keep")

	resp, body := doJSON(t, app, http.MethodDelete, "/users/"+u1.ID+"/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("All blog posts of user with id: %s deleted", u1.ID), body["status"])

	// Deleting u1's posts leaves u2's untouched
	var remaining int64
	require.NoError(t, s.db.Model(&models.Post{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	var kept models.Post
	require.NoError(t, s.db.Where("user_id = ?", u2.ID).First(&kept).Error)
	assert.Equal(t, "Keep", kept.Title)

	// A second delete finds nothing and says so
	resp, body = doJSON(t, app, http.MethodDelete, "/users/"+u1.ID+"/posts", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("No blog posts found for user with id: %s", u1.ID), body["error"])

	// Unknown user
	ghost := uuid.NewString()
	resp, body = doJSON(t, app, http.MethodDelete, "/users/"+ghost+"/posts", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("User with id %s does not exist", ghost), body["error"])
}

// TestPostLifecycle walks the create/list/delete/list flow end to end.
func TestPostLifecycle(t *testing.T) {
	s, app := newTestServer(t)
	user := createTestUser(t, s.db, "june", "june@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/posts", map[string]any{
		"title":   "T",
		"content": "C",
		"user_id": user.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, user.ID, body["user_id"])

	req := httptest.NewRequest(http.MethodGet, "/users/"+user.ID+"/posts", nil)
	listResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var views []models.PostView
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&views))
	require.Len(t, views, 1)

	resp, body = doJSON(t, app, http.MethodDelete, "/users/"+user.ID+"/posts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("All blog posts of user with id: %s deleted", user.ID), body["status"])

	resp, body = doJSON(t, app, http.MethodGet, "/users/"+user.ID+"/posts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["status"])
}
