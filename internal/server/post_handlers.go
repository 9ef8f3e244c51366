package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"quill/internal/cache"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// emptyPostsMessage is returned instead of an empty list literal when the
// store has no posts. The wording is part of the public contract.
const emptyPostsMessage = "opps no blogposts here yet try get users to post"

// ListPosts handles GET /posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	ctx := c.Context()

	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if len(posts) == 0 {
		return models.RespondWithStatus(c, emptyPostsMessage)
	}

	return c.JSON(models.PostViews(posts))
}

// CreatePost handles POST /posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()

	// Field presence is checked on the raw body before schema validation so
	// an absent field is reported by name, distinct from an invalid value.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	for _, field := range []string{"title", "content", "user_id"} {
		if _, ok := raw[field]; !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewMissingFieldError(field))
		}
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		UserID  string `json:"user_id"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(fmt.Sprintf("%s must be a string", typeErr.Field)))
		}
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Title == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("title may not be blank"))
	}
	if req.Content == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("content may not be blank"))
	}

	// The owning user must resolve before the post is persisted.
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		switch {
		case models.HasCode(err, models.CodeMalformedID):
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		case models.HasCode(err, models.CodeNotFound):
			return models.RespondWithError(c, fiber.StatusForbidden,
				fmt.Errorf("user with %s doesn't exist", req.UserID))
		default:
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
	}

	post := &models.Post{
		Title:   req.Title,
		Content: req.Content,
		UserID:  user.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	cache.InvalidatePostCount(ctx)
	observability.PostsCreated.Inc()

	return c.Status(fiber.StatusCreated).JSON(post.View())
}

// CountPosts handles GET /posts/count
func (s *Server) CountPosts(c *fiber.Ctx) error {
	ctx := c.Context()

	// The count cache is best-effort: a cache failure reads through to the store.
	var count int64
	found, err := cache.GetJSON(ctx, cache.PostCountKey, &count)
	if err != nil {
		found = false
	}
	if found {
		observability.CacheRequests.WithLabelValues("posts_count", "hit").Inc()
	} else {
		observability.CacheRequests.WithLabelValues("posts_count", "miss").Inc()
		count, err = s.postRepo.Count(ctx)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		_ = cache.SetJSON(ctx, cache.PostCountKey, count, cache.PostCountTTL)
	}

	return c.JSON(fiber.Map{"No of posts": count})
}

// GetPost handles GET /posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var view models.PostView
	err := cache.CacheAside(ctx, cache.PostKey(id), &view, cache.PostTTL, func() error {
		post, err := s.postRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		view = post.View()
		return nil
	})
	if err != nil {
		// Malformed and missing ids collapse to the same 404 here.
		if models.HasCode(err, models.CodeMalformedID) || models.HasCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				fmt.Errorf("BlogPost with id %s does not exist", id))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(view)
}

// ListUserPosts handles GET /users/:userId/posts
func (s *Server) ListUserPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Params("userId")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeInternal) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		// Malformed and unknown user ids collapse to the same 403 here.
		return models.RespondWithError(c, fiber.StatusForbidden,
			fmt.Errorf("user with %s doesn't exist", userID))
	}

	posts, err := s.postRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if len(posts) == 0 {
		return models.RespondWithStatus(c,
			fmt.Sprintf("user with id: %s has no blog posts yet", user.ID))
	}

	return c.JSON(models.PostViews(posts))
}

// GetUserPost handles GET /users/:userId/posts/:postId
func (s *Server) GetUserPost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Params("userId")
	postID := c.Params("postId")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeInternal) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		return models.RespondWithError(c, fiber.StatusNotFound,
			fmt.Errorf("User with id %s does not exist", userID))
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if models.HasCode(err, models.CodeInternal) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		return models.RespondWithError(c, fiber.StatusNotFound,
			fmt.Errorf("BlogPost with id %s does not exist", postID))
	}

	// A post requested under the wrong user answers exactly like a missing
	// post, so the endpoint never reveals who actually owns it.
	if post.UserID != user.ID {
		violation := models.NewOwnershipViolationError(post.ID, user.ID)
		middleware.Logger.Warn("ownership violation",
			slog.String("post_id", post.ID),
			slog.String("requested_user_id", user.ID),
			slog.String("error", violation.Error()),
		)
		return models.RespondWithError(c, fiber.StatusNotFound,
			fmt.Errorf("BlogPost with id %s does not exist", postID))
	}

	return c.JSON(post.View())
}

// DeleteUserPosts handles DELETE /users/:userId/posts
func (s *Server) DeleteUserPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Params("userId")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeInternal) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		return models.RespondWithError(c, fiber.StatusNotFound,
			fmt.Errorf("User with id %s does not exist", userID))
	}

	posts, err := s.postRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if len(posts) == 0 {
		return models.RespondWithError(c, fiber.StatusNotFound,
			fmt.Errorf("No blog posts found for user with id: %s", user.ID))
	}

	for _, post := range posts {
		if err := s.postRepo.Delete(ctx, post.ID); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		cache.InvalidatePost(ctx, post.ID)
		observability.PostsDeleted.Inc()
	}
	cache.InvalidatePostCount(ctx)

	return models.RespondWithStatus(c,
		fmt.Sprintf("All blog posts of user with id: %s deleted", user.ID))
}
