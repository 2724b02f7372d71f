package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agora/internal/models"
	"agora/internal/viewer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint) (*models.Post, error)
	getByUserIDFn  func(context.Context, uint, int, int) ([]*models.Post, error)
	listFn         func(context.Context, int, int, string) ([]*models.Post, error)
	searchFn       func(context.Context, string, int, int) ([]*models.Post, error)
	updateFn       func(context.Context, *models.Post) error
	deleteFn       func(context.Context, uint) error
	registerViewFn func(context.Context, uint, string) (int64, bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, sort)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) RegisterView(ctx context.Context, postID uint, viewerKey string) (int64, bool, error) {
	return s.registerViewFn(ctx, postID, viewerKey)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:      func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:     func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		getByUserIDFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		listFn:        func(_ context.Context, _, _ int, _ string) ([]*models.Post, error) { return nil, nil },
		searchFn:      func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn:      func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
		registerViewFn: func(_ context.Context, _ uint, _ string) (int64, bool, error) {
			return 1, true, nil
		},
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeInputInvalid)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeForbidden)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo())
	ctx := context.Background()

	t.Run("empty title", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, Body: "body"})
		assertValidationError(t, err)
	})

	t.Run("whitespace title", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, Title: "   ", Body: "body"})
		assertValidationError(t, err)
	})

	t.Run("title too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, Title: strings.Repeat("x", 201), Body: "body"})
		assertValidationError(t, err)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, Title: "title"})
		assertValidationError(t, err)
	})
}

func TestPostService_RegisterView(t *testing.T) {
	t.Parallel()

	t.Run("empty viewer key is invalid", func(t *testing.T) {
		t.Parallel()
		svc := NewPostService(noopPostRepo())
		_, _, err := svc.RegisterView(context.Background(), 1, "")
		assertValidationError(t, err)
	})

	t.Run("oversized viewer key is invalid", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repoCalled := false
		repo.registerViewFn = func(_ context.Context, _ uint, _ string) (int64, bool, error) {
			repoCalled = true
			return 1, true, nil
		}
		svc := NewPostService(repo)
		_, _, err := svc.RegisterView(context.Background(), 1, strings.Repeat("k", viewer.MaxKeyLength+1))
		assertValidationError(t, err)
		assert.False(t, repoCalled, "an oversized key must be rejected before storage")
	})

	t.Run("key at the length limit is accepted", func(t *testing.T) {
		t.Parallel()
		svc := NewPostService(noopPostRepo())
		_, _, err := svc.RegisterView(context.Background(), 1, strings.Repeat("k", viewer.MaxKeyLength))
		require.NoError(t, err)
	})

	t.Run("missing post maps to not found", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.registerViewFn = func(_ context.Context, _ uint, _ string) (int64, bool, error) {
			return 0, false, gorm.ErrRecordNotFound
		}
		svc := NewPostService(repo)
		_, _, err := svc.RegisterView(context.Background(), 99, "u:1")
		assertErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("repo result passes through", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.registerViewFn = func(_ context.Context, postID uint, key string) (int64, bool, error) {
			assert.Equal(t, uint(7), postID)
			assert.Equal(t, "g:abc", key)
			return 12, false, nil
		}
		svc := NewPostService(repo)
		count, counted, err := svc.RegisterView(context.Background(), 7, "g:abc")
		require.NoError(t, err)
		assert.Equal(t, int64(12), count)
		assert.False(t, counted)
	})

	t.Run("storage fault is wrapped", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.registerViewFn = func(_ context.Context, _ uint, _ string) (int64, bool, error) {
			return 0, false, errors.New("disk on fire")
		}
		svc := NewPostService(repo)
		_, _, err := svc.RegisterView(context.Background(), 1, "u:1")
		assertErrorCode(t, err, models.CodeStorageFailure)
	})
}

func TestPostService_UpdatePost_Ownership(t *testing.T) {
	t.Parallel()

	t.Run("non-owner is forbidden", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 10}, nil
		}
		svc := NewPostService(repo)
		_, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 1, PostID: 1, Title: "new"})
		assertForbiddenError(t, err)
	})

	t.Run("owner can update", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1, Title: "old", Body: "old body"}, nil
		}
		svc := NewPostService(repo)
		post, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 1, PostID: 1, Title: "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", post.Title)
		assert.Equal(t, "old body", post.Body, "omitted fields keep their value")
	})
}

func TestPostService_DeletePost_Ownership(t *testing.T) {
	t.Parallel()

	t.Run("non-owner is forbidden and nothing is deleted", func(t *testing.T) {
		t.Parallel()
		deleted := false
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 10}, nil
		}
		repo.deleteFn = func(_ context.Context, _ uint) error {
			deleted = true
			return nil
		}
		svc := NewPostService(repo)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 1, PostID: 1})
		assertForbiddenError(t, err)
		assert.False(t, deleted)
	})

	t.Run("owner can delete", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		}
		svc := NewPostService(repo)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 1, PostID: 1})
		assert.NoError(t, err)
	})
}

func TestPostService_SearchPosts_EmptyQuery(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo())
	_, err := svc.SearchPosts(context.Background(), "  ", 10, 0)
	assertValidationError(t, err)
}
