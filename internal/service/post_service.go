package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/viewer"

	"gorm.io/gorm"
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID uint
	Title  string
	Body   string
}

type ListPostsInput struct {
	Limit  int
	Offset int
	Sort   string
}

type UpdatePostInput struct {
	UserID uint
	PostID uint
	Title  string
	Body   string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// asAppError passes AppErrors through, maps missing rows to NOT_FOUND and
// wraps everything else as a storage failure.
func asAppError(err error, resource string, id uint) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewStorageError(err)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxTitleLen = 200
	const maxBodyLen = 50000

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if in.Body == "" {
		return nil, models.NewValidationError("Body is required")
	}
	if len(in.Body) > maxBodyLen {
		return nil, models.NewValidationError("Body too long (max 50000 characters)")
	}

	post := &models.Post{
		Title:  title,
		Body:   in.Body,
		UserID: in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, asAppError(err, "Post", 0)
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, asAppError(err, "Post", id)
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx, in.Limit, in.Offset, in.Sort)
	if err != nil {
		return nil, asAppError(err, "Post", 0)
	}
	return posts, nil
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	posts, err := s.postRepo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, asAppError(err, "Post", 0)
	}
	return posts, nil
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	posts, err := s.postRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, asAppError(err, "Post", 0)
	}
	return posts, nil
}

// RegisterView records one view of the post under viewerKey and returns the
// post's view count after the attempt. counted is false when the viewer had
// already been recorded for this post.
func (s *PostService) RegisterView(ctx context.Context, postID uint, viewerKey string) (int64, bool, error) {
	if viewerKey == "" {
		return 0, false, models.NewValidationError("Viewer key is required")
	}
	if len(viewerKey) > viewer.MaxKeyLength {
		return 0, false, models.NewValidationError(fmt.Sprintf("Viewer key too long (max %d characters)", viewer.MaxKeyLength))
	}

	count, counted, err := s.postRepo.RegisterView(ctx, postID, viewerKey)
	if err != nil {
		return 0, false, asAppError(err, "Post", postID)
	}
	return count, counted, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, asAppError(err, "Post", in.PostID)
	}

	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if in.Title != "" {
		if len(in.Title) > 200 {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = in.Title
	}
	if in.Body != "" {
		post.Body = in.Body
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, asAppError(err, "Post", in.PostID)
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return asAppError(err, "Post", in.PostID)
	}

	if post.UserID != in.UserID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return asAppError(err, "Post", in.PostID)
	}
	return nil
}
