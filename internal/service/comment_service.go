package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	UserID uint
	PostID uint
	Body   string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Body      string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// CreateComment validates and stores the comment. The returned count is the
// parent post's comments_count as committed by this write.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, int64, error) {
	const maxCommentLen = 10000

	if in.Body == "" {
		return nil, 0, models.NewValidationError("Body is required")
	}
	if len(in.Body) > maxCommentLen {
		return nil, 0, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	comment := &models.Comment{
		Body:   in.Body,
		UserID: in.UserID,
		PostID: in.PostID,
	}
	count, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, 0, asAppError(err, "Post", in.PostID)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, 0, asAppError(err, "Comment", comment.ID)
	}
	return created, count, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, asAppError(err, "Post", postID)
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, asAppError(err, "Comment", 0)
	}
	return comments, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, asAppError(err, "Comment", in.CommentID)
	}

	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own comments")
	}
	if in.Body == "" {
		return nil, models.NewValidationError("Body is required")
	}

	comment.Body = in.Body
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, asAppError(err, "Comment", in.CommentID)
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes the caller's comment and returns the parent post's
// comments_count as committed by this delete.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (int64, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return 0, asAppError(err, "Comment", in.CommentID)
	}

	if comment.UserID != in.UserID {
		return 0, models.NewForbiddenError("You can only delete your own comments")
	}

	count, err := s.commentRepo.Delete(ctx, in.CommentID)
	if err != nil {
		return 0, asAppError(err, "Comment", in.CommentID)
	}
	return count, nil
}
