// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (commentsCount int64, err error)
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) (commentsCount int64, err error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps the parent post's comments_count in
// one transaction. Returns the post's counter as of this commit.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (int64, error) {
	defer observability.TrackQuery("create", "comments")()

	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").Take(&post, comment.PostID).Error; err != nil {
			return err
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			return err
		}

		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			Pluck("comments_count", &count).Error
	})
	if err != nil {
		return 0, err
	}

	observability.CommentWrites.WithLabelValues("created").Inc()
	cache.InvalidatePost(ctx, comment.PostID)
	return count, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

// Delete removes the comment and decrements the parent post's comments_count
// in one transaction. The decrement floors at zero so a drifted counter can
// never go negative. Returns the post's counter as of this commit.
func (r *commentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	defer observability.TrackQuery("delete", "comments")()

	var count int64
	var postID uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Take(&comment, id).Error; err != nil {
			return err
		}
		postID = comment.PostID

		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comments_count",
				gorm.Expr("CASE WHEN comments_count > 0 THEN comments_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Pluck("comments_count", &count).Error
	})
	if err != nil {
		return 0, err
	}

	observability.CommentWrites.WithLabelValues("deleted").Inc()
	cache.InvalidatePost(ctx, postID)
	return count, nil
}
