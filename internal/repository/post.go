// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	RegisterView(ctx context.Context, postID uint, viewerKey string) (viewCount int64, counted bool, err error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	// Counter mutations invalidate this key, so a cache hit is as fresh as the
	// last committed counter write.
	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).Preload("User").First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applySort(r.db.WithContext(ctx).Preload("User"), sort).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// applySort appends the ORDER BY clause for the requested sort type.
func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "views":
		return db.Order("view_count DESC, created_at DESC")
	case "active":
		return db.Order("comments_count DESC, created_at DESC")
	default: // "new" and anything unrecognized
		return db.Order("created_at DESC")
	}
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("search", "posts")()

	var posts []*models.Post
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", like, like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// RegisterView records one view of a post by viewerKey. The view log insert
// and the counter increment commit or roll back together, so the counter
// always equals the number of log rows for the post. A repeat view by the
// same key is suppressed by the (post_id, viewer_key) unique index and leaves
// the counter untouched.
func (r *postRepository) RegisterView(ctx context.Context, postID uint, viewerKey string) (int64, bool, error) {
	defer observability.TrackQuery("register_view", "posts")()

	var viewCount int64
	var counted bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Existence check up front so an unknown post never leaves a log row.
		var post models.Post
		if err := tx.Select("id", "view_count").Take(&post, postID).Error; err != nil {
			return err
		}

		entry := models.PostViewLog{PostID: postID, ViewerKey: viewerKey, ViewedAt: time.Now()}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "viewer_key"}},
			DoNothing: true,
		}).Create(&entry)
		if res.Error != nil {
			// The post can be deleted between the existence check and this
			// insert; the broken foreign key reads as a missing post.
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return gorm.ErrRecordNotFound
			}
			return res.Error
		}

		// RowsAffected == 0 means the ledger already had this viewer.
		counted = res.RowsAffected > 0
		if !counted {
			viewCount = post.ViewCount
			return nil
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			return err
		}

		// Read back inside the transaction so the returned count reflects
		// exactly this commit.
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Pluck("view_count", &viewCount).Error
	})
	if err != nil {
		return 0, false, err
	}

	if counted {
		observability.PostViewsCounted.Inc()
		cache.InvalidatePost(ctx, postID)
	} else {
		observability.PostViewsDeduplicated.Inc()
	}
	return viewCount, counted, nil
}
