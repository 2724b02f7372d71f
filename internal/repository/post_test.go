package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"agora/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Body: "Content", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_RegisterView(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID, "First post")

	t.Run("First view increments", func(t *testing.T) {
		count, counted, err := repo.RegisterView(ctx, post.ID, "u:42")
		require.NoError(t, err)
		assert.True(t, counted)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Repeat view is suppressed", func(t *testing.T) {
		count, counted, err := repo.RegisterView(ctx, post.ID, "u:42")
		require.NoError(t, err)
		assert.False(t, counted)
		assert.Equal(t, int64(1), count, "suppressed view must not change the counter")
	})

	t.Run("Distinct viewers each count once", func(t *testing.T) {
		_, counted, err := repo.RegisterView(ctx, post.ID, "g:0f3a6b")
		require.NoError(t, err)
		assert.True(t, counted)

		count, counted, err := repo.RegisterView(ctx, post.ID, "u:7")
		require.NoError(t, err)
		assert.True(t, counted)
		assert.Equal(t, int64(3), count)
	})

	t.Run("Counter equals ledger size", func(t *testing.T) {
		var ledgerRows int64
		require.NoError(t, db.Model(&models.PostViewLog{}).
			Where("post_id = ?", post.ID).Count(&ledgerRows).Error)

		var fresh models.Post
		require.NoError(t, db.First(&fresh, post.ID).Error)
		assert.Equal(t, ledgerRows, fresh.ViewCount)
	})
}

func TestPostRepository_RegisterView_UnknownPost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)

	_, _, err := repo.RegisterView(context.Background(), 9999, "u:42")
	assert.Error(t, err)

	// A failed registration must leave no trace in the ledger.
	var ledgerRows int64
	require.NoError(t, db.Model(&models.PostViewLog{}).Count(&ledgerRows).Error)
	assert.Zero(t, ledgerRows)
}

func TestPostRepository_RegisterView_ConcurrentDuplicates(t *testing.T) {
	db := setupTestDB(t)
	// Pin the pool to one connection so every goroutine shares the same
	// in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID, "Contended post")

	const viewers = 16
	var counted atomic.Int64
	errs := make(chan error, viewers)

	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasCounted, err := repo.RegisterView(ctx, post.ID, "u:42")
			if err != nil {
				errs <- err
				return
			}
			if wasCounted {
				counted.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), counted.Load(), "exactly one racing view may count")

	var fresh models.Post
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, int64(1), fresh.ViewCount)

	var ledgerRows int64
	require.NoError(t, db.Model(&models.PostViewLog{}).
		Where("post_id = ?", post.ID).Count(&ledgerRows).Error)
	assert.Equal(t, int64(1), ledgerRows)
}

func TestPostRepository_RegisterView_PostDeletedMidFlight(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","view_count" FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "view_count"}).AddRow(1, 5))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "post_view_logs"`)).
		WillReturnError(gorm.ErrForeignKeyViolated)
	mock.ExpectRollback()

	_, _, err := repo.RegisterView(context.Background(), 1, "u:42")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound,
		"a post deleted after the existence check reads as not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_RegisterView_RollbackOnWriteFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","view_count" FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "view_count"}).AddRow(1, 5))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "post_view_logs"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.RegisterView(context.Background(), 1, "u:42")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	seedPost(t, db, author.ID, "Grilling Basics")
	seedPost(t, db, author.ID, "Advanced GRILL techniques")
	seedPost(t, db, author.ID, "Unrelated")

	posts, err := repo.Search(ctx, "grill", 10, 0)
	require.NoError(t, err)
	assert.Len(t, posts, 2, "search should match case-insensitively")
}

func TestPostRepository_List_Sorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	quiet := seedPost(t, db, author.ID, "quiet")
	busy := seedPost(t, db, author.ID, "busy")
	require.NoError(t, db.Model(busy).UpdateColumn("view_count", 10).Error)

	posts, err := repo.List(ctx, 10, 0, "views")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, busy.ID, posts[0].ID)
	assert.Equal(t, quiet.ID, posts[1].ID)
}
