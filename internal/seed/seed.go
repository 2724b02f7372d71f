package seed

import (
	"fmt"
	"log"

	"agora/internal/models"

	"gorm.io/gorm"
)

// Seed populates the database with demo data: users with profiles, posts,
// comments and view ledger entries. Counters on seeded posts match their
// backing rows exactly.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db, opts)

	users, err := createUsers(f, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("Created %d users", len(users))

	posts, err := createPosts(f, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("Created %d posts", len(posts))

	if err := createEngagement(f, users, posts); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}

	log.Println("Database seeding completed successfully")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE post_view_logs, comments, posts, user_profiles, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(f *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := f.CreateUser()
		if err != nil {
			// Username collisions under random generation are tolerable.
			log.Printf("Skipping user %d: %v", i, err)
			continue
		}
		// Roughly two thirds of accounts have filled out a profile.
		if f.rng.Intn(3) != 0 {
			if _, err := f.CreateProfile(user); err != nil {
				return nil, err
			}
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users created")
	}
	return users, nil
}

func createPosts(f *Factory, users []*models.User, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[f.rng.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	return posts, nil
}

// createEngagement scatters comments and views across the seeded posts.
// Views come from seeded users (keyed u:<id>) and synthetic guests, through
// the same dedup path the API uses.
func createEngagement(f *Factory, users []*models.User, posts []*models.Post) error {
	maxComments := f.opts.MaxCommentsPerPost
	if maxComments <= 0 {
		maxComments = 10
	}
	maxViews := f.opts.MaxViewsPerPost
	if maxViews <= 0 {
		maxViews = 25
	}

	for _, post := range posts {
		for i := 0; i < f.rng.Intn(maxComments+1); i++ {
			commenter := users[f.rng.Intn(len(users))]
			if _, err := f.CreateComment(commenter, post); err != nil {
				return err
			}
		}

		for i := 0; i < f.rng.Intn(maxViews+1); i++ {
			var key string
			if f.rng.Intn(2) == 0 {
				viewer := users[f.rng.Intn(len(users))]
				key = fmt.Sprintf("u:%d", viewer.ID)
			} else {
				key = fmt.Sprintf("g:seed-%d-%d", post.ID, i)
			}
			if err := f.CreateView(post, key); err != nil {
				return err
			}
		}
	}
	return nil
}
