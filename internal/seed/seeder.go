package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var faculties = []string{
	"Computer Science",
	"Engineering",
	"Business",
	"Medicine",
	"Law",
	"International Relations",
	"Journalism",
	"Education",
}

var postCategories = []string{
	"study", "events", "housing", "marketplace", "clubs", "sports", "food",
}

var lostFoundLocations = []string{
	"Main Building", "Library", "Dormitory A", "Dormitory B", "Cafeteria",
	"Sports Complex", "Atrium", "Block C",
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if err := s.seedComments(users, posts, 600); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

// SeedTest seeds a minimal dataset for integration tests
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(5)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	posts, err := s.seedPosts(users, 10)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	return s.seedComments(users, posts, 20)
}

// Clean removes all seed data (users with @example.com emails and everything
// they created)
func (s *Seeder) Clean() error {
	var seedUsers []models.User
	if err := s.db.Where("email LIKE '%@example.com'").Find(&seedUsers).Error; err != nil {
		return err
	}

	for _, user := range seedUsers {
		s.db.Unscoped().Where("user_id = ?", user.ID).Delete(&models.Comment{})
		s.db.Unscoped().Where("user_id = ?", user.ID).Delete(&models.Post{})
		s.db.Unscoped().Delete(&user)
	}

	logger.Log.Info("Removed seed data", zap.Int("users", len(seedUsers)))
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var users []models.User

	// Check if we already have seed users (users with @example.com email)
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing users, skipping creation",
			zap.Int("total_users", len(users)),
			zap.Int64("seed_users", seedUserCount))
		return users, nil
	}

	// Default password for all dev accounts
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedPasswordStr := string(hashedPassword)

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := fmt.Sprintf("%s@example.com", username)

		// Ensure unique username/email
		var existingUser models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
			email = fmt.Sprintf("%s@example.com", username)
		}

		user := models.User{
			Email:        email,
			Username:     username,
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.Sentence(8),
			PasswordHash: &hashedPasswordStr,
			Faculty:      faculties[rand.Intn(len(faculties))],
			StudyYear:    rand.Intn(4) + 1,
			IsAdmin:      i == 0, // first seed user is an admin
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	return users, nil
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	var posts []models.Post

	postTypes := []models.PostType{
		models.PostTypeFeed,
		models.PostTypeFeed,
		models.PostTypeFeed, // weight the main feed heavier
		models.PostTypeLostFound,
		models.PostTypeConfession,
		models.PostTypeEvent,
	}

	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		postType := postTypes[rand.Intn(len(postTypes))]

		post := models.Post{
			UserID:   user.ID,
			Content:  gofakeit.Paragraph(1, 3, 10, " "),
			PostType: postType,
		}

		switch postType {
		case models.PostTypeFeed:
			post.Category = postCategories[rand.Intn(len(postCategories))]
		case models.PostTypeLostFound:
			post.Location = lostFoundLocations[rand.Intn(len(lostFoundLocations))]
		case models.PostTypeConfession:
			post.IsAnonymous = true
		case models.PostTypeEvent:
			post.Location = lostFoundLocations[rand.Intn(len(lostFoundLocations))]
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}

		// Roughly 1 in 8 feed posts gets a poll
		if postType == models.PostTypeFeed && rand.Intn(8) == 0 {
			if err := s.seedPoll(post.ID); err != nil {
				return nil, err
			}
		}

		posts = append(posts, post)
	}

	return posts, nil
}

func (s *Seeder) seedPoll(postID string) error {
	optionCount := rand.Intn(3) + 2 // 2-4 options
	poll := models.Poll{PostID: postID}
	for i := 0; i < optionCount; i++ {
		poll.Options = append(poll.Options, models.PollOption{
			Text:      gofakeit.HipsterWord(),
			Position:  i,
			VoteCount: rand.Intn(30),
		})
	}
	if err := s.db.Create(&poll).Error; err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}
	return nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]

		comment := models.Comment{
			PostID:  post.ID,
			UserID:  user.ID,
			Content: gofakeit.Sentence(rand.Intn(12) + 3),
		}

		// Confession comments are usually anonymous too
		if post.PostType == models.PostTypeConfession && rand.Intn(4) != 0 {
			comment.IsAnonymous = true
			ordinal, err := s.anonOrdinal(post.ID, user.ID)
			if err != nil {
				return err
			}
			comment.AnonOrdinal = ordinal
		}

		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

// anonOrdinal mirrors the request-path assignment: reuse an existing alias or
// claim the next counter value
func (s *Seeder) anonOrdinal(postID, userID string) (int, error) {
	var alias models.AnonymousAlias
	if err := s.db.First(&alias, "post_id = ? AND user_id = ?", postID, userID).Error; err == nil {
		return alias.Ordinal, nil
	}

	var ordinal int
	err := s.db.Raw(
		"UPDATE posts SET anon_counter = anon_counter + 1 WHERE id = ? RETURNING anon_counter",
		postID,
	).Scan(&ordinal).Error
	if err != nil {
		return 0, err
	}

	alias = models.AnonymousAlias{PostID: postID, UserID: userID, Ordinal: ordinal}
	if err := s.db.Create(&alias).Error; err != nil {
		return 0, err
	}
	return ordinal, nil
}
