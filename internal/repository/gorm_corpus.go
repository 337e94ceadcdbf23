package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 5000

// Movie is the catalog row
type Movie struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Title     string    `gorm:"not null;size:500;index"`
	Genres    string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (Movie) TableName() string {
	return "movies"
}

// Rating is one user's rating of one movie; (user_id, movie_id) is unique
type Rating struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_ratings_user_movie"`
	MovieID   int64     `gorm:"not null;uniqueIndex:idx_ratings_user_movie;index"`
	Score     float64   `gorm:"not null;check:score >= 1 AND score <= 5"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Movie Movie `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Rating) TableName() string {
	return "ratings"
}

// GORMCorpusSource loads the ratings corpus from Postgres
type GORMCorpusSource struct {
	db        *gorm.DB
	batchSize int
	logger    *logger.Logger
}

// NewGORMCorpusSource creates a new GORM-based corpus source
func NewGORMCorpusSource(db *gorm.DB, log *logger.Logger) *GORMCorpusSource {
	return &GORMCorpusSource{
		db:        db,
		batchSize: defaultBatchSize,
		logger:    log.WithComponent("gorm-corpus-source"),
	}
}

func (r *GORMCorpusSource) Name() string { return "postgres" }

// Migrate creates or updates the movies and ratings tables
func (r *GORMCorpusSource) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&Movie{}, &Rating{}); err != nil {
		return fmt.Errorf("failed to migrate corpus tables: %w", err)
	}
	return nil
}

// Load reads all movies and streams ratings in batches
func (r *GORMCorpusSource) Load(ctx context.Context) (*catalog.Corpus, error) {
	db := r.db.WithContext(ctx)

	var movies []Movie
	if err := db.Order("id").Find(&movies).Error; err != nil {
		r.logger.Error("Failed to load movies: " + err.Error())
		return nil, fmt.Errorf("database error: %w", err)
	}

	items := make([]catalog.Item, len(movies))
	for i, m := range movies {
		items[i] = m.toItem()
	}

	var ratings []catalog.Rating
	var batch []Rating
	result := db.FindInBatches(&batch, r.batchSize, func(tx *gorm.DB, n int) error {
		for _, row := range batch {
			ratings = append(ratings, row.toRating())
		}
		return ctx.Err()
	})
	if err := result.Error; err != nil {
		r.logger.Error("Failed to load ratings: " + err.Error())
		return nil, fmt.Errorf("database error: %w", err)
	}

	corpus, err := catalog.New(items, ratings, catalog.WithValueRange(1, 5))
	if err != nil {
		return nil, fmt.Errorf("build corpus from database: %w", err)
	}

	r.logger.Info(fmt.Sprintf("Loaded %d movies and %d ratings from database", corpus.NumItems(), corpus.NumRatings()))
	return corpus, nil
}

// Seed upserts a corpus into the database, e.g. after reading MovieLens files
func (r *GORMCorpusSource) Seed(ctx context.Context, corpus *catalog.Corpus) error {
	items := corpus.Items()
	movies := make([]Movie, len(items))
	for i, item := range items {
		movies[i] = fromItem(item)
	}

	var ratings []Rating
	for _, u := range corpus.UserIDs() {
		for _, ir := range corpus.UserRatings(u) {
			ratings = append(ratings, Rating{UserID: int64(u), MovieID: int64(ir.Item), Score: ir.Value})
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(movies) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(movies, r.batchSize).Error; err != nil {
				return fmt.Errorf("failed to seed movies: %w", err)
			}
		}
		if len(ratings) > 0 {
			onRating := clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
			}
			if err := tx.Clauses(onRating).Omit("Movie").CreateInBatches(ratings, r.batchSize).Error; err != nil {
				return fmt.Errorf("failed to seed ratings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Seeding failed: " + err.Error())
		return err
	}

	r.logger.Info(fmt.Sprintf("Seeded %d movies and %d ratings", len(movies), len(ratings)))
	return nil
}

func (m Movie) toItem() catalog.Item {
	return catalog.Item{
		ID:     catalog.ItemID(m.ID),
		Title:  m.Title,
		Genres: splitGenres(m.Genres),
	}
}

func fromItem(item catalog.Item) Movie {
	return Movie{
		ID:     int64(item.ID),
		Title:  item.Title,
		Genres: strings.Join(item.Genres, "|"),
	}
}

func (r Rating) toRating() catalog.Rating {
	return catalog.Rating{
		UserID: catalog.UserID(r.UserID),
		ItemID: catalog.ItemID(r.MovieID),
		Value:  r.Score,
	}
}

func splitGenres(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "|")
}
