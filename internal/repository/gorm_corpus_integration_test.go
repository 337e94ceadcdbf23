//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/pkg/database"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/stretchr/testify/suite"
)

// CorpusSourceSuite runs against the database named by the DB_* environment variables
type CorpusSourceSuite struct {
	suite.Suite
	source *GORMCorpusSource
}

func (s *CorpusSourceSuite) SetupSuite() {
	log, err := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "console"})
	s.Require().NoError(err)

	db, err := database.NewConnection(context.Background(), &config.DatabaseConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
	})
	s.Require().NoError(err)

	s.source = NewGORMCorpusSource(db, log)
	s.Require().NoError(s.source.Migrate(context.Background()))
	s.Require().NoError(db.Exec("TRUNCATE ratings, movies").Error)
}

func (s *CorpusSourceSuite) TestSeedAndLoad() {
	items := []catalog.Item{
		{ID: 1, Title: "Inception (2010)", Genres: []string{"Sci-Fi"}},
		{ID: 2, Title: "Interstellar (2014)", Genres: []string{"Drama", "Sci-Fi"}},
	}
	ratings := []catalog.Rating{
		{UserID: 1, ItemID: 1, Value: 5},
		{UserID: 1, ItemID: 2, Value: 4},
		{UserID: 2, ItemID: 2, Value: 5},
	}
	corpus, err := catalog.New(items, ratings)
	s.Require().NoError(err)

	ctx := context.Background()
	s.Require().NoError(s.source.Seed(ctx, corpus))
	// seeding twice upserts instead of failing on the primary keys
	s.Require().NoError(s.source.Seed(ctx, corpus))

	loaded, err := s.source.Load(ctx)
	s.Require().NoError(err)
	s.Equal(2, loaded.NumItems())
	s.Equal(3, loaded.NumRatings())
	s.Equal([]string{"Drama", "Sci-Fi"}, mustItem(s, loaded, 2).Genres)
}

func mustItem(s *CorpusSourceSuite, c *catalog.Corpus, id catalog.ItemID) catalog.Item {
	item, ok := c.Item(id)
	s.Require().True(ok)
	return item
}

func TestCorpusSourceSuite(t *testing.T) {
	suite.Run(t, new(CorpusSourceSuite))
}
