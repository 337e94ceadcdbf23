package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/movielens"
	"github.com/dustin/movie-recommender/internal/repository"
	"github.com/dustin/movie-recommender/pkg/database"
	"github.com/dustin/movie-recommender/pkg/logger"
)

// seed copies a MovieLens 100K dataset into the Postgres corpus tables
func main() {
	dataDir := flag.String("data", "", "directory containing ml-100k/ (overrides CORPUS_DATA_DIR)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall seed timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if *dataDir != "" {
		cfg.Corpus.DataDir = *dataDir
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	corpus, err := movielens.NewSource(&cfg.Corpus, log).Load(ctx)
	if err != nil {
		log.Fatal("Failed to load MovieLens corpus: " + err.Error())
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: " + err.Error())
	}

	store := repository.NewGORMCorpusSource(db, log)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate database: " + err.Error())
	}
	if err := store.Seed(ctx, corpus); err != nil {
		log.Fatal("Failed to seed database: " + err.Error())
	}

	log.Info(fmt.Sprintf("Seeded %d movies and %d ratings", corpus.NumItems(), corpus.NumRatings()))
}
