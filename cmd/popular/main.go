package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/movielens"
	"github.com/dustin/movie-recommender/internal/popular"
	"github.com/dustin/movie-recommender/pkg/logger"
)

// popular prints the mean-rating baseline for a MovieLens 100K dataset
func main() {
	dataDir := flag.String("data", "./data", "directory containing ml-100k/")
	n := flag.Int("n", 20, "number of movies to print")
	minRatings := flag.Int("min-ratings", popular.DefaultMinRatings, "ratings a movie needs to be listed")
	flag.Parse()

	log, err := logger.NewLogger(&config.LoggingConfig{Level: "warn", Format: "console", ServiceName: "popular"})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	corpus, err := movielens.NewSource(&config.CorpusConfig{DataDir: *dataDir}, log).Load(context.Background())
	if err != nil {
		log.Fatal("Failed to load corpus: " + err.Error())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tID\tMEAN\tRATINGS\tTITLE")
	for i, e := range popular.Rank(corpus, *n, *minRatings, nil) {
		fmt.Fprintf(w, "%d\t%d\t%.3f\t%d\t%s\n", i+1, e.ItemID, e.Mean, e.RatingCount, e.Title)
	}
	if err := w.Flush(); err != nil {
		log.Fatal("Failed to write output: " + err.Error())
	}
}
