// Package movielens reads the MovieLens 100k dataset (ml-100k/u.data and
// ml-100k/u.item) into a ratings corpus.
package movielens

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/pkg/logger"
	"golang.org/x/text/encoding/charmap"
)

const (
	datasetDir  = "ml-100k"
	ratingsFile = "u.data"
	itemsFile   = "u.item"

	minRating = 1
	maxRating = 5
)

// Genres lists the u.item genre flag columns in file order
var Genres = []string{
	"unknown", "Action", "Adventure", "Animation", "Children", "Comedy", "Crime",
	"Documentary", "Drama", "Fantasy", "Film-Noir", "Horror", "Musical", "Mystery",
	"Romance", "Sci-Fi", "Thriller", "War", "Western",
}

// u.item columns before the genre flags: id, title, release date, video release date, IMDb URL
const itemFixedColumns = 5

// Source loads the corpus from a directory containing ml-100k/
type Source struct {
	dataDir string
	logger  *logger.Logger
}

// NewSource creates a MovieLens corpus source with defaults
func NewSource(cfg *config.CorpusConfig, log *logger.Logger) *Source {
	dataDir := "./data"
	if cfg != nil && cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	return &Source{
		dataDir: dataDir,
		logger:  log.WithComponent("movielens"),
	}
}

func (s *Source) Name() string { return "movielens" }

// Load reads items and ratings and builds the corpus
func (s *Source) Load(ctx context.Context) (*catalog.Corpus, error) {
	root := filepath.Join(s.dataDir, datasetDir)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("expected folder not found: %s", root)
	}

	items, err := readFile(filepath.Join(root, itemsFile), ReadItems)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ratings, err := readFile(filepath.Join(root, ratingsFile), ReadRatings)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpus, err := catalog.New(items, ratings, catalog.WithValueRange(minRating, maxRating))
	if err != nil {
		return nil, fmt.Errorf("build corpus from %s: %w", root, err)
	}

	s.logger.Info(fmt.Sprintf("Loaded %d movies and %d ratings from %s", corpus.NumItems(), corpus.NumRatings(), root))
	return corpus, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// ReadRatings parses tab-separated "user item rating timestamp" lines
func ReadRatings(r io.Reader) ([]catalog.Rating, error) {
	var ratings []catalog.Rating
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 fields, got %d", line, len(fields))
		}

		user, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid user id %q", line, fields[0])
		}
		item, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid item id %q", line, fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rating %q", line, fields[2])
		}

		ratings = append(ratings, catalog.Rating{
			UserID: catalog.UserID(user),
			ItemID: catalog.ItemID(item),
			Value:  value,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

// ReadItems parses the latin-1 encoded, pipe-separated movie list
func ReadItems(r io.Reader) ([]catalog.Item, error) {
	var items []catalog.Item
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 fields, got %d", line, len(fields))
		}

		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid movie id %q", line, fields[0])
		}

		items = append(items, catalog.Item{
			ID:     catalog.ItemID(id),
			Title:  strings.TrimSpace(fields[1]),
			Genres: parseGenres(fields),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func parseGenres(fields []string) []string {
	genres := make([]string, 0, 2)
	for i, name := range Genres {
		col := itemFixedColumns + i
		if col < len(fields) && strings.TrimSpace(fields[col]) == "1" {
			genres = append(genres, name)
		}
	}
	return genres
}
