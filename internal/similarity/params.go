package similarity

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/dustin/movie-recommender/config"
)

// Centering selects how ratings are transformed before the dot product
type Centering string

const (
	// CenteringNone uses raw rating values
	CenteringNone Centering = "none"
	// CenteringUserMean subtracts each user's mean rating first
	CenteringUserMean Centering = "user_mean"
)

// ConfiguredCentering is used by ParamsFromConfig when no centering is configured.
// DefaultParams keeps raw ratings.
const ConfiguredCentering = CenteringUserMean

// Params controls index construction
type Params struct {
	// K is the number of neighbors kept per item
	K int
	// MinCoRaters drops pairs rated by fewer users
	MinCoRaters int
	// Shrinkage discounts pairs with few co-raters: sim * n / (n + Shrinkage)
	Shrinkage float64
	Centering Centering
	// Workers bounds the parallelism of per-item neighbor selection
	Workers int
}

// DefaultParams returns the parameters used when nothing is configured
func DefaultParams() Params {
	return Params{
		K:           50,
		MinCoRaters: 1,
		Shrinkage:   10,
		Centering:   CenteringNone,
		Workers:     runtime.GOMAXPROCS(0),
	}
}

// Validate reports parameters that cannot produce an index
func (p Params) Validate() error {
	if p.K <= 0 {
		return fmt.Errorf("neighbors must be positive, got %d", p.K)
	}
	if p.MinCoRaters < 1 {
		return fmt.Errorf("min co-raters must be at least 1, got %d", p.MinCoRaters)
	}
	if p.Shrinkage < 0 {
		return fmt.Errorf("shrinkage must not be negative, got %g", p.Shrinkage)
	}
	switch p.Centering {
	case CenteringNone, CenteringUserMean:
	default:
		return fmt.Errorf("unknown centering %q", p.Centering)
	}
	return nil
}

// ParamsFromConfig converts raw engine configuration, applying defaults for empty
// values. Unlike DefaultParams, an unset centering means ConfiguredCentering.
func ParamsFromConfig(cfg *config.EngineConfig) (Params, error) {
	p := DefaultParams()
	p.Centering = ConfiguredCentering
	if cfg == nil {
		return p, nil
	}

	if cfg.Neighbors != "" {
		k, err := strconv.Atoi(cfg.Neighbors)
		if err != nil {
			return p, fmt.Errorf("invalid neighbors '%s': %v", cfg.Neighbors, err)
		}
		p.K = k
	}

	if cfg.MinCoRaters != "" {
		n, err := strconv.Atoi(cfg.MinCoRaters)
		if err != nil {
			return p, fmt.Errorf("invalid min co-raters '%s': %v", cfg.MinCoRaters, err)
		}
		p.MinCoRaters = n
	}

	if cfg.Shrinkage != "" {
		s, err := strconv.ParseFloat(cfg.Shrinkage, 64)
		if err != nil {
			return p, fmt.Errorf("invalid shrinkage '%s': %v", cfg.Shrinkage, err)
		}
		p.Shrinkage = s
	}

	if cfg.Centering != "" {
		p.Centering = Centering(cfg.Centering)
	}

	return p, p.Validate()
}
