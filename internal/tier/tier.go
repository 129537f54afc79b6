package tier

import (
	"errors"
	"fmt"
)

var ErrBadThresholds = errors.New("beta limit must be below live limit")
var ErrMissingURL = errors.New("missing tier base url")

type Tier string

const (
	Development Tier = "development"
	Beta        Tier = "beta"
	Live        Tier = "live"
)

// Router picks the deployment a game lives on from its numeric id.
// Game ids up to BetaLimit are development games, ids up to LiveLimit are
// beta games, anything above is live.
type Router struct {
	DevURL    string
	BetaURL   string
	LiveURL   string
	BetaLimit int
	LiveLimit int
}

func (r Router) Route(gameID int) Tier {
	if gameID > r.LiveLimit {
		return Live
	}
	if gameID > r.BetaLimit {
		return Beta
	}
	return Development
}

func (r Router) BaseURL(gameID int) string {
	switch r.Route(gameID) {
	case Live:
		return r.LiveURL
	case Beta:
		return r.BetaURL
	default:
		return r.DevURL
	}
}

// Validate is a configuration-time check. Route itself never fails.
func (r Router) Validate() error {
	if r.BetaLimit >= r.LiveLimit {
		return fmt.Errorf("%w: beta=%d live=%d", ErrBadThresholds, r.BetaLimit, r.LiveLimit)
	}
	for name, u := range map[string]string{"dev": r.DevURL, "beta": r.BetaURL, "live": r.LiveURL} {
		if u == "" {
			return fmt.Errorf("%w: %s", ErrMissingURL, name)
		}
	}
	return nil
}
