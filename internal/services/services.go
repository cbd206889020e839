// package services wraps the Spotify accounts service and Web API
package services

import (
	"context"

	"github.com/desertthunder/songstream/internal/models"
)

const (
	// DefaultLimit is the page size the catalog endpoints return when none is given.
	DefaultLimit = 12
	// MaxLimit is the largest page the provider accepts.
	MaxLimit = 50
	// RecommendationsQuery seeds the browse endpoint.
	RecommendationsQuery = "genre:pop"
)

// Profile is the authenticated identity reported by the provider.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// CatalogClient searches the metadata catalog on behalf of either the app or a user.
type CatalogClient interface {
	// Search returns up to limit tracks matching query.
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)

	// Recommendations returns up to limit tracks for the default browse view.
	Recommendations(ctx context.Context, limit int) ([]models.Track, error)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
