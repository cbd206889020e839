package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// spotifyCatalog implements [CatalogClient] with the Spotify Web API.
type spotifyCatalog struct {
	client *spotify.Client
}

// Search returns up to limit tracks matching query.
func (c *spotifyCatalog) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(clampLimit(limit)))
	if err != nil {
		return nil, apiError("search tracks", err)
	}

	if results.Tracks == nil {
		return []models.Track{}, nil
	}
	return toTracks(results.Tracks.Tracks), nil
}

// Recommendations returns the browse view, a pop-genre search.
func (c *spotifyCatalog) Recommendations(ctx context.Context, limit int) ([]models.Track, error) {
	return c.Search(ctx, RecommendationsQuery, limit)
}

func toTracks(items []spotify.FullTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))

	for _, item := range items {
		artists := make([]models.Artist, 0, len(item.Artists))
		for _, a := range item.Artists {
			artists = append(artists, models.Artist{Name: a.Name})
		}

		images := make([]models.Image, 0, len(item.Album.Images))
		for _, img := range item.Album.Images {
			images = append(images, models.Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)})
		}

		tracks = append(tracks, models.Track{
			ID:      string(item.ID),
			Name:    item.Name,
			Artists: artists,
			Album:   models.Album{Images: images},
		})
	}

	return tracks
}
