package models

// Track is a catalog track in the shape served to clients.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
}

// Artist is a credited track artist.
type Artist struct {
	Name string `json:"name"`
}

// Album carries the artwork for a track's album.
type Album struct {
	Images []Image `json:"images"`
}

// Image is an artwork rendition.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}
