package plex

import (
	"context"
	"net/url"
	"strings"

	"plexgif/internal/logging"
)

// LibraryType names the section types the UI distinguishes.
type LibraryType string

const (
	LibraryMovie   LibraryType = "movie"
	LibraryShow    LibraryType = "show"
	LibraryUnknown LibraryType = "Unknown"
)

// Library is one library section on the server.
type Library struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Type  LibraryType `json:"type"`
}

// MediaItem is a show, movie, or episode identified by its rating key.
type MediaItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	IsMovie bool   `json:"is_movie"`
}

// ListLibraries returns every library section in document order.
func (c *Client) ListLibraries(ctx context.Context) ([]Library, error) {
	payload, err := c.get(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	return ParseLibraries(payload)
}

// ParseLibraries decodes a /library/sections document. Missing attributes
// default to "" (key), "Untitled" (title), and "Unknown" (type).
func ParseLibraries(payload []byte) ([]Library, error) {
	doc, err := decodeContainer(payload)
	if err != nil {
		return nil, err
	}
	libraries := make([]Library, 0, len(doc.Directories))
	for _, dir := range doc.Directories {
		lib := Library{Title: "Untitled", Type: LibraryUnknown}
		if dir.Key != nil {
			lib.ID = *dir.Key
		}
		if dir.Title != nil && strings.TrimSpace(*dir.Title) != "" {
			lib.Title = *dir.Title
		}
		if dir.Type != nil && strings.TrimSpace(*dir.Type) != "" {
			lib.Type = LibraryType(*dir.Type)
		}
		libraries = append(libraries, lib)
	}
	return libraries, nil
}

// ListEpisodes returns every leaf video under a show or season. isMovie is
// copied onto each item unchanged.
func (c *Client) ListEpisodes(ctx context.Context, key string, isMovie bool) ([]MediaItem, error) {
	payload, err := c.get(ctx, "/library/metadata/"+url.PathEscape(key)+"/allLeaves", nil)
	if err != nil {
		return nil, err
	}
	items, err := ParseVideos(payload, isMovie)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.logger.Info("no episodes found", logging.String("key", key))
	}
	return items, nil
}

// ListShowsOrFlatItems returns the shows in a library section. Sections that
// hold videos directly fall back to the movie listing over the same document.
func (c *Client) ListShowsOrFlatItems(ctx context.Context, libraryKey string) ([]MediaItem, error) {
	payload, err := c.get(ctx, sectionAllPath(libraryKey), nil)
	if err != nil {
		return nil, err
	}
	doc, err := decodeContainer(payload)
	if err != nil {
		return nil, err
	}
	if len(doc.Directories) == 0 {
		c.logger.Debug("section has no directories; listing videos", logging.String("library", libraryKey))
		return moviesFromDocument(doc, true), nil
	}
	return directoriesAsItems(doc, false), nil
}

// ListMovies returns the videos in a library section, falling back to
// directory entries when the section holds none.
func (c *Client) ListMovies(ctx context.Context, libraryKey string, isMovie bool) ([]MediaItem, error) {
	payload, err := c.get(ctx, sectionAllPath(libraryKey), nil)
	if err != nil {
		return nil, err
	}
	doc, err := decodeContainer(payload)
	if err != nil {
		return nil, err
	}
	items := moviesFromDocument(doc, isMovie)
	if len(items) == 0 {
		c.logger.Info("no movies found", logging.String("library", libraryKey))
	}
	return items, nil
}

// ParseVideos maps every <Video> element to a MediaItem.
func ParseVideos(payload []byte, isMovie bool) ([]MediaItem, error) {
	doc, err := decodeContainer(payload)
	if err != nil {
		return nil, err
	}
	items := make([]MediaItem, 0, len(doc.Videos))
	for _, v := range doc.Videos {
		items = append(items, MediaItem{ID: v.RatingKey, Title: v.Title, IsMovie: isMovie})
	}
	return items, nil
}

func moviesFromDocument(doc *mediaContainer, isMovie bool) []MediaItem {
	items := make([]MediaItem, 0, len(doc.Videos))
	for _, v := range doc.Videos {
		if v.RatingKey == "" || v.Title == "" {
			continue
		}
		items = append(items, MediaItem{ID: v.RatingKey, Title: v.Title, IsMovie: isMovie})
	}
	if len(items) > 0 {
		return items
	}
	return directoriesAsItems(doc, isMovie)
}

func directoriesAsItems(doc *mediaContainer, isMovie bool) []MediaItem {
	items := make([]MediaItem, 0, len(doc.Directories))
	for _, d := range doc.Directories {
		if d.RatingKey == "" || d.Title == nil || *d.Title == "" {
			continue
		}
		items = append(items, MediaItem{ID: d.RatingKey, Title: *d.Title, IsMovie: isMovie})
	}
	return items
}

func sectionAllPath(libraryKey string) string {
	return "/library/sections/" + url.PathEscape(libraryKey) + "/all"
}
