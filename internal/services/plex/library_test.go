package plex

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"plexgif/internal/services"
)

func TestListLibrariesPreservesOrderAndTitles(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections": xmlBody(sectionsFixture),
	})
	client := newTestClient(t, srv.URL, "secret-token")

	libs, err := client.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	want := []Library{
		{ID: "1", Title: "Movies", Type: LibraryMovie},
		{ID: "2", Title: "TV Shows", Type: LibraryShow},
	}
	if !reflect.DeepEqual(libs, want) {
		t.Fatalf("unexpected libraries: %#v", libs)
	}

	reqs := srv.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if got := reqs[0].Query["X-Plex-Token"]; len(got) != 1 || got[0] != "secret-token" {
		t.Fatalf("expected token query parameter, got %v", got)
	}
	if reqs[0].Header.Get("X-Plex-Token") != "secret-token" {
		t.Fatal("expected token header")
	}
	if reqs[0].Header.Get("X-Plex-Client-Identifier") != "test-client" {
		t.Fatal("expected client identifier header")
	}
}

func TestParseLibrariesDefaultsMissingAttributes(t *testing.T) {
	payload := []byte(`<MediaContainer><Directory /><Directory key="7" title="Kids"/></MediaContainer>`)
	libs, err := ParseLibraries(payload)
	if err != nil {
		t.Fatalf("ParseLibraries: %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("expected 2 libraries, got %d", len(libs))
	}
	if libs[0] != (Library{ID: "", Title: "Untitled", Type: LibraryUnknown}) {
		t.Fatalf("unexpected defaults: %#v", libs[0])
	}
	if libs[1].Title != "Kids" || libs[1].Type != LibraryUnknown {
		t.Fatalf("unexpected second library: %#v", libs[1])
	}
	for _, lib := range libs {
		if lib.Title == "" {
			t.Fatal("library titles must never be empty")
		}
	}
}

func TestListLibrariesUnauthorized(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		},
	})
	client := newTestClient(t, srv.URL, "bad")

	libs, err := client.ListLibraries(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if len(libs) != 0 {
		t.Fatalf("expected zero libraries, got %d", len(libs))
	}
	var transportErr *services.TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected TransportError with 401, got %#v", err)
	}
}

func TestListLibrariesServerErrorIsTransport(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	client := newTestClient(t, srv.URL, "")

	_, err := client.ListLibraries(context.Background())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if errors.Is(err, services.ErrAuthorization) {
		t.Fatal("500 must not classify as authorization")
	}
}

func TestListLibrariesMalformedXML(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections": xmlBody("<MediaContainer><Directory"),
	})
	client := newTestClient(t, srv.URL, "")

	_, err := client.ListLibraries(context.Background())
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestListEpisodesCopiesMovieFlag(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/metadata/8405/allLeaves": xmlBody(episodesFixture),
	})
	client := newTestClient(t, srv.URL, "")

	for _, isMovie := range []bool{false, true} {
		items, err := client.ListEpisodes(context.Background(), "8405", isMovie)
		if err != nil {
			t.Fatalf("ListEpisodes: %v", err)
		}
		if len(items) != 5 {
			t.Fatalf("expected 5 episodes, got %d", len(items))
		}
		for _, item := range items {
			if item.IsMovie != isMovie {
				t.Fatalf("expected IsMovie=%v, got %#v", isMovie, item)
			}
		}
		if items[0].ID != "8407" || items[0].Title != "Part 1" || items[4].ID != "8411" {
			t.Fatalf("unexpected order: %#v", items)
		}
	}
}

func TestListEpisodesEmpty(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/metadata/1/allLeaves": xmlBody(`<MediaContainer size="0"></MediaContainer>`),
	})
	client := newTestClient(t, srv.URL, "")

	items, err := client.ListEpisodes(context.Background(), "1", false)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestListShowsSkipsIncompleteDirectories(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections/2/all": xmlBody(showsFixture),
	})
	client := newTestClient(t, srv.URL, "")

	shows, err := client.ListShowsOrFlatItems(context.Background(), "2")
	if err != nil {
		t.Fatalf("ListShowsOrFlatItems: %v", err)
	}
	want := []MediaItem{
		{ID: "8405", Title: "The 10th Kingdom"},
		{ID: "9100", Title: "Twin Peaks"},
	}
	if !reflect.DeepEqual(shows, want) {
		t.Fatalf("unexpected shows: %#v", shows)
	}
}

func TestListShowsFallsBackToMovieListing(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections/1/all": xmlBody(episodesFixture),
	})
	client := newTestClient(t, srv.URL, "")

	flat, err := client.ListShowsOrFlatItems(context.Background(), "1")
	if err != nil {
		t.Fatalf("ListShowsOrFlatItems: %v", err)
	}
	movies, err := client.ListMovies(context.Background(), "1", true)
	if err != nil {
		t.Fatalf("ListMovies: %v", err)
	}
	if !reflect.DeepEqual(flat, movies) {
		t.Fatalf("fallback mismatch:\nflat=%#v\nmovies=%#v", flat, movies)
	}
	if len(flat) != 5 || !flat[0].IsMovie {
		t.Fatalf("expected 5 movie items, got %#v", flat)
	}
}

func TestListMoviesFallsBackToDirectories(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /library/sections/2/all": xmlBody(showsFixture),
	})
	client := newTestClient(t, srv.URL, "")

	items, err := client.ListMovies(context.Background(), "2", false)
	if err != nil {
		t.Fatalf("ListMovies: %v", err)
	}
	if len(items) != 2 || items[1].Title != "Twin Peaks" {
		t.Fatalf("unexpected directory fallback: %#v", items)
	}
}

func TestNewServerConfigRejectsRelativeURI(t *testing.T) {
	for _, raw := range []string{"", "plex.local:32400", "/library", "http://"} {
		if _, err := NewServerConfig(raw, "tok"); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %q, got %v", raw, err)
		}
	}
	cfg, err := NewServerConfig("http://127.0.0.1:32400/", "")
	if err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
	if cfg.BaseURL.String() != "http://127.0.0.1:32400" {
		t.Fatalf("unexpected normalized base: %q", cfg.BaseURL.String())
	}
}

func TestWithConfigurationBuildsIndependentClient(t *testing.T) {
	first := newTestClient(t, "http://one.local:32400", "a")
	second, err := first.WithConfiguration("http://two.local:32400", "b")
	if err != nil {
		t.Fatalf("WithConfiguration: %v", err)
	}
	if first.Config().BaseURL.Host != "one.local:32400" || first.Config().Token != "a" {
		t.Fatal("original client must keep its configuration")
	}
	if second.Config().BaseURL.Host != "two.local:32400" || second.Config().Token != "b" {
		t.Fatalf("unexpected new configuration: %#v", second.Config())
	}
	if _, err := first.WithConfiguration("not a uri", "c"); err == nil {
		t.Fatal("expected invalid URI to fail")
	}
}
