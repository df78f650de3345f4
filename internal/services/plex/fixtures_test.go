package plex

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const sectionsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="2" allowSync="0" title1="Plex Library">
<Directory allowSync="1" key="1" type="movie" title="Movies" agent="com.plexapp.agents.imdb">
<Location id="11" path="/mnt/storage/movies" />
</Directory>
<Directory allowSync="1" key="2" type="show" title="TV Shows" agent="com.plexapp.agents.thetvdb">
<Location id="17" path="/mnt/storage/tv" />
</Directory>
</MediaContainer>`

const episodesFixture = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="5" key="8405" title2="The 10th Kingdom" viewGroup="episode">
<Video ratingKey="8407" key="/library/metadata/8407" type="episode" title="Part 1" duration="5368532">
<Media id="14332" duration="5368532" container="mkv"><Part id="14333" key="/library/parts/14333/1548421685/file.mkv" container="mkv" /></Media>
</Video>
<Video ratingKey="8408" key="/library/metadata/8408" type="episode" title="Part 3" duration="5299924">
<Media id="14333" container="mkv"><Part id="14334" key="/library/parts/14334/1548421685/file.mkv" container="mkv" /></Media>
</Video>
<Video ratingKey="8409" key="/library/metadata/8409" type="episode" title="Part 5" duration="5342804">
<Media id="14334" container="mkv"><Part id="14335" key="/library/parts/14335/1548421685/file.mkv" container="mkv" /></Media>
</Video>
<Video ratingKey="8410" key="/library/metadata/8410" type="episode" title="Part 7" duration="5297747">
<Media id="14335" container="mkv"><Part id="14336" key="/library/parts/14336/1548421685/file.mkv" container="mkv" /></Media>
</Video>
<Video ratingKey="8411" key="/library/metadata/8411" type="episode" title="Part 9" duration="5290004">
<Media id="14336" container="mkv"><Part id="14337" key="/library/parts/14337/1548421685/file.mkv" container="mkv" /></Media>
</Video>
</MediaContainer>`

const showsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="3" librarySectionID="2">
<Directory ratingKey="8405" key="/library/metadata/8405/children" type="show" title="The 10th Kingdom" />
<Directory ratingKey="9100" key="/library/metadata/9100/children" type="show" title="Twin Peaks" />
<Directory ratingKey="" key="/library/metadata/0/children" type="show" title="Broken" />
</MediaContainer>`

const itemFixture = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
<Video ratingKey="8407" title="Part 1" duration="5368532">
<Media id="14332" container="mkv">
<Part id="14333" key="/library/parts/14333/1548421685/file.mkv" container="mkv">
<Stream id="1" streamType="1" codec="hevc" index="0" />
<Stream id="2" streamType="2" codec="aac" index="1" languageCode="eng" />
<Stream id="3" streamType="3" codec="srt" index="2" language="Français" languageCode="fra" displayTitle="Français (SRT)" />
<Stream id="4" streamType="3" codec="pgs" index="3" language="English" languageCode="eng" displayTitle="English (PGS)" />
<Stream id="5" streamType="3" codec="srt" key="/library/streams/5" language="English" languageCode="eng" displayTitle="English (SRT External)" />
<Stream id="6" streamType="3" codec="ass" index="4" />
</Part>
</Media>
</Video>
</MediaContainer>`

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeServer serves routes keyed by "METHOD /path".
func newFakeServer(t *testing.T, routes map[string]func(http.ResponseWriter, *http.Request)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone()})
		fs.mu.Unlock()
		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func xmlBody(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	cfg, err := NewServerConfig(baseURL, token)
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	return NewClient(cfg, WithClientIdentifier("test-client"))
}
