package gifmaker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"plexgif/internal/clip"
	"plexgif/internal/config"
	"plexgif/internal/history"
	"plexgif/internal/testsupport"
)

// French is listed first; the English sidecar carries no languageCode.
const itemXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
<Video ratingKey="8407" title="Pilot" duration="1200000">
<Media container="mkv">
<Part key="/library/parts/1/file.mkv" container="mkv">
<Stream id="1" streamType="1" codec="h264" index="0" />
<Stream id="10" streamType="3" codec="srt" key="/library/streams/10" language="Français" languageCode="fra" displayTitle="Français (SRT External)" />
<Stream id="11" streamType="3" codec="srt" key="/library/streams/11" language="English" displayTitle="English (SRT External)" />
</Part>
</Media>
</Video>
</MediaContainer>`

const embeddedItemXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
<Video ratingKey="9000" title="Movie" duration="600000">
<Media container="mkv">
<Part key="/library/parts/9/file.mkv" container="mkv">
<Stream id="1" streamType="1" codec="hevc" index="0" />
<Stream id="20" streamType="3" codec="pgs" index="2" language="Deutsch" languageCode="deu" displayTitle="Deutsch (PGS)" />
<Stream id="21" streamType="3" codec="srt" index="3" language="Español" languageCode="spa" displayTitle="Español (SRT)" />
</Part>
</Media>
</Video>
</MediaContainer>`

const noPartXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
<Video ratingKey="1" title="Trailer" duration="1000" />
</MediaContainer>`

const sidecarSRT = "1\n00:00:00,500 --> 00:00:01,000\nSubtitles by OpenSubtitles.org\n\n" +
	"2\n00:00:01,000 --> 00:00:02,500\nHello there, how are you doing today?\n\n" +
	"3\n00:00:03,000 --> 00:00:04,000\nI am doing very well, thank you for asking.\n"

type plexStub struct {
	*httptest.Server
	mu     sync.Mutex
	paths  []string
	routes map[string]func(http.ResponseWriter, *http.Request)
}

func newPlexStub(t *testing.T) *plexStub {
	t.Helper()
	stub := &plexStub{routes: map[string]func(http.ResponseWriter, *http.Request){
		"/library/metadata/8407": xmlRoute(itemXML),
		"/library/metadata/9000": xmlRoute(embeddedItemXML),
		"/library/metadata/1":    xmlRoute(noPartXML),
		"/library/streams/11":    textRoute(sidecarSRT),
		"/library/streams/10":    textRoute("1\n00:00:01,000 --> 00:00:02,000\nBonjour à tous, comment allez-vous?\n"),
	}}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.paths = append(stub.paths, r.URL.Path)
		handler, ok := stub.routes[r.URL.Path]
		stub.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *plexStub) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *plexStub) count(path string) int {
	n := 0
	for _, p := range s.requests() {
		if p == path {
			n++
		}
	}
	return n
}

func (s *plexStub) setRoute(path string, handler func(http.ResponseWriter, *http.Request)) {
	s.mu.Lock()
	s.routes[path] = handler
	s.mu.Unlock()
}

func xmlRoute(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}
}

func textRoute(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}
}

type ffmpegCall struct {
	name string
	args []string
}

// fakeFFmpeg writes a stand-in GIF to the last argument unless fail is set.
type fakeFFmpeg struct {
	t     *testing.T
	mu    sync.Mutex
	calls []ffmpegCall
	fail  error
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ffmpegCall{name: name, args: append([]string(nil), args...)})
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return []byte("Invalid data found when processing input"), fail
	}
	testsupport.WriteClip(f.t, args[len(args)-1], 64)
	return []byte("frame=30"), nil
}

func (f *fakeFFmpeg) recorded() []ffmpegCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ffmpegCall(nil), f.calls...)
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (h *fakeHistory) Add(_ context.Context, rec history.Record) (history.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return history.Record{}, h.err
	}
	rec.ID = int64(len(h.records) + 1)
	h.records = append(h.records, rec)
	return rec, nil
}

func (h *fakeHistory) List(_ context.Context, _ history.ListOptions) ([]history.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Record(nil), h.records...), nil
}

func (h *fakeHistory) all() []history.Record {
	records, _ := h.List(context.Background(), history.ListOptions{})
	return records
}

func newTestService(t *testing.T, stub *plexStub, ff *fakeFFmpeg, h HistoryRecorder, opts ...testsupport.ConfigOption) (*Service, *config.Config) {
	t.Helper()
	if stub != nil {
		opts = append([]testsupport.ConfigOption{testsupport.WithPlexServer(stub.URL, "secret-token")}, opts...)
	}
	cfg := testsupport.NewConfig(t, opts...)
	renderer := clip.NewRenderer(clip.SettingsFromConfig(cfg), clip.WithCommandRunner(ff.run))
	svcOpts := []Option{WithRenderer(renderer)}
	if h != nil {
		svcOpts = append(svcOpts, WithHistory(h))
	}
	svc, err := New(cfg, svcOpts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, cfg
}
