package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plexgif/internal/clip"
	"plexgif/internal/gifmaker"
	"plexgif/internal/testsupport"
)

const sectionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="2">
<Directory key="1" title="Movies" type="movie" />
<Directory key="2" title="TV Shows" type="show" />
</MediaContainer>`

const itemXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
<Video ratingKey="8407" title="Pilot" duration="1200000">
<Media container="mp4">
<Part key="/library/parts/1/file.mp4" container="mp4" />
</Media>
</Video>
</MediaContainer>`

type fakePlex struct {
	*httptest.Server
	mu     sync.Mutex
	counts map[string]int
	status int
}

func newFakePlex(t *testing.T) *fakePlex {
	t.Helper()
	f := &fakePlex{counts: make(map[string]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.counts[r.URL.Path]++
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		switch r.URL.Path {
		case "/library/sections":
			_, _ = w.Write([]byte(sectionsXML))
		case "/library/metadata/8407":
			_, _ = w.Write([]byte(itemXML))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakePlex) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

func (f *fakePlex) fail(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func writeGIF(t *testing.T) clip.CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		testsupport.WriteClip(t, args[len(args)-1], 32)
		return nil, nil
	}
}

func newTestServer(t *testing.T, plex *fakePlex, opts ...testsupport.ConfigOption) *Server {
	t.Helper()
	if plex != nil {
		opts = append([]testsupport.ConfigOption{testsupport.WithPlexServer(plex.URL, "secret")}, opts...)
	}
	cfg := testsupport.NewConfig(t, opts...)
	renderer := clip.NewRenderer(clip.SettingsFromConfig(cfg), clip.WithCommandRunner(writeGIF(t)))
	svc, err := gifmaker.New(cfg, gifmaker.WithRenderer(renderer))
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	srv, err := NewServer(svc)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestListLibrariesIsCached(t *testing.T) {
	plex := newFakePlex(t)
	srv := newTestServer(t, plex)

	rec := do(t, srv, http.MethodGet, "/api/libraries", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LibrariesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Libraries, 2)
	assert.Equal(t, "Movies", resp.Libraries[0].Title)
	assert.Equal(t, "TV Shows", resp.Libraries[1].Title)

	rec = do(t, srv, http.MethodGet, "/api/libraries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, plex.count("/library/sections"))

	rec = do(t, srv, http.MethodGet, "/api/libraries?opn", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, plex.count("/library/sections"))
}

func TestUpstreamUnauthorizedMapsTo401(t *testing.T) {
	plex := newFakePlex(t)
	plex.fail(http.StatusUnauthorized)
	srv := newTestServer(t, plex)

	rec := do(t, srv, http.MethodGet, "/api/libraries", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Hint)
	assert.NotContains(t, resp.Error, "secret")

	plex.fail(0)
	rec = do(t, srv, http.MethodGet, "/api/libraries", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "error responses must not be cached")
}

func TestCreateClipValidationAndStaticServing(t *testing.T) {
	plex := newFakePlex(t)
	srv := newTestServer(t, plex)

	rec := do(t, srv, http.MethodPost, "/api/clips", map[string]any{"item_id": "8407", "start_ms": 2000, "end_ms": 2000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, plex.count("/library/metadata/8407"))

	rec = do(t, srv, http.MethodPost, "/api/clips", map[string]any{"item_id": "8407", "start_ms": 0, "end_ms": 1500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ClipResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/gifs/8407_00h00m00s000ms_to_00h00m01s500ms.gif", resp.Clip.WebPath)
	assert.Equal(t, "none", resp.Clip.Subtitle)

	rec = do(t, srv, http.MethodGet, resp.Clip.WebPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("GIF89a")))

	rec = do(t, srv, http.MethodGet, "/api/clips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerTimeoutAppliesToAPIOnly(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sectionsXML))
	}))
	t.Cleanup(slow.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithPlexServer(slow.URL, "secret"))
	svc, err := gifmaker.New(cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	srv, err := NewServer(svc, WithHandlerTimeout(time.Nanosecond))
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/api/libraries", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	testsupport.WriteClip(t, filepath.Join(cfg.ClipDir(), "static.gif"), 4096)
	target := "/" + cfg.Paths.ClipSubdir + "/static.gif"
	for i := 0; i < 10; i++ {
		rec = do(t, srv, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 4096, rec.Body.Len())
	}
}

func TestCreateClipRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, newFakePlex(t))

	req := httptest.NewRequest(http.MethodPost, "/api/clips", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/clips", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerTokenGuardsAPIOnly(t *testing.T) {
	plex := newFakePlex(t)
	srv := newTestServer(t, plex, testsupport.WithAPIToken("s3cret"))

	rec := do(t, srv, http.MethodGet, "/api/libraries", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/libraries", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/libraries", nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/gifs/missing.gif", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutConfigSwitchesServerAndDropsCache(t *testing.T) {
	first := newFakePlex(t)
	second := newFakePlex(t)
	srv := newTestServer(t, first)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/libraries", nil).Code)

	rec := do(t, srv, http.MethodPut, "/api/config", ConfigRequest{BaseURI: second.URL, Token: "other"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cfgResp ConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfgResp))
	assert.Equal(t, second.URL, cfgResp.ServerURL)
	assert.NotContains(t, rec.Body.String(), "other")

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/libraries", nil).Code)
	assert.Equal(t, 1, first.count("/library/sections"))
	assert.Equal(t, 1, second.count("/library/sections"))

	rec = do(t, srv, http.MethodPut, "/api/config", ConfigRequest{BaseURI: "::bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, second.URL, srv.Service().ServerURL())
}

func TestUnconfiguredServerReportsConfigurationError(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"configured":false`)

	rec = do(t, srv, http.MethodGet, "/api/libraries", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDurationAndMisc(t *testing.T) {
	plex := newFakePlex(t)
	srv := newTestServer(t, plex)

	rec := do(t, srv, http.MethodGet, "/api/items/8407/duration", nil, "X-Request-ID", "req-42")
	require.Equal(t, http.StatusOK, rec.Code)
	var dur DurationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dur))
	assert.Equal(t, int64(1200000), dur.DurationMs)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = do(t, srv, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/clips", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/libraries/1/movies?movie=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/scratch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":[]}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/libraries", nil, "Origin", "http://example.test")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
