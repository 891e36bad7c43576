package resolver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osintlab/WDX/cache"
	"github.com/osintlab/WDX/db"
	"github.com/osintlab/WDX/internal/httpclient"
	wdxtesting "github.com/osintlab/WDX/internal/testing"
	"github.com/osintlab/WDX/wikidata"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	conn := wdxtesting.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, nil))
	return cache.NewStore(conn, nil)
}

func TestThumbnailURL(t *testing.T) {
	// md5("Albert_Speer_1933.jpg") = 5826df894bd00fe9a18fc6886ddc5881
	url := ThumbnailURL(DefaultCommonsBase, "Albert Speer 1933.jpg", 64)
	assert.Equal(t,
		"https://upload.wikimedia.org/wikipedia/commons/thumb/5/58/Albert_Speer_1933.jpg/64px-Albert_Speer_1933.jpg",
		url)

	// md5("Example.jpg") = a91fe217e45a700fc2dab0cc476f01c7
	url = ThumbnailURL(DefaultCommonsBase, "Example.jpg", 320)
	assert.Equal(t,
		"https://upload.wikimedia.org/wikipedia/commons/thumb/a/a9/Example.jpg/320px-Example.jpg",
		url)
}

func TestResolvePassthrough(t *testing.T) {
	r := New(Options{}, newTestCache(t), nil, nil)

	e := &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P569", Type: wikidata.ClaimTime, Value: "1905-03-19T00:00:00Z"},
			{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
		},
	}

	out, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, out.Unresolved)
	assert.Zero(t, out.Lookups)
	assert.Equal(t, []string{"1905-03-19T00:00:00Z"}, e.Properties["P569"])
	// Person is not in EnrichKinds, so the reference stays a raw QID.
	assert.Equal(t, []string{"Q183"}, e.Properties["P27"])
}

func TestResolveCommonsMediaBecomesThumbnail(t *testing.T) {
	r := New(Options{}, newTestCache(t), nil, nil)

	e := &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P18", Type: wikidata.ClaimCommonsMedia, Value: "Albert Speer 1933.jpg"},
		},
	}

	_, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, e.Properties["P18"], 1)
	assert.Contains(t, e.Properties["P18"][0], "/thumb/5/58/Albert_Speer_1933.jpg/64px-")
}

func TestResolveLabelLookup(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		assert.Equal(t, "wbgetentities", req.URL.Query().Get("action"))
		qid := req.URL.Query().Get("ids")
		fmt.Fprintf(w, `{"entities":{%q:{"labels":{"en":{"language":"en","value":"Germany"}}}}}`, qid)
	}))
	defer srv.Close()

	store := newTestCache(t)
	r := New(Options{
		Endpoint:    srv.URL,
		EnrichKinds: []wikidata.Kind{wikidata.KindPerson},
	}, store, httpclient.WrapClient(srv.Client()), nil)

	e := &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
		},
	}

	out, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"Germany"}, e.Properties["P27"])
	assert.Equal(t, 1, out.Lookups)
	assert.Zero(t, out.CacheHits)
	assert.Equal(t, int64(1), hits.Load())

	// A second entity referencing the same QID hits the cache, not the API.
	e2 := &wikidata.Entity{
		ID:   "Q1",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
		},
	}
	out, err = r.Resolve(context.Background(), e2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Germany"}, e2.Properties["P27"])
	assert.Equal(t, 1, out.CacheHits)
	assert.Zero(t, out.Lookups)
	assert.Equal(t, int64(1), hits.Load())
}

func TestResolveReusesCacheAcrossRuns(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"entities":{"Q183":{"labels":{"en":{"language":"en","value":"Germany"}}}}}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cache.db")

	// Each call is a full run lifecycle: open the cache file, resolve,
	// close everything.
	resolveOnce := func() (Outcome, string) {
		database, err := db.OpenWithMigrations(path, nil)
		require.NoError(t, err)
		defer database.Close()

		r := New(Options{
			Endpoint:    srv.URL,
			EnrichKinds: []wikidata.Kind{wikidata.KindPerson},
		}, cache.NewStore(database, nil), httpclient.WrapClient(srv.Client()), nil)

		e := &wikidata.Entity{
			ID:   "Q60045",
			Kind: wikidata.KindPerson,
			Claims: []wikidata.Claim{
				{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
			},
		}
		out, err := r.Resolve(context.Background(), e)
		require.NoError(t, err)
		require.Len(t, e.Properties["P27"], 1)
		return out, e.Properties["P27"][0]
	}

	out, value := resolveOnce()
	assert.Equal(t, 1, out.Lookups)
	assert.Zero(t, out.CacheHits)
	assert.Equal(t, "Germany", value)

	// The second run finds the persisted resolution and never goes out.
	out, value = resolveOnce()
	assert.Zero(t, out.Lookups)
	assert.Equal(t, 1, out.CacheHits)
	assert.Equal(t, "Germany", value)
	assert.Equal(t, int64(1), hits.Load())
}

func TestResolveCollapsedLookupsCountOnce(t *testing.T) {
	var hits atomic.Int64
	var once sync.Once
	firstArrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		once.Do(func() { close(firstArrived) })
		<-release
		fmt.Fprint(w, `{"entities":{"Q183":{"labels":{"en":{"language":"en","value":"Germany"}}}}}`)
	}))
	defer srv.Close()

	database, err := db.OpenWithMigrations(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	defer database.Close()

	r := New(Options{
		Endpoint:    srv.URL,
		EnrichKinds: []wikidata.Kind{wikidata.KindPerson},
	}, cache.NewStore(database, nil), httpclient.WrapClient(srv.Client()), nil)

	const callers = 8
	var wg sync.WaitGroup
	var lookups, cacheHits atomic.Int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e := &wikidata.Entity{
				ID:   fmt.Sprintf("Q%d", n+1),
				Kind: wikidata.KindPerson,
				Claims: []wikidata.Claim{
					{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
				},
			}
			out, err := r.Resolve(context.Background(), e)
			assert.NoError(t, err)
			assert.Equal(t, []string{"Germany"}, e.Properties["P27"])
			lookups.Add(int64(out.Lookups))
			cacheHits.Add(int64(out.CacheHits))
		}(i)
	}
	// Hold the first request open until every caller is launched, so
	// callers arriving during the flight collapse onto it.
	<-firstArrived
	close(release)
	wg.Wait()

	// Collapsed callers count neither a lookup nor a cache hit, so the
	// reported lookups track the HTTP requests actually issued.
	assert.Equal(t, hits.Load(), lookups.Load())
	assert.GreaterOrEqual(t, hits.Load(), int64(1))
	assert.LessOrEqual(t, hits.Load()+cacheHits.Load(), int64(callers))
}

func TestResolveLookupFailureIsUnresolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(Options{
		Endpoint:    srv.URL,
		EnrichKinds: []wikidata.Kind{wikidata.KindPerson},
	}, newTestCache(t), httpclient.WrapClient(srv.Client()), nil)

	e := &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q99999999"},
			{Property: "P106", Type: wikidata.ClaimString, Value: "architect"},
		},
	}

	out, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, out.Unresolved, 1)
	assert.Equal(t, "P27", out.Unresolved[0].PropertyID)
	// The failure does not take the rest of the entity with it.
	assert.Equal(t, []string{"architect"}, e.Properties["P106"])
	assert.NotContains(t, e.Properties, "P27")
}

func TestResolveRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"entities":{"Q183":{"labels":{"en":{"language":"en","value":"Germany"}}}}}`)
	}))
	defer srv.Close()

	r := New(Options{
		Endpoint:    srv.URL,
		Retries:     2,
		EnrichKinds: []wikidata.Kind{wikidata.KindPerson},
	}, newTestCache(t), httpclient.WrapClient(srv.Client()), nil)

	e := &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Claims: []wikidata.Claim{
			{Property: "P27", Type: wikidata.ClaimEntityID, Value: "Q183"},
		},
	}

	out, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, out.Unresolved)
	assert.Equal(t, []string{"Germany"}, e.Properties["P27"])
	assert.Equal(t, int64(2), attempts.Load())
}

func TestResolveFetchesImages(t *testing.T) {
	imageData := []byte{0x89, 0x50, 0x4e, 0x47}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.NotEmpty(t, req.Header.Get("User-Agent"))
		w.Write(imageData)
	}))
	defer srv.Close()

	r := New(Options{
		CommonsBase: srv.URL,
		FetchImages: true,
		EnrichKinds: []wikidata.Kind{wikidata.KindOrganization},
	}, newTestCache(t), httpclient.WrapClient(srv.Client()), nil)

	e := &wikidata.Entity{
		ID:   "Q95",
		Kind: wikidata.KindOrganization,
		Claims: []wikidata.Claim{
			{Property: "P154", Type: wikidata.ClaimCommonsMedia, Value: "Logo.svg"},
		},
	}

	out, err := r.Resolve(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, e.Properties["P154"], 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(imageData), e.Properties["P154"][0])
	assert.Equal(t, 1, out.Lookups)
}
