// Package resolver turns flattened claims into final property values. Local
// values pass through untouched; entity references and commons media for
// enriched kinds go through the external lookup path, memoized in the
// persistent cache so repeated runs and repeated references stay cheap.
package resolver

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/osintlab/WDX/cache"
	"github.com/osintlab/WDX/errors"
	"github.com/osintlab/WDX/internal/httpclient"
	"github.com/osintlab/WDX/wikidata"
)

const (
	// DefaultEndpoint is the wbgetentities API used for label lookups.
	DefaultEndpoint = "https://www.wikidata.org/w/api.php"

	// DefaultCommonsBase is the root for MD5-derived thumbnail paths.
	DefaultCommonsBase = "https://upload.wikimedia.org/wikipedia/commons/thumb"

	DefaultImageWidth = 64
	DefaultRetries    = 2

	// labelProperty is the pseudo property id under which referenced-entity
	// labels are cached. Labels belong to the referenced entity, not to the
	// entity whose claim mentioned it, so two entities citing the same QID
	// share one cache row.
	labelProperty = "label"
)

// Options configures a Resolver. Zero values fall back to the defaults
// above; an empty EnrichKinds list disables all external lookups.
type Options struct {
	Endpoint      string
	CommonsBase   string
	Language      string
	Retries       int
	RatePerSecond float64
	FetchImages   bool
	ImageWidth    int
	EnrichKinds   []wikidata.Kind
}

// Failure records one property that could not be resolved. Failures are
// per-entity and never abort the run; the entity keeps its remaining
// properties and the failure is counted in the run report.
type Failure struct {
	EntityID   string `json:"entity_id"`
	PropertyID string `json:"property_id"`
	Reason     string `json:"reason"`
}

// Outcome reports what one Resolve call did, for run report aggregation.
type Outcome struct {
	CacheHits  int
	Lookups    int
	Unresolved []Failure
}

// Resolver resolves claim values for one run. Safe for concurrent use;
// concurrent lookups of the same key collapse into a single request.
type Resolver struct {
	opts    Options
	store   *cache.Store
	client  *httpclient.SaferClient
	limiter *rate.Limiter
	group   singleflight.Group
	enrich  map[wikidata.Kind]bool
	logger  *zap.SugaredLogger
}

// New builds a Resolver over the given cache store and HTTP client. A nil
// client means label and image lookups fail as unresolved rather than
// panicking, which keeps cache-only runs possible.
func New(opts Options, store *cache.Store, client *httpclient.SaferClient, logger *zap.SugaredLogger) *Resolver {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.CommonsBase == "" {
		opts.CommonsBase = DefaultCommonsBase
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.ImageWidth <= 0 {
		opts.ImageWidth = DefaultImageWidth
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	enrich := make(map[wikidata.Kind]bool, len(opts.EnrichKinds))
	for _, k := range opts.EnrichKinds {
		enrich[k] = true
	}

	return &Resolver{
		opts:    opts,
		store:   store,
		client:  client,
		limiter: limiter,
		enrich:  enrich,
		logger:  logger,
	}
}

// Resolve fills e.Properties from e.Claims. String, time, quantity and
// coordinate values pass through as-is. For kinds configured for
// enrichment, entity references become labels and commons media becomes a
// thumbnail URL or fetched image; for other kinds those claims keep their
// raw values. Only cache I/O errors are returned; lookup failures land in
// the outcome as unresolved.
func (r *Resolver) Resolve(ctx context.Context, e *wikidata.Entity) (Outcome, error) {
	var out Outcome
	e.Properties = make(map[string][]string, len(e.Claims))

	enrich := r.enrich[e.Kind]
	for _, claim := range e.Claims {
		value, err := r.resolveClaim(ctx, e.ID, claim, enrich, &out)
		if err != nil {
			if errors.IsFatal(err) || ctx.Err() != nil {
				return out, err
			}
			out.Unresolved = append(out.Unresolved, Failure{
				EntityID:   e.ID,
				PropertyID: claim.Property,
				Reason:     err.Error(),
			})
			continue
		}
		e.Properties[claim.Property] = append(e.Properties[claim.Property], value)
	}
	return out, nil
}

func (r *Resolver) resolveClaim(ctx context.Context, entityID string, claim wikidata.Claim, enrich bool, out *Outcome) (string, error) {
	switch claim.Type {
	case wikidata.ClaimEntityID:
		if !enrich {
			return claim.Value, nil
		}
		return r.resolveLabel(ctx, claim.Value, out)

	case wikidata.ClaimCommonsMedia:
		thumb := ThumbnailURL(r.opts.CommonsBase, claim.Value, r.opts.ImageWidth)
		if !enrich || !r.opts.FetchImages {
			return thumb, nil
		}
		return r.fetchImage(ctx, entityID, claim.Property, thumb, out)

	default:
		return claim.Value, nil
	}
}

// resolveLabel maps a referenced QID to its label in the configured
// language. Cached under (qid, "label").
func (r *Resolver) resolveLabel(ctx context.Context, qid string, out *Outcome) (string, error) {
	if cached, ok, err := r.store.Get(qid, labelProperty); err != nil {
		return "", err
	} else if ok {
		out.CacheHits++
		return cached, nil
	}

	v, err, shared := r.group.Do("label:"+qid, func() (interface{}, error) {
		label, err := r.lookupLabel(ctx, qid)
		if err != nil {
			return nil, err
		}
		if err := r.store.Put(qid, labelProperty, label); err != nil {
			return nil, err
		}
		return label, nil
	})
	if err != nil {
		return "", err
	}
	// A collapsed caller rode on another goroutine's request; only the
	// caller that actually issued it counts a lookup.
	if !shared {
		out.Lookups++
	}
	return v.(string), nil
}

func (r *Resolver) lookupLabel(ctx context.Context, qid string) (string, error) {
	if r.client == nil {
		return "", errors.New("lookups disabled")
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", qid)
	params.Set("props", "labels")
	params.Set("languages", r.opts.Language)
	params.Set("format", "json")
	endpoint := r.opts.Endpoint + "?" + params.Encode()

	body, err := r.fetch(ctx, endpoint)
	if err != nil {
		return "", err
	}

	label := gjson.GetBytes(body, "entities."+qid+".labels."+r.opts.Language+".value")
	if !label.Exists() {
		return "", errors.Newf("no %s label for %s", r.opts.Language, qid)
	}
	return label.String(), nil
}

// fetchImage downloads the thumbnail and caches it base64-encoded under
// the claiming entity's key. Images are entity-specific content, unlike
// labels, so they key on the source entity and property.
func (r *Resolver) fetchImage(ctx context.Context, entityID, propertyID, thumbURL string, out *Outcome) (string, error) {
	if cached, ok, err := r.store.Get(entityID, propertyID); err != nil {
		return "", err
	} else if ok {
		out.CacheHits++
		return cached, nil
	}

	v, err, shared := r.group.Do("image:"+entityID+":"+propertyID, func() (interface{}, error) {
		body, err := r.fetch(ctx, thumbURL)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(body)
		if err := r.store.Put(entityID, propertyID, encoded); err != nil {
			return nil, err
		}
		return encoded, nil
	})
	if err != nil {
		return "", err
	}
	if !shared {
		out.Lookups++
	}
	return v.(string), nil
}

// fetch performs one rate-limited GET with bounded retries. Retries cover
// transport errors and 5xx responses; 4xx responses fail immediately since
// retrying them cannot help.
func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if r.client == nil {
		return nil, errors.New("lookups disabled")
	}

	var lastErr error
	for attempt := 0; attempt <= r.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := r.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if r.logger != nil {
			r.logger.Debugw("Lookup attempt failed",
				"url", rawURL,
				"attempt", attempt+1,
				"error", err,
			)
		}
	}
	return nil, lastErr
}

func (r *Resolver) fetchOnce(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	setBrowserHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, errors.Newf("lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, true, err
	}
	return body, true, nil
}

// ThumbnailURL derives the commons thumbnail URL for a media filename.
// Commons shards files by the MD5 of the underscored name: the first hex
// character and first two form the directory pair.
func ThumbnailURL(base, filename string, width int) string {
	underscored := strings.ReplaceAll(filename, " ", "_")
	sum := md5.Sum([]byte(underscored))
	hash := hex.EncodeToString(sum[:])
	escaped := url.PathEscape(underscored)
	return fmt.Sprintf("%s/%s/%s/%s/%dpx-%s", base, hash[:1], hash[:2], escaped, width, escaped)
}
