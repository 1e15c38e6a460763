package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Tool = (*RestaurantTool)(nil)

const (
	restaurantToolName        = "get_restaurant_rating"
	restaurantDefaultCacheTTL = 15 * time.Minute
)

var restaurantSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"description": "Restaurant name to look up"
		},
		"city": {
			"type": "string",
			"description": "City to disambiguate the restaurant, optional"
		}
	},
	"required": ["name"]
}`)

// restaurantArgs are the model-supplied arguments
type restaurantArgs struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// restaurantRating is the upstream API response shape
type restaurantRating struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	PriceRange  string  `json:"price_range"`
	Address     string  `json:"address"`
}

// RestaurantTool looks up restaurant ratings from an external HTTP API.
// Results are cached with a TTL since ratings change slowly and the
// upstream is rate limited.
type RestaurantTool struct {
	baseURL string
	client  *http.Client
	cache   driven.Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewRestaurantTool creates a RestaurantTool against the given API base URL.
// The cache may be nil, in which case every call hits the upstream. A
// non-positive ttl falls back to the 15-minute default.
func NewRestaurantTool(baseURL string, cache driven.Cache, ttl time.Duration, logger zerolog.Logger) *RestaurantTool {
	if ttl <= 0 {
		ttl = restaurantDefaultCacheTTL
	}
	return &RestaurantTool{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
		logger:  logger.With().Str("tool", restaurantToolName).Logger(),
	}
}

func (t *RestaurantTool) Name() string {
	return restaurantToolName
}

func (t *RestaurantTool) Description() string {
	return "Look up the rating, review count, and price range of a restaurant by name. Use this when the user asks about restaurant quality or recommendations."
}

func (t *RestaurantTool) Schema() json.RawMessage {
	return restaurantSchema
}

func (t *RestaurantTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed restaurantArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if strings.TrimSpace(parsed.Name) == "" {
		return "", fmt.Errorf("%w: restaurant name is required", domain.ErrInvalidInput)
	}

	cacheKey := t.cacheKey(parsed)
	if t.cache != nil {
		if cached, found, err := t.cache.Get(ctx, cacheKey); err == nil && found {
			return cached, nil
		}
	}

	rating, err := t.fetch(ctx, parsed)
	if err != nil {
		return "", err
	}

	result := formatRating(rating)
	if t.cache != nil {
		if err := t.cache.Set(ctx, cacheKey, result, t.ttl); err != nil {
			t.logger.Warn().Err(err).Msg("rating cache write failed")
		}
	}
	return result, nil
}

func (t *RestaurantTool) fetch(ctx context.Context, args restaurantArgs) (*restaurantRating, error) {
	params := url.Values{}
	params.Set("name", args.Name)
	if args.City != "" {
		params.Set("city", args.City)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/v1/restaurants/rating?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryUpstream,
			fmt.Errorf("rating lookup: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryUpstream,
			fmt.Errorf("read rating response: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: restaurant %q", domain.ErrNotFound, args.Name)
	default:
		return nil, domain.WithCategory(domain.CategoryUpstream,
			fmt.Errorf("rating lookup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var rating restaurantRating
	if err := json.Unmarshal(body, &rating); err != nil {
		return nil, domain.WithCategory(domain.CategoryUpstream,
			fmt.Errorf("decode rating response: %w", err))
	}
	return &rating, nil
}

func (t *RestaurantTool) cacheKey(args restaurantArgs) string {
	key := "tool:restaurant:" + strings.ToLower(args.Name)
	if args.City != "" {
		key += ":" + strings.ToLower(args.City)
	}
	return key
}

func formatRating(r *restaurantRating) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has a rating of %.1f based on %d reviews.", r.Name, r.Rating, r.ReviewCount)
	if r.PriceRange != "" {
		fmt.Fprintf(&sb, " Price range: %s.", r.PriceRange)
	}
	if r.Address != "" {
		fmt.Fprintf(&sb, " Address: %s.", r.Address)
	}
	return sb.String()
}
