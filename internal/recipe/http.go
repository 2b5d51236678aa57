package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*HTTPSource)(nil)

// HTTPOption configures the HTTP recipe source.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = c
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient.Timeout = d
	}
}

// HTTPSource reads recipes from the recipe provider API:
//
//	GET {base}/recipes                    list
//	GET {base}/recipes/{id}               one recipe
//	GET {base}/categories/recipes/{id}    categories of a recipe
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewHTTPSource creates a recipe source for the API rooted at baseURL.
func NewHTTPSource(baseURL string, log *logger.Logger, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns summaries of every recipe the provider serves.
func (s *HTTPSource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	var recipes []domain.Recipe
	if err := s.getJSON(ctx, "/recipes", &recipes); err != nil {
		return nil, err
	}

	out := make([]domain.RecipeSummary, 0, len(recipes))
	for i := range recipes {
		out = append(out, summarize(&recipes[i]))
	}
	s.log.Debug("recipe api: listed %d recipes", len(out))
	return out, nil
}

// Get fetches one recipe. A 404 maps to ErrNotFound; any other failure
// wraps ErrFetchFailed.
func (s *HTTPSource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := s.getJSON(ctx, "/recipes/"+url.PathEscape(id), &r); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = id
	}
	s.log.Debug("recipe api: fetched %q (%s)", r.Name, r.ID)
	return &r, nil
}

// Categories fetches the category names of a recipe.
func (s *HTTPSource) Categories(ctx context.Context, id string) ([]string, error) {
	var cats []domain.Category
	if err := s.getJSON(ctx, "/categories/recipes/"+url.PathEscape(id), &cats); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(cats))
	for _, c := range cats {
		if name := strings.TrimSpace(c.Name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OttoRead/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("recipe api %s: %w", path, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", domain.ErrFetchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", domain.ErrFetchFailed, path, err)
	}
	return nil
}
