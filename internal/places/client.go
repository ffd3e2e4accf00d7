// Package places wraps the Google Places web service and the debounced
// destination-search flow built on top of it.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// API is the prediction/details provider the autocomplete engine talks to.
type API interface {
	Predictions(ctx context.Context, input string) ([]models.Prediction, error)
	Details(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

// Client queries the Google Places web service, restricted to Taiwanese
// establishments in Traditional Chinese, matching the original widget.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type autocompleteResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		PlaceID              string `json:"place_id"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

func (c *Client) Predictions(ctx context.Context, input string) ([]models.Prediction, error) {
	query := url.Values{}
	query.Set("input", input)
	query.Set("language", "zh-TW")
	query.Set("components", "country:tw")
	query.Set("types", "establishment")
	query.Set("key", c.apiKey)

	var resp autocompleteResponse
	if err := c.get(ctx, "/autocomplete/json", query, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("places autocomplete returned %s", resp.Status)
	}

	predictions := make([]models.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		predictions = append(predictions, models.Prediction{
			PlaceID:       p.PlaceID,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return predictions, nil
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

func (c *Client) Details(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	query := url.Values{}
	query.Set("place_id", placeID)
	query.Set("fields", "name,formatted_address,geometry")
	query.Set("language", "zh-TW")
	query.Set("key", c.apiKey)

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", query, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("places details returned %s", resp.Status)
	}

	return &models.PlaceDetails{
		Name:             resp.Result.Name,
		FormattedAddress: resp.Result.FormattedAddress,
		Lat:              resp.Result.Geometry.Location.Lat,
		Lng:              resp.Result.Geometry.Location.Lng,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating places request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("places request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("places %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("places service rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("places %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding places response: %w", err)
	}
	return nil
}
