package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parceldrop/parceldrop-backend/pkg/config"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// Geocoder resolves a postal address into coordinates. Used only at offer
// creation when the caller did not supply coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Coordinates, error)
}

const googleGeocodeEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder calls the Google Maps Geocoding API.
type GoogleGeocoder struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGoogleGeocoder builds a geocoder from the configured API key.
func NewGoogleGeocoder(cfg config.GoogleMapsConfig) (*GoogleGeocoder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}
	return &GoogleGeocoder{
		apiKey:   cfg.APIKey,
		endpoint: googleGeocodeEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (types.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return types.Coordinates{}, pkgerrors.New(pkgerrors.CodeGeocodingFailed, "address is empty")
	}

	query := url.Values{}
	query.Set("address", address)
	query.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return types.Coordinates{}, pkgerrors.Wrap(pkgerrors.CodeGeocodingFailed, err, "build geocode request")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return types.Coordinates{}, pkgerrors.Wrap(pkgerrors.CodeGeocodingFailed, err, "call geocoder")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Coordinates{}, pkgerrors.New(pkgerrors.CodeGeocodingFailed, fmt.Sprintf("geocoder returned status %d", resp.StatusCode))
	}

	var parsed googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.Coordinates{}, pkgerrors.Wrap(pkgerrors.CodeGeocodingFailed, err, "decode geocoder response")
	}

	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return types.Coordinates{}, pkgerrors.New(pkgerrors.CodeGeocodingFailed, "no geocoding result for address").
			WithDetails(map[string]any{"status": parsed.Status})
	}

	loc := parsed.Results[0].Geometry.Location
	coords := types.Coordinates{Lng: loc.Lng, Lat: loc.Lat}
	if err := coords.Validate(); err != nil {
		return types.Coordinates{}, pkgerrors.Wrap(pkgerrors.CodeGeocodingFailed, err, "geocoder returned invalid coordinates")
	}
	return coords, nil
}
