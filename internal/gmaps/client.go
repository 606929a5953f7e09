// Package gmaps wraps the Google Routes and Places JSON APIs.
package gmaps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"homescout-engine/internal/domain"
)

var (
	// ErrRouting means the routing backend failed or rejected the request.
	ErrRouting = errors.New("routing backend failure")

	// ErrPlaces means the places backend failed or rejected the request.
	ErrPlaces = errors.New("places backend failure")
)

const (
	defaultRoutesURL = "https://routes.googleapis.com/directions/v2:computeRoutes"
	defaultPlacesURL = "https://places.googleapis.com/v1/places:searchText"
)

// Place is one text-search result.
type Place struct {
	Name             string
	FormattedAddress string
}

type Client struct {
	apiKey      string
	hc          *http.Client
	limiter     *rate.Limiter
	callTimeout time.Duration

	routesURL string
	placesURL string

	// now is replaceable in tests so the departure time is stable.
	now func() time.Time
}

func NewClient(apiKey string, reqPerSec float64, burst int, callTimeout time.Duration) *Client {
	return &Client{
		apiKey:      apiKey,
		hc:          &http.Client{Timeout: callTimeout},
		limiter:     rate.NewLimiter(rate.Limit(reqPerSec), burst),
		callTimeout: callTimeout,
		routesURL:   defaultRoutesURL,
		placesURL:   defaultPlacesURL,
		now:         time.Now,
	}
}

// TravelTime returns the travel minutes and distance between two addresses
// for the given mode, departing next Monday 08:00 local so results are
// comparable across runs.
func (c *Client) TravelTime(ctx context.Context, origin, destination string, mode domain.TransportMode) (int, float64, error) {
	if !mode.Valid() {
		return 0, 0, fmt.Errorf("%w: invalid transport mode %q", ErrRouting, mode)
	}

	body := map[string]any{
		"origin":        map[string]string{"address": origin},
		"destination":   map[string]string{"address": destination},
		"travelMode":    string(mode),
		"departureTime": nextMondayMorning(c.now()).UTC().Format(time.RFC3339),
	}

	var res struct {
		Routes []struct {
			Duration       string `json:"duration"`
			DistanceMeters int    `json:"distanceMeters"`
		} `json:"routes"`
	}
	if err := c.post(ctx, c.routesURL, "routes.duration,routes.distanceMeters", body, &res); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRouting, err)
	}
	if len(res.Routes) == 0 {
		return 0, 0, fmt.Errorf("%w: no route between %q and %q", ErrRouting, origin, destination)
	}

	seconds, err := parseDurationSeconds(res.Routes[0].Duration)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRouting, err)
	}

	minutes := seconds / 60
	distanceKm := float64(res.Routes[0].DistanceMeters) / 1000
	return minutes, distanceKm, nil
}

// SearchText runs a Places text search and returns results in backend order.
func (c *Client) SearchText(ctx context.Context, query string) ([]Place, error) {
	body := map[string]any{"textQuery": query}

	var res struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			FormattedAddress string `json:"formattedAddress"`
		} `json:"places"`
	}
	if err := c.post(ctx, c.placesURL, "places.displayName,places.formattedAddress", body, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaces, err)
	}

	out := make([]Place, 0, len(res.Places))
	for _, p := range res.Places {
		out = append(out, Place{Name: p.DisplayName.Text, FormattedAddress: p.FormattedAddress})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url, fieldMask string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("status %d", res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// parseDurationSeconds parses the API's "1234s" duration form.
func parseDurationSeconds(s string) (int, error) {
	trimmed := strings.TrimSuffix(s, "s")
	if trimmed == s {
		return 0, fmt.Errorf("unexpected duration %q", s)
	}
	return strconv.Atoi(trimmed)
}

// nextMondayMorning returns 08:00 local time on the Monday strictly after
// now. Run on a Monday, it targets the following Monday.
func nextMondayMorning(now time.Time) time.Time {
	// time.Weekday has Sunday==0; the offset below wants Monday==0.
	weekday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, 7-weekday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 8, 0, 0, 0, now.Location())
}
