// Package spotify implements track search and shared-queue insertion against
// the Spotify Web API, authenticating with a long-lived refresh token.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/partyline/partyline/internal/database/models"
)

const (
	defaultAPIBaseURL = "https://api.spotify.com"
	defaultTokenURL   = "https://accounts.spotify.com/api/token"

	searchLimit = 10
)

// Config carries the Spotify application credentials. The base URLs default
// to the public API and are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	APIBaseURL   string
	TokenURL     string
}

// Client talks to the Spotify Web API. The underlying HTTP client refreshes
// access tokens transparently from the configured refresh token.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient builds a Client whose transport injects bearer tokens minted
// from the refresh-token grant.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	source := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = 10 * time.Second

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(apiBase, "/"),
		logger:  logger.With("subsystem", "spotify"),
	}
}

type apiTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Popularity int    `json:"popularity"`
	DurationMS int    `json:"duration_ms"`
	Type       string `json:"type"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t apiTrack) toModel() models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	artist := strings.Join(names, ",")
	return models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artist:      artist,
		DisplayName: fmt.Sprintf("%s by %s", t.Name, artist),
		Popularity:  t.Popularity,
	}
}

type searchResponse struct {
	Tracks struct {
		Items []apiTrack `json:"items"`
	} `json:"tracks"`
}

// Search looks up tracks matching the query and returns up to ten results.
// With byPopularity set, results are reordered most-popular first before the
// cap is applied.
func (c *Client) Search(ctx context.Context, query string, byPopularity bool) ([]models.Track, error) {
	endpoint := fmt.Sprintf("%s/v1/search?%s", c.baseURL, url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {fmt.Sprint(searchLimit)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, apiError("search", res)
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	items := payload.Tracks.Items
	if byPopularity {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Popularity > items[j].Popularity
		})
	}
	if len(items) > searchLimit {
		items = items[:searchLimit]
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, item.toModel())
	}
	return tracks, nil
}

type queueResponse struct {
	Queue []apiTrack `json:"queue"`
}

// Enqueue adds the track to the active player queue, then reads the queue
// back to report where the track landed and roughly when it will play.
// Spotify rejects the add when no device is playing; that surfaces as an
// error for the caller to degrade on.
func (c *Client) Enqueue(ctx context.Context, track models.Track) (models.QueueOutcome, error) {
	addURL := fmt.Sprintf("%s/v1/me/player/queue?uri=%s",
		c.baseURL, url.QueryEscape("spotify:track:"+track.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addURL, nil)
	if err != nil {
		return models.QueueOutcome{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return models.QueueOutcome{}, fmt.Errorf("adding track to queue: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return models.QueueOutcome{}, apiError("queue add", res)
	}
	io.Copy(io.Discard, res.Body)

	outcome, err := c.queuePosition(ctx, track.ID)
	if err != nil {
		// The track is queued; losing the position readback only costs the
		// spoken estimate.
		c.logger.Warn("queue readback failed", "track_id", track.ID, "error", err)
		return models.QueueOutcome{Success: true}, nil
	}
	return outcome, nil
}

// queuePosition locates the most recent occurrence of the track in the
// player queue. Position counts track items from the front; the wait
// estimate sums the durations of the tracks ahead of it.
func (c *Client) queuePosition(ctx context.Context, trackID string) (models.QueueOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/me/player/queue", nil)
	if err != nil {
		return models.QueueOutcome{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return models.QueueOutcome{}, fmt.Errorf("reading player queue: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return models.QueueOutcome{}, apiError("queue read", res)
	}

	var payload queueResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return models.QueueOutcome{}, fmt.Errorf("decoding queue response: %w", err)
	}

	last := -1
	for i, item := range payload.Queue {
		if item.Type == "track" && item.ID == trackID {
			last = i
		}
	}
	if last == -1 {
		// Queued but not visible yet.
		return models.QueueOutcome{Success: true}, nil
	}

	position := 0
	msUntilPlay := 0
	for i := 0; i <= last; i++ {
		if payload.Queue[i].Type != "track" {
			continue
		}
		position++
		if i < last {
			msUntilPlay += payload.Queue[i].DurationMS
		}
	}

	outcome := models.QueueOutcome{Success: true, Position: &position}
	switch {
	case msUntilPlay > 60000:
		minutes := int(math.Round(float64(msUntilPlay) / 60000))
		outcome.MinutesUntilPlay = &minutes
	case msUntilPlay > 0:
		zero := 0
		outcome.MinutesUntilPlay = &zero
	}
	return outcome, nil
}

func apiError(op string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("spotify %s: status %d: %s", op, res.StatusCode, strings.TrimSpace(string(body)))
}
