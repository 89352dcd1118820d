// Package catalog содержит клиент HTTP API каталога треков Jamendo
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hazadus/go-nowplaying/internal/model"
)

// DefaultBaseURL адрес API Jamendo
const DefaultBaseURL = "https://api.jamendo.com/v3.0"

// Client выполняет запросы к каталогу без повторных попыток
type Client struct {
	baseURL    string
	clientID   string
	limit      int
	httpClient *http.Client
}

// NewClient создает клиент каталога. Пустые параметры заменяются значениями по умолчанию.
func NewClient(baseURL, clientID string, limit int, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limit <= 0 {
		limit = 10
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		limit:      limit,
		httpClient: httpClient,
	}
}

// jamendoTrack - запись трека в ответе API
type jamendoTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Duration   int    `json:"duration"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	AlbumImage string `json:"album_image"`
	Image      string `json:"image"`
	Audio      string `json:"audio"`
	AudioURL   string `json:"audio_url"`
}

type jamendoResponse struct {
	Headers struct {
		Status       string `json:"status"`
		Code         int    `json:"code"`
		ErrorMessage string `json:"error_message"`
	} `json:"headers"`
	Results []jamendoTrack `json:"results"`
}

// Search ищет треки по названию
func (c *Client) Search(ctx context.Context, query string) ([]model.Track, error) {
	return c.tracks(ctx, url.Values{"namesearch": {query}})
}

// TopTracks возвращает самые популярные треки
func (c *Client) TopTracks(ctx context.Context) ([]model.Track, error) {
	return c.tracks(ctx, url.Values{"order": {"popularity_total"}})
}

// TracksByTag возвращает треки жанра или тега
func (c *Client) TracksByTag(ctx context.Context, tag string) ([]model.Track, error) {
	return c.tracks(ctx, url.Values{"tags": {tag}})
}

func (c *Client) tracks(ctx context.Context, params url.Values) ([]model.Track, error) {
	params.Set("client_id", c.clientID)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(c.limit))

	fullURL := c.baseURL + "/tracks/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к каталогу: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ошибка HTTP %s: %s", resp.Status, body)
	}

	var payload jamendoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа каталога: %w", err)
	}
	if payload.Headers.Status != "" && payload.Headers.Status != "success" {
		return nil, fmt.Errorf("каталог вернул ошибку %d: %s", payload.Headers.Code, payload.Headers.ErrorMessage)
	}

	tracks := make([]model.Track, 0, len(payload.Results))
	for _, r := range payload.Results {
		// Трек без адреса потока воспроизвести нельзя
		streamURL := r.AudioURL
		if streamURL == "" {
			streamURL = r.Audio
		}
		if r.ID == "" || streamURL == "" {
			continue
		}

		artwork := r.AlbumImage
		if artwork == "" {
			artwork = r.Image
		}

		track := model.NewRemote(r.ID, streamURL, r.Name, r.ArtistName).
			WithAlbum(r.AlbumName, artwork).
			WithDuration(r.Duration)
		tracks = append(tracks, track)
	}
	return tracks, nil
}
