// Package metadata предоставляет функционал для извлечения метаданных из аудио файлов
package metadata

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// TrackMetadata хранит метаданные трека
type TrackMetadata struct {
	Artist string
	Title  string
	Album  string
}

// FileInfo содержит информацию о файле
type FileInfo struct {
	Size     int64
	Duration time.Duration
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct{}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract читает теги файла. Если тегов нет, метаданные берутся из имени файла.
func (e *Extractor) Extract(name string, data []byte) TrackMetadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return e.getDefaultMetadata(name)
	}

	defaults := e.getDefaultMetadata(name)
	result := TrackMetadata{
		Artist: strings.TrimSpace(m.Artist()),
		Title:  strings.TrimSpace(m.Title()),
		Album:  strings.TrimSpace(m.Album()),
	}
	if result.Title == "" {
		result.Title = defaults.Title
	}
	if result.Artist == "" {
		result.Artist = defaults.Artist
	}
	return result
}

// GetDuration получает длительность аудиоданных
func (e *Extractor) GetDuration(name string, data []byte) (time.Duration, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	seconds, err := backend.DurationOf(ext, data)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения длительности: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// GetFileInfo получает информацию о файле (размер и длительность).
// Неизвестная длительность не считается ошибкой.
func (e *Extractor) GetFileInfo(name string, data []byte) *FileInfo {
	info := &FileInfo{Size: int64(len(data))}
	if d, err := e.GetDuration(name, data); err == nil {
		info.Duration = d
	}
	return info
}

// Track собирает локальный трек с метаданными файла
func (e *Extractor) Track(name string, data []byte) model.Track {
	meta := e.Extract(name, data)
	info := e.GetFileInfo(name, data)

	return model.NewLocal(name, meta.Title, meta.Artist).
		WithAlbum(meta.Album, model.DefaultLocalArtwork).
		WithDuration(int(info.Duration.Seconds()))
}

// getDefaultMetadata возвращает метаданные по умолчанию на основе имени файла
func (e *Extractor) getDefaultMetadata(source string) TrackMetadata {
	fileName := filepath.Base(source)
	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// Пытаемся разобрать имя файла в формате "Artist - Title"
	parts := strings.Split(nameWithoutExt, " - ")
	if len(parts) >= 2 {
		return TrackMetadata{
			Artist: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(strings.Join(parts[1:], " - ")),
		}
	}

	return TrackMetadata{
		Artist: model.DefaultLocalArtist,
		Title:  nameWithoutExt,
	}
}
