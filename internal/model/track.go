// Package model содержит описание трека, общее для каталога и локальной библиотеки
package model

import (
	"net/url"
	"path"
	"strings"
)

// Kind определяет происхождение трека
type Kind string

const (
	// KindRemote - трек из удаленного каталога, воспроизводится по URL
	KindRemote Kind = "remote"
	// KindLocal - трек, импортированный пользователем в хранилище файлов
	KindLocal Kind = "local"
)

// Значения по умолчанию для незаполненных полей
const (
	DefaultTitle        = "Unknown Title"
	DefaultArtist       = "Unknown Artist"
	DefaultLocalArtist  = "Local Artist"
	DefaultArtwork      = "assets/img/default-album.png"
	DefaultLocalArtwork = "assets/img/local-music.png"
)

// Track описывает трек. Значение неизменяемо: замена трека в плейлисте
// выполняется подстановкой новой записи целиком.
type Track struct {
	Kind      Kind   `yaml:"kind"`
	ID        string `yaml:"id,omitempty"`        // ID в каталоге (только для remote)
	FileName  string `yaml:"file_name,omitempty"` // Имя файла в хранилище (только для local)
	Title     string `yaml:"title"`
	Artist    string `yaml:"artist"`
	Album     string `yaml:"album,omitempty"`
	Artwork   string `yaml:"artwork,omitempty"`
	StreamURL string `yaml:"stream_url,omitempty"`
	Duration  int    `yaml:"duration,omitempty"` // Заявленная длительность в секундах
}

// NewRemote создает трек каталога с заполненными значениями по умолчанию
func NewRemote(id, streamURL, title, artist string) Track {
	t := Track{
		Kind:      KindRemote,
		ID:        id,
		StreamURL: streamURL,
		Title:     title,
		Artist:    artist,
	}
	return t.withDefaults()
}

// NewLocal создает локальный трек; имя файла служит его идентификатором
func NewLocal(fileName, title, artist string) Track {
	t := Track{
		Kind:     KindLocal,
		FileName: fileName,
		Title:    title,
		Artist:   artist,
	}
	return t.withDefaults()
}

// WithAlbum возвращает копию трека с указанным альбомом и обложкой
func (t Track) WithAlbum(album, artwork string) Track {
	t.Album = album
	if artwork != "" {
		t.Artwork = artwork
	}
	return t
}

// WithDuration возвращает копию трека с заявленной длительностью
func (t Track) WithDuration(seconds int) Track {
	if seconds > 0 {
		t.Duration = seconds
	}
	return t
}

func (t Track) withDefaults() Track {
	if t.Title == "" {
		if t.Kind == KindLocal && t.FileName != "" {
			t.Title = t.FileName
		} else {
			t.Title = DefaultTitle
		}
	}
	if t.Artist == "" {
		t.Artist = DefaultArtist
	}
	if t.Artwork == "" {
		t.Artwork = DefaultArtwork
	}
	return t
}

// IsLocal сообщает, относится ли трек к локальной библиотеке
func (t Track) IsLocal() bool {
	return t.Kind == KindLocal
}

// IsZero сообщает, что трек не задан
func (t Track) IsZero() bool {
	return t.ID == "" && t.FileName == ""
}

// Identity возвращает идентификатор трека: ID каталога или имя файла
func (t Track) Identity() string {
	if t.ID != "" {
		return t.ID
	}
	return t.FileName
}

// SameAs сравнивает треки по ID каталога, если он есть у обоих, иначе по имени файла
func (t Track) SameAs(other Track) bool {
	if t.ID != "" && other.ID != "" {
		return t.ID == other.ID
	}
	if t.FileName == "" && other.FileName == "" {
		return false
	}
	return t.FileName == other.FileName
}

// Ext возвращает расширение файла или пути URL в нижнем регистре, без точки
func (t Track) Ext() string {
	name := t.FileName
	if !t.IsLocal() {
		name = t.StreamURL
		if u, err := url.Parse(t.StreamURL); err == nil {
			name = u.Path
		}
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// IndexOf ищет трек в списке и возвращает его индекс или -1
func IndexOf(tracks []Track, track Track) int {
	for i := range tracks {
		if tracks[i].SameAs(track) {
			return i
		}
	}
	return -1
}
