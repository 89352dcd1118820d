// Package data хранит вспомогательные списки приложения: библиотеку импортированных
// файлов, недавно прослушанные треки и пользовательский плейлист.
package data

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// Key ключ данных приложения в хранилище состояния
const Key = "app_data"

// RecentLimit сколько недавних треков хранится
const RecentLimit = 3

var (
	// ErrAlreadyExists возвращается при повторном добавлении трека
	ErrAlreadyExists = errors.New("трек уже добавлен")
	// ErrNotFound возвращается, если трека нет в списке
	ErrNotFound = errors.New("трек не найден")
)

// LibraryEntry импортированный файл с метаданными
type LibraryEntry struct {
	Track      model.Track `yaml:"track"`
	FileSize   int64       `yaml:"file_size"`
	ImportedAt time.Time   `yaml:"imported_at"`
}

// AppData данные приложения, сохраняемые между запусками
type AppData struct {
	Library  []LibraryEntry `yaml:"library"`
	Recent   []model.Track  `yaml:"recent"`
	Playlist []model.Track  `yaml:"playlist"`
}

// NewAppData создает новую структуру AppData
func NewAppData() *AppData {
	return &AppData{
		Library:  make([]LibraryEntry, 0),
		Recent:   make([]model.Track, 0),
		Playlist: make([]model.Track, 0),
	}
}

// LoadData загружает данные из хранилища. Отсутствие записи дает пустые списки.
func (d *AppData) LoadData(store kv.Store) error {
	raw, ok, err := store.Get(Key)
	if err != nil {
		return fmt.Errorf("ошибка чтения данных: %w", err)
	}
	if !ok || len(raw) == 0 {
		*d = *NewAppData()
		return nil
	}
	loaded := NewAppData()
	if err := yaml.Unmarshal(raw, loaded); err != nil {
		return fmt.Errorf("ошибка разбора данных: %w", err)
	}
	*d = *loaded
	return nil
}

// SaveData сохраняет данные в хранилище
func (d *AppData) SaveData(store kv.Store) error {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных: %w", err)
	}
	if err := store.Set(Key, raw); err != nil {
		return fmt.Errorf("ошибка записи данных: %w", err)
	}
	return nil
}

// AddLocal добавляет файл в библиотеку; файл с тем же именем не добавляется
func (d *AppData) AddLocal(entry LibraryEntry) error {
	if _, ok := d.LocalByName(entry.Track.FileName); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, entry.Track.FileName)
	}
	d.Library = append(d.Library, entry)
	return nil
}

// RemoveLocal удаляет файл из библиотеки, недавних и пользовательского плейлиста
func (d *AppData) RemoveLocal(fileName string) error {
	i := slices.IndexFunc(d.Library, func(e LibraryEntry) bool { return e.Track.FileName == fileName })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fileName)
	}
	d.Library = slices.Delete(d.Library, i, i+1)

	isFile := func(t model.Track) bool { return t.IsLocal() && t.FileName == fileName }
	d.Recent = slices.DeleteFunc(d.Recent, isFile)
	d.Playlist = slices.DeleteFunc(d.Playlist, isFile)
	return nil
}

// LocalByName ищет файл в библиотеке по имени
func (d *AppData) LocalByName(fileName string) (LibraryEntry, bool) {
	for _, e := range d.Library {
		if e.Track.FileName == fileName {
			return e, true
		}
	}
	return LibraryEntry{}, false
}

// LocalTracks возвращает треки библиотеки в порядке импорта
func (d *AppData) LocalTracks() []model.Track {
	tracks := make([]model.Track, 0, len(d.Library))
	for _, e := range d.Library {
		tracks = append(tracks, e.Track)
	}
	return tracks
}

// AddRecent ставит трек в начало недавних, убирая повтор и лишние записи
func (d *AppData) AddRecent(track model.Track) {
	d.Recent = slices.DeleteFunc(d.Recent, track.SameAs)
	d.Recent = slices.Insert(d.Recent, 0, track)
	if len(d.Recent) > RecentLimit {
		d.Recent = d.Recent[:RecentLimit]
	}
}

// AddToPlaylist добавляет трек в пользовательский плейлист
func (d *AppData) AddToPlaylist(track model.Track) error {
	if model.IndexOf(d.Playlist, track) >= 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, track.Title)
	}
	d.Playlist = append(d.Playlist, track)
	return nil
}

// RemoveFromPlaylist удаляет трек из пользовательского плейлиста
func (d *AppData) RemoveFromPlaylist(track model.Track) error {
	i := model.IndexOf(d.Playlist, track)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, track.Title)
	}
	d.Playlist = slices.Delete(d.Playlist, i, i+1)
	return nil
}
