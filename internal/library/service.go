// Package library управляет импортированными файлами: загрузка в хранилище файлов,
// индекс библиотеки, недавние треки и пользовательский плейлист.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/filestore"
	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/logger"
	"github.com/hazadus/go-nowplaying/internal/metadata"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// Player часть менеджера воспроизведения, нужная библиотеке
type Player interface {
	SetPlaylist(tracks []model.Track, start int) error
	PlayLocalTrack(ctx context.Context, track model.Track) error
	ForgetLocal(fileName string)
}

// Service управляет процессом импорта и удаления файлов
type Service struct {
	files     filestore.Store
	state     kv.Store
	player    Player
	extractor *metadata.Extractor
	log       *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	appData *data.AppData
}

// NewService создает сервис и загружает данные приложения
func NewService(files filestore.Store, state kv.Store, player Player, l *log.Logger) (*Service, error) {
	if l == nil {
		l = logger.Discard()
	}
	appData := data.NewAppData()
	if err := appData.LoadData(state); err != nil {
		return nil, err
	}
	return &Service{
		files:     files,
		state:     state,
		player:    player,
		extractor: metadata.NewExtractor(),
		log:       l.With("component", "library"),
		now:       time.Now,
		appData:   appData,
	}, nil
}

// ImportFile читает файл с диска и импортирует его в библиотеку
func (s *Service) ImportFile(ctx context.Context, filePath string, progressCallback func(int64)) (model.Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Track{}, fmt.Errorf("файл не найден: %s", filePath)
		}
		return model.Track{}, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return model.Track{}, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	var reader io.Reader = file
	if progressCallback != nil {
		reader = &ProgressReader{
			Reader:     file,
			Size:       stat.Size(),
			OnProgress: progressCallback,
		}
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return model.Track{}, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	return s.Import(ctx, filepath.Base(filePath), content)
}

// Import сохраняет данные в хранилище файлов и добавляет трек в библиотеку.
// Файл с уже существующим именем пропускается с ошибкой data.ErrAlreadyExists.
func (s *Service) Import(ctx context.Context, name string, content []byte) (model.Track, error) {
	if err := filestore.ValidateName(name); err != nil {
		return model.Track{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appData.LocalByName(name); ok {
		return model.Track{}, fmt.Errorf("%w: %s", data.ErrAlreadyExists, name)
	}

	track := s.extractor.Track(name, content)
	if err := s.files.Put(ctx, name, content); err != nil {
		return model.Track{}, err
	}

	entry := data.LibraryEntry{Track: track, FileSize: int64(len(content)), ImportedAt: s.now()}
	if err := s.appData.AddLocal(entry); err != nil {
		return model.Track{}, err
	}
	if err := s.appData.SaveData(s.state); err != nil {
		return model.Track{}, err
	}

	s.log.Info("файл импортирован", "file", name, "duration", track.Duration)
	return track, nil
}

// Remove удаляет файл из хранилища и библиотеки; если он играет, воспроизведение останавливается
func (s *Service) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appData.LocalByName(name); !ok {
		return fmt.Errorf("%w: %s", data.ErrNotFound, name)
	}
	if err := s.files.Delete(ctx, name); err != nil {
		return err
	}
	if err := s.appData.RemoveLocal(name); err != nil {
		return err
	}
	s.player.ForgetLocal(name)

	s.log.Info("файл удален", "file", name)
	return s.appData.SaveData(s.state)
}

// Rescan сверяет индекс библиотеки с хранилищем файлов: добавляет файлы без записи
// и убирает записи без файлов. Возвращает число добавленных и удаленных записей.
func (s *Service) Rescan(ctx context.Context) (added, removed int, err error) {
	files, err := s.files.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Name] = true
		if _, ok := s.appData.LocalByName(f.Name); ok {
			continue
		}
		track := s.extractor.Track(f.Name, f.Data)
		if err := s.appData.AddLocal(data.LibraryEntry{Track: track, FileSize: int64(len(f.Data)), ImportedAt: s.now()}); err != nil {
			return added, removed, err
		}
		added++
	}

	for _, track := range s.appData.LocalTracks() {
		if present[track.FileName] {
			continue
		}
		if err := s.appData.RemoveLocal(track.FileName); err != nil {
			return added, removed, err
		}
		s.player.ForgetLocal(track.FileName)
		removed++
	}

	if added+removed > 0 {
		s.log.Info("библиотека синхронизирована", "added", added, "removed", removed)
		if err := s.appData.SaveData(s.state); err != nil {
			return added, removed, err
		}
	}
	return added, removed, nil
}

// Tracks возвращает треки библиотеки
func (s *Service) Tracks() []model.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appData.LocalTracks()
}

// Entry возвращает запись библиотеки по имени файла
func (s *Service) Entry(name string) (data.LibraryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appData.LocalByName(name)
}

// PlayFromList запускает список с выбранного трека и отмечает трек как недавний.
// Трек вне списка воспроизводится как список из одного трека.
func (s *Service) PlayFromList(list []model.Track, track model.Track) error {
	i := model.IndexOf(list, track)
	if i < 0 {
		list, i = []model.Track{track}, 0
	}
	if err := s.player.SetPlaylist(list, i); err != nil {
		return err
	}
	return s.markRecent(track)
}

// PlayLocal воспроизводит файл библиотеки вне контекста плейлиста
func (s *Service) PlayLocal(ctx context.Context, name string) error {
	entry, ok := s.Entry(name)
	if !ok {
		return fmt.Errorf("%w: %s", data.ErrNotFound, name)
	}
	if err := s.player.PlayLocalTrack(ctx, entry.Track); err != nil {
		return err
	}
	return s.markRecent(entry.Track)
}

func (s *Service) markRecent(track model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appData.AddRecent(track)
	return s.appData.SaveData(s.state)
}

// Recent возвращает недавно прослушанные треки, последний первым
func (s *Service) Recent() []model.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.appData.Recent)
}

// UserPlaylist возвращает пользовательский плейлист
func (s *Service) UserPlaylist() []model.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.appData.Playlist)
}

// AddToPlaylist добавляет трек в пользовательский плейлист
func (s *Service) AddToPlaylist(track model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appData.AddToPlaylist(track); err != nil {
		return err
	}
	return s.appData.SaveData(s.state)
}

// RemoveFromPlaylist удаляет трек из пользовательского плейлиста
func (s *Service) RemoveFromPlaylist(track model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appData.RemoveFromPlaylist(track); err != nil {
		return err
	}
	return s.appData.SaveData(s.state)
}

// IsDuplicate сообщает, что ошибка означает уже импортированный файл
func IsDuplicate(err error) bool {
	return errors.Is(err, data.ErrAlreadyExists)
}

// ProgressReader структура для отслеживания прогресса чтения
type ProgressReader struct {
	io.Reader
	Size       int64
	OnProgress func(int64)
	bytesRead  int64
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.Reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.OnProgress != nil {
		pr.OnProgress(pr.bytesRead)
	}
	return n, err
}
