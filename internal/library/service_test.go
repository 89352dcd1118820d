package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/filestore"
	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// MockPlayer мок менеджера воспроизведения
type MockPlayer struct {
	mu        sync.Mutex
	playlist  []model.Track
	start     int
	local     []model.Track
	forgotten []string
	localErr  error
}

func (p *MockPlayer) SetPlaylist(tracks []model.Track, start int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist, p.start = tracks, start
	return nil
}

func (p *MockPlayer) PlayLocalTrack(ctx context.Context, track model.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.localErr != nil {
		return p.localErr
	}
	p.local = append(p.local, track)
	return nil
}

func (p *MockPlayer) ForgetLocal(fileName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten = append(p.forgotten, fileName)
}

func newTestService(t *testing.T) (*Service, *filestore.DirStore, kv.Store, *MockPlayer) {
	t.Helper()
	files, err := filestore.NewDirStore(t.TempDir(), filestore.DefaultPrefix)
	if err != nil {
		t.Fatal(err)
	}
	state, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	player := &MockPlayer{}
	svc, err := NewService(files, state, player, nil)
	if err != nil {
		t.Fatalf("Ошибка создания сервиса: %v", err)
	}
	return svc, files, state, player
}

func TestImportFile(t *testing.T) {
	svc, files, state, _ := newTestService(t)

	path := filepath.Join(t.TempDir(), "Artist - Title.mp3")
	if err := os.WriteFile(path, []byte("fake mp3 content"), 0644); err != nil {
		t.Fatal(err)
	}

	var progress int64
	track, err := svc.ImportFile(context.Background(), path, func(n int64) { progress = n })
	if err != nil {
		t.Fatalf("Ошибка импорта: %v", err)
	}
	if progress != int64(len("fake mp3 content")) {
		t.Errorf("Ожидался прогресс %d, получено %d", len("fake mp3 content"), progress)
	}
	if track.FileName != "Artist - Title.mp3" || track.Artist != "Artist" || track.Title != "Title" {
		t.Errorf("Неверный трек: %+v", track)
	}

	if _, ok, _ := files.Get(context.Background(), "Artist - Title.mp3"); !ok {
		t.Error("Файл должен попасть в хранилище")
	}

	// Индекс библиотеки переживает перезапуск
	reloaded, err := NewService(files, state, &MockPlayer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Tracks()) != 1 {
		t.Errorf("Ожидался 1 трек после перезагрузки, получено %d", len(reloaded.Tracks()))
	}
}

func TestImportSkipsExistingName(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, "song.mp3", []byte("one")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Import(ctx, "song.mp3", []byte("two"))
	if !IsDuplicate(err) {
		t.Errorf("Ожидалась ошибка дубликата, получено %v", err)
	}
	if len(svc.Tracks()) != 1 {
		t.Errorf("Ожидался 1 трек, получено %d", len(svc.Tracks()))
	}
}

func TestImportInvalidName(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.Import(context.Background(), "../evil.mp3", []byte("x")); err == nil {
		t.Error("Ожидалась ошибка для недопустимого имени")
	}
}

func TestImportMissingFile(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.ImportFile(context.Background(), filepath.Join(t.TempDir(), "none.mp3"), nil); err == nil {
		t.Error("Ожидалась ошибка для отсутствующего файла")
	}
}

func TestRemoveStopsPlayback(t *testing.T) {
	svc, files, _, player := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, "song.mp3", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove(ctx, "song.mp3"); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}

	if _, ok, _ := files.Get(ctx, "song.mp3"); ok {
		t.Error("Файл должен быть удален из хранилища")
	}
	if len(player.forgotten) != 1 || player.forgotten[0] != "song.mp3" {
		t.Errorf("Менеджер должен узнать об удалении: %v", player.forgotten)
	}
	if err := svc.Remove(ctx, "song.mp3"); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}
}

func TestRescan(t *testing.T) {
	svc, files, _, player := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, "gone.mp3", []byte("x")); err != nil {
		t.Fatal(err)
	}
	// Файл удален мимо библиотеки, другой добавлен напрямую
	if err := files.Delete(ctx, "gone.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := files.Put(ctx, "new.mp3", []byte("y")); err != nil {
		t.Fatal(err)
	}

	added, removed, err := svc.Rescan(ctx)
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}
	if added != 1 || removed != 1 {
		t.Errorf("Ожидалось 1 добавление и 1 удаление, получено %d и %d", added, removed)
	}
	if _, ok := svc.Entry("new.mp3"); !ok {
		t.Error("Новый файл должен появиться в библиотеке")
	}
	if len(player.forgotten) != 1 {
		t.Errorf("Менеджер должен узнать о пропавшем файле: %v", player.forgotten)
	}
}

func TestPlayFromListRecordsRecent(t *testing.T) {
	svc, _, _, player := newTestService(t)

	list := []model.Track{
		model.NewRemote("a", "https://cdn.example.com/a.mp3", "A", ""),
		model.NewRemote("b", "https://cdn.example.com/b.mp3", "B", ""),
	}
	if err := svc.PlayFromList(list, list[1]); err != nil {
		t.Fatal(err)
	}
	if len(player.playlist) != 2 || player.start != 1 {
		t.Errorf("Ожидался плейлист из 2 треков с позиции 1, получено %d, %d", len(player.playlist), player.start)
	}

	outside := model.NewRemote("z", "https://cdn.example.com/z.mp3", "Z", "")
	if err := svc.PlayFromList(list, outside); err != nil {
		t.Fatal(err)
	}
	if len(player.playlist) != 1 || player.playlist[0].ID != "z" {
		t.Errorf("Трек вне списка воспроизводится один: %+v", player.playlist)
	}

	recent := svc.Recent()
	if len(recent) != 2 || recent[0].ID != "z" || recent[1].ID != "b" {
		t.Errorf("Неверный список недавних: %+v", recent)
	}
}

func TestPlayLocal(t *testing.T) {
	svc, _, _, player := newTestService(t)
	ctx := context.Background()

	if err := svc.PlayLocal(ctx, "missing.mp3"); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}

	if _, err := svc.Import(ctx, "song.mp3", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := svc.PlayLocal(ctx, "song.mp3"); err != nil {
		t.Fatalf("Ошибка воспроизведения: %v", err)
	}
	if len(player.local) != 1 || player.local[0].FileName != "song.mp3" {
		t.Errorf("Менеджер должен получить локальный трек: %+v", player.local)
	}
	if len(svc.Recent()) != 1 {
		t.Error("Трек должен попасть в недавние")
	}

	player.localErr = errors.New("файла нет")
	if err := svc.PlayLocal(ctx, "song.mp3"); err == nil {
		t.Error("Ошибка менеджера должна возвращаться")
	}
}

func TestUserPlaylist(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	track := model.NewRemote("a", "https://cdn.example.com/a.mp3", "A", "")

	if err := svc.AddToPlaylist(track); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddToPlaylist(track); !IsDuplicate(err) {
		t.Errorf("Ожидалась ошибка дубликата, получено %v", err)
	}
	if len(svc.UserPlaylist()) != 1 {
		t.Errorf("Ожидался 1 трек в плейлисте")
	}
	if err := svc.RemoveFromPlaylist(track); err != nil {
		t.Fatal(err)
	}
	if len(svc.UserPlaylist()) != 0 {
		t.Errorf("Плейлист должен быть пуст")
	}
}
