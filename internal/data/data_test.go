package data

import (
	"errors"
	"testing"

	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

func remote(id string) model.Track {
	return model.NewRemote(id, "https://cdn.example.com/"+id+".mp3", "Track "+id, "")
}

func TestAddRecentDedupAndLimit(t *testing.T) {
	d := NewAppData()

	for _, id := range []string{"a", "b", "c", "a", "d"} {
		d.AddRecent(remote(id))
	}

	want := []string{"d", "a", "c"}
	if len(d.Recent) != len(want) {
		t.Fatalf("Ожидалось %d недавних треков, получено %d", len(want), len(d.Recent))
	}
	for i, id := range want {
		if d.Recent[i].ID != id {
			t.Errorf("Позиция %d: ожидался %s, получен %s", i, id, d.Recent[i].ID)
		}
	}
}

func TestPlaylistRejectsDuplicates(t *testing.T) {
	d := NewAppData()

	if err := d.AddToPlaylist(remote("a")); err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if err := d.AddToPlaylist(remote("a")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Ожидалась ErrAlreadyExists, получено %v", err)
	}
	if err := d.RemoveFromPlaylist(remote("a")); err != nil {
		t.Errorf("Ошибка удаления: %v", err)
	}
	if err := d.RemoveFromPlaylist(remote("a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}
}

func TestLibraryAddRemove(t *testing.T) {
	d := NewAppData()
	song := model.NewLocal("song.mp3", "Song", "")

	if err := d.AddLocal(LibraryEntry{Track: song, FileSize: 10}); err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if err := d.AddLocal(LibraryEntry{Track: song}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Ожидалась ErrAlreadyExists, получено %v", err)
	}

	d.AddRecent(song)
	d.AddRecent(remote("a"))
	if err := d.AddToPlaylist(song); err != nil {
		t.Fatal(err)
	}

	if err := d.RemoveLocal("song.mp3"); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}
	if len(d.Library) != 0 || len(d.Playlist) != 0 {
		t.Errorf("Файл должен исчезнуть из библиотеки и плейлиста: %+v", d)
	}
	if len(d.Recent) != 1 || d.Recent[0].ID != "a" {
		t.Errorf("В недавних должен остаться только удаленный трек: %+v", d.Recent)
	}
	if err := d.RemoveLocal("song.mp3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}
}

func TestSaveLoadData(t *testing.T) {
	store, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	empty := NewAppData()
	if err := empty.LoadData(store); err != nil {
		t.Fatalf("Отсутствие данных не должно быть ошибкой: %v", err)
	}
	if len(empty.Library) != 0 {
		t.Error("Ожидалась пустая библиотека")
	}

	d := NewAppData()
	if err := d.AddLocal(LibraryEntry{Track: model.NewLocal("song.mp3", "", ""), FileSize: 42}); err != nil {
		t.Fatal(err)
	}
	d.AddRecent(remote("a"))
	if err := d.SaveData(store); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	loaded := NewAppData()
	if err := loaded.LoadData(store); err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if entry, ok := loaded.LocalByName("song.mp3"); !ok || entry.FileSize != 42 {
		t.Errorf("Библиотека загружена неверно: %+v", loaded.Library)
	}
	if len(loaded.Recent) != 1 || loaded.Recent[0].ID != "a" {
		t.Errorf("Недавние загружены неверно: %+v", loaded.Recent)
	}
}

func TestLoadDataMalformed(t *testing.T) {
	store, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(Key, []byte("library: [broken")); err != nil {
		t.Fatal(err)
	}

	if err := NewAppData().LoadData(store); err == nil {
		t.Error("Ожидалась ошибка разбора")
	}
}
