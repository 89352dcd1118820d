package session

import (
	"context"
	"testing"

	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

func TestRestoreLocalTrackPosition(t *testing.T) {
	fx := newFixture(t)
	fx.putFile(t, "song.mp3")
	fx.factory.durations["song.mp3"] = 180

	if err := fx.m.PlayLocalTrack(context.Background(), model.NewLocal("song.mp3", "Song", "")); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, fx.sub, TrackChanged)
	fx.factory.last().tick(42)

	fx.restart(t)
	fx.m.Restore(context.Background())

	restored := waitEvent(t, fx.sub, PlaybackRestored)
	if restored.Track.FileName != "song.mp3" {
		t.Errorf("Восстановлен не тот трек: %+v", restored.Track)
	}
	changed := waitEvent(t, fx.sub, TrackChanged)
	if changed.Track.FileName != "song.mp3" {
		t.Errorf("Уведомление о смене трека с неверным треком: %+v", changed.Track)
	}

	if got := fx.m.CurrentTime(); got != 42 {
		t.Errorf("Ожидалась позиция 42, получено %v", got)
	}
	if !fx.m.IsPaused() {
		t.Error("Восстановленный источник не должен запускаться сам")
	}
	if !fx.m.Cursor().IsDetached() {
		t.Error("Локальный трек восстанавливается с отсоединенным курсором")
	}
	if st := fx.m.State(); st.Status != Paused || st.Kind != model.KindLocal {
		t.Errorf("Ожидалось paused(local), получено %+v", st)
	}
}

func TestRestoreLocalNearEndStartsOver(t *testing.T) {
	fx := newFixture(t)
	fx.putFile(t, "song.mp3")
	fx.factory.durations["song.mp3"] = 180

	if err := fx.m.PlayLocalTrack(context.Background(), model.NewLocal("song.mp3", "", "")); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, fx.sub, TrackChanged)
	fx.factory.last().tick(179.5)

	if snap := fx.snapshot(t); snap.LocalPositionSeconds != 0 {
		t.Errorf("Позиция у самого конца должна сохраняться как 0, получено %v", snap.LocalPositionSeconds)
	}

	fx.restart(t)
	fx.m.Restore(context.Background())
	waitEvent(t, fx.sub, PlaybackRestored)

	if got := fx.m.CurrentTime(); got != 0 {
		t.Errorf("Ожидалась позиция 0, получено %v", got)
	}
}

func TestRestorePositionBeyondDurationResets(t *testing.T) {
	fx := newFixture(t)
	fx.putFile(t, "song.mp3")
	fx.factory.durations["song.mp3"] = 100

	track := model.NewLocal("song.mp3", "", "")
	raw := Snapshot{CursorIndex: -1, CurrentTrack: &track, IsLocal: true, LocalPositionSeconds: 150}
	if err := saveSnapshot(fx.state, raw); err != nil {
		t.Fatal(err)
	}

	fx.m.Restore(context.Background())
	waitEvent(t, fx.sub, PlaybackRestored)

	if got := fx.m.CurrentTime(); got != 0 {
		t.Errorf("Позиция за концом трека должна сбрасываться в 0, получено %v", got)
	}
}

func TestRestoreMissingLocalFileIsIdle(t *testing.T) {
	fx := newFixture(t)
	fx.putFile(t, "song.mp3")

	if err := fx.m.PlayLocalTrack(context.Background(), model.NewLocal("song.mp3", "", "")); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, fx.sub, TrackChanged)

	if err := fx.files.Delete(context.Background(), "song.mp3"); err != nil {
		t.Fatal(err)
	}

	fx.restart(t)
	fx.m.Restore(context.Background())

	if _, ok := fx.m.CurrentTrack(); ok {
		t.Error("Без файла текущего трека быть не должно")
	}
	if fx.m.State().Status != Idle {
		t.Errorf("Ожидалось idle, получено %s", fx.m.State().Status)
	}
	expectNoEvent(t, fx.sub)
}

func TestRestoreMetadataTimeout(t *testing.T) {
	fx := newFixture(t)
	fx.putFile(t, "song.mp3")

	track := model.NewLocal("song.mp3", "", "")
	raw := Snapshot{CursorIndex: -1, CurrentTrack: &track, IsLocal: true, LocalPositionSeconds: 42}
	if err := saveSnapshot(fx.state, raw); err != nil {
		t.Fatal(err)
	}
	fx.factory.neverReady = true

	fx.m.Restore(context.Background())
	waitEvent(t, fx.sub, PlaybackRestored)

	if got := fx.factory.last().lastSeek(); got != -1 {
		t.Errorf("Без метаданных позиция не восстанавливается, получена перемотка на %v", got)
	}
	if got := fx.m.CurrentTime(); got != 0 {
		t.Errorf("Ожидалась позиция 0, получено %v", got)
	}
}

func TestRestoreRemotePlaylist(t *testing.T) {
	fx := newFixture(t)
	if err := fx.m.SetPlaylist(remoteTracks("a", "b", "c"), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, fx.sub, TrackChanged)
	fx.factory.last().tick(30)

	fx.restart(t)
	fx.m.Restore(context.Background())
	waitEvent(t, fx.sub, PlaybackRestored)

	if len(fx.m.Playlist()) != 3 {
		t.Errorf("Ожидался плейлист из 3 треков, получено %d", len(fx.m.Playlist()))
	}
	if cursor := fx.m.Cursor(); cursor.IsDetached() || cursor.Index != 1 {
		t.Errorf("Ожидался курсор indexed(1), получен %s", cursor)
	}
	if got := fx.m.CurrentTime(); got != 30 {
		t.Errorf("Ожидалась позиция 30, получено %v", got)
	}
	if !fx.m.IsPaused() {
		t.Error("Восстановленный поток не должен запускаться сам")
	}
	if fx.factory.last().plays != 0 {
		t.Error("Play не должен вызываться при восстановлении")
	}

	// После восстановления транспорт работает как обычно
	fx.m.Next()
	if got := currentID(t, fx.m); got != "c" {
		t.Errorf("Ожидался трек c, получен %s", got)
	}
}

func TestRestoreMalformedSnapshotIsIdle(t *testing.T) {
	fx := newFixture(t)
	if err := fx.state.Set(SnapshotKey, []byte("playlist: [unclosed")); err != nil {
		t.Fatal(err)
	}

	fx.m.Restore(context.Background())

	if fx.m.State().Status != Idle {
		t.Errorf("Ожидалось idle, получено %s", fx.m.State().Status)
	}
	expectNoEvent(t, fx.sub)
}

func TestRestoreWithoutSnapshotIsIdle(t *testing.T) {
	fx := newFixture(t)
	fx.m.Restore(context.Background())

	if _, ok := fx.m.CurrentTrack(); ok {
		t.Error("Без снимка текущего трека быть не должно")
	}
	expectNoEvent(t, fx.sub)
}

func TestRestoreRunsOnce(t *testing.T) {
	fx := newFixture(t)
	if err := fx.m.SetPlaylist(remoteTracks("a"), 0); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, fx.sub, TrackChanged)

	fx.restart(t)
	fx.m.Restore(context.Background())
	waitEvent(t, fx.sub, PlaybackRestored)
	created := fx.factory.count()

	fx.m.Restore(context.Background())
	if fx.factory.count() != created {
		t.Error("Повторное восстановление не должно создавать источники")
	}
}

func TestSnapshotRoundTripSQLite(t *testing.T) {
	store, err := kv.NewSQLiteStore(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatalf("Ошибка открытия базы: %v", err)
	}
	defer store.Close()

	track := model.NewLocal("song.mp3", "Song", "Artist")
	want := Snapshot{
		Playlist:             remoteTracks("a", "b"),
		CursorIndex:          -1,
		CurrentTrack:         &track,
		IsLocal:              true,
		LocalPositionSeconds: 42,
	}
	if err := saveSnapshot(store, want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := LoadSnapshot(store)
	if err != nil || !ok {
		t.Fatalf("Ожидался снимок: ok=%v err=%v", ok, err)
	}
	if len(got.Playlist) != 2 || got.CurrentTrack == nil || got.CurrentTrack.FileName != "song.mp3" {
		t.Errorf("Снимок прочитан неверно: %+v", got)
	}
	if got.LocalPositionSeconds != 42 || !got.IsLocal || got.CursorIndex != -1 {
		t.Errorf("Снимок прочитан неверно: %+v", got)
	}
}
