package session

import (
	"context"
	"time"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// Restore восстанавливает сессию из снимка. Выполняется один раз; источник
// подготавливается на паузе и сам не запускается. Любая ошибка оставляет
// менеджер в состоянии Idle.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.restored || m.closed {
		m.mu.Unlock()
		return
	}
	m.restored = true
	m.mu.Unlock()

	snap, ok, err := LoadSnapshot(m.state)
	if err != nil {
		m.log.Warn("снимок состояния поврежден, старт с чистого листа", "err", err)
		return
	}
	if !ok {
		return
	}

	if snap.IsLocal {
		m.restoreLocal(ctx, snap)
		return
	}
	m.restoreRemote(snap)
}

func (m *Manager) restoreLocal(ctx context.Context, snap Snapshot) {
	if snap.CurrentTrack == nil || !snap.CurrentTrack.IsLocal() {
		m.log.Warn("в снимке нет локального трека")
		return
	}
	track := *snap.CurrentTrack

	data, ok, err := m.files.Get(ctx, track.FileName)
	if err != nil || !ok {
		m.log.Info("файл из прошлой сессии недоступен", "file", track.FileName, "err", err)
		return
	}

	b := m.factory.NewLocal(track, data)

	timer := time.NewTimer(m.cfg.MetadataTimeout)
	defer timer.Stop()
	select {
	case <-b.Ready():
		pos := snap.LocalPositionSeconds
		if d := b.Duration(); d > 0 && pos >= d {
			pos = 0
		}
		if err := b.Seek(max(0, pos)); err != nil {
			m.log.Warn("не удалось восстановить позицию", "seconds", pos, "err", err)
		}
	case <-timer.C:
		m.log.Warn("метаданные не загрузились вовремя, позиция не восстановлена", "file", track.FileName)
	case <-ctx.Done():
		b.Close()
		return
	}

	m.mu.Lock()
	if !m.adoptLocked(b) {
		m.mu.Unlock()
		return
	}
	m.playlist = snap.Playlist
	m.cursor = detached(track)
	m.local = b
	m.active = model.KindLocal
	m.wireLocked(b, m.gen)
	m.mu.Unlock()

	m.hub.publish(
		Event{Kind: PlaybackRestored, Track: track},
		Event{Kind: TrackChanged, Track: track},
	)
}

func (m *Manager) restoreRemote(snap Snapshot) {
	playlist, index := snap.Playlist, snap.CursorIndex
	if index < 0 || index >= len(playlist) {
		if snap.CurrentTrack == nil || snap.CurrentTrack.IsLocal() || snap.CurrentTrack.IsZero() {
			return
		}
		playlist, index = []model.Track{*snap.CurrentTrack}, 0
	}
	track := playlist[index]
	if track.IsLocal() {
		m.log.Warn("снимок указывает на локальный трек при удаленном источнике", "file", track.FileName)
		return
	}

	b := m.factory.NewRemote(track)
	if err := b.Seek(max(0, snap.RemotePositionSeconds)); err != nil {
		m.log.Warn("не удалось восстановить позицию", "err", err)
	}

	m.mu.Lock()
	if !m.adoptLocked(b) {
		m.mu.Unlock()
		return
	}
	m.playlist = playlist
	m.cursor = indexed(index)
	m.remote = b
	m.active = model.KindRemote
	m.wireLocked(b, m.gen)
	m.mu.Unlock()

	m.hub.publish(
		Event{Kind: PlaybackRestored, Track: track},
		Event{Kind: TrackChanged, Track: track},
	)
}

// adoptLocked проверяет, что за время восстановления пользователь ничего не запустил.
// Иначе восстановленный источник закрывается.
func (m *Manager) adoptLocked(b backend.Backend) bool {
	if m.closed || m.active != "" || len(m.playlist) > 0 || !m.cursor.Track.IsZero() {
		b.Close()
		return false
	}
	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx, m.cancel = ctx, cancel
	return true
}
