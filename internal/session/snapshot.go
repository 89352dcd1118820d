package session

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// SnapshotKey ключ снимка в хранилище состояния
const SnapshotKey = "now_playing"

// endGuard окно у конца локального трека, в котором сохраненная позиция сбрасывается в 0
const endGuard = 1.0

// Snapshot сохраняемый образ состояния воспроизведения
type Snapshot struct {
	Playlist              []model.Track `yaml:"playlist"`
	CursorIndex           int           `yaml:"cursorIndex"` // -1 для отсоединенного курсора
	CurrentTrack          *model.Track  `yaml:"currentTrack,omitempty"`
	IsLocal               bool          `yaml:"isLocal"`
	RemotePositionSeconds float64       `yaml:"remotePositionSeconds"`
	LocalPositionSeconds  float64       `yaml:"localPositionSeconds"`
}

// LoadSnapshot читает снимок из хранилища. Отсутствие снимка возвращает ok == false.
func LoadSnapshot(store kv.Store) (Snapshot, bool, error) {
	raw, ok, err := store.Get(SnapshotKey)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("ошибка чтения снимка: %w", err)
	}
	if !ok {
		return Snapshot{}, false, nil
	}

	var snap Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("ошибка разбора снимка: %w", err)
	}
	return snap, true, nil
}

func saveSnapshot(store kv.Store, snap Snapshot) error {
	raw, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("ошибка сериализации снимка: %w", err)
	}
	if err := store.Set(SnapshotKey, raw); err != nil {
		return fmt.Errorf("ошибка записи снимка: %w", err)
	}
	return nil
}

// localPosition возвращает позицию для сохранения; почти доигранный трек начнется сначала
func localPosition(pos, duration float64) float64 {
	if duration > 0 && pos >= duration-endGuard {
		return 0
	}
	return pos
}
