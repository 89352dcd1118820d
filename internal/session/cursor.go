package session

import (
	"fmt"

	"github.com/hazadus/go-nowplaying/internal/model"
)

// Cursor позиция в плейлисте: индекс или отсоединенный трек вне плейлиста.
// Отсоединенный курсор без трека означает, что ничего не выбрано.
type Cursor struct {
	Index int // -1, если курсор отсоединен
	Track model.Track
}

func indexed(i int) Cursor {
	return Cursor{Index: i}
}

func detached(track model.Track) Cursor {
	return Cursor{Index: -1, Track: track}
}

// IsDetached сообщает, что курсор не привязан к индексу плейлиста
func (c Cursor) IsDetached() bool {
	return c.Index < 0
}

func (c Cursor) String() string {
	if !c.IsDetached() {
		return fmt.Sprintf("indexed(%d)", c.Index)
	}
	if c.Track.IsZero() {
		return "detached(none)"
	}
	return fmt.Sprintf("detached(%s)", c.Track.Identity())
}

// Status состояние автомата воспроизведения
type Status int

const (
	Idle Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "idle"
}

// State снимок состояния автомата: статус, вид активного источника и курсор
type State struct {
	Status Status
	Kind   model.Kind // Пусто в состоянии Idle
	Cursor Cursor
}

// wrap приводит индекс к диапазону [0, n) с переходом через границы
func wrap(i, n int) int {
	return ((i % n) + n) % n
}
