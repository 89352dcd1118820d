package session

import (
	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// Factory создает источники звука для менеджера
type Factory interface {
	NewRemote(track model.Track) backend.Backend
	NewLocal(track model.Track, data []byte) backend.Backend
}

// BeepFactory создает источники на движке beep
type BeepFactory struct {
	Options backend.Options
}

func (f BeepFactory) NewRemote(track model.Track) backend.Backend {
	return backend.NewRemote(track, f.Options)
}

func (f BeepFactory) NewLocal(track model.Track, data []byte) backend.Backend {
	return backend.NewLocal(track, data, f.Options)
}
