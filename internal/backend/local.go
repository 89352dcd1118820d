package backend

import (
	"context"

	"github.com/hazadus/go-nowplaying/internal/model"
)

// Local воспроизводит файл, целиком загруженный в память из хранилища файлов
type Local struct {
	*engine
	track   model.Track
	loadErr error
}

// NewLocal создает локальный источник и асинхронно декодирует данные
func NewLocal(track model.Track, data []byte, opts Options) *Local {
	opts = opts.withDefaults()
	l := &Local{
		engine: newEngine(opts, true),
		track:  track,
	}
	go l.decode(data)
	return l
}

func (l *Local) decode(data []byte) {
	src, format, err := DecodeBytes(l.track.Ext(), data)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.markReady()

	if err != nil {
		l.loadErr = err
		l.log.Error("ошибка декодирования файла", "file", l.track.FileName, "err", err)
		return
	}
	if l.closed {
		src.Close()
		return
	}
	l.load(src, format, 0)
}

// Kind возвращает вид источника
func (l *Local) Kind() model.Kind { return model.KindLocal }

// Track возвращает воспроизводимый трек
func (l *Local) Track() model.Track { return l.track }

// Play дожидается декодирования и запускает воспроизведение
func (l *Local) Play(ctx context.Context) error {
	select {
	case <-l.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	err := l.loadErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.start(ctx)
}
