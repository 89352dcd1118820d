// Package backend содержит источники звука для менеджера воспроизведения:
// потоковый (трек каталога по URL) и локальный (файл из хранилища).
package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hazadus/go-nowplaying/internal/logger"
	"github.com/hazadus/go-nowplaying/internal/model"
)

var (
	// ErrClosed возвращается при обращении к закрытому источнику
	ErrClosed = errors.New("источник звука закрыт")
	// ErrNotLoaded возвращается, если аудиоданные еще не декодированы
	ErrNotLoaded = errors.New("аудиоданные не загружены")
	// ErrNotSeekable возвращается при перемотке назад в потоке без поддержки перемотки
	ErrNotSeekable = errors.New("поток не поддерживает перемотку назад")
	// ErrUnsupportedFormat возвращается, если ни один декодер не распознал данные
	ErrUnsupportedFormat = errors.New("неподдерживаемый формат аудио")
)

// Listener набор обработчиков событий источника. Пустой Listener отписывает все обработчики.
type Listener struct {
	OnTick  func(seconds float64) // Периодическое уведомление о позиции
	OnEnded func()                // Трек доигран до конца
	OnError func(err error)       // Ошибка декодирования во время воспроизведения
}

// Backend источник звука, владеющий одним треком
type Backend interface {
	Kind() model.Kind
	Track() model.Track
	// Play запускает или возобновляет воспроизведение
	Play(ctx context.Context) error
	Pause()
	// Seek перемещает позицию; до загрузки данных позиция запоминается
	Seek(seconds float64) error
	CurrentTime() float64
	// Duration возвращает длительность в секундах или 0, если она неизвестна
	Duration() float64
	IsPaused() bool
	// Ready закрывается, когда метаданные загружены или загрузка не удалась
	Ready() <-chan struct{}
	SetListener(l Listener)
	Close() error
}

// Options общие параметры источников
type Options struct {
	Output       Output
	TickInterval time.Duration
	Logger       *log.Logger
	HTTPClient   *http.Client // Только для потокового источника
	BufferSize   int
}

func (o Options) withDefaults() Options {
	if o.Output == nil {
		o.Output = DefaultOutput()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}
