package backend

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
)

// engine управляет одним декодированным стримером: пауза, перемотка, позиция,
// уведомления о тиках и окончании. Порядок блокировок: mu, затем output.
type engine struct {
	output Output
	tick   time.Duration
	log    *log.Logger

	mu       sync.Mutex
	listener Listener
	src      beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	queueID  int // Номер последней постановки в микшер
	queued   bool
	paused   bool
	ended    bool
	closed   bool
	pending  float64 // Позиция, запрошенная до загрузки данных
	duration float64
	seekable bool // false для потоков, которые читаются только вперед
	stopTick chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

func newEngine(opts Options, seekable bool) *engine {
	return &engine{
		output:   opts.Output,
		tick:     opts.TickInterval,
		log:      opts.Logger,
		seekable: seekable,
		paused:   true,
		ready:    make(chan struct{}),
	}
}

func (e *engine) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Ready закрывается, когда метаданные известны
func (e *engine) Ready() <-chan struct{} {
	return e.ready
}

// SetListener заменяет все обработчики событий
func (e *engine) SetListener(l Listener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// load подключает декодированный стример. Вызывается под mu.
func (e *engine) load(src beep.StreamSeekCloser, format beep.Format, advertised float64) {
	e.src = src
	e.format = format
	e.ctrl = &beep.Ctrl{Streamer: src, Paused: true}
	e.ended = false

	e.duration = advertised
	if e.duration <= 0 && src.Len() > 0 {
		e.duration = format.SampleRate.D(src.Len()).Seconds()
	}

	if e.pending > 0 {
		if err := e.seekLocked(e.pending); err != nil {
			e.log.Warn("не удалось восстановить позицию", "seconds", e.pending, "err", err)
		}
	}
	e.pending = 0
}

// unload отключает стример от вывода и закрывает его. Вызывается под mu.
func (e *engine) unload() {
	e.stopTicker()
	if e.ctrl != nil {
		e.output.Lock()
		e.ctrl.Streamer = nil
		e.output.Unlock()
		e.ctrl = nil
	}
	if e.src != nil {
		if err := e.src.Close(); err != nil {
			e.log.Debug("ошибка закрытия стримера", "err", err)
		}
		e.src = nil
	}
	e.queued = false
	e.queueID++
}

// start ставит стример в микшер (если нужно) и снимает паузу.
// После отмены ctx пауза не снимается.
func (e *engine) start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.src == nil {
		return ErrNotLoaded
	}

	if e.ended {
		// Повторное воспроизведение доигранного трека начинается сначала
		if err := e.seekLocked(0); err != nil {
			return err
		}
		e.ended = false
	}

	if !e.queued {
		e.queueID++
		id := e.queueID
		s := beep.Seq(e.ctrl, beep.Callback(func() {
			// Вызывается из горутины микшера под его блокировкой
			go e.finish(id)
		}))
		if err := e.output.Play(s, e.format); err != nil {
			return err
		}
		e.queued = true
	}

	e.output.Lock()
	e.ctrl.Paused = false
	e.output.Unlock()
	e.paused = false

	e.startTicker()
	return nil
}

// Pause приостанавливает воспроизведение
func (e *engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl != nil {
		e.output.Lock()
		e.ctrl.Paused = true
		e.output.Unlock()
	}
	e.paused = true
	e.stopTicker()
}

// IsPaused сообщает, стоит ли воспроизведение на паузе
func (e *engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// CurrentTime возвращает текущую позицию в секундах
func (e *engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *engine) positionLocked() float64 {
	if e.src == nil {
		return e.pending
	}
	e.output.Lock()
	pos := e.src.Position()
	e.output.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// Duration возвращает длительность или 0, если она неизвестна
func (e *engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Seek перемещает позицию; до загрузки данных позиция запоминается
func (e *engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.seekLocked(seconds)
}

func (e *engine) seekLocked(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	if e.src == nil {
		e.pending = seconds
		return nil
	}

	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if l := e.src.Len(); l > 0 && n > l {
		n = l
	}

	e.output.Lock()
	defer e.output.Unlock()

	if e.seekable {
		if err := e.src.Seek(n); err != nil {
			return err
		}
		e.ended = false
		return nil
	}

	// Поток читается только вперед: сэмплы до позиции пропускаются
	pos := e.src.Position()
	if n < pos {
		return ErrNotSeekable
	}
	skip(e.src, n-pos)
	e.ended = false
	return nil
}

// skip вычитывает и отбрасывает n сэмплов
func skip(s beep.Streamer, n int) {
	buf := make([][2]float64, 4096)
	for n > 0 {
		k := min(n, len(buf))
		m, ok := s.Stream(buf[:k])
		n -= m
		if !ok {
			return
		}
	}
}

// finish обрабатывает окончание стримера в микшере
func (e *engine) finish(id int) {
	e.mu.Lock()
	if e.closed || id != e.queueID {
		e.mu.Unlock()
		return
	}
	e.queued = false
	e.paused = true
	e.ended = true
	e.stopTicker()

	var err error
	if e.src != nil {
		err = e.src.Err()
	}
	l := e.listener
	e.mu.Unlock()

	if err != nil {
		if l.OnError != nil {
			l.OnError(err)
		}
		return
	}
	if l.OnEnded != nil {
		l.OnEnded()
	}
}

// startTicker запускает уведомления о позиции. Вызывается под mu.
func (e *engine) startTicker() {
	if e.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	e.stopTick = stop
	go e.runTicker(stop)
}

// stopTicker останавливает уведомления о позиции. Вызывается под mu.
func (e *engine) stopTicker() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

func (e *engine) runTicker(stop <-chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			pos := e.positionLocked()
			l := e.listener
			e.mu.Unlock()

			select {
			case <-stop:
				return
			default:
			}
			if l.OnTick != nil {
				l.OnTick(pos)
			}
		}
	}
}

// Close останавливает воспроизведение и освобождает ресурсы
func (e *engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.unload()
	e.paused = true
	e.listener = Listener{}
	e.markReady()
	return nil
}
