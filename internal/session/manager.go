// Package session содержит менеджер сессии воспроизведения: плейлист с курсором,
// единственный активный источник звука, сохранение и восстановление состояния.
package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/filestore"
	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/logger"
	"github.com/hazadus/go-nowplaying/internal/model"
)

var (
	// ErrEmptyPlaylist возвращается при попытке начать воспроизведение пустого плейлиста
	ErrEmptyPlaylist = errors.New("плейлист пуст")
	// ErrFileNotFound возвращается, если файла трека нет в хранилище
	ErrFileNotFound = errors.New("файл трека не найден в хранилище")
	// ErrClosed возвращается после закрытия менеджера
	ErrClosed = errors.New("менеджер воспроизведения закрыт")
)

// Config параметры менеджера
type Config struct {
	MetadataTimeout  time.Duration   // Ожидание метаданных при восстановлении
	SkipDelay        time.Duration   // Пауза перед пропуском трека, который не удалось воспроизвести
	FallbackDuration time.Duration   // Граница перемотки, если длительность неизвестна
	Capabilities     map[string]bool // Таблица форматов; nil - опросить декодеры
}

func (c Config) withDefaults() Config {
	if c.MetadataTimeout <= 0 {
		c.MetadataTimeout = 3 * time.Second
	}
	if c.SkipDelay <= 0 {
		c.SkipDelay = time.Second
	}
	if c.FallbackDuration <= 0 {
		c.FallbackDuration = 10 * time.Minute
	}
	if c.Capabilities == nil {
		c.Capabilities = backend.ProbeFormats()
	}
	return c
}

// Manager владеет плейлистом, курсором и единственным активным источником звука.
// Второй слот хранит источник другого вида на паузе, чтобы его позиция пережила
// переключение.
type Manager struct {
	files   filestore.Store
	state   kv.Store
	factory Factory
	cfg     Config
	log     *log.Logger
	hub     *hub

	mu       sync.Mutex
	playlist []model.Track
	cursor   Cursor
	remote   backend.Backend
	local    backend.Backend
	active   model.Kind
	gen      int // Поколение: обработчики и запуски прошлых поколений игнорируются
	cancel   context.CancelFunc
	ctx      context.Context
	failures int // Подряд неудачных запусков
	restored bool
	closed   bool
}

// New создает менеджер в состоянии Idle
func New(files filestore.Store, state kv.Store, factory Factory, cfg Config, l *log.Logger) *Manager {
	if l == nil {
		l = logger.Discard()
	}
	return &Manager{
		files:   files,
		state:   state,
		factory: factory,
		cfg:     cfg.withDefaults(),
		log:     l.With("component", "session"),
		hub:     newHub(),
		cursor:  detached(model.Track{}),
		ctx:     context.Background(),
	}
}

// Subscribe подписывает на уведомления менеджера
func (m *Manager) Subscribe() *Subscription {
	return m.hub.subscribe()
}

// SetPlaylist заменяет плейлист и начинает воспроизведение с позиции start.
// Пустой список ничего не меняет.
func (m *Manager) SetPlaylist(tracks []model.Track, start int) error {
	if len(tracks) == 0 {
		return ErrEmptyPlaylist
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.setPlaylistLocked(tracks, start)
	return nil
}

func (m *Manager) setPlaylistLocked(tracks []model.Track, start int) {
	m.playlist = slices.Clone(tracks)
	start = max(0, min(start, len(m.playlist)-1))
	m.cursor = indexed(start)
	m.failures = 0
	m.activateLocked(m.playlist[start], nil)
	m.saveLocked()
}

// PlayTrack воспроизводит трек из текущего плейлиста, не заменяя его.
// Трек вне плейлиста становится плейлистом из одного трека.
func (m *Manager) PlayTrack(track model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	i := model.IndexOf(m.playlist, track)
	if i < 0 {
		m.setPlaylistLocked([]model.Track{track}, 0)
		return nil
	}

	m.cursor = indexed(i)
	m.failures = 0
	m.activateLocked(m.playlist[i], nil)
	m.saveLocked()
	return nil
}

// PlayLocalTrack воспроизводит локальный файл вне контекста плейлиста.
// Если файла нет в хранилище, состояние не меняется и возвращается ErrFileNotFound.
func (m *Manager) PlayLocalTrack(ctx context.Context, track model.Track) error {
	data, ok, err := m.files.Get(ctx, track.FileName)
	if err != nil {
		m.log.Warn("не удалось прочитать файл", "file", track.FileName, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrFileNotFound, track.FileName, err)
	}
	if !ok {
		m.log.Debug("файл отсутствует в хранилище", "file", track.FileName)
		return fmt.Errorf("%w: %s", ErrFileNotFound, track.FileName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.cursor = detached(track)
	m.failures = 0
	m.activateLocked(track, data)
	m.saveLocked()
	return nil
}

// activateLocked создает источник для трека и запускает его в отдельной горутине.
// Для локального трека без данных файл читается из хранилища вне блокировки.
func (m *Manager) activateLocked(track model.Track, data []byte) {
	m.gen++
	gen := m.gen
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx, m.cancel = ctx, cancel

	if !track.IsLocal() {
		m.muteLocked(m.local)
		m.closeRemote()

		m.remote = m.factory.NewRemote(track)
		m.active = model.KindRemote
		m.wireLocked(m.remote, gen)
		go m.start(ctx, m.remote, gen, track)
		return
	}

	m.muteLocked(m.remote)
	m.closeLocal()
	m.active = model.KindLocal
	if data == nil {
		go m.fetch(ctx, gen, track)
		return
	}
	m.attachLocalLocked(ctx, gen, track, data)
}

// fetch читает файл локального трека и запускает его, если поколение не сменилось.
// Отсутствующий файл пропускается так же, как неудачный запуск.
func (m *Manager) fetch(ctx context.Context, gen int, track model.Track) {
	data, ok, err := m.files.Get(ctx, track.FileName)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || ctx.Err() != nil {
		return
	}
	if err != nil || !ok {
		m.log.Error("файл трека недоступен", "file", track.FileName, "err", err)
		m.active = ""
		m.scheduleSkipLocked(gen)
		return
	}
	m.attachLocalLocked(ctx, gen, track, data)
}

func (m *Manager) attachLocalLocked(ctx context.Context, gen int, track model.Track, data []byte) {
	if !m.cfg.Capabilities[track.Ext()] {
		m.log.Warn("формат может не поддерживаться", "file", track.FileName, "ext", track.Ext())
	}
	m.local = m.factory.NewLocal(track, data)
	m.wireLocked(m.local, gen)
	go m.start(ctx, m.local, gen, track)
}

// start запускает воспроизведение и сообщает о смене трека после успешного запуска
func (m *Manager) start(ctx context.Context, b backend.Backend, gen int, track model.Track) {
	err := b.Play(ctx)

	m.mu.Lock()
	if gen != m.gen || ctx.Err() != nil {
		m.silenceStaleLocked(b, err)
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.log.Error("ошибка воспроизведения", "track", track.Identity(), "kind", track.Kind, "err", err)
		m.scheduleSkipLocked(gen)
		m.mu.Unlock()
		return
	}
	m.failures = 0
	m.saveLocked()
	m.mu.Unlock()

	m.hub.publish(Event{Kind: TrackChanged, Track: track})
}

// silenceStaleLocked ставит на паузу источник, запущенный после смены поколения,
// если он больше не активен
func (m *Manager) silenceStaleLocked(b backend.Backend, playErr error) {
	if playErr == nil && b != m.activeLocked() {
		b.Pause()
	}
}

// scheduleSkipLocked переходит к следующему треку после паузы. Если подряд не удалось
// воспроизвести больше треков, чем есть в плейлисте, воспроизведение останавливается.
func (m *Manager) scheduleSkipLocked(gen int) {
	m.failures++
	time.AfterFunc(m.cfg.SkipDelay, func() {
		m.mu.Lock()
		if gen != m.gen || m.closed {
			m.mu.Unlock()
			return
		}
		var events []Event
		if m.failures > len(m.playlist) {
			m.log.Warn("не удалось воспроизвести ни один трек, остановка")
			events = m.stopLocked()
		} else {
			events = m.stepLocked(1)
		}
		m.mu.Unlock()
		m.hub.publish(events...)
	})
}

func (m *Manager) wireLocked(b backend.Backend, gen int) {
	b.SetListener(backend.Listener{
		OnTick:  func(seconds float64) { m.onTick(gen, seconds) },
		OnEnded: func() { m.onEnded(gen) },
		OnError: func(err error) { m.onError(gen, err) },
	})
}

func (m *Manager) onTick(gen int, seconds float64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.saveLocked()
	m.mu.Unlock()

	m.hub.publish(Event{Kind: PositionAdvanced, Seconds: seconds})
}

func (m *Manager) onEnded(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	events := m.stepLocked(1)
	m.mu.Unlock()
	m.hub.publish(events...)
}

func (m *Manager) onError(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.log.Error("ошибка источника звука", "err", err)
	m.scheduleSkipLocked(gen)
}

// muteLocked ставит источник на паузу и отписывает его обработчики, сохраняя позицию
func (m *Manager) muteLocked(b backend.Backend) {
	if b == nil {
		return
	}
	b.Pause()
	b.SetListener(backend.Listener{})
}

func (m *Manager) closeLocal() {
	if m.local != nil {
		m.muteLocked(m.local)
		m.local.Close()
		m.local = nil
	}
}

func (m *Manager) closeRemote() {
	if m.remote != nil {
		m.muteLocked(m.remote)
		m.remote.Close()
		m.remote = nil
	}
}

func (m *Manager) activeLocked() backend.Backend {
	switch m.active {
	case model.KindLocal:
		return m.local
	case model.KindRemote:
		return m.remote
	}
	return nil
}

// Play возобновляет воспроизведение активного источника
func (m *Manager) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.activeLocked()
	if b == nil {
		return
	}
	if b.IsPaused() {
		ctx, gen := m.ctx, m.gen
		go func() {
			err := b.Play(ctx)

			m.mu.Lock()
			defer m.mu.Unlock()
			if gen != m.gen {
				m.silenceStaleLocked(b, err)
				return
			}
			if err != nil && ctx.Err() == nil {
				m.log.Error("ошибка возобновления", "err", err)
				m.scheduleSkipLocked(gen)
			}
		}()
	}
	m.saveLocked()
}

// Pause приостанавливает активный источник
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b := m.activeLocked(); b != nil {
		b.Pause()
	}
	m.saveLocked()
}

// Next переходит к следующему треку плейлиста по кругу
func (m *Manager) Next() {
	m.step(1)
}

// Previous переходит к предыдущему треку плейлиста по кругу
func (m *Manager) Previous() {
	m.step(-1)
}

func (m *Manager) step(dir int) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	events := m.stepLocked(dir)
	m.mu.Unlock()
	m.hub.publish(events...)
}

// stepLocked сдвигает курсор на dir. Отсоединенный трек, найденный в плейлисте,
// служит точкой отсчета; не найденный - переход на индекс 0 в обе стороны.
func (m *Manager) stepLocked(dir int) []Event {
	n := len(m.playlist)
	if n == 0 {
		return m.stopLocked()
	}

	var target int
	if m.cursor.IsDetached() {
		if m.cursor.Track.IsZero() {
			return m.stopLocked()
		}
		k := model.IndexOf(m.playlist, m.cursor.Track)
		if k >= 0 {
			target = wrap(k+dir, n)
		}
	} else {
		target = wrap(m.cursor.Index+dir, n)
	}

	m.cursor = indexed(target)
	m.activateLocked(m.playlist[target], nil)
	m.saveLocked()
	return nil
}

// SeekTo перематывает активный источник. Позиция ограничивается длительностью трека;
// если она неизвестна, используется заявленная длительность или запасное значение.
func (m *Manager) SeekTo(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.activeLocked()
	if b == nil {
		return
	}

	limit := b.Duration()
	if limit <= 0 {
		limit = float64(b.Track().Duration)
	}
	if limit <= 0 {
		limit = m.cfg.FallbackDuration.Seconds()
	}
	seconds = max(0, min(seconds, limit))

	if err := b.Seek(seconds); err != nil {
		m.log.Error("ошибка перемотки", "seconds", seconds, "err", err)
	}
	m.saveLocked()
}

// Stop останавливает воспроизведение и освобождает оба источника
func (m *Manager) Stop() {
	m.mu.Lock()
	events := m.stopLocked()
	m.mu.Unlock()
	m.hub.publish(events...)
}

func (m *Manager) stopLocked() []Event {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.ctx = context.Background()

	m.closeRemote()
	m.closeLocal()

	m.active = ""
	m.cursor = detached(model.Track{})
	m.failures = 0
	m.saveLocked()
	return []Event{{Kind: TrackChanged}}
}

// ForgetLocal останавливает воспроизведение, если удаленный файл сейчас играет,
// и освобождает фоновый источник этого файла
func (m *Manager) ForgetLocal(fileName string) {
	m.mu.Lock()
	current, ok := m.currentLocked()
	if ok && current.IsLocal() && current.FileName == fileName {
		events := m.stopLocked()
		m.mu.Unlock()
		m.hub.publish(events...)
		return
	}
	if m.local != nil && m.local.Track().FileName == fileName {
		m.closeLocal()
		m.saveLocked()
	}
	m.mu.Unlock()
}

// Upcoming возвращает треки плейлиста строго после курсора. Каждый обход
// читает состояние заново.
func (m *Manager) Upcoming() iter.Seq[model.Track] {
	return func(yield func(model.Track) bool) {
		m.mu.Lock()
		from := -1
		if m.cursor.IsDetached() {
			if !m.cursor.Track.IsZero() {
				if k := model.IndexOf(m.playlist, m.cursor.Track); k >= 0 {
					from = k + 1
				}
			}
		} else {
			from = m.cursor.Index + 1
		}
		var rest []model.Track
		if from >= 0 && from < len(m.playlist) {
			rest = slices.Clone(m.playlist[from:])
		}
		m.mu.Unlock()

		for _, t := range rest {
			if !yield(t) {
				return
			}
		}
	}
}

// CurrentTrack возвращает текущий трек, если он выбран
func (m *Manager) CurrentTrack() (model.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *Manager) currentLocked() (model.Track, bool) {
	if m.cursor.IsDetached() {
		return m.cursor.Track, !m.cursor.Track.IsZero()
	}
	return m.playlist[m.cursor.Index], true
}

// IsPaused сообщает, стоит ли воспроизведение на паузе. Без источника - true.
func (m *Manager) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.activeLocked(); b != nil {
		return b.IsPaused()
	}
	return true
}

// CurrentTime возвращает позицию активного источника в секундах
func (m *Manager) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.activeLocked(); b != nil {
		return b.CurrentTime()
	}
	return 0
}

// Duration возвращает длительность текущего трека или 0, если она неизвестна
func (m *Manager) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.activeLocked()
	if b == nil {
		return 0
	}
	if d := b.Duration(); d > 0 {
		return d
	}
	return float64(b.Track().Duration)
}

// Playlist возвращает копию плейлиста
func (m *Manager) Playlist() []model.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.playlist)
}

// Cursor возвращает текущий курсор
func (m *Manager) Cursor() Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Capabilities возвращает копию таблицы поддерживаемых форматов
func (m *Manager) Capabilities() map[string]bool {
	return maps.Clone(m.cfg.Capabilities)
}

// State возвращает состояние автомата воспроизведения
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.activeLocked()
	if b == nil {
		return State{Status: Idle, Cursor: m.cursor}
	}
	status := Playing
	if b.IsPaused() {
		status = Paused
	}
	return State{Status: status, Kind: m.active, Cursor: m.cursor}
}

// Close сохраняет снимок, освобождает источники и закрывает подписки
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.saveLocked()
	m.closed = true
	m.gen++
	if m.cancel != nil {
		m.cancel()
	}
	m.closeRemote()
	m.closeLocal()
	m.active = ""
	m.mu.Unlock()

	m.hub.close()
	return nil
}

// saveLocked записывает снимок состояния. Ошибки только логируются.
func (m *Manager) saveLocked() {
	if m.closed {
		return
	}

	snap := Snapshot{
		Playlist:    m.playlist,
		CursorIndex: m.cursor.Index,
		IsLocal:     m.active == model.KindLocal,
	}
	if current, ok := m.currentLocked(); ok {
		snap.CurrentTrack = &current
	}
	if m.remote != nil {
		snap.RemotePositionSeconds = m.remote.CurrentTime()
	}
	if m.local != nil {
		snap.LocalPositionSeconds = localPosition(m.local.CurrentTime(), m.local.Duration())
	}

	if err := saveSnapshot(m.state, snap); err != nil {
		m.log.Error("не удалось сохранить состояние", "err", err)
	}
}
