package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/filestore"
	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// fakeBackend источник без звука: позиция и окончание управляются тестом
type fakeBackend struct {
	kind     model.Kind
	track    model.Track
	duration float64
	playErr  error
	ready    chan struct{}
	hold     chan struct{} // Play ждет закрытия канала и не смотрит на ctx

	mu       sync.Mutex
	paused   bool
	pos      float64
	plays    int
	seeks    []float64
	closed   bool
	listener backend.Listener
}

func (b *fakeBackend) Kind() model.Kind   { return b.kind }
func (b *fakeBackend) Track() model.Track { return b.track }

func (b *fakeBackend) Play(ctx context.Context) error {
	b.mu.Lock()
	hold := b.hold
	b.mu.Unlock()
	if hold != nil {
		<-hold
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	if b.playErr != nil {
		return b.playErr
	}
	b.paused = false
	return nil
}

func (b *fakeBackend) Pause() {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
}

func (b *fakeBackend) Seek(seconds float64) error {
	b.mu.Lock()
	b.pos = seconds
	b.seeks = append(b.seeks, seconds)
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

func (b *fakeBackend) Duration() float64 { return b.duration }

func (b *fakeBackend) IsPaused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *fakeBackend) Ready() <-chan struct{} { return b.ready }

func (b *fakeBackend) SetListener(l backend.Listener) {
	b.mu.Lock()
	b.listener = l
	b.mu.Unlock()
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.paused = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) currentListener() backend.Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listener
}

func (b *fakeBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// holdPlay задерживает следующие вызовы Play до закрытия возвращенного канала
func (b *fakeBackend) holdPlay() chan struct{} {
	release := make(chan struct{})
	b.mu.Lock()
	b.hold = release
	b.mu.Unlock()
	return release
}

func (b *fakeBackend) playCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.plays
}

func (b *fakeBackend) lastSeek() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.seeks) == 0 {
		return -1
	}
	return b.seeks[len(b.seeks)-1]
}

// tick имитирует продвижение воспроизведения
func (b *fakeBackend) tick(seconds float64) {
	b.mu.Lock()
	b.pos = seconds
	l := b.listener
	b.mu.Unlock()
	if l.OnTick != nil {
		l.OnTick(seconds)
	}
}

// end имитирует окончание трека
func (b *fakeBackend) end() {
	b.mu.Lock()
	b.paused = true
	l := b.listener
	b.mu.Unlock()
	if l.OnEnded != nil {
		l.OnEnded()
	}
}

// fakeFactory создает fakeBackend и запоминает их по порядку
type fakeFactory struct {
	mu         sync.Mutex
	created    []*fakeBackend
	durations  map[string]float64 // По идентификатору трека
	playErrs   map[string]error
	holds      map[string]chan struct{}
	neverReady bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		durations: make(map[string]float64),
		playErrs:  make(map[string]error),
		holds:     make(map[string]chan struct{}),
	}
}

func (f *fakeFactory) NewRemote(track model.Track) backend.Backend {
	return f.add(model.KindRemote, track)
}

func (f *fakeFactory) NewLocal(track model.Track, data []byte) backend.Backend {
	return f.add(model.KindLocal, track)
}

func (f *fakeFactory) add(kind model.Kind, track model.Track) *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := &fakeBackend{
		kind:     kind,
		track:    track,
		duration: f.durations[track.Identity()],
		playErr:  f.playErrs[track.Identity()],
		hold:     f.holds[track.Identity()],
		ready:    make(chan struct{}),
		paused:   true,
	}
	if !f.neverReady {
		close(b.ready)
	}
	f.created = append(f.created, b)
	return b
}

func (f *fakeFactory) byKind(kind model.Kind) []*fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeBackend
	for _, b := range f.created {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeFactory) last() *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// gatedStore хранилище файлов, чтение из которого можно задержать или сломать
type gatedStore struct {
	filestore.Store

	mu        sync.Mutex
	gate      chan struct{}
	err       error
	cancelled bool
}

func (s *gatedStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	s.mu.Lock()
	gate, err := s.gate, s.err
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			s.mu.Lock()
			s.cancelled = true
			s.mu.Unlock()
			return nil, false, ctx.Err()
		}
	}
	if err != nil {
		return nil, false, err
	}
	return s.Store.Get(ctx, name)
}

// block задерживает чтение до закрытия возвращенного канала или отмены контекста
func (s *gatedStore) block() chan struct{} {
	release := make(chan struct{})
	s.mu.Lock()
	s.gate = release
	s.mu.Unlock()
	return release
}

func (s *gatedStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *gatedStore) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type fixture struct {
	files   *filestore.DirStore
	store   *gatedStore
	state   *kv.FileStore
	factory *fakeFactory
	m       *Manager
	sub     *Subscription
}

func testConfig() Config {
	return Config{
		MetadataTimeout:  100 * time.Millisecond,
		SkipDelay:        10 * time.Millisecond,
		FallbackDuration: 10 * time.Minute,
		Capabilities:     map[string]bool{"mp3": true, "wav": true, "m4a": false},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	files, err := filestore.NewDirStore(t.TempDir(), filestore.DefaultPrefix)
	if err != nil {
		t.Fatalf("Ошибка создания хранилища файлов: %v", err)
	}
	state, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания хранилища состояния: %v", err)
	}

	fx := &fixture{files: files, store: &gatedStore{Store: files}, state: state}
	fx.restart(t)
	return fx
}

// restart создает новый менеджер поверх тех же хранилищ, как после перезапуска процесса
func (fx *fixture) restart(t *testing.T) {
	t.Helper()
	if fx.m != nil {
		fx.m.Close()
	}
	durations := map[string]float64{}
	if fx.factory != nil {
		durations = fx.factory.durations
	}
	fx.factory = newFakeFactory()
	fx.factory.durations = durations
	fx.m = New(fx.store, fx.state, fx.factory, testConfig(), nil)
	fx.sub = fx.m.Subscribe()
	m := fx.m
	t.Cleanup(func() { m.Close() })
}

func (fx *fixture) putFile(t *testing.T, name string) {
	t.Helper()
	if err := fx.files.Put(context.Background(), name, []byte("audio")); err != nil {
		t.Fatalf("Ошибка сохранения файла: %v", err)
	}
}

func (fx *fixture) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, ok, err := LoadSnapshot(fx.state)
	if err != nil || !ok {
		t.Fatalf("Ожидался снимок: ok=%v err=%v", ok, err)
	}
	return snap
}

// waitEvent ждет уведомление заданного вида, пропуская остальные
func waitEvent(t *testing.T, sub *Subscription, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				t.Fatalf("Подписка закрыта до события %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("Не дождались события %s", kind)
		}
	}
}

// expectNoEvent проверяет, что уведомлений не было
func expectNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C:
		t.Fatalf("Неожиданное событие %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

// eventually ждет выполнения условия
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func remoteTracks(ids ...string) []model.Track {
	tracks := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, model.NewRemote(id, "https://cdn.example.com/"+id+".mp3", "Track "+id, "Artist"))
	}
	return tracks
}

func currentID(t *testing.T, m *Manager) string {
	t.Helper()
	track, ok := m.CurrentTrack()
	if !ok {
		t.Fatal("Ожидался текущий трек")
	}
	return track.Identity()
}
