package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/streaming"
)

// Remote воспроизводит трек каталога по URL потока. Поток открывается при первом Play.
type Remote struct {
	*engine
	track      model.Track
	client     *http.Client
	bufferSize int

	openMu sync.Mutex
	ctx    context.Context // Контекст последнего Play, нужен для переоткрытия потока
}

// NewRemote создает потоковый источник. Если длительность трека известна заранее,
// метаданные считаются готовыми сразу.
func NewRemote(track model.Track, opts Options) *Remote {
	opts = opts.withDefaults()
	r := &Remote{
		engine:     newEngine(opts, false),
		track:      track,
		client:     opts.HTTPClient,
		bufferSize: opts.BufferSize,
		ctx:        context.Background(),
	}
	if track.Duration > 0 {
		r.duration = float64(track.Duration)
		r.markReady()
	}
	return r
}

// Kind возвращает вид источника
func (r *Remote) Kind() model.Kind { return model.KindRemote }

// Track возвращает воспроизводимый трек
func (r *Remote) Track() model.Track { return r.track }

// Play открывает поток (если он еще не открыт) и запускает воспроизведение.
// Доигранный поток открывается заново с начала.
func (r *Remote) Play(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	return r.start(ctx)
}

func (r *Remote) open(ctx context.Context) error {
	r.openMu.Lock()
	defer r.openMu.Unlock()

	r.mu.Lock()
	r.ctx = ctx
	if r.ended && r.src != nil {
		r.unload()
		r.ended = false
	}
	loaded, closed := r.src != nil, r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if loaded {
		return nil
	}

	reader, err := streaming.NewReader(ctx, r.client, r.track.StreamURL, r.bufferSize)
	if err != nil {
		r.markReady()
		return fmt.Errorf("ошибка открытия потока %s: %w", r.track.StreamURL, err)
	}

	ext := reader.FormatHint()
	if ext == "" {
		ext = r.track.Ext()
	}
	src, format, err := decodeStream(ext, reader)
	if err != nil {
		reader.Close()
		r.markReady()
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.markReady()

	if r.closed {
		src.Close()
		return ErrClosed
	}
	r.load(src, format, float64(r.track.Duration))
	return nil
}

// Seek перематывает поток. Перемотка назад переоткрывает поток с начала.
func (r *Remote) Seek(seconds float64) error {
	err := r.engine.Seek(seconds)
	if !errors.Is(err, ErrNotSeekable) {
		return err
	}

	r.mu.Lock()
	wasPlaying := !r.paused
	ctx := r.ctx
	r.unload()
	r.pending = seconds
	r.paused = true
	r.mu.Unlock()

	if wasPlaying {
		go func() {
			if err := r.Play(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("ошибка переоткрытия потока", "url", r.track.StreamURL, "err", err)
			}
		}()
	}
	return nil
}
