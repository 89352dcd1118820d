package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/session"
	tuiPlayer "github.com/hazadus/go-nowplaying/internal/tui/player"
	"github.com/hazadus/go-nowplaying/internal/tui/search"
	"github.com/hazadus/go-nowplaying/internal/tui/tracklist"
)

type mockLibrary struct {
	tracks   []model.Track
	recent   []model.Track
	playlist []model.Track
	played   []model.Track
	playedAt model.Track
	playErr  error
}

func (l *mockLibrary) Tracks() []model.Track       { return l.tracks }
func (l *mockLibrary) Recent() []model.Track       { return l.recent }
func (l *mockLibrary) UserPlaylist() []model.Track { return l.playlist }
func (l *mockLibrary) PlayFromList(list []model.Track, track model.Track) error {
	if l.playErr != nil {
		return l.playErr
	}
	l.played, l.playedAt = list, track
	return nil
}
func (l *mockLibrary) AddToPlaylist(track model.Track) error {
	if model.IndexOf(l.playlist, track) >= 0 {
		return fmt.Errorf("%w: %s", data.ErrAlreadyExists, track.Title)
	}
	l.playlist = append(l.playlist, track)
	return nil
}

type mockController struct {
	track    model.Track
	hasTrack bool
}

func (c *mockController) Play()                             {}
func (c *mockController) Pause()                            {}
func (c *mockController) Next()                             {}
func (c *mockController) Previous()                         {}
func (c *mockController) SeekTo(float64)                    {}
func (c *mockController) Stop()                             {}
func (c *mockController) CurrentTrack() (model.Track, bool) { return c.track, c.hasTrack }
func (c *mockController) CurrentTime() float64              { return 0 }
func (c *mockController) Duration() float64                 { return 0 }
func (c *mockController) IsPaused() bool                    { return true }
func (c *mockController) Upcoming() iter.Seq[model.Track]   { return slices.Values([]model.Track(nil)) }

type mockCatalog struct{}

func (mockCatalog) Search(ctx context.Context, q string) ([]model.Track, error) {
	return nil, nil
}

func (mockCatalog) TopTracks(ctx context.Context) ([]model.Track, error) {
	return nil, nil
}

func (mockCatalog) TracksByTag(ctx context.Context, tag string) ([]model.Track, error) {
	return nil, nil
}

func newTestModel(playing bool) (*MainModel, *mockLibrary) {
	lib := &mockLibrary{
		tracks: []model.Track{model.NewLocal("song.mp3", "Local Song", "Band")},
		recent: []model.Track{model.NewRemote("r", "https://cdn.example.com/r.mp3", "Recent Song", "Band")},
	}
	ctrl := &mockController{}
	if playing {
		ctrl.track, ctrl.hasTrack = lib.tracks[0], true
	}
	m := NewMainModel(lib, ctrl, mockCatalog{}, make(chan session.Event))
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, lib
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialScreen(t *testing.T) {
	m, _ := newTestModel(false)
	if m.CurrentScreen() != TracklistScreen {
		t.Errorf("Expected tracklist screen when idle, got %v", m.CurrentScreen())
	}

	m, _ = newTestModel(true)
	if m.CurrentScreen() != PlayerScreen {
		t.Errorf("Expected player screen when a track is current, got %v", m.CurrentScreen())
	}
}

func TestMainModelRouting(t *testing.T) {
	m, lib := newTestModel(false)

	// Выбор трека запускает список и открывает плеер
	selected := tracklist.TrackSelectedMsg{List: lib.tracks, Track: lib.tracks[0]}
	updatedModel, _ := m.Update(selected)
	m = updatedModel.(*MainModel)

	if m.CurrentScreen() != PlayerScreen {
		t.Errorf("Expected player screen after TrackSelectedMsg, got %v", m.CurrentScreen())
	}
	if lib.playedAt.FileName != "song.mp3" {
		t.Errorf("Expected library to play song.mp3, got %+v", lib.playedAt)
	}

	m.Update(tuiPlayer.GoBackMsg{})
	if m.CurrentScreen() != TracklistScreen {
		t.Errorf("Expected tracklist screen after GoBackMsg, got %v", m.CurrentScreen())
	}

	m.Update(key("s"))
	if m.CurrentScreen() != SearchScreen {
		t.Errorf("Expected search screen after 's', got %v", m.CurrentScreen())
	}
	m.Update(search.GoBackMsg{})
	if m.CurrentScreen() != TracklistScreen {
		t.Errorf("Expected tracklist screen after search GoBackMsg, got %v", m.CurrentScreen())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Error("Expected tea.Quit command after Ctrl+C")
	}
}

func TestPlayErrorStaysOnList(t *testing.T) {
	m, lib := newTestModel(false)
	lib.playErr = errors.New("пустой плейлист")

	m.Update(tracklist.TrackSelectedMsg{List: lib.tracks, Track: lib.tracks[0]})
	if m.CurrentScreen() != TracklistScreen {
		t.Errorf("Expected to stay on tracklist, got %v", m.CurrentScreen())
	}
	if !strings.Contains(m.View(), "Ошибка воспроизведения") {
		t.Error("Expected error in status line")
	}
}

func TestSourceSwitching(t *testing.T) {
	m, _ := newTestModel(false)

	m.Update(key("2"))
	if m.tracklistModel.Title() != recentTitle {
		t.Errorf("Expected recent list, got %q", m.tracklistModel.Title())
	}

	m.Update(key("4"))
	if !strings.Contains(m.View(), "Поиск еще не выполнялся") {
		t.Error("Expected notice when no search results exist")
	}

	results := []model.Track{model.NewRemote("x", "https://cdn.example.com/x.mp3", "Found", "Band")}
	m.currentScreen = SearchScreen
	m.Update(search.ResultMsg{Title: "Поиск: x", Tracks: results})
	if m.CurrentScreen() != TracklistScreen || m.tracklistModel.Title() != "Поиск: x" {
		t.Errorf("Expected results list, got screen %v title %q", m.CurrentScreen(), m.tracklistModel.Title())
	}

	m.Update(key("1"))
	m.Update(key("4"))
	if got := m.tracklistModel.Tracks(); len(got) != 1 || got[0].ID != "x" {
		t.Errorf("Expected last results to be restored, got %+v", got)
	}
}

func TestSearchErrorStaysOnSearch(t *testing.T) {
	m, _ := newTestModel(false)
	m.Update(key("s"))
	m.Update(search.ResultMsg{Err: errors.New("HTTP 500")})

	if m.CurrentScreen() != SearchScreen {
		t.Errorf("Expected to stay on search screen, got %v", m.CurrentScreen())
	}
}

func TestAddToPlaylist(t *testing.T) {
	m, lib := newTestModel(false)
	track := lib.recent[0]

	m.Update(tracklist.TrackAddMsg{Track: track})
	if len(lib.playlist) != 1 {
		t.Fatalf("Expected track in playlist")
	}
	m.Update(tracklist.TrackAddMsg{Track: track})
	if !strings.Contains(m.View(), "Уже в плейлисте") {
		t.Error("Expected duplicate notice")
	}
}

func TestEventsReachPlayerOnAnyScreen(t *testing.T) {
	m, _ := newTestModel(false)

	_, cmd := m.Update(tuiPlayer.EventMsg{Event: session.Event{Kind: session.TrackChanged}})
	if cmd == nil {
		t.Error("Player must keep listening for events while the list is shown")
	}
}

func TestMainModelView(t *testing.T) {
	m, _ := newTestModel(false)

	if view := m.View(); !strings.Contains(view, "Local Song") {
		t.Error("Expected library track in tracklist view")
	}

	m.Update(key("p"))
	if view := m.View(); !strings.Contains(view, "Ничего не воспроизводится") {
		t.Error("Expected idle player view")
	}

	m.currentScreen = ScreenType(999)
	if view := m.View(); view != "Неизвестный экран" {
		t.Errorf("Expected 'Неизвестный экран' for unknown screen, got '%s'", view)
	}
}
