// Package app содержит основную логику TUI приложения
package app

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/session"
	tuiPlayer "github.com/hazadus/go-nowplaying/internal/tui/player"
	"github.com/hazadus/go-nowplaying/internal/tui/search"
	"github.com/hazadus/go-nowplaying/internal/tui/tracklist"
)

var (
	statusLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).PaddingLeft(4)
	sourcesStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(4)
)

// ScreenType определяет тип текущего экрана
type ScreenType int

// Константы для типов экранов
const (
	// TracklistScreen - экран списка треков
	TracklistScreen ScreenType = iota
	// PlayerScreen - экран "сейчас играет"
	PlayerScreen
	// SearchScreen - экран поиска в каталоге
	SearchScreen
)

// Library часть библиотеки, используемая интерфейсом
type Library interface {
	Tracks() []model.Track
	Recent() []model.Track
	UserPlaylist() []model.Track
	PlayFromList(list []model.Track, track model.Track) error
	AddToPlaylist(track model.Track) error
}

// MainModel представляет главную модель TUI
type MainModel struct {
	library        Library
	currentScreen  ScreenType
	tracklistModel *tracklist.Model
	playerModel    *tuiPlayer.Model
	searchModel    *search.Model
	results        []model.Track
	resultsTitle   string
	status         string
}

// NewMainModel создает новую главную модель. Если что-то уже играет
// (например, восстановлено после перезапуска), открывается экран плеера.
func NewMainModel(library Library, ctrl tuiPlayer.Controller, catalog search.Catalog, events <-chan session.Event) *MainModel {
	m := &MainModel{
		library:        library,
		currentScreen:  TracklistScreen,
		tracklistModel: tracklist.NewModel(libraryTitle, library.Tracks()),
		playerModel:    tuiPlayer.NewModel(ctrl, events),
		searchModel:    search.NewModel(catalog),
	}
	if _, ok := ctrl.CurrentTrack(); ok {
		m.currentScreen = PlayerScreen
	}
	return m
}

const (
	libraryTitle  = "Библиотека"
	recentTitle   = "Недавние"
	playlistTitle = "Мой плейлист"
)

// Init инициализирует модель
func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(m.tracklistModel.Init(), m.playerModel.Init())
}

// Update обрабатывает сообщения
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentScreen == TracklistScreen && !m.tracklistModel.Filtering() {
			if cmd, handled := m.handleListKey(msg); handled {
				return m, cmd
			}
		}

	case tuiPlayer.EventMsg, tuiPlayer.EventsClosedMsg:
		// Уведомления менеджера нужны экрану плеера независимо от текущего экрана
		return m, m.updatePlayer(msg)

	case tracklist.TrackSelectedMsg:
		if err := m.library.PlayFromList(msg.List, msg.Track); err != nil {
			m.status = fmt.Sprintf("❌ Ошибка воспроизведения: %v", err)
			return m, nil
		}
		m.status = ""
		m.currentScreen = PlayerScreen
		return m, nil

	case tracklist.TrackAddMsg:
		switch err := m.library.AddToPlaylist(msg.Track); {
		case err == nil:
			m.status = fmt.Sprintf("✅ Добавлено в плейлист: %s", msg.Track.Title)
		case errors.Is(err, data.ErrAlreadyExists):
			m.status = fmt.Sprintf("Уже в плейлисте: %s", msg.Track.Title)
		default:
			m.status = fmt.Sprintf("❌ Ошибка добавления: %v", err)
		}
		return m, nil

	case tuiPlayer.GoBackMsg, search.GoBackMsg:
		m.currentScreen = TracklistScreen
		return m, nil

	case search.ResultMsg:
		var cmd tea.Cmd
		m.searchModel, cmd = m.searchModel.Update(msg)
		if msg.Err != nil {
			return m, cmd
		}
		m.results, m.resultsTitle = msg.Tracks, msg.Title
		m.tracklistModel.SetTracks(msg.Title, msg.Tracks)
		m.status = fmt.Sprintf("Найдено треков: %d", len(msg.Tracks))
		m.currentScreen = TracklistScreen
		return m, cmd

	case tea.WindowSizeMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.tracklistModel, cmd = m.tracklistModel.Update(msg)
		cmds = append(cmds, cmd)
		m.searchModel, cmd = m.searchModel.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, m.updatePlayer(msg))
		return m, tea.Batch(cmds...)
	}

	// Передаем сообщение активной модели
	var cmd tea.Cmd
	switch m.currentScreen {
	case TracklistScreen:
		m.tracklistModel, cmd = m.tracklistModel.Update(msg)
	case PlayerScreen:
		cmd = m.updatePlayer(msg)
	case SearchScreen:
		m.searchModel, cmd = m.searchModel.Update(msg)
	}
	return m, cmd
}

// handleListKey переключает источники списка и экраны
func (m *MainModel) handleListKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return tea.Quit, true
	case "1":
		m.tracklistModel.SetTracks(libraryTitle, m.library.Tracks())
	case "2":
		m.tracklistModel.SetTracks(recentTitle, m.library.Recent())
	case "3":
		m.tracklistModel.SetTracks(playlistTitle, m.library.UserPlaylist())
	case "4":
		if m.resultsTitle == "" {
			m.status = "Поиск еще не выполнялся"
			return nil, true
		}
		m.tracklistModel.SetTracks(m.resultsTitle, m.results)
	case "s":
		m.currentScreen = SearchScreen
		return m.searchModel.Reset(), true
	case "p":
		m.currentScreen = PlayerScreen
	default:
		return nil, false
	}
	m.status = ""
	return nil, true
}

func (m *MainModel) updatePlayer(msg tea.Msg) tea.Cmd {
	updatedModel, cmd := m.playerModel.Update(msg)
	if playerModel, ok := updatedModel.(*tuiPlayer.Model); ok {
		m.playerModel = playerModel
	}
	return cmd
}

// View отображает интерфейс
func (m *MainModel) View() string {
	switch m.currentScreen {
	case TracklistScreen:
		view := m.tracklistModel.View()
		if m.status != "" {
			view += "\n" + statusLineStyle.Render(m.status)
		}
		help := tracklist.HelpLine() + " • 1-4: библиотека/недавние/плейлист/поиск • s: каталог • p: плеер • q: выход"
		return view + "\n" + sourcesStyle.Render(help)

	case PlayerScreen:
		return m.playerModel.View()

	case SearchScreen:
		return m.searchModel.View()

	default:
		return "Неизвестный экран"
	}
}

// CurrentScreen возвращает текущий экран
func (m *MainModel) CurrentScreen() ScreenType {
	return m.currentScreen
}
