// Package tracklist содержит модель экрана списка треков для TUI
package tracklist

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)

// TrackSelectedMsg отправляется при выборе трека для воспроизведения.
// List содержит весь показанный список, чтобы воспроизведение продолжилось по нему.
type TrackSelectedMsg struct {
	List  []model.Track
	Track model.Track
}

// TrackAddMsg отправляется при добавлении трека в пользовательский плейлист
type TrackAddMsg struct {
	Track model.Track
}

// trackItem реализует интерфейс list.Item для трека
type trackItem struct {
	track model.Track
}

func (i trackItem) FilterValue() string {
	return fmt.Sprintf("%s %s %s", i.track.Artist, i.track.Title, i.track.Album)
}

// trackItemDelegate реализует отображение элементов списка
type trackItemDelegate struct{}

func (d trackItemDelegate) Height() int                             { return 1 }
func (d trackItemDelegate) Spacing() int                            { return 0 }
func (d trackItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d trackItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(trackItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderItem(i.track, index == m.Index()))
}

func renderItem(t model.Track, selected bool) string {
	duration := "--:--"
	if t.Duration > 0 {
		duration = utils.FormatPosition(float64(t.Duration))
	}
	// Источник | Исполнитель | Название | Продолжительность
	str := fmt.Sprintf("%s %-20s %-40s %s",
		kindIcon(t),
		utils.TruncateString(t.Artist, 20),
		utils.TruncateString(t.Title, 40),
		duration)

	if selected {
		return selectedItemStyle.Render("> " + str)
	}
	return itemStyle.Render(str)
}

func kindIcon(t model.Track) string {
	if t.IsLocal() {
		return "💾"
	}
	return "🌐"
}

// Model представляет модель экрана списка треков
type Model struct {
	list   list.Model
	tracks []model.Track
}

// NewModel создает новую модель списка треков
func NewModel(title string, tracks []model.Track) *Model {
	l := list.New(nil, trackItemDelegate{}, 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowTitle(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	m := &Model{list: l}
	m.SetTracks(title, tracks)
	return m
}

// SetTracks заменяет показываемый список без пересоздания модели
func (m *Model) SetTracks(title string, tracks []model.Track) {
	m.tracks = slices.Clone(tracks)
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	m.list.Title = title
	m.list.ResetFilter()
	m.list.SetItems(items)
	m.list.ResetSelected()
}

// Tracks возвращает показываемые треки
func (m *Model) Tracks() []model.Track {
	return slices.Clone(m.tracks)
}

// Title возвращает заголовок списка
func (m *Model) Title() string {
	return m.list.Title
}

// Filtering сообщает, что пользователь вводит фильтр и клавиши не должны перехватываться
func (m *Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4) // Оставляем место для статуса и справки
		return m, nil

	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(trackItem); ok {
				tracks := m.Tracks()
				return m, func() tea.Msg {
					return TrackSelectedMsg{List: tracks, Track: item.track}
				}
			}
			return m, nil

		case "a":
			if item, ok := m.list.SelectedItem().(trackItem); ok {
				return m, func() tea.Msg {
					return TrackAddMsg{Track: item.track}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View отображает модель
func (m *Model) View() string {
	if len(m.tracks) == 0 {
		return titleStyle.Render(m.list.Title) + "\n\n" + itemStyle.Render("Список пуст")
	}
	return m.list.View()
}

// HelpLine возвращает строку подсказки по клавишам списка
func HelpLine() string {
	return strings.Join([]string{
		"Enter: воспроизвести",
		"a: в плейлист",
		"/: фильтр",
	}, " • ")
}
