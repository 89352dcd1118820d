// Package player содержит модель экрана "сейчас играет" для TUI
package player

import (
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/session"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000ff")).
			MarginBottom(1)

	trackInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	upcomingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	restoredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00aa00"))
)

// SeekStep шаг перемотки в секундах
const SeekStep = 10.0

// upcomingLimit сколько следующих треков показывать
const upcomingLimit = 5

// Controller часть менеджера воспроизведения, которой управляет экран
type Controller interface {
	Play()
	Pause()
	Next()
	Previous()
	SeekTo(seconds float64)
	Stop()
	CurrentTrack() (model.Track, bool)
	CurrentTime() float64
	Duration() float64
	IsPaused() bool
	Upcoming() iter.Seq[model.Track]
}

// GoBackMsg отправляется для возврата к списку треков
type GoBackMsg struct{}

// EventMsg уведомление менеджера воспроизведения
type EventMsg struct {
	Event session.Event
}

// EventsClosedMsg отправляется, когда подписка на уведомления закрыта
type EventsClosedMsg struct{}

// Model представляет модель экрана воспроизведения
type Model struct {
	ctrl        Controller
	events      <-chan session.Event
	progressBar progress.Model

	track    model.Track
	hasTrack bool
	current  float64
	duration float64
	paused   bool
	restored bool
	upcoming []model.Track

	width  int
	height int
}

// NewModel создает модель экрана и читает текущее состояние менеджера
func NewModel(ctrl Controller, events <-chan session.Event) *Model {
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	m := &Model{
		ctrl:        ctrl,
		events:      events,
		progressBar: prog,
	}
	m.refresh()
	return m
}

// Init запускает прослушивание уведомлений
func (m *Model) Init() tea.Cmd {
	return m.listenForEvents()
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = max(10, min(60, msg.Width-10))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		switch msg.Event.Kind {
		case session.PlaybackRestored:
			m.restored = true
		case session.TrackChanged:
			m.restored = false
		}
		m.refresh()
		if msg.Event.Kind == session.PositionAdvanced {
			m.current = msg.Event.Seconds
		}
		return m, tea.Batch(
			m.progressBar.SetPercent(m.percent()),
			m.listenForEvents(),
		)

	case EventsClosedMsg:
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg {
			return GoBackMsg{}
		}
	case " ":
		if m.ctrl.IsPaused() {
			m.ctrl.Play()
		} else {
			m.ctrl.Pause()
		}
	case "n":
		m.ctrl.Next()
	case "b":
		m.ctrl.Previous()
	case "right", "l":
		m.ctrl.SeekTo(m.ctrl.CurrentTime() + SeekStep)
	case "left", "h":
		m.ctrl.SeekTo(max(0, m.ctrl.CurrentTime()-SeekStep))
	case "s":
		m.ctrl.Stop()
	default:
		return m, nil
	}
	m.refresh()
	return m, m.progressBar.SetPercent(m.percent())
}

// refresh перечитывает состояние менеджера
func (m *Model) refresh() {
	m.track, m.hasTrack = m.ctrl.CurrentTrack()
	m.current = m.ctrl.CurrentTime()
	m.duration = m.ctrl.Duration()
	m.paused = m.ctrl.IsPaused()

	m.upcoming = m.upcoming[:0]
	for t := range m.ctrl.Upcoming() {
		if len(m.upcoming) == upcomingLimit {
			break
		}
		m.upcoming = append(m.upcoming, t)
	}
}

func (m *Model) percent() float64 {
	if m.duration <= 0 {
		return 0
	}
	return min(1, m.current/m.duration)
}

// View отображает модель
func (m *Model) View() string {
	title := titleStyle.Render("🎵 Сейчас играет")

	if !m.hasTrack {
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			title,
			trackInfoStyle.Render("Ничего не воспроизводится"),
			controlsStyle.Render("q/esc: назад к списку"),
		)
	}

	source := "🌐 каталог"
	if m.track.IsLocal() {
		source = "💾 " + m.track.FileName
	}
	trackInfo := trackInfoStyle.Render(fmt.Sprintf(
		"🎤 %s\n🎵 %s\n💿 %s\n%s",
		m.track.Artist,
		m.track.Title,
		m.track.Album,
		source,
	))

	statusIcon := "▶️"
	if m.paused {
		statusIcon = "⏸️"
	}
	statusText := statusStyle.Render(fmt.Sprintf("%s %s", statusIcon, formatStatus(!m.paused)))
	if m.restored {
		statusText += " " + restoredStyle.Render("(восстановлено)")
	}

	timeText := fmt.Sprintf("%s / %s", utils.FormatPosition(m.current), formatTotal(m.duration))

	controls := controlsStyle.Render(
		"Пробел: пауза • n/b: следующий/предыдущий • ←/→: перемотка • s: стоп • q/esc: к списку",
	)

	return fmt.Sprintf(
		"%s\n\n%s\n\n%s\n\n%s\n%s\n\n%s%s",
		title,
		trackInfo,
		statusText,
		m.progressBar.View(),
		timeText,
		m.upcomingView(),
		controls,
	)
}

func (m *Model) upcomingView() string {
	if len(m.upcoming) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Далее:\n")
	for _, t := range m.upcoming {
		fmt.Fprintf(&b, "  %s - %s\n", utils.TruncateString(t.Artist, 20), utils.TruncateString(t.Title, 40))
	}
	return upcomingStyle.Render(b.String()) + "\n"
}

// listenForEvents ждет очередное уведомление менеджера
func (m *Model) listenForEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: event}
	}
}

// Вспомогательные функции

func formatStatus(isPlaying bool) string {
	if isPlaying {
		return "Воспроизведение"
	}
	return "Пауза"
}

func formatTotal(seconds float64) string {
	if seconds <= 0 {
		return "--:--"
	}
	return utils.FormatPosition(seconds)
}
