// Package search содержит модель экрана поиска по каталогу для TUI
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-nowplaying/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Margin(1, 0)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(15)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Margin(1, 0)
)

// DefaultTimeout ограничение времени запроса к каталогу
const DefaultTimeout = 15 * time.Second

// Catalog часть клиента каталога, используемая экраном поиска
type Catalog interface {
	Search(ctx context.Context, query string) ([]model.Track, error)
	TopTracks(ctx context.Context) ([]model.Track, error)
	TracksByTag(ctx context.Context, tag string) ([]model.Track, error)
}

// Mode вид запроса к каталогу
type Mode int

const (
	// ByName поиск по названию
	ByName Mode = iota
	// ByTag треки с тегом
	ByTag
	// Top популярные треки
	Top
	numModes
)

func (m Mode) String() string {
	switch m {
	case ByName:
		return "Название"
	case ByTag:
		return "Тег"
	case Top:
		return "Популярное"
	}
	return "?"
}

// ResultMsg результат запроса к каталогу
type ResultMsg struct {
	Title  string
	Tracks []model.Track
	Err    error
}

// GoBackMsg отправляется при отмене поиска
type GoBackMsg struct{}

// Model представляет модель экрана поиска
type Model struct {
	catalog Catalog
	timeout time.Duration
	input   textinput.Model
	mode    Mode
	loading bool
	err     string
}

// NewModel создает новую модель поиска
func NewModel(catalog Catalog) *Model {
	input := textinput.New()
	input.Placeholder = "Введите запрос"
	input.Focus()
	input.PromptStyle = focusedStyle
	input.TextStyle = focusedStyle

	return &Model{
		catalog: catalog,
		timeout: DefaultTimeout,
		input:   input,
	}
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Reset очищает запрос и ошибку перед повторным открытием экрана
func (m *Model) Reset() tea.Cmd {
	m.input.SetValue("")
	m.err = ""
	m.loading = false
	return m.input.Focus()
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg {
				return GoBackMsg{}
			}

		case "tab", "shift+tab":
			if msg.String() == "tab" {
				m.mode = (m.mode + 1) % numModes
			} else {
				m.mode = (m.mode + numModes - 1) % numModes
			}
			m.updateFocus()
			return m, nil

		case "enter":
			if m.loading {
				return m, nil
			}
			query := strings.TrimSpace(m.input.Value())
			if query == "" && m.mode != Top {
				m.err = "Запрос не может быть пустым"
				return m, nil
			}
			m.err = ""
			m.loading = true
			return m, m.run(m.mode, query)
		}

	case ResultMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = fmt.Sprintf("Ошибка запроса к каталогу: %v", msg.Err)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.input.Width = max(10, msg.Width-20)
		return m, nil
	}

	if m.mode == Top {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateFocus() {
	if m.mode == Top {
		m.input.Blur()
		m.input.PromptStyle = blurredStyle
		m.input.TextStyle = blurredStyle
		return
	}
	m.input.Focus()
	m.input.PromptStyle = focusedStyle
	m.input.TextStyle = focusedStyle
}

// run выполняет запрос к каталогу вне цикла обработки сообщений
func (m *Model) run(mode Mode, query string) tea.Cmd {
	catalog, timeout := m.catalog, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var (
			tracks []model.Track
			err    error
			title  string
		)
		switch mode {
		case ByTag:
			title = "Тег: " + query
			tracks, err = catalog.TracksByTag(ctx, query)
		case Top:
			title = "Популярное"
			tracks, err = catalog.TopTracks(ctx)
		default:
			title = "Поиск: " + query
			tracks, err = catalog.Search(ctx, query)
		}
		return ResultMsg{Title: title, Tracks: tracks, Err: err}
	}
}

// View отображает модель
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Поиск в каталоге"))
	b.WriteString("\n\n")

	modes := make([]string, 0, numModes)
	for mode := ByName; mode < numModes; mode++ {
		if mode == m.mode {
			modes = append(modes, focusedStyle.Render("["+mode.String()+"]"))
		} else {
			modes = append(modes, blurredStyle.Render(" "+mode.String()+" "))
		}
	}
	b.WriteString(labelStyle.Render("Режим:"))
	b.WriteString(" ")
	b.WriteString(strings.Join(modes, " "))
	b.WriteString("\n\n")

	if m.mode != Top {
		b.WriteString(labelStyle.Render("Запрос:"))
		b.WriteString(" ")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	if m.loading {
		b.WriteString("Загрузка...\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Enter: искать • Tab: режим • Esc: отмена"))
	return b.String()
}
