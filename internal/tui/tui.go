// Package tui содержит компоненты для текстового пользовательского интерфейса
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-nowplaying/internal/session"
	"github.com/hazadus/go-nowplaying/internal/tui/app"
	tuiPlayer "github.com/hazadus/go-nowplaying/internal/tui/player"
	"github.com/hazadus/go-nowplaying/internal/tui/search"
)

// Player менеджер воспроизведения с подпиской на уведомления
type Player interface {
	tuiPlayer.Controller
	Subscribe() *session.Subscription
}

// App представляет основное TUI приложение
type App struct {
	library app.Library
	player  Player
	catalog search.Catalog
}

// NewApp создает новый экземпляр TUI приложения
func NewApp(library app.Library, player Player, catalog search.Catalog) *App {
	return &App{
		library: library,
		player:  player,
		catalog: catalog,
	}
}

// Run запускает TUI приложение. Воспроизведение продолжается после выхода
// из интерфейса до закрытия менеджера вызывающей стороной.
func (a *App) Run() error {
	sub := a.player.Subscribe()
	defer sub.Close()

	model := app.NewMainModel(a.library, a.player, a.catalog, sub.C)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
