package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/tui"
)

// createTUICommand создает команду tui с привязкой к экземпляру приложения
func (app *Application) createTUICommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI (Terminal User Interface)",
		Long:  `Launch interactive terminal user interface for browsing the catalog and the library and controlling playback.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.launchTUI(ctx)
		},
	}
}

func (app *Application) launchTUI(ctx context.Context) error {
	// Сохраненная сессия восстанавливается на паузе
	app.Player.Restore(ctx)

	tuiApp := tui.NewApp(app.Library, app.Player, app.Catalog)
	if err := tuiApp.Run(); err != nil {
		return fmt.Errorf("ошибка работы интерфейса: %w", err)
	}
	return nil
}
