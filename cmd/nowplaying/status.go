package main

import (
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/session"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

// createStatusCommand создает команду status с привязкой к экземпляру приложения
func (app *Application) createStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved playback state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.printStatus()
		},
	}
}

func (app *Application) printStatus() error {
	snap, ok, err := session.LoadSnapshot(app.State)
	if err != nil {
		return fmt.Errorf("ошибка чтения состояния: %w", err)
	}
	if !ok {
		app.println("📭 Сохраненного состояния нет")
		return nil
	}

	app.printf("💾 Сохраненное состояние:\n")
	if snap.CurrentTrack == nil {
		app.printf("   Трек: не выбран\n")
	} else {
		track := *snap.CurrentTrack
		position := snap.RemotePositionSeconds
		if snap.IsLocal {
			position = snap.LocalPositionSeconds
		}
		app.printf("   Трек: %s - %s\n", track.Artist, track.Title)
		app.printf("   Источник: %s\n", sourceLabel(track))
		app.printf("   Позиция: %s\n", utils.FormatPosition(position))
	}

	if snap.CursorIndex >= 0 {
		app.printf("   Плейлист: трек %d из %d\n", snap.CursorIndex+1, len(snap.Playlist))
	} else {
		app.printf("   Плейлист: треков %d, текущий трек вне плейлиста\n", len(snap.Playlist))
	}
	app.println()
	app.println("💡 Используйте 'nowplaying resume' для продолжения")
	return nil
}

// createFormatsCommand создает команду formats с привязкой к экземпляру приложения
func (app *Application) createFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "Show which audio formats can be decoded",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			app.printFormats()
		},
	}
}

func (app *Application) printFormats() {
	caps := app.Player.Capabilities()
	formats := make([]string, 0, len(caps))
	for ext := range caps {
		formats = append(formats, ext)
	}
	slices.SortFunc(formats, func(a, b string) int {
		return slices.Index(backend.ProbedFormats, a) - slices.Index(backend.ProbedFormats, b)
	})

	t := app.newTable()
	t.AppendHeader(table.Row{"Формат", "Воспроизведение"})
	for _, ext := range formats {
		mark := text.FgRed.Sprint("❌")
		if caps[ext] {
			mark = text.FgGreen.Sprint("✅")
		}
		t.AppendRow(table.Row{ext, mark})
	}
	t.Render()
}
