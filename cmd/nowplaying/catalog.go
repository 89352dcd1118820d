package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/model"
)

const catalogTimeout = 15 * time.Second

// createSearchCommand создает команду search с привязкой к экземпляру приложения
func (app *Application) createSearchCommand(ctx context.Context) *cobra.Command {
	var playN int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog by track name",
		Long:  `Search the Jamendo catalog and print matching tracks. With --play the chosen track starts playing.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return app.catalogTracks(ctx, "Поиск: "+query, playN, func(ctx context.Context) ([]model.Track, error) {
				return app.Catalog.Search(ctx, query)
			})
		},
	}
	cmd.Flags().IntVarP(&playN, "play", "p", 0, "play track with the given number from the results")
	return cmd
}

// createTopCommand создает команду top с привязкой к экземпляру приложения
func (app *Application) createTopCommand(ctx context.Context) *cobra.Command {
	var playN int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show popular tracks from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.catalogTracks(ctx, "Популярное", playN, app.Catalog.TopTracks)
		},
	}
	cmd.Flags().IntVarP(&playN, "play", "p", 0, "play track with the given number from the results")
	return cmd
}

// createTagCommand создает команду tag с привязкой к экземпляру приложения
func (app *Application) createTagCommand(ctx context.Context) *cobra.Command {
	var playN int
	cmd := &cobra.Command{
		Use:   "tag [tag]",
		Short: "Show catalog tracks with the given tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tag := args[0]
			return app.catalogTracks(ctx, "Тег: "+tag, playN, func(ctx context.Context) ([]model.Track, error) {
				return app.Catalog.TracksByTag(ctx, tag)
			})
		},
	}
	cmd.Flags().IntVarP(&playN, "play", "p", 0, "play track with the given number from the results")
	return cmd
}

// catalogTracks выполняет запрос к каталогу, выводит результат и при необходимости
// запускает выбранный трек в контексте полученного списка
func (app *Application) catalogTracks(ctx context.Context, title string, playN int, fetch func(context.Context) ([]model.Track, error)) error {
	reqCtx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	tracks, err := fetch(reqCtx)
	if err != nil {
		return fmt.Errorf("ошибка запроса к каталогу: %w", err)
	}

	app.printTracks(title, tracks)
	if playN == 0 {
		if len(tracks) > 0 {
			app.println("💡 Используйте флаг --play N для воспроизведения трека")
		}
		return nil
	}
	return app.playFromList(ctx, tracks, playN)
}

// playFromList запускает трек с номером n из списка и показывает прогресс
func (app *Application) playFromList(ctx context.Context, tracks []model.Track, n int) error {
	track, err := pickTrack(tracks, n)
	if err != nil {
		return err
	}
	if err := app.Library.PlayFromList(tracks, track); err != nil {
		return fmt.Errorf("ошибка запуска воспроизведения: %w", err)
	}
	return app.watch(ctx)
}
