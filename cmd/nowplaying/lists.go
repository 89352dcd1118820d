package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// createRecentCommand создает команду recent с привязкой к экземпляру приложения
func (app *Application) createRecentCommand(ctx context.Context) *cobra.Command {
	var playN int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently played tracks",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tracks := app.Library.Recent()
			app.printTracks("Недавние", tracks)
			if playN == 0 {
				return nil
			}
			return app.playFromList(ctx, tracks, playN)
		},
	}
	cmd.Flags().IntVarP(&playN, "play", "p", 0, "play track with the given number")
	return cmd
}

// createPlaylistCommand создает команду playlist с подкомандами add и remove
func (app *Application) createPlaylistCommand(ctx context.Context) *cobra.Command {
	var playN int
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Show or play the user playlist",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tracks := app.Library.UserPlaylist()
			app.printTracks("Мой плейлист", tracks)
			if playN == 0 {
				return nil
			}
			return app.playFromList(ctx, tracks, playN)
		},
	}
	cmd.Flags().IntVarP(&playN, "play", "p", 0, "play track with the given number")

	cmd.AddCommand(app.createPlaylistAddCommand())
	cmd.AddCommand(app.createPlaylistRemoveCommand())
	return cmd
}

func (app *Application) createPlaylistAddCommand() *cobra.Command {
	var fromRecent int
	cmd := &cobra.Command{
		Use:   "add [file name]",
		Short: "Add an imported file or a recent track to the playlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var track model.Track
			switch {
			case fromRecent > 0:
				t, err := pickTrack(app.Library.Recent(), fromRecent)
				if err != nil {
					return err
				}
				track = t
			case len(args) == 1:
				entry, ok := app.Library.Entry(args[0])
				if !ok {
					return fmt.Errorf("файл %s не найден в библиотеке", args[0])
				}
				track = entry.Track
			default:
				return errors.New("укажите имя файла или номер недавнего трека (--recent N)")
			}

			if err := app.Library.AddToPlaylist(track); err != nil {
				if errors.Is(err, data.ErrAlreadyExists) {
					app.printf("ℹ️  Уже в плейлисте: %s\n", track.Title)
					return nil
				}
				return fmt.Errorf("ошибка добавления в плейлист: %w", err)
			}
			app.printf("✅ Добавлено в плейлист: %s - %s\n", track.Artist, track.Title)
			return nil
		},
	}
	cmd.Flags().IntVarP(&fromRecent, "recent", "r", 0, "add recent track with the given number")
	return cmd
}

func (app *Application) createPlaylistRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [number]",
		Short: "Remove a track from the playlist by its number",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("неверный номер трека: %s", args[0])
			}
			track, err := pickTrack(app.Library.UserPlaylist(), n)
			if err != nil {
				return err
			}
			if err := app.Library.RemoveFromPlaylist(track); err != nil {
				return fmt.Errorf("ошибка удаления из плейлиста: %w", err)
			}
			app.printf("🗑️  Удалено из плейлиста: %s\n", track.Title)
			return nil
		},
	}
}
