package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/library"
)

const downloadTimeout = 30 * time.Minute

// createDownloadCommand создает команду download с привязкой к экземпляру приложения
func (app *Application) createDownloadCommand(ctx context.Context) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "download [YouTube URL]",
		Short: "Download audio from a YouTube video",
		Long: `Download the best audio stream of a YouTube video and import it into the library.
With --save the file is written to the configured download directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
			defer cancel()
			return app.download(downloadCtx, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save to the download directory instead of the library")
	return cmd
}

func (app *Application) download(ctx context.Context, url string, save bool) error {
	app.printf("⬇️  Скачиваем аудио: %s\n", url)
	startTime := time.Now()
	progress := func(read, total int64) {
		app.displayTransfer(read, total, startTime)
	}

	if save {
		path, err := app.Downloader.Save(ctx, app.Config.DownloadDir, url, progress)
		app.println()
		if err != nil {
			return fmt.Errorf("ошибка скачивания: %w", err)
		}
		app.printf("✅ Файл сохранен: %s\n", path)
		return nil
	}

	track, err := app.Downloader.Import(ctx, app.Library, url, progress)
	app.println()
	if library.IsDuplicate(err) {
		app.println("⏭️  Файл уже есть в библиотеке")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка скачивания: %w", err)
	}
	app.printf("✅ Добавлено в библиотеку: %s (%s)\n", track.Title, track.FileName)
	if !app.Player.Capabilities()[track.Ext()] {
		app.printf("⚠️  Формат %s не поддерживается для воспроизведения\n", track.Ext())
	}
	return nil
}
