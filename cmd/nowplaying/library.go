package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hazadus/go-nowplaying/internal/data"
	"github.com/hazadus/go-nowplaying/internal/library"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

const importTimeout = 10 * time.Minute

// createImportCommand создает команду import с привязкой к экземпляру приложения
func (app *Application) createImportCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file path...]",
		Short: "Import audio files into the library",
		Long:  `Copy audio files into the file store and add them to the library with tag metadata.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			importCtx, cancel := context.WithTimeout(ctx, importTimeout)
			defer cancel()
			return app.importFiles(importCtx, args)
		},
	}
}

// importFiles импортирует файлы по очереди; уже импортированные пропускаются
func (app *Application) importFiles(ctx context.Context, paths []string) error {
	var imported, skipped int
	var errs []error

	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("файл не найден: %s", path))
			continue
		}

		app.printf("📤 Импортируем %s (%s)\n", path, utils.FormatFileSize(stat.Size()))
		startTime := time.Now()
		track, err := app.Library.ImportFile(ctx, path, func(read int64) {
			app.displayTransfer(read, stat.Size(), startTime)
		})
		app.println()

		switch {
		case library.IsDuplicate(err):
			app.printf("⏭️  Уже в библиотеке: %s\n", path)
			skipped++
		case err != nil:
			app.printf("❌ %v\n", err)
			errs = append(errs, err)
		default:
			app.printf("✅ %s - %s\n", track.Artist, track.Title)
			imported++
		}
	}

	app.printf("\n📚 Импортировано: %d, пропущено: %d, ошибок: %d\n", imported, skipped, len(errs))
	return errors.Join(errs...)
}

// displayTransfer выводит прогресс передачи данных в одной строке
func (app *Application) displayTransfer(read, total int64, startTime time.Time) {
	line := fmt.Sprintf("   %s", utils.FormatFileSize(read))
	if total > 0 {
		line += fmt.Sprintf(" / %s (%.1f%%)", utils.FormatFileSize(total), float64(read)/float64(total)*100)
	}
	if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
		line += fmt.Sprintf(", %s/с", utils.FormatFileSize(int64(float64(read)/elapsed)))
	}
	app.printf("\r\033[K%s", line)
}

// createLocalCommand создает команду local с привязкой к экземпляру приложения
func (app *Application) createLocalCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "local",
		Aliases: []string{"list"},
		Short:   "List imported files",
		Args:    cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			app.listLocal()
		},
	}
}

func (app *Application) listLocal() {
	tracks := app.Library.Tracks()
	if len(tracks) == 0 {
		app.println("📚 Библиотека пуста. Добавьте файлы с помощью команды 'import'.")
		return
	}

	app.printf("📚 Файлов в библиотеке: %d\n", len(tracks))
	t := app.newTable()
	t.AppendHeader(table.Row{"Файл", "Исполнитель", "Название", "Время", "Размер", "Импортирован"})
	for _, track := range tracks {
		entry, _ := app.Library.Entry(track.FileName)
		t.AppendRow(table.Row{
			utils.TruncateString(track.FileName, 30),
			utils.TruncateString(track.Artist, 24),
			utils.TruncateString(track.Title, 24),
			trackDuration(track),
			utils.FormatFileSize(entry.FileSize),
			entry.ImportedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()

	app.println()
	app.println("💡 Используйте 'nowplaying play-local [файл]' для воспроизведения")
}

// createRemoveCommand создает команду remove с привязкой к экземпляру приложения
func (app *Application) createRemoveCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "remove [file name]",
		Aliases: []string{"delete"},
		Short:   "Remove an imported file from the library and the file store",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]
			if err := app.Library.Remove(ctx, name); err != nil {
				if errors.Is(err, data.ErrNotFound) {
					return fmt.Errorf("файл %s не найден в библиотеке", name)
				}
				return fmt.Errorf("ошибка удаления: %w", err)
			}
			app.printf("🗑️  Файл удален: %s\n", name)
			return nil
		},
	}
}

// createRescanCommand создает команду rescan с привязкой к экземпляру приложения
func (app *Application) createRescanCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Synchronize the library with the file store",
		Long:  `Add files found in the store that are missing from the library and drop entries whose files are gone.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			added, removed, err := app.Library.Rescan(ctx)
			if err != nil {
				return fmt.Errorf("ошибка сканирования хранилища: %w", err)
			}
			app.printf("🔄 Добавлено: %d, удалено: %d\n", added, removed)
			return nil
		},
	}
}

// createPlayLocalCommand создает команду play-local с привязкой к экземпляру приложения
func (app *Application) createPlayLocalCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "play-local [file name]",
		Short: "Play an imported file outside of any playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := app.Library.PlayLocal(ctx, args[0]); err != nil {
				return fmt.Errorf("ошибка запуска воспроизведения: %w", err)
			}
			return app.watch(ctx)
		},
	}
}
