package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/session"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

// seekStep шаг перемотки клавишами f и r, в секундах
const seekStep = 10

// createResumeCommand создает команду resume с привязкой к экземпляру приложения
func (app *Application) createResumeCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume playback from the saved state",
		Long:  `Restore the playlist and position saved by the previous run and continue playing.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.resume(ctx)
		},
	}
}

func (app *Application) resume(ctx context.Context) error {
	app.Player.Restore(ctx)
	track, ok := app.Player.CurrentTrack()
	if !ok {
		app.println("📭 Нет сохраненного воспроизведения")
		return nil
	}

	if pos := app.Player.CurrentTime(); pos > 0 {
		app.printf("⏮️  Продолжаем %s с позиции %s\n", track.Title, utils.FormatPosition(pos))
	}
	app.Player.Play()
	return app.watch(ctx)
}

// enableRawMode включает режим raw для терминала (без буферизации и echo)
func enableRawMode() {
	cmd := exec.Command("stty", "-echo", "-icanon")
	cmd.Stdin = os.Stdin
	_ = cmd.Run() // Без stty управление клавишами недоступно, воспроизведение продолжается
}

// disableRawMode восстанавливает нормальный режим терминала
func disableRawMode() {
	cmd := exec.Command("stty", "echo", "icanon")
	cmd.Stdin = os.Stdin
	_ = cmd.Run()
}

// terminalKeys читает одиночные символы из stdin без ожидания Enter.
// Если stdin не терминал, клавиши не читаются.
func terminalKeys() (<-chan byte, func()) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, func() {}
	}
	enableRawMode()

	keys := make(chan byte)
	go func() {
		defer close(keys)
		buffer := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buffer); err != nil {
				return
			}
			keys <- buffer[0]
		}
	}()
	return keys, disableRawMode
}

func (app *Application) keySource() (<-chan byte, func()) {
	if app.Keys != nil {
		return app.Keys()
	}
	return terminalKeys()
}

// watch показывает текущий трек и прогресс и обрабатывает клавиши управления.
// Выход по q не останавливает сессию: ее состояние сохраняется при закрытии приложения.
func (app *Application) watch(ctx context.Context) error {
	sub := app.Player.Subscribe()
	defer sub.Close()

	track, ok := app.Player.CurrentTrack()
	if !ok {
		app.println("⏹️  Ничего не воспроизводится")
		return nil
	}

	keys, restore := app.keySource()
	defer restore()

	app.printNowPlaying(track)
	app.printf("🎮 Управление:\n")
	app.printf("   [Пробел] - пауза/воспроизведение\n")
	app.printf("   [n]/[b]  - следующий/предыдущий трек\n")
	app.printf("   [f]/[r]  - перемотка на %d с вперед/назад\n", seekStep)
	app.printf("   [s]      - остановить\n")
	app.printf("   [q]      - выйти с сохранением позиции\n")
	app.println()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case session.TrackChanged:
				if ev.Track.IsZero() {
					app.println("\n⏹️  Воспроизведение остановлено")
					return nil
				}
				app.println()
				app.printNowPlaying(ev.Track)
			case session.PositionAdvanced:
				app.displayProgress(ev.Seconds)
			}

		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if app.handleKey(key) {
				app.println("\n👋 Выход, позиция сохранена")
				return nil
			}

		case <-ctx.Done():
			app.println("\n🚫 Операция отменена")
			return nil
		}
	}
}

// handleKey выполняет действие клавиши и сообщает, нужно ли выйти
func (app *Application) handleKey(key byte) bool {
	switch key {
	case ' ', '\n', '\r':
		app.printf("\r\033[K")
		if app.Player.IsPaused() {
			app.Player.Play()
			app.println("▶️  Воспроизведение")
		} else {
			app.Player.Pause()
			app.println("⏸️  Пауза")
		}
	case 'n':
		app.Player.Next()
	case 'b':
		app.Player.Previous()
	case 'f':
		app.Player.SeekTo(app.Player.CurrentTime() + seekStep)
	case 'r':
		app.Player.SeekTo(max(0, app.Player.CurrentTime()-seekStep))
	case 's':
		app.Player.Stop()
	case 'q':
		return true
	}
	return false
}

func (app *Application) printNowPlaying(track model.Track) {
	app.printf("🎵 Сейчас играет:\n")
	app.printf("   Исполнитель: %s\n", track.Artist)
	app.printf("   Название: %s\n", track.Title)
	if track.Album != "" {
		app.printf("   Альбом: %s\n", track.Album)
	}
	app.printf("   Источник: %s\n", sourceLabel(track))
	if track.Duration > 0 {
		app.printf("   Продолжительность: %s\n", trackDuration(track))
	}
	app.println()
}

// displayProgress отображает прогресс воспроизведения
func (app *Application) displayProgress(seconds float64) {
	statusIcon := "⏱️"
	if app.Player.IsPaused() {
		statusIcon = "⏸️"
	}

	progress, total := "??%", "--:--"
	if duration := app.Player.Duration(); duration > 0 {
		progress = fmt.Sprintf("%.1f%%", min(seconds/duration, 1)*100)
		total = utils.FormatPosition(duration)
	}

	app.printf("\r\033[K%s  %s / %s (%s)", statusIcon, utils.FormatPosition(seconds), total, progress)
}
