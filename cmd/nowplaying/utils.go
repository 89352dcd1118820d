package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/hazadus/go-nowplaying/internal/model"
	"github.com/hazadus/go-nowplaying/internal/utils"
)

// defaultTableWidth ширина таблиц, если вывод идет не в терминал
const defaultTableWidth = 120

// newTable создает таблицу, которая выводится в app.Out
func (app *Application) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(app.Out)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(terminalWidth())
	return t
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTableWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTableWidth
	}
	return width
}

// printTracks выводит пронумерованную таблицу треков
func (app *Application) printTracks(title string, tracks []model.Track) {
	if len(tracks) == 0 {
		app.printf("📭 %s: список пуст\n", title)
		return
	}

	app.printf("🎶 %s, треков: %d\n", title, len(tracks))
	t := app.newTable()
	t.AppendHeader(table.Row{"#", "Исполнитель", "Название", "Альбом", "Время", "Источник"})
	for i, track := range tracks {
		t.AppendRow(table.Row{
			i + 1,
			utils.TruncateString(track.Artist, 28),
			utils.TruncateString(track.Title, 28),
			utils.TruncateString(track.Album, 18),
			trackDuration(track),
			sourceLabel(track),
		})
	}
	t.Render()
	app.println()
}

func trackDuration(track model.Track) string {
	if track.Duration <= 0 {
		return "--:--"
	}
	return utils.FormatPosition(float64(track.Duration))
}

func sourceLabel(track model.Track) string {
	if track.IsLocal() {
		return "💾 " + track.FileName
	}
	return "🌐 " + track.ID
}

// pickTrack возвращает трек по номеру из таблицы (с единицы)
func pickTrack(tracks []model.Track, n int) (model.Track, error) {
	if n < 1 || n > len(tracks) {
		return model.Track{}, fmt.Errorf("номер трека вне диапазона 1..%d: %d", len(tracks), n)
	}
	return tracks[n-1], nil
}
