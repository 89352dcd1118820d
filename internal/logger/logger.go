// Package logger создает структурированные логгеры приложения
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New создает логгер с отметками времени, пишущий в w (по умолчанию os.Stderr).
// Неизвестный уровень трактуется как info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "nowplaying",
	})
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard возвращает логгер, отбрасывающий все записи
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// ParseLevel разбирает уровень логирования из конфигурации
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
