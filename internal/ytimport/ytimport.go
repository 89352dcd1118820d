// Package ytimport скачивает аудиодорожку видео YouTube и импортирует ее в локальную библиотеку
package ytimport

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/kkdai/youtube/v2"

	"github.com/hazadus/go-nowplaying/internal/logger"
	"github.com/hazadus/go-nowplaying/internal/model"
)

// VideoClient часть youtube.Client, используемая при скачивании
type VideoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Importer принимает скачанный файл в библиотеку
type Importer interface {
	Import(ctx context.Context, name string, content []byte) (model.Track, error)
}

// Audio скачанная аудиодорожка
type Audio struct {
	VideoID  string
	Title    string
	Author   string
	Format   string
	FileName string
	Data     []byte
}

// Downloader скачивает аудио из YouTube
type Downloader struct {
	client VideoClient
	log    *log.Logger
}

// NewDownloader создает загрузчик; nil клиент заменяется на youtube.Client
func NewDownloader(client VideoClient, l *log.Logger) *Downloader {
	if client == nil {
		client = &youtube.Client{}
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Downloader{client: client, log: l.With("component", "ytimport")}
}

// Fetch скачивает лучшую аудиодорожку видео в память.
// progress получает число прочитанных байт и общий размер, если он известен.
func (d *Downloader) Fetch(ctx context.Context, url string, progress func(read, total int64)) (*Audio, error) {
	videoID, err := ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о видео: %w", err)
	}

	format := findBestAudioFormat(video.Formats)
	if format == nil {
		return nil, fmt.Errorf("аудио формат не найден для видео %s", videoID)
	}
	d.log.Debug("выбран формат", "video", videoID, "itag", format.ItagNo, "mime", format.MimeType, "bitrate", format.Bitrate)

	stream, size, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения потока: %w", err)
	}
	defer stream.Close()

	var reader io.Reader = stream
	if progress != nil {
		reader = &countingReader{r: stream, total: size, onRead: progress}
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания: %w", err)
	}

	ext := extensionFor(format.MimeType)
	name := sanitizeFileName(video.Title)
	if video.Author != "" && !strings.Contains(video.Title, " - ") {
		name = sanitizeFileName(video.Author + " - " + video.Title)
	}
	if name == "" {
		name = videoID
	}

	return &Audio{
		VideoID:  videoID,
		Title:    video.Title,
		Author:   video.Author,
		Format:   ext,
		FileName: name + "." + ext,
		Data:     content,
	}, nil
}

// Import скачивает аудио и добавляет его в библиотеку
func (d *Downloader) Import(ctx context.Context, importer Importer, url string, progress func(read, total int64)) (model.Track, error) {
	audio, err := d.Fetch(ctx, url, progress)
	if err != nil {
		return model.Track{}, err
	}
	track, err := importer.Import(ctx, audio.FileName, audio.Data)
	if err != nil {
		return model.Track{}, err
	}
	d.log.Info("аудио импортировано", "video", audio.VideoID, "file", audio.FileName)
	return track, nil
}

// Save скачивает аудио в каталог dir и возвращает путь к файлу
func (d *Downloader) Save(ctx context.Context, dir, url string, progress func(read, total int64)) (string, error) {
	audio, err := d.Fetch(ctx, url, progress)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории: %w", err)
	}
	filePath := filepath.Join(dir, audio.FileName)
	if err := os.WriteFile(filePath, audio.Data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}
	return filePath, nil
}

var (
	videoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/v/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
	}
	bareVideoID     = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	invalidFileChar = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// ExtractVideoID извлекает ID видео из различных форматов YouTube URL
func ExtractVideoID(url string) (string, error) {
	for _, re := range videoURLPatterns {
		if matches := re.FindStringSubmatch(url); len(matches) > 1 {
			return matches[1], nil
		}
	}
	if bareVideoID.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("не удалось извлечь ID видео из URL: %s", url)
}

// findBestAudioFormat выбирает аудиоформат с наибольшим битрейтом, при равенстве предпочитая MP4/M4A
func findBestAudioFormat(formats youtube.FormatList) *youtube.Format {
	audio := formats.WithAudioChannels()
	if len(audio) == 0 {
		return nil
	}

	var best *youtube.Format
	for i := range audio {
		f := &audio[i]
		if best == nil || better(f, best) {
			best = f
		}
	}
	return best
}

func better(a, b *youtube.Format) bool {
	aOnly, bOnly := isAudioOnly(a), isAudioOnly(b)
	if aOnly != bOnly {
		return aOnly
	}
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	return isMP4(a) && !isMP4(b)
}

func isAudioOnly(f *youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

func isMP4(f *youtube.Format) bool {
	return strings.Contains(f.MimeType, "mp4") || strings.Contains(f.MimeType, "m4a")
}

// extensionFor определяет расширение файла по MIME типу формата
func extensionFor(mimeType string) string {
	media, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		media = mimeType
	}
	switch media {
	case "audio/mp4", "video/mp4":
		return "m4a"
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	}
	return "mp3"
}

// sanitizeFileName очищает имя файла от недопустимых символов
func sanitizeFileName(name string) string {
	name = invalidFileChar.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)

	// Ограничиваем длину, не разрезая символы
	if len(name) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	return name
}

type countingReader struct {
	r      io.Reader
	read   int64
	total  int64
	onRead func(read, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	c.onRead(c.read, c.total)
	return n, err
}
