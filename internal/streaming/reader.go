// Package streaming содержит компоненты для потокового воспроизведения аудио
package streaming

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"
)

// DefaultBufferSize размер буфера чтения по умолчанию
const DefaultBufferSize = 64 * 1024

// Reader представляет буферизованный поток для чтения данных порциями
type Reader struct {
	reader      *bufio.Reader
	resp        *http.Response
	contentType string
}

// NewClient создает HTTP клиент без общего таймаута для длительного потокового чтения
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       300 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// NewReader открывает поток по URL. Если client равен nil, используется NewClient.
func NewReader(ctx context.Context, client *http.Client, url string, bufferSize int) (*Reader, error) {
	if client == nil {
		client = NewClient()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept-Encoding", "identity") // Сжатие ломает декодер
	req.Header.Set("Range", "bytes=0-")
	req.Header.Set("User-Agent", "go-nowplaying/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("ошибка HTTP: %s", resp.Status)
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	return &Reader{
		reader:      bufio.NewReaderSize(resp.Body, bufferSize),
		resp:        resp,
		contentType: contentType,
	}, nil
}

// Read реализует интерфейс io.Reader для потокового чтения
func (sr *Reader) Read(p []byte) (n int, err error) {
	return sr.reader.Read(p)
}

// Close закрывает соединение
func (sr *Reader) Close() error {
	return sr.resp.Body.Close()
}

// ContentType возвращает MIME тип потока без параметров
func (sr *Reader) ContentType() string {
	return sr.contentType
}

// FormatHint возвращает расширение формата по MIME типу или пустую строку
func (sr *Reader) FormatHint() string {
	switch sr.contentType {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/ogg", "application/ogg":
		return "ogg"
	}
	return ""
}
