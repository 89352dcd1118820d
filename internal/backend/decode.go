package backend

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decoders реестр декодеров, собранных в программу. Порядок важен для перебора.
var decoders = []struct {
	ext    string
	decode decodeFunc
}{
	{"mp3", mp3.Decode},
	{"wav", func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	}},
}

// ProbedFormats расширения, для которых строится таблица возможностей
var ProbedFormats = []string{"mp3", "wav", "flac", "ogg", "m4a", "aac", "opus", "webm"}

// ProbeFormats сообщает для каждого расширения, есть ли для него декодер.
// Результат носит рекомендательный характер.
func ProbeFormats() map[string]bool {
	formats := make(map[string]bool, len(ProbedFormats))
	for _, ext := range ProbedFormats {
		formats[ext] = lookupDecoder(ext) != nil
	}
	return formats
}

func lookupDecoder(ext string) decodeFunc {
	for _, d := range decoders {
		if d.ext == ext {
			return d.decode
		}
	}
	return nil
}

// bytesSource io.ReadSeekCloser поверх среза байт; поддержка Seek нужна декодерам для перемотки
type bytesSource struct {
	*bytes.Reader
}

func (bytesSource) Close() error { return nil }

// DecodeBytes декодирует аудио из памяти. Сначала пробуется декодер по расширению,
// затем остальные по порядку.
func DecodeBytes(ext string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	if d := lookupDecoder(ext); d != nil {
		s, format, err := d(bytesSource{bytes.NewReader(data)})
		if err == nil {
			return s, format, nil
		}
	}

	for _, d := range decoders {
		if d.ext == ext {
			continue
		}
		s, format, err := d.decode(bytesSource{bytes.NewReader(data)})
		if err == nil {
			return s, format, nil
		}
	}
	return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// decodeStream декодирует поток без возможности повторного чтения, поэтому пробуется один декодер
func decodeStream(ext string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	d := lookupDecoder(ext)
	if d == nil {
		d = mp3.Decode
	}
	s, format, err := d(rc)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("ошибка декодирования потока %s: %w", ext, err)
	}
	return s, format, nil
}

// DurationOf возвращает длительность аудиоданных в секундах или 0, если она неизвестна
func DurationOf(ext string, data []byte) (float64, error) {
	s, format, err := DecodeBytes(ext, data)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if s.Len() <= 0 {
		return 0, nil
	}
	return format.SampleRate.D(s.Len()).Seconds(), nil
}
