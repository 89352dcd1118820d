package backend

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// OutputSampleRate частота дискретизации звуковой карты
const OutputSampleRate = beep.SampleRate(44100)

// Output устройство вывода звука. Lock/Unlock защищают стримеры,
// которые в данный момент читает устройство.
type Output interface {
	Play(s beep.Streamer, format beep.Format) error
	Lock()
	Unlock()
}

// SpeakerOutput выводит звук через beep/speaker
type SpeakerOutput struct {
	rate beep.SampleRate
	once sync.Once
	err  error
}

var (
	defaultOutput     *SpeakerOutput
	defaultOutputOnce sync.Once
)

// DefaultOutput возвращает общий вывод на динамики процесса
func DefaultOutput() *SpeakerOutput {
	defaultOutputOnce.Do(func() {
		defaultOutput = NewSpeakerOutput(OutputSampleRate)
	})
	return defaultOutput
}

// NewSpeakerOutput создает вывод с заданной частотой. Динамики инициализируются при первом Play.
func NewSpeakerOutput(rate beep.SampleRate) *SpeakerOutput {
	return &SpeakerOutput{rate: rate}
}

// Play добавляет стример в микшер динамиков, при необходимости с передискретизацией
func (o *SpeakerOutput) Play(s beep.Streamer, format beep.Format) error {
	o.once.Do(func() {
		o.err = speaker.Init(o.rate, o.rate.N(time.Second/5))
	})
	if o.err != nil {
		return fmt.Errorf("ошибка инициализации динамиков: %w", o.err)
	}

	if format.SampleRate != o.rate {
		s = beep.Resample(4, format.SampleRate, o.rate, s)
	}
	speaker.Play(s)
	return nil
}

func (o *SpeakerOutput) Lock()   { speaker.Lock() }
func (o *SpeakerOutput) Unlock() { speaker.Unlock() }
