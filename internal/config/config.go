// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Виды хранилищ
const (
	FileStoreDir = "dir"
	FileStoreS3  = "s3"

	StateStoreFile   = "file"
	StateStoreSQLite = "sqlite"
)

// Config структура для хранения конфигурации приложения
type Config struct {
	DataDir     string         `yaml:"data_dir"`
	DownloadDir string         `yaml:"download_dir"`
	LogLevel    string         `yaml:"log_level"`
	Catalog     CatalogConfig  `yaml:"catalog"`
	FileStore   FileStore      `yaml:"file_store"`
	StateStore  StateStore     `yaml:"state_store"`
	Aws         AwsConfig      `yaml:"aws"`
	Playback    PlaybackConfig `yaml:"playback"`
}

// CatalogConfig настройки клиента каталога Jamendo
type CatalogConfig struct {
	BaseURL  string `yaml:"base_url"`
	ClientID string `yaml:"client_id"`
	Limit    int    `yaml:"limit"`
}

// FileStore настройки хранилища импортированных файлов
type FileStore struct {
	Kind   string `yaml:"kind"`   // dir или s3
	Prefix string `yaml:"prefix"` // Префикс ключей файлов
}

// StateStore настройки хранилища состояния воспроизведения
type StateStore struct {
	Kind string `yaml:"kind"` // file или sqlite
}

// AwsConfig настройки S3-совместимого хранилища
type AwsConfig struct {
	BucketName string `yaml:"bucket_name"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
}

// PlaybackConfig настройки менеджера воспроизведения
type PlaybackConfig struct {
	MetadataTimeout  time.Duration `yaml:"metadata_timeout"`  // Ожидание метаданных при восстановлении
	SkipDelay        time.Duration `yaml:"skip_delay"`        // Пауза перед пропуском сломанного трека
	TickInterval     time.Duration `yaml:"tick_interval"`     // Период уведомлений о позиции
	FallbackDuration time.Duration `yaml:"fallback_duration"` // Длительность, если метаданные неизвестны
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		DataDir:     "~/.nowplaying",
		DownloadDir: "~/Downloads",
		LogLevel:    "info",
		Catalog: CatalogConfig{
			BaseURL:  "https://api.jamendo.com/v3.0",
			ClientID: "dcb96b78",
			Limit:    10,
		},
		FileStore:  FileStore{Kind: FileStoreDir, Prefix: "localMusicFile_"},
		StateStore: StateStore{Kind: StateStoreFile},
		Aws:        AwsConfig{Region: "us-east-1"},
		Playback: PlaybackConfig{
			MetadataTimeout:  3 * time.Second,
			SkipDelay:        time.Second,
			TickInterval:     250 * time.Millisecond,
			FallbackDuration: 10 * time.Minute,
		},
	}
}

// LoadConfig загружает конфигурацию приложения из указанного файла.
// Если файла нет, возвращается конфигурация по умолчанию.
func LoadConfig(filePath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := expandHome(filePath, home)

	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.expand(home)
			return config, nil
		}
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("ошибка разбора yaml конфигурации: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	config.expand(home)
	return config, nil
}

// validate проверяет значения, которые нельзя исправить значениями по умолчанию
func (c *Config) validate() error {
	switch c.FileStore.Kind {
	case "":
		c.FileStore.Kind = FileStoreDir
	case FileStoreDir:
	case FileStoreS3:
		if c.Aws.BucketName == "" {
			return fmt.Errorf("для хранилища s3 необходимо указать aws.bucket_name")
		}
	default:
		return fmt.Errorf("неизвестный тип file_store: %s", c.FileStore.Kind)
	}

	switch c.StateStore.Kind {
	case "":
		c.StateStore.Kind = StateStoreFile
	case StateStoreFile, StateStoreSQLite:
	default:
		return fmt.Errorf("неизвестный тип state_store: %s", c.StateStore.Kind)
	}

	// Нулевые интервалы заменяем значениями по умолчанию
	defaults := Default().Playback
	if c.Playback.MetadataTimeout <= 0 {
		c.Playback.MetadataTimeout = defaults.MetadataTimeout
	}
	if c.Playback.SkipDelay < 0 {
		c.Playback.SkipDelay = defaults.SkipDelay
	}
	if c.Playback.TickInterval <= 0 {
		c.Playback.TickInterval = defaults.TickInterval
	}
	if c.Playback.FallbackDuration <= 0 {
		c.Playback.FallbackDuration = defaults.FallbackDuration
	}
	if c.Catalog.Limit <= 0 {
		c.Catalog.Limit = 10
	}
	return nil
}

// expand раскрывает тильду в путях
func (c *Config) expand(home string) {
	c.DataDir = expandHome(c.DataDir, home)
	c.DownloadDir = expandHome(c.DownloadDir, home)
}

// FilesDir возвращает каталог хранилища импортированных файлов
func (c *Config) FilesDir() string {
	return filepath.Join(c.DataDir, "files")
}

// StateDir возвращает каталог хранилища состояния
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}

// StateDBPath возвращает путь к базе SQLite для состояния
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

func expandHome(path, home string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return strings.Replace(path, "~", home, 1)
	}
	return path
}
