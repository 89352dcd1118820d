package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/hazadus/go-nowplaying/internal/backend"
	"github.com/hazadus/go-nowplaying/internal/catalog"
	"github.com/hazadus/go-nowplaying/internal/config"
	"github.com/hazadus/go-nowplaying/internal/filestore"
	"github.com/hazadus/go-nowplaying/internal/kv"
	"github.com/hazadus/go-nowplaying/internal/library"
	"github.com/hazadus/go-nowplaying/internal/logger"
	"github.com/hazadus/go-nowplaying/internal/session"
	"github.com/hazadus/go-nowplaying/internal/streaming"
	"github.com/hazadus/go-nowplaying/internal/ytimport"
)

const (
	defaultConfigPath = "~/.nowplaying/config.yaml"
	configPathEnv     = "NOWPLAYING_CONFIG"
	logFileName       = "nowplaying.log"
)

// Application связывает компоненты приложения и используется командами
type Application struct {
	Config     *config.Config
	Log        *log.Logger
	Files      filestore.Store
	State      kv.Store
	Catalog    *catalog.Client
	Player     *session.Manager
	Library    *library.Service
	Downloader *ytimport.Downloader
	Out        io.Writer
	// Keys источник нажатий клавиш для экрана воспроизведения; nil - терминал
	Keys func() (keys <-chan byte, restore func())

	closers []io.Closer
}

// newApplication создает хранилища, клиентов и менеджер воспроизведения по конфигурации
func newApplication(cfg *config.Config, logOut io.Writer) (*Application, error) {
	app := &Application{
		Config: cfg,
		Log:    logger.New(logOut, cfg.LogLevel),
		Out:    os.Stdout,
	}

	files, err := newFileStore(cfg)
	if err != nil {
		return nil, err
	}
	app.Files = files

	state, err := newStateStore(cfg)
	if err != nil {
		return nil, err
	}
	app.State = state
	app.closers = append(app.closers, state)

	httpClient := streaming.NewClient()
	app.Catalog = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.ClientID, cfg.Catalog.Limit, httpClient)

	factory := session.BeepFactory{Options: backend.Options{
		TickInterval: cfg.Playback.TickInterval,
		Logger:       app.Log,
		HTTPClient:   httpClient,
	}}
	if err := app.wire(factory); err != nil {
		app.Close()
		return nil, err
	}
	app.Downloader = ytimport.NewDownloader(nil, app.Log)
	return app, nil
}

// wire создает менеджер воспроизведения и библиотеку поверх уже открытых хранилищ
func (app *Application) wire(factory session.Factory) error {
	app.Player = session.New(app.Files, app.State, factory, session.Config{
		MetadataTimeout:  app.Config.Playback.MetadataTimeout,
		SkipDelay:        app.Config.Playback.SkipDelay,
		FallbackDuration: app.Config.Playback.FallbackDuration,
	}, app.Log)

	lib, err := library.NewService(app.Files, app.State, app.Player, app.Log)
	if err != nil {
		return fmt.Errorf("ошибка загрузки библиотеки: %w", err)
	}
	app.Library = lib
	return nil
}

func newFileStore(cfg *config.Config) (filestore.Store, error) {
	switch cfg.FileStore.Kind {
	case config.FileStoreS3:
		return filestore.NewS3Store(&filestore.S3Config{
			Region:     cfg.Aws.Region,
			AccessKey:  cfg.Aws.AccessKey,
			SecretKey:  cfg.Aws.SecretKey,
			Endpoint:   cfg.Aws.Endpoint,
			BucketName: cfg.Aws.BucketName,
			Prefix:     cfg.FileStore.Prefix,
		})
	default:
		return filestore.NewDirStore(cfg.FilesDir(), cfg.FileStore.Prefix)
	}
}

func newStateStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.StateStore.Kind {
	case config.StateStoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StateDBPath()), 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории данных: %w", err)
		}
		return kv.NewSQLiteStore(cfg.StateDBPath())
	default:
		return kv.NewFileStore(cfg.StateDir())
	}
}

// Close сохраняет состояние воспроизведения и закрывает хранилища
func (app *Application) Close() error {
	var errs []error
	if app.Player != nil {
		errs = append(errs, app.Player.Close())
	}
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (app *Application) printf(format string, args ...any) {
	fmt.Fprintf(app.Out, format, args...)
}

func (app *Application) println(args ...any) {
	fmt.Fprintln(app.Out, args...)
}

// openLogFile открывает файл журнала в каталоге данных
func openLogFile(cfg *config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории данных: %w", err)
	}
	return os.OpenFile(filepath.Join(cfg.DataDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func configPath() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

func run() error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	logFile, err := openLogFile(cfg)
	if err != nil {
		return fmt.Errorf("ошибка открытия журнала: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(cfg, logFile)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.createRootCommand(ctx).ExecuteContext(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
