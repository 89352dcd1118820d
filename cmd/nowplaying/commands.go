package main

import (
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nowplaying",
		Short:         "Personal music player for a remote catalog and imported files",
		Long:          `Plays tracks from the Jamendo catalog or from imported local files and resumes playback after restart.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createSearchCommand(ctx))
	rootCmd.AddCommand(app.createTopCommand(ctx))
	rootCmd.AddCommand(app.createTagCommand(ctx))
	rootCmd.AddCommand(app.createImportCommand(ctx))
	rootCmd.AddCommand(app.createLocalCommand())
	rootCmd.AddCommand(app.createRemoveCommand(ctx))
	rootCmd.AddCommand(app.createRescanCommand(ctx))
	rootCmd.AddCommand(app.createPlayLocalCommand(ctx))
	rootCmd.AddCommand(app.createRecentCommand(ctx))
	rootCmd.AddCommand(app.createPlaylistCommand(ctx))
	rootCmd.AddCommand(app.createDownloadCommand(ctx))
	rootCmd.AddCommand(app.createResumeCommand(ctx))
	rootCmd.AddCommand(app.createStatusCommand())
	rootCmd.AddCommand(app.createFormatsCommand())
	rootCmd.AddCommand(app.createTUICommand(ctx))

	return rootCmd
}
