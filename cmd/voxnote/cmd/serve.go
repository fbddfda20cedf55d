package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxnote/voxnote/internal/auth"
	"github.com/voxnote/voxnote/internal/server"
	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/stt"
	"github.com/voxnote/voxnote/internal/transcript"
	"github.com/voxnote/voxnote/pkg/core/config"
	"github.com/voxnote/voxnote/pkg/core/health"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcription server",
	Long: `Starts the VoxNote server: it accepts audio slices, transcribes them
with Whisper and keeps the merged transcript current while a recording is
still running.

Without OPENAI_API_KEY the server still accepts recordings, but every
slice transcribes to empty text.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.Store.Driver == "memory" {
		st = store.NewMemoryStore()
	} else {
		sqlite, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Store.Path})
		if err != nil {
			printError("failed to open store", err)
			return err
		}
		st = sqlite
	}
	defer st.Close()

	recognizer := stt.NewRetryTranscriber(
		stt.NewOpenAITranscriber(stt.Config{
			APIKey:   cfg.Recognizer.APIKey,
			BaseURL:  cfg.Recognizer.BaseURL,
			Model:    cfg.Recognizer.Model,
			Language: cfg.Recognizer.Language,
			Timeout:  cfg.Recognizer.Timeout.Duration,
		}),
		stt.DefaultRetryConfig(),
	)
	defer recognizer.Close()

	if cfg.Recognizer.APIKey == "" {
		fmt.Println("Warning: no API key configured, slices will transcribe to empty text")
	}

	svc, err := transcript.NewService(transcript.Config{
		Store:      st,
		Recognizer: recognizer,
		ChunkDir:   cfg.Server.ChunkDir,
	})
	if err != nil {
		printError("failed to create service", err)
		return err
	}

	srv, err := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		Version:      Version,
	}, svc, auth.New(cfg.Auth.JWTSecret))
	if err != nil {
		printError("failed to create server", err)
		return err
	}

	srv.Health().RegisterFunc("recognizer", func(ctx context.Context) health.CheckResult {
		if cfg.Recognizer.APIKey == "" {
			return health.CheckResult{
				Status:  health.StatusDegraded,
				Message: "no API key configured, transcription disabled",
			}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	})

	srv.StartAsync()
	fmt.Printf("VoxNote server listening on %s\n", cfg.ServerAddress())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			printError("failed to load config", err)
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Printf("Warning: config not loaded (%v), using defaults\n", err)
		return config.Default(), nil
	}
	return cfg, nil
}
