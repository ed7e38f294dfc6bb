package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/plugin/ai"
	"github.com/confluo/confluo/plugin/gcal"
	"github.com/confluo/confluo/server"
	"github.com/confluo/confluo/server/service/meeting"
	"github.com/confluo/confluo/store"
	"github.com/confluo/confluo/store/db"
)

const greetingBanner = `
Confluo - meeting scheduling, minus the back and forth.
`

var rootCmd = &cobra.Command{
	Use:   "confluo",
	Short: "A smart meeting scheduling service",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}

		var busy meeting.BusyProvider
		var creator meeting.EventCreator
		var lister meeting.EventLister
		if instanceProfile.IsCalendarEnabled() {
			client, err := gcal.NewClient(ctx, instanceProfile)
			if err != nil {
				slog.Error("failed to initialize calendar client", "error", err)
				os.Exit(1)
			}
			busy, creator, lister = client, client, client
			slog.Info("google calendar provider enabled")
		} else {
			slog.Warn("no calendar provider configured, attendees are treated as free")
		}

		var llm ai.LLMService
		if instanceProfile.IsAIEnabled() {
			llm, err = ai.NewLLMService(instanceProfile)
			if err != nil {
				slog.Error("failed to initialize llm service", "error", err)
				os.Exit(1)
			}
			slog.Info("chat assistant llm enabled", "model", instanceProfile.AIModel)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, busy, creator, lister, llm)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize the Google Calendar provider and cache the token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{}
		instanceProfile.FromEnv()
		if instanceProfile.CalendarCredentialsFile == "" {
			return fmt.Errorf("CONFLUO_CALENDAR_CREDENTIALS is not set")
		}
		tokenFile := instanceProfile.CalendarTokenFile
		if tokenFile == "" {
			tokenFile = "calendar-token.json"
		}

		url, err := gcal.AuthURL(instanceProfile.CalendarCredentialsFile)
		if err != nil {
			return err
		}
		fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%s\n", url)
		fmt.Print("Authorization code: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		code, _ := reader.ReadString('\n')
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("no authorization code entered")
		}

		if err := gcal.Authorize(cmd.Context(), instanceProfile.CalendarCredentialsFile, tokenFile, code); err != nil {
			return err
		}
		fmt.Printf("Token saved to %s\n", tokenFile)
		return nil
	},
}

var version = "0.1.0"

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("data", ".")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your confluo instance")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(authCmd)
	viper.SetEnvPrefix("confluo")
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Print(greetingBanner)
	fmt.Printf("Version %s has been started on port %d\n", p.Version, p.Port)
	if p.InstanceURL != "" {
		fmt.Printf("See instance at %s\n", p.InstanceURL)
	}
}

func main() {
	// Missing .env is fine, the environment may be set elsewhere.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run command", "error", err)
		os.Exit(1)
	}
}
