package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"galerts/lib/configutil"
	"galerts/lib/restyutil"
	"galerts/lib/scrapers/galerts/core"
	"galerts/lib/scrapers/galerts/manage"
	"galerts/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "galerts-cli",
	Short: "galerts-cli manages the Google Alerts of an account through the web interface.",
}

var verbose *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output and full http transcripts.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func createManager(ctx context.Context) *manage.Manager {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	if *verbose {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})))
		core.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/galerts"))
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*60)
	defer cancel()

	client, err := core.NewClient(ctx, core.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}
	manager, err := manage.NewManager(ctx, client, cfg.Email, cfg.Password)
	if err != nil {
		serviceutil.Fatal("failed to sign in", err)
	}
	return manager
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
