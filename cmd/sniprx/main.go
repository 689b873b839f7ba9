// sniprx - control plane for the SniprX trading dashboard
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sniprx/internal/app"
	brcfg "sniprx/internal/config"
	"sniprx/internal/logger"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	envFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sniprx",
		Short:        "SniprX trading bot control plane",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to $SNIPRX_CONFIG or "+brcfg.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram command poller",
		RunE:  runServe,
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate configuration and print the startup summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()
			a.Summary.Print()
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sniprx version %s\n", version)
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	path, a, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Infof("✓ sniprx %s starting (config=%s)", version, displayPath(path))
	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("运行失败: %w", err)
	}
	logger.Infof("sniprx stopped")
	return nil
}

// bootstrap 加载 .env 与配置、初始化日志并构建应用。
func bootstrap() (string, *app.App, error) {
	if err := brcfg.LoadDotEnv(envFile); err != nil {
		return "", nil, err
	}
	path := brcfg.ResolvePath(configPath)
	cfg, err := brcfg.Load(path)
	if err != nil {
		return "", nil, fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := logger.Setup(cfg.App.LogLevel, logger.FileOptions{
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxSize,
		MaxBackups: cfg.App.LogBackups,
		MaxAgeDays: cfg.App.LogMaxAge,
		Compress:   cfg.App.LogCompress,
	})
	if err != nil {
		return "", nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	a, err := app.NewApp(cfg, path)
	if err != nil {
		_ = logFile.Close()
		return "", nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	a.AddCloser(logFile)
	return path, a, nil
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults + env)"
	}
	return path
}
