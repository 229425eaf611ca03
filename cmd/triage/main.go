package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triage-desk/triage/internal/category"
	"github.com/triage-desk/triage/internal/config"
	"github.com/triage-desk/triage/internal/export"
	"github.com/triage-desk/triage/internal/triage"
	"github.com/triage-desk/triage/internal/web"
)

var (
	cfgFile      string
	categoryFile string
	outputFormat string
	verbose      bool
)

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func loadCategories(cfg *config.Config) (*category.Table, error) {
	path := categoryFile
	if path == "" {
		path = cfg.Categories
	}
	if path == "" {
		return category.Default(), nil
	}
	return category.LoadFromFile(path)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage - structured ticket extraction from support emails",
		Long: `Triage extracts structured ticket metadata (sender, subject, body,
category, priority, insights) from free-form support email text using
keyword pattern matching. Everything runs locally on the pasted text;
nothing is sent anywhere or stored.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.triage/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&categoryFile, "categories", "", "category table file (default is the built-in table)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a support email into a ticket",
		Long: `Parse reads raw email text from a file (or stdin when no file is
given) and prints the extracted ticket as JSON or as a plain-text
report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(args)
		},
	}

	cmd.Flags().StringVar(&outputFormat, "format", "", "output format: json or report (default from config)")

	return cmd
}

func runParse(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadCategories(cfg)
	if err != nil {
		return err
	}

	var text []byte
	if len(args) == 1 {
		text, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
	} else {
		text, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	rec, err := triage.NewParser(table).Parse(string(text))
	if err != nil {
		return err
	}

	format := outputFormat
	if format == "" {
		format = cfg.Options.Format
	}

	switch format {
	case "json":
		data, err := export.JSON(*rec)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "report":
		engine, err := export.NewEngine()
		if err != nil {
			return err
		}
		report, err := engine.Report(*rec)
		if err != nil {
			return err
		}
		fmt.Print(report)
	default:
		return fmt.Errorf("unknown format %q (expected json or report)", format)
	}
	return nil
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the configured ticket categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			table, err := loadCategories(cfg)
			if err != nil {
				return err
			}

			for _, def := range table.Definitions() {
				fmt.Printf("%-18s priority=%-7s keywords=%d\n", def.Key, def.Priority, len(def.Keywords))
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Web.Port = port
			}
			table, err := loadCategories(cfg)
			if err != nil {
				return err
			}
			engine, err := export.NewEngine()
			if err != nil {
				return err
			}

			log := newLogger()
			server, err := web.NewServer(cfg, triage.NewParser(table), engine, log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				log.Info().Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config)")

	return cmd
}
