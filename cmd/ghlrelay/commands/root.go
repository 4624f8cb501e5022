package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/leadwire/ghl-relay/internal/app"
	"github.com/leadwire/ghl-relay/internal/ghl"
	"github.com/leadwire/ghl-relay/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "ghlrelay",
		Usage: "GoHighLevel webhook relay bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			authorizeCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the webhook relay server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-exporter",
				Usage: "log exporter (none|stdout|otlp-http|otlp-grpc)",
				Value: string(app.DefaultConfigLogExporter),
			},
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: int(app.DefaultConfigServerPort),
			},
			&cli.StringFlag{
				Name:  "ghl--base-url",
				Usage: "GoHighLevel API base URL",
				Value: app.DefaultConfigGHLBaseURL,
			},
			&cli.StringFlag{
				Name:  "store--backend",
				Usage: "token store backend (sqlite|file|keyring)",
				Value: string(app.DefaultConfigStoreBackend),
			},
			&cli.StringFlag{
				Name:  "store--path",
				Usage: "token store path (sqlite and file backends)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdownLogs, err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat), string(cfg.LogExporter))
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := shutdownLogs(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}

func authorizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "authorize",
		Usage: "run the one-time OAuth consent flow and store the token pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "authorization code (skips the interactive prompt)",
			},
			&cli.StringFlag{
				Name:  "store--backend",
				Usage: "token store backend (sqlite|file|keyring)",
				Value: string(app.DefaultConfigStoreBackend),
			},
			&cli.StringFlag{
				Name:  "store--path",
				Usage: "token store path (sqlite and file backends)",
			},
		},
		Action: authorizeAction,
	}
}

// authorizeAction walks the operator through the marketplace consent flow:
// print the authorization URL, collect the code from the redirect, exchange
// it, and persist the resulting token pair.
func authorizeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	authorizer := ghl.NewAuthorizer(cfg.GHL.ClientID, cfg.GHL.ClientSecret, cfg.GHL.RedirectURI)

	fmt.Println("Open the following URL in a browser and approve access:")
	fmt.Println()
	fmt.Println("  " + authorizer.AuthURL(uuid.NewString()))
	fmt.Println()

	code := cmd.String("code")
	if code == "" {
		code, err = promptCode(os.Stdin)
		if err != nil {
			return err
		}
	}

	pair, err := authorizer.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	if err := store.Save(ctx, pair); err != nil {
		return fmt.Errorf("failed to store token pair: %w", err)
	}

	fmt.Println("Token pair stored. The relay can now serve webhooks.")
	return nil
}

// promptCode reads the authorization code interactively without echoing it,
// keeping the one-time code out of terminal scrollback. Refuses to block on a
// non-terminal stdin so scripted invocations fail fast instead of hanging.
func promptCode(in *os.File) (string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return "", fmt.Errorf("stdin is not a terminal; pass the authorization code via --code")
	}

	fmt.Print("Paste the code from the redirect URL: ")
	line, err := term.ReadPassword(int(in.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}

	code := strings.TrimSpace(string(line))
	if code == "" {
		return "", fmt.Errorf("no authorization code entered")
	}
	return code, nil
}
