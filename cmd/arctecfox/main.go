package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gartstein/arctecfox/internal/arctecfox/notify"
	"github.com/gartstein/arctecfox/internal/arctecfox/planner"
	"github.com/gartstein/arctecfox/internal/arctecfox/render"
	"github.com/gartstein/arctecfox/internal/arctecfox/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the state shared by every command for one invocation.
type app struct {
	out io.Writer
	err io.Writer

	serverURL   string
	plannerURL  string
	sessionFile string
	verbose     bool

	logger   *zap.Logger
	notifier *notify.Notifier
	session  *session.Client
	planner  *planner.Client
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one command line. The notifier and logger are released even
// when the command fails.
func run(args []string, out, errOut io.Writer) error {
	a := &app{out: out, err: errOut}
	defer a.close()

	rootCmd := a.rootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "arctecfox",
		Short:         "ArcTecFox PM-Lite client",
		Long:          "Sign in, complete your profile and generate preventive maintenance plans.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.err)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.serverURL, "server", envOr("ARCTECFOX_URL", "http://localhost:8080"), "backend base URL")
	flags.StringVar(&a.plannerURL, "planner", os.Getenv("ARCTECFOX_PLANNER_URL"), "planning API base URL (defaults to --server)")
	flags.StringVar(&a.sessionFile, "session-file", "", "local session storage file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		a.signUpCmd(),
		a.signInCmd(),
		a.signOutCmd(),
		a.whoamiCmd(),
		a.tableCmd(),
		a.profileCmd(),
		a.planCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	a.notifier = notify.New(
		notify.WithLogger(logger),
		notify.WithSink(func(m notify.Message) {
			fmt.Fprintln(a.err, render.Toast(m))
		}),
	)

	path := a.sessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return fmt.Errorf("locate session storage: %w", err)
		}
	}
	a.session = session.NewClient(a.serverURL, session.NewFileStore(path), session.NewMemoryStore(), logger)

	plannerURL := a.plannerURL
	if plannerURL == "" {
		plannerURL = a.serverURL
	}
	a.planner = planner.NewClient(plannerURL, logger)
	return nil
}

func (a *app) close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
