package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/salesline-ai/salesline/internal/config"
	"github.com/salesline-ai/salesline/internal/profile"
	"github.com/salesline-ai/salesline/internal/provider"
	"github.com/salesline-ai/salesline/internal/session"
)

var (
	cfgFile      string
	modelFlag    string
	providerFlag string
	portFlag     int
	publicURL    string
	verbose      bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	// Credentials are commonly kept in a local .env during development.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "salesline",
		Short: "Automated voice sales agent",
		Long: "salesline runs personalized outbound sales conversations over the phone:\n" +
			"a webhook server turns Twilio speech events into LLM-driven dialogue,\n" +
			"and the dialer places the calls.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		// Running salesline with no subcommand starts the webhook server.
		RunE: runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/salesline/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override LLM provider (openai, anthropic)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "webhook server port")
	rootCmd.PersistentFlags().StringVar(&publicURL, "public-url", "", "externally reachable base URL (default: discover from ngrok)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDialCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}
	if publicURL != "" {
		cfg.Server.PublicURL = publicURL
	}

	return cfg
}

// buildCompleter creates the generation backend from configuration.
func buildCompleter(cfg *config.Config) (provider.Completer, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY (or OPENAI_API_KEY / ANTHROPIC_API_KEY)",
			name, name,
		)
	}

	model := cfg.ActiveModel()

	switch name {
	case "anthropic":
		return provider.NewAnthropicCompleter(apiKey, model), nil
	case "openai":
		return provider.NewOpenAICompleter(apiKey, pc.BaseURL, model), nil
	default:
		// Other providers work through an OpenAI-compatible endpoint.
		if pc.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
		}
		return provider.NewOpenAICompleter(apiKey, pc.BaseURL, model), nil
	}
}

// buildStore creates the session store from configuration.
func buildStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			var err error
			path, err = session.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve database path: %w", err)
			}
		}
		return session.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want memory or sqlite)", cfg.Store.Backend)
	}
}

// buildProfiles creates the caller profile source from configuration.
func buildProfiles(cfg *config.Config) (profile.Lookup, error) {
	if cfg.Profiles.File == "" {
		return profile.NewStaticLookup(profile.Profile{}), nil
	}
	lookup, err := profile.NewFileLookup(cfg.Profiles.File)
	if err != nil {
		return nil, err
	}
	lookup.Strict = cfg.Profiles.Strict
	return lookup, nil
}
