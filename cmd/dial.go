package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/salesline-ai/salesline/internal/config"
	"github.com/salesline-ai/salesline/internal/dialer"
	"github.com/salesline-ai/salesline/internal/tunnel"
	"github.com/salesline-ai/salesline/internal/twilio"
)

func newDialCmd() *cobra.Command {
	var (
		to            string
		prospectsFile string
		pauseSeconds  int
		ringTimeout   int
	)

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Place outbound sales calls",
		Long: "dial places outbound calls through Twilio. Answered calls land on the\n" +
			"running webhook server (salesline serve), which conducts the conversation.\n" +
			"Dial a single number with --to, or a whole prospect list with --prospects-file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" && prospectsFile == "" {
				return fmt.Errorf("nothing to dial: pass --to or --prospects-file")
			}

			cfg := initConfig()
			if cfg.Twilio.FromNumber == "" {
				return fmt.Errorf("no caller id configured: set twilio.from_number or TWILIO_PHONE_NUMBER")
			}

			client, err := twilio.New(twilio.Config{
				AccountSID: cfg.Twilio.AccountSID,
				AuthToken:  cfg.Twilio.AuthToken,
			})
			if err != nil {
				return err
			}

			base, err := resolvePublicURL(cmd, cfg)
			if err != nil {
				return err
			}

			events, err := buildEvents(cfg)
			if err != nil {
				return err
			}

			d, err := dialer.New(client, dialer.Options{
				From:        cfg.Twilio.FromNumber,
				PublicURL:   base,
				Pause:       time.Duration(pauseSeconds) * time.Second,
				RingTimeout: ringTimeout,
				Events:      events,
			})
			if err != nil {
				return err
			}

			if to != "" {
				sid, err := d.Dial(cmd.Context(), to)
				if err != nil {
					return err
				}
				fmt.Printf("Call placed: %s\n", sid)
				return nil
			}

			prospects, err := dialer.LoadProspects(prospectsFile)
			if err != nil {
				return err
			}
			log.Info("dialing prospect list", "file", prospectsFile, "count", len(prospects))

			results := d.DialAll(cmd.Context(), prospects)
			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			fmt.Printf("Placed %d of %d calls (%d failed)\n", len(results)-failed, len(results), failed)
			if failed > 0 {
				return fmt.Errorf("%d dials failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "single phone number to dial")
	cmd.Flags().StringVar(&prospectsFile, "prospects-file", "", "JSON file with a prospect list")
	cmd.Flags().IntVar(&pauseSeconds, "pause", 0, "seconds between calls (default 2)")
	cmd.Flags().IntVar(&ringTimeout, "ring-timeout", 0, "ring timeout in seconds (0 = Twilio default)")
	return cmd
}

// resolvePublicURL returns the configured public base URL, falling back to
// ngrok tunnel discovery.
func resolvePublicURL(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.Server.PublicURL != "" {
		return cfg.Server.PublicURL, nil
	}
	url, err := tunnel.Discover(cmd.Context(), "")
	if err != nil {
		return "", fmt.Errorf("no public URL: set server.public_url, --public-url, or start ngrok: %w", err)
	}
	log.Info("using discovered ngrok tunnel", "url", url)
	return url, nil
}
