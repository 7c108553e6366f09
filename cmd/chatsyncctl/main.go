package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/spf13/cobra"
)

const callTimeout = 30 * time.Second

var (
	profileFlag string
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:           "chatsyncctl",
	Short:         "Control a running chatsync daemon",
	Long:          "Command-line interface for the chatsync daemon.\nLists and opens chats, sends messages, and streams engine events.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// resolveProfile picks the profile from the flag or the config default.
func resolveProfile() (profile.Profile, error) {
	home := profile.Home()
	cfg, err := config.LoadOrEmpty(profile.ConfigPath(home))
	if err != nil {
		return profile.Profile{}, fmt.Errorf("read config: %w", err)
	}
	return profile.New(home, profile.Resolve(profileFlag, cfg.DefaultProfile))
}

func dial() (*api.Client, error) {
	p, err := resolveProfile()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p.SocketPath()); err != nil {
		return nil, fmt.Errorf("daemon for profile %q is not running (no socket at %s)", p.Name, p.SocketPath())
	}
	c, err := api.Dial(p.SocketPath())
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for profile %q: %w", p.Name, err)
	}
	return c, nil
}

// withClient dials the profile's daemon and runs fn with a bounded context.
func withClient(fn func(ctx context.Context, c *api.Client) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
