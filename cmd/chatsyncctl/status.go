package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func init() {
	rootCmd.AddCommand(statusCmd, watchCmd, profilesCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("Profile:     %s\n", resp.Profile)
			fmt.Printf("User:        %s\n", resp.UserID)
			fmt.Printf("Connection:  %s\n", resp.Connection)
			fmt.Printf("Chats:       %d (more: %v)\n", resp.Chats, resp.HasMore)
			if resp.ActiveChatID != "" {
				fmt.Printf("Open chat:   %s\n", resp.ActiveChatID)
			}
			fmt.Printf("Uptime:      %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [namespace...]",
	Short: "Stream engine events until interrupted",
	Long:  "Stream engine events until interrupted.\nNamespaces are kind prefixes such as store., message., conn. or rt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stream, err := c.Watch(ctx, args...)
		if err != nil {
			return err
		}
		for {
			evt, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
					return nil
				}
				return err
			}
			if jsonOutput {
				outputJSON(evt)
				continue
			}
			fmt.Printf("%s  %-22s %s\n", evt.Timestamp.Format(time.TimeOnly), evt.Kind, string(evt.Payload))
		}
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List known profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		home := profile.Home()
		names, err := profile.List(home)
		if err != nil {
			return err
		}
		type entry struct {
			Name    string `json:"name"`
			Path    string `json:"path"`
			Running bool   `json:"running"`
		}
		entries := make([]entry, 0, len(names))
		for _, name := range names {
			p, err := profile.New(home, name)
			if err != nil {
				continue
			}
			entries = append(entries, entry{Name: name, Path: p.Dir, Running: daemonRunning(p)})
		}
		if jsonOutput {
			outputJSON(entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}
		for _, e := range entries {
			state := "stopped"
			if e.Running {
				state = "running"
			}
			fmt.Printf("%-20s %s (%s)\n", e.Name, e.Path, state)
		}
		return nil
	},
}

// daemonRunning probes the profile lock without keeping it.
func daemonRunning(p profile.Profile) bool {
	lk, err := lock.Acquire(p.LockPath())
	if err != nil {
		return lock.IsHeld(err)
	}
	_ = lk.Release()
	return false
}
