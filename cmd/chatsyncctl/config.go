package main

import (
	"fmt"
	"strconv"

	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chatsync configuration",
	Long:  "View or modify the global configuration stored in ~/.chatsync/config.toml.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := profile.ConfigPath(profile.Home())
		cfg, err := config.LoadOrEmpty(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Token != "" {
			cfg.Token = "(set)"
		}
		if jsonOutput {
			outputJSON(cfg)
			return nil
		}
		fmt.Printf("# %s\n", path)
		fmt.Printf("default_profile   = %q\n", cfg.DefaultProfile)
		fmt.Printf("backend_url       = %q\n", cfg.BackendURL)
		fmt.Printf("realtime_url      = %q\n", cfg.RealtimeURL)
		fmt.Printf("token             = %q\n", cfg.Token)
		fmt.Printf("user_id           = %q\n", cfg.UserID)
		fmt.Printf("user_name         = %q\n", cfg.UserName)
		fmt.Printf("initial_page_size = %d\n", cfg.InitialPageSize)
		fmt.Printf("page_size         = %d\n", cfg.PageSize)
		fmt.Printf("log_level         = %q\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\nExample: chatsyncctl config set backend_url https://chat.example.com/api",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		path := profile.ConfigPath(profile.Home())

		cfg, err := config.LoadOrEmpty(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		if key == "token" {
			value = "(set)"
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "default_profile":
		if err := profile.ValidateName(value); err != nil {
			return err
		}
		cfg.DefaultProfile = value
	case "backend_url":
		cfg.BackendURL = value
	case "realtime_url":
		cfg.RealtimeURL = value
	case "token":
		cfg.Token = value
	case "user_id":
		cfg.UserID = value
	case "user_name":
		cfg.UserName = value
	case "user_avatar":
		cfg.UserAvatar = value
	case "log_level":
		cfg.LogLevel = value
	case "initial_page_size", "page_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		if key == "page_size" {
			cfg.PageSize = n
		} else {
			cfg.InitialPageSize = n
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
