package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/spf13/cobra"
)

var usersSearch string

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.Flags().StringVar(&usersSearch, "search", "", "show only users whose name contains this text")
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users a chat can be started with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			users, err := c.ListUsers(ctx, usersSearch)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(&api.UserListResponse{Users: users})
				return nil
			}
			if len(users) == 0 {
				fmt.Println("No users found.")
			}
			for _, u := range users {
				fmt.Printf("%-26s %s\n", u.ID, u.Name)
			}
			return nil
		})
	},
}
