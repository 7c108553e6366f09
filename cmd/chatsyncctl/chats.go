package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/spf13/cobra"
)

var (
	// create
	createGroupName string
	createMembers   string

	// chats
	chatsUnread bool
	chatsSearch string
)

func init() {
	rootCmd.AddCommand(chatsCmd, moreCmd, reloadCmd, createCmd, deleteChatCmd, clearCmd, groupCmd)
	groupCmd.AddCommand(groupRenameCmd, groupImageCmd, groupRemoveNameCmd, groupRemoveImageCmd)

	chatsCmd.Flags().BoolVar(&chatsUnread, "unread", false, "show only unread chats")
	chatsCmd.Flags().StringVar(&chatsSearch, "search", "", "show only chats whose group or member name contains this text")
	createCmd.Flags().StringVar(&createGroupName, "group", "", "create a group chat with this name")
	createCmd.Flags().StringVar(&createMembers, "members", "", "comma-separated member user ids for a group")
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List loaded chats, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.ListChats(ctx, chatsSearch)
			if err != nil {
				return err
			}
			printChatList(resp)
			return nil
		})
	},
}

var moreCmd = &cobra.Command{
	Use:   "more",
	Short: "Load the next page of chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.LoadMore(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(resp)
				return nil
			}
			if !resp.Loaded {
				fmt.Println("Nothing loaded (no more chats, or a page is already loading).")
			}
			fmt.Printf("Chats: %d (more: %v)\n", resp.Chats, resp.HasMore)
			return nil
		})
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Refetch the first page of chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.Reload(ctx)
			if err != nil {
				return err
			}
			printChatList(resp)
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create [user-id]",
	Short: "Create a direct chat, or a group with --group and --members",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.CreateChatRequest{}
		switch {
		case createGroupName != "":
			req.IsGroup = true
			req.GroupName = createGroupName
			for _, m := range strings.Split(createMembers, ",") {
				if m = strings.TrimSpace(m); m != "" {
					req.Participants = append(req.Participants, m)
				}
			}
		case len(args) == 1:
			req.ParticipantID = args[0]
		default:
			return fmt.Errorf("need a user id or --group")
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.CreateChat(ctx, req)
			if err != nil {
				return err
			}
			printChat(resp)
			return nil
		})
	},
}

var deleteChatCmd = &cobra.Command{
	Use:   "delete-chat <chat-id>",
	Short: "Delete a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if err := c.DeleteChat(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted chat %s\n", args[0])
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <chat-id>",
	Short: "Delete every message in a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if err := c.ClearMessages(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Cleared chat %s\n", args[0])
			return nil
		})
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Change group chat name or image",
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <chat-id> <name>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE: groupRunE(func(ctx context.Context, c *api.Client, args []string) (*api.ChatResponse, error) {
		return c.RenameGroup(ctx, args[0], args[1])
	}),
}

var groupImageCmd = &cobra.Command{
	Use:   "image <chat-id> <url>",
	Short: "Set a group image",
	Args:  cobra.ExactArgs(2),
	RunE: groupRunE(func(ctx context.Context, c *api.Client, args []string) (*api.ChatResponse, error) {
		return c.SetGroupImage(ctx, args[0], args[1])
	}),
}

var groupRemoveNameCmd = &cobra.Command{
	Use:   "remove-name <chat-id>",
	Short: "Clear a group name",
	Args:  cobra.ExactArgs(1),
	RunE: groupRunE(func(ctx context.Context, c *api.Client, args []string) (*api.ChatResponse, error) {
		return c.RemoveGroupName(ctx, args[0])
	}),
}

var groupRemoveImageCmd = &cobra.Command{
	Use:   "remove-image <chat-id>",
	Short: "Clear a group image",
	Args:  cobra.ExactArgs(1),
	RunE: groupRunE(func(ctx context.Context, c *api.Client, args []string) (*api.ChatResponse, error) {
		return c.RemoveGroupImage(ctx, args[0])
	}),
}

func groupRunE(call func(context.Context, *api.Client, []string) (*api.ChatResponse, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := call(ctx, c, args)
			if err != nil {
				return err
			}
			printChat(resp)
			return nil
		})
	}
}

func printChatList(resp *api.ChatListResponse) {
	if chatsUnread {
		filtered := resp.Chats[:0]
		for _, e := range resp.Chats {
			if e.Unread {
				filtered = append(filtered, e)
			}
		}
		resp.Chats = filtered
	}
	if jsonOutput {
		outputJSON(resp)
		return
	}
	if len(resp.Chats) == 0 {
		if chatsSearch != "" {
			fmt.Println("No chats found.")
		} else {
			fmt.Println("No chats.")
		}
	}
	for _, e := range resp.Chats {
		mark := " "
		if e.Unread {
			mark = "*"
		}
		fmt.Printf("%s %-26s %-24s %s\n", mark, e.ID, chatTitle(e.Chat), preview(e.LastMessage))
	}
	if resp.HasMore && chatsSearch == "" {
		fmt.Println("(more available: chatsyncctl more)")
	}
}

func printChat(resp *api.ChatResponse) {
	if jsonOutput {
		outputJSON(resp)
		return
	}
	if resp.Chat == nil {
		return
	}
	fmt.Printf("%s  %s\n", resp.Chat.ID, chatTitle(*resp.Chat))
}

func chatTitle(c chat.Chat) string {
	if c.IsGroup {
		if c.GroupName != "" {
			return c.GroupName
		}
		return "(group)"
	}
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

func preview(m *chat.Message) string {
	switch {
	case m == nil:
		return ""
	case m.Content != "":
		content := m.Content
		if r := []rune(content); len(r) > 40 {
			content = string(r[:40]) + "…"
		}
		return content
	case m.Image != "":
		return "[image]"
	default:
		return ""
	}
}
