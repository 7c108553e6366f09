package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/spf13/cobra"
)

var (
	// send
	sendImage   string
	sendReplyTo string
)

func init() {
	rootCmd.AddCommand(openCmd, closeCmd, showCmd, sendCmd, editCmd, deleteCmd, readCmd)

	sendCmd.Flags().StringVar(&sendImage, "image", "", "image URL to attach")
	sendCmd.Flags().StringVar(&sendReplyTo, "reply", "", "id of the message to reply to")
}

var openCmd = &cobra.Command{
	Use:   "open <chat-id>",
	Short: "Open a chat and print its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.OpenChat(ctx, args[0])
			if err != nil {
				return err
			}
			printTranscript(resp)
			return nil
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the open chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			return c.CloseChat(ctx)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the open chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.ActiveChat(ctx)
			if err != nil {
				return err
			}
			if resp.Transcript == nil && !jsonOutput {
				fmt.Println("No chat open.")
				return nil
			}
			printTranscript(resp)
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> [text]",
	Short: "Send a message",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.SendMessageRequest{ChatID: args[0], Image: sendImage, ReplyToID: sendReplyTo}
		if len(args) == 2 {
			req.Content = args[1]
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.SendMessage(ctx, req)
			if err != nil {
				return err
			}
			printMessage(resp)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <chat-id> <message-id> <text>",
	Short: "Edit a message",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.EditMessage(ctx, &api.EditMessageRequest{ChatID: args[0], MessageID: args[1], Content: args[2]})
			if err != nil {
				return err
			}
			printMessage(resp)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <chat-id> <message-id>",
	Short: "Delete a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if err := c.DeleteMessage(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Deleted message %s\n", args[1])
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <chat-id> <message-id>",
	Short: "Mark a chat read up to a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			return c.MarkRead(ctx, args[0], args[1])
		})
	},
}

func printTranscript(resp *api.TranscriptResponse) {
	if jsonOutput {
		outputJSON(resp)
		return
	}
	t := resp.Transcript
	fmt.Printf("== %s  %s\n", t.Chat.ID, chatTitle(t.Chat))
	for i := range t.Messages {
		fmt.Println(formatMessage(&t.Messages[i]))
	}
}

func printMessage(resp *api.MessageResponse) {
	if jsonOutput {
		outputJSON(resp)
		return
	}
	fmt.Println(formatMessage(resp.Message))
}

func formatMessage(m *chat.Message) string {
	who := m.Sender.Name
	if who == "" {
		who = m.Sender.ID
	}
	body := m.Content
	if m.Image != "" {
		body += " [image " + m.Image + "]"
	}
	if m.ReplyTo != nil {
		body = fmt.Sprintf("(re %s) %s", m.ReplyTo.ID, body)
	}
	if m.Pending() {
		body += " (sending)"
	}
	return fmt.Sprintf("%s  %-24s %-12s %s", m.CreatedAt.Local().Format(time.DateTime), m.ID, who, body)
}
