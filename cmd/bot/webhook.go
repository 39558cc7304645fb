package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/xaenox/fizzy-bot/internal/telegram"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Inspect or change the Telegram webhook",
}

var webhookStatusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"info"},
	Short:   "Show the current webhook",
	Args:    cobra.NoArgs,
	RunE:    runWebhookStatus,
}

var webhookSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Point Telegram at a webhook URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookSet,
}

var webhookDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Remove the webhook",
	Args:    cobra.NoArgs,
	RunE:    runWebhookDelete,
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check Telegram connectivity (direct and via proxy) and webhook health",
	Args:  cobra.NoArgs,
	RunE:  runSelftest,
}

func newTelegramClient() (*telegram.Client, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("BOT_TOKEN environment variable not set")
	}
	return telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Telegram.Token,
		APIRoot: cfg.Telegram.APIRoot,
	}, logger)
}

func runWebhookStatus(cmd *cobra.Command, args []string) error {
	client, err := newTelegramClient()
	if err != nil {
		return err
	}
	info, err := client.WebhookInfo()
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}
	printWebhookInfo(cmd.OutOrStdout(), info)
	return nil
}

func runWebhookSet(cmd *cobra.Command, args []string) error {
	client, err := newTelegramClient()
	if err != nil {
		return err
	}
	if err := client.SetWebhook(args[0], cfg.Telegram.WebhookSecret); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Webhook set successfully!")

	info, err := client.WebhookInfo()
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}
	printWebhookInfo(cmd.OutOrStdout(), info)
	return nil
}

func runWebhookDelete(cmd *cobra.Command, args []string) error {
	dropPending, _ := cmd.Flags().GetBool("drop-pending")

	client, err := newTelegramClient()
	if err != nil {
		return err
	}
	if err := client.DeleteWebhook(dropPending); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted successfully!")

	info, err := client.WebhookInfo()
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}
	printWebhookInfo(cmd.OutOrStdout(), info)
	return nil
}

func printWebhookInfo(w io.Writer, info tgbotapi.WebhookInfo) {
	fmt.Fprintln(w, "Current webhook status:")
	if info.URL == "" {
		fmt.Fprintln(w, "  No webhook configured, the bot is not receiving updates.")
		return
	}
	fmt.Fprintf(w, "  URL: %s\n", info.URL)
	fmt.Fprintf(w, "  Has custom certificate: %t\n", info.HasCustomCertificate)
	fmt.Fprintf(w, "  Pending updates: %d\n", info.PendingUpdateCount)
	if info.LastErrorDate != 0 {
		fmt.Fprintf(w, "  Last error: %s (%s)\n",
			time.Unix(int64(info.LastErrorDate), 0).UTC().Format(time.RFC3339), info.LastErrorMessage)
	}
	if info.MaxConnections != 0 {
		fmt.Fprintf(w, "  Max connections: %d\n", info.MaxConnections)
	}
}

func runSelftest(cmd *cobra.Command, args []string) error {
	if cfg.Telegram.Token == "" {
		return errors.New("BOT_TOKEN environment variable not set")
	}
	out := cmd.OutOrStdout()
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var failed []string
	check := func(name string, err error) {
		if err != nil {
			fmt.Fprintf(out, "FAIL  %s: %v\n", name, err)
			failed = append(failed, name)
			return
		}
		fmt.Fprintf(out, "PASS  %s\n", name)
	}

	user, took, err := telegram.Probe(cfg.Telegram.Token, "", httpClient)
	if err == nil {
		fmt.Fprintf(out, "      @%s (%s) in %s\n", user.UserName, user.FirstName, took.Round(time.Millisecond))
	}
	check("direct connection", err)

	if cfg.Telegram.APIRoot != "" {
		user, took, err = telegram.Probe(cfg.Telegram.Token, cfg.Telegram.APIRoot, httpClient)
		if err == nil {
			fmt.Fprintf(out, "      @%s via %s in %s\n", user.UserName, cfg.Telegram.APIRoot, took.Round(time.Millisecond))
		}
		check("proxy connection", err)
	} else {
		fmt.Fprintln(out, "SKIP  proxy connection: TELEGRAM_API_PROXY_URL not set")
	}

	client, err := telegram.NewClient(telegram.ClientConfig{
		Token:      cfg.Telegram.Token,
		APIRoot:    cfg.Telegram.APIRoot,
		HTTPClient: httpClient,
	}, logger)
	if err == nil {
		var info tgbotapi.WebhookInfo
		if info, err = client.WebhookInfo(); err == nil {
			err = telegram.CheckWebhook(info, time.Now())
		}
	}
	check("webhook health", err)

	if len(failed) > 0 {
		return fmt.Errorf("%d check(s) failed: %v", len(failed), failed)
	}
	return nil
}
