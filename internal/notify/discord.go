package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/b9b4ymiN/botwallet/internal/model"
)

// Notifier delivers a trade event to an external sink.
type Notifier interface {
	Notify(ctx context.Context, event model.TradeEvent) error
}

// NopNotifier discards events. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.TradeEvent) error { return nil }

var modeColors = map[model.TradeMode]int{
	model.ModeBuy:  0x2ecc71,
	model.ModeSell: 0xe74c3c,
	model.ModeSwap: 0x95a5a6,
}

// DiscordNotifier posts trade events to a Discord webhook as embeds.
type DiscordNotifier struct {
	session *discordgo.Session
	id      string
	token   string
	logger  *slog.Logger
}

// NewDiscordNotifier builds a notifier from a full webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewDiscordNotifier(webhookURL string, logger *slog.Logger) (*DiscordNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordNotifier{session: session, id: id, token: token, logger: logger}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	const marker = "/api/webhooks/"
	i := strings.Index(raw, marker)
	if i < 0 {
		return "", "", fmt.Errorf("not a discord webhook url: %q", raw)
	}
	rest := strings.Trim(raw[i+len(marker):], "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("webhook url missing id or token")
	}
	return parts[0], parts[1], nil
}

// Notify posts one embed per trade event.
func (n *DiscordNotifier) Notify(ctx context.Context, event model.TradeEvent) error {
	embed := buildEmbed(event)
	_, err := n.session.WebhookExecute(n.id, n.token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}

func buildEmbed(event model.TradeEvent) *discordgo.MessageEmbed {
	wallet := event.WalletName
	if wallet == "" {
		wallet = shortAddress(event.WalletAddress)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Wallet", Value: wallet, Inline: true},
	}
	if event.DEX != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "DEX", Value: event.DEX, Inline: true})
	}
	if event.TokenIn != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Received",
			Value:  fmt.Sprintf("%s %s", event.QtyIn.StringFixed(4), event.TokenIn.Symbol),
			Inline: true,
		})
	}
	if event.TokenOut != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Sent",
			Value:  fmt.Sprintf("%s %s", event.QtyOut.StringFixed(4), event.TokenOut.Symbol),
			Inline: true,
		})
	}
	if event.PriceUsd != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Price",
			Value:  "$" + event.PriceUsd.StringFixed(6),
			Inline: true,
		})
	}
	if snap := event.Snapshot; snap != nil {
		if snap.UnrealizedPnlUsd != nil && snap.UnrealizedPnlPct != nil {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Unrealized PnL",
				Value:  fmt.Sprintf("$%s (%s%%)", snap.UnrealizedPnlUsd.StringFixed(2), snap.UnrealizedPnlPct.StringFixed(2)),
				Inline: true,
			})
		}
		if snap.RealizedPnlUsd != nil {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Realized PnL",
				Value:  "$" + snap.RealizedPnlUsd.StringFixed(2),
				Inline: true,
			})
		}
	}

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s %s", string(event.Mode), tradedSymbol(event)),
		URL:       "https://solscan.io/tx/" + event.Signature,
		Color:     modeColors[event.Mode],
		Fields:    fields,
		Timestamp: event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Footer:    &discordgo.MessageEmbedFooter{Text: shortAddress(event.Signature)},
	}
}

// tradedSymbol names the non-cash leg, the token the trade is about.
func tradedSymbol(event model.TradeEvent) string {
	if event.TokenIn != nil && !model.IsCash(event.TokenIn.Symbol) {
		return event.TokenIn.Symbol
	}
	if event.TokenOut != nil && !model.IsCash(event.TokenOut.Symbol) {
		return event.TokenOut.Symbol
	}
	if event.TokenIn != nil {
		return event.TokenIn.Symbol
	}
	return ""
}

func shortAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
