package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"volguard/internal/domain"
	"volguard/internal/service"
	"volguard/internal/stoploss"

	tele "gopkg.in/telebot.v3"
)

// StopNotifier pushes applied stop moves to a configured chat.
type StopNotifier struct {
	bot  *tele.Bot
	chat *tele.Chat
}

// NotifyStopApplied sends one message per applied ratchet move. Send
// failures are logged; notifications are best effort.
func (n *StopNotifier) NotifyStopApplied(symbol string, u stoploss.PositionUpdate) {
	msg := fmt.Sprintf(
		"%s stop moved\npos %d: %.4f (%s band, profit %.2f%%)",
		symbol, u.PositionIdx, u.NewStopLoss, u.CurrentBand, u.ProfitPct,
	)
	if _, err := n.bot.Send(n.chat, msg); err != nil {
		log.Printf("telegram stop notification failed: %v", err)
	}
}

// StartTelegramBot starts the command bot and, when TELEGRAM_CHAT_ID is
// set, returns a notifier for pushing stop updates to that chat.
func StartTelegramBot(
	marketService *service.MarketService,
	volatilityService *service.VolatilityService,
	stopService *service.StopService,
) *StopNotifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	usage := func(cmd, example string) string {
		return fmt.Sprintf("Usage: %s %s\nSupported: %s", cmd, example, strings.Join(domain.SupportedSymbols, ", "))
	}

	symbolArg := func(c tele.Context) (string, bool) {
		args := c.Args()
		if len(args) == 0 {
			return "", false
		}
		symbol := strings.ToUpper(args[0])
		return symbol, domain.IsSupportedSymbol(symbol)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		symbol, ok := symbolArg(c)
		if !ok {
			return c.Send(usage("/price", "BTCUSDT"))
		}
		snapshot, err := marketService.GetTicker(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s\nPrice: $%.2f\n24h Change: %.2f%%\n24h Volume: $%.0f",
			symbol, snapshot.LastPrice, snapshot.Change24hPct, snapshot.Volume24h,
		)
		return c.Send(msg)
	})

	b.Handle("/regime", func(c tele.Context) error {
		symbol, ok := symbolArg(c)
		if !ok {
			return c.Send(usage("/regime", "ETHUSDT"))
		}
		tv, err := volatilityService.GetTimeframeVolatility(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error analyzing %s: %v", symbol, err))
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s volatility regimes\n", symbol)
		for _, tf := range domain.SupportedTimeframes {
			m, err := tv.Get(tf)
			if err != nil {
				continue
			}
			fmt.Fprintf(&sb, "%s: %s (ATR %.2f%%, direction %.2f, opportunity %.0f)\n",
				tf, m.Regime, m.NormalizedATR, m.DirectionScore, m.OpportunityScore)
		}
		return c.Send(sb.String())
	})

	b.Handle("/oppo", func(c tele.Context) error {
		symbol, ok := symbolArg(c)
		if !ok {
			return c.Send(usage("/oppo", "SOLUSDT"))
		}
		summary, err := volatilityService.GetOpportunity(context.Background(), symbol, "1H")
		if err != nil {
			return c.Send(fmt.Sprintf("Error scoring %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s opportunity (1H primary)\nOverall: %.1f\nRisk-adjusted: %.1f\nConfirmation: %.1f\nPosition sizing: %.2fx",
			symbol, summary.OverallScore, summary.RiskAdjustedScore, summary.ConfirmationScore, summary.PositionSizing,
		)
		return c.Send(msg)
	})

	b.Handle("/stops", func(c tele.Context) error {
		symbol, ok := symbolArg(c)
		if !ok {
			return c.Send(usage("/stops", "BTCUSDT"))
		}
		if stopService == nil {
			return c.Send("Stop-loss management is not configured")
		}
		result, err := stopService.UpdateStops(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Stop update failed for %s: %v", symbol, err))
		}
		if len(result.Updates) == 0 && len(result.Errors) == 0 {
			return c.Send(fmt.Sprintf("%s: no open positions", symbol))
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s stop updates\n", symbol)
		for _, u := range result.Updates {
			if u.Changed() {
				fmt.Fprintf(&sb, "pos %d: stop -> %.4f (%s band)\n", u.PositionIdx, u.NewStopLoss, u.CurrentBand)
			} else {
				fmt.Fprintf(&sb, "pos %d: unchanged (%s)\n", u.PositionIdx, u.Reason)
			}
		}
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "error: %s\n", e)
		}
		return c.Send(sb.String())
	})

	log.Println("Telegram bot started")
	go b.Start()

	var notifier *StopNotifier
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("invalid TELEGRAM_CHAT_ID %q, stop notifications disabled", raw)
		} else {
			notifier = &StopNotifier{bot: b, chat: &tele.Chat{ID: chatID}}
		}
	}
	return notifier
}
