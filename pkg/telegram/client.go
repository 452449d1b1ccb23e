package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"trading_journal/core"
	dbmodels "trading_journal/pkg/models"
)

// MaxMessageLength Telegram limit for one message.
const MaxMessageLength = 4096

var ErrNotConfigured = errors.New("telegram not configured")

// Sender subset of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// History recent analyses served by the /recent command.
type History interface {
	ListAnalysisResults(ctx context.Context, userID string, page, pageSize int) ([]dbmodels.AnalysisResult, int64, error)
}

// Notifier posts completed analyses to one chat.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	sender  Sender
	chatID  int64
	history History
	user    string
	loc     *time.Location
}

// New connects the bot; history and user back the /recent command and may be empty.
func New(token string, chatID int64, history History, user string) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, ErrNotConfigured
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	n := newNotifier(bot, chatID)
	n.bot = bot
	n.history = history
	n.user = user
	logrus.WithField("bot", bot.Self.UserName).Info("telegram notifier ready")
	return n, nil
}

func newNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, loc: time.UTC}
}

// SendMessage splits text above MaxMessageLength into several messages.
func (n *Notifier) SendMessage(text string) error {
	for i, part := range splitLongMessage(text, MaxMessageLength) {
		if i > 0 {
			time.Sleep(100 * time.Millisecond)
		}
		if _, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, part)); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

// OnAnalysis core.Listener.
func (n *Notifier) OnAnalysis(_ context.Context, event core.AnalysisEvent) error {
	return n.SendMessage(formatEvent(event, n.loc))
}

func formatEvent(e core.AnalysisEvent, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Period analysis %s\n", e.Status)
	fmt.Fprintf(&b, "User: %s\n", e.UserID)
	fmt.Fprintf(&b, "Symbols: %s\n", strings.Join(e.Symbols, ", "))
	fmt.Fprintf(&b, "Period: %s .. %s (%s)\n", e.Period.From, e.Period.To, e.Period.Timespan)
	m := e.Metrics
	fmt.Fprintf(&b, "Trades: %d, wins %d (%.1f%%), total %.2f, avg %.2f\n",
		m.TradesCount, m.Wins, m.WinRate*100, m.TotalProfit, m.AvgProfit)
	if e.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", e.Model)
	}
	if !e.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", e.CreatedAt.In(loc).Format("2006-01-02 15:04:05"))
	}
	if e.TextSummary != "" {
		b.WriteString("\n")
		b.WriteString(e.TextSummary)
	}
	return b.String()
}

// splitLongMessage cuts on line boundaries, hard-splitting lines longer than maxLen runes.
func splitLongMessage(text string, maxLen int) []string {
	if len([]rune(text)) <= maxLen {
		return []string{text}
	}

	var parts []string
	current := []rune{}
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = []rune{}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		if len(runes) > maxLen {
			flush()
			for len(runes) > maxLen {
				parts = append(parts, string(runes[:maxLen]))
				runes = runes[maxLen:]
			}
			current = runes
			continue
		}

		need := len(runes)
		if len(current) > 0 {
			need++
		}
		if len(current)+need > maxLen {
			flush()
			current = runes
			continue
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, runes...)
	}
	flush()
	return parts
}

// Listen answers /start and /recent from the configured chat until ctx ends.
func (n *Notifier) Listen(ctx context.Context) {
	if n.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.bot.GetUpdatesChan(u)
	defer n.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Chat.ID != n.chatID || !update.Message.IsCommand() {
				continue
			}
			n.handleCommand(ctx, update.Message.Command())
		}
	}
}

func (n *Notifier) handleCommand(ctx context.Context, command string) {
	logrus.WithField("command", command).Info("telegram command")

	var reply string
	switch command {
	case "start", "help":
		reply = "Trading journal notifier.\n/recent - last analyses"
	case "recent":
		reply = n.recent(ctx)
	default:
		reply = "Unknown command: /" + command
	}
	if err := n.SendMessage(reply); err != nil {
		logrus.WithError(err).Warn("telegram reply failed")
	}
}

func (n *Notifier) recent(ctx context.Context) string {
	if n.history == nil || n.user == "" {
		return "History is not available."
	}
	rows, total, err := n.history.ListAnalysisResults(ctx, n.user, 1, 5)
	if err != nil {
		logrus.WithError(err).Warn("telegram history lookup")
		return "History lookup failed."
	}
	if len(rows) == 0 {
		return "No analyses yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d of %d analyses:\n", len(rows), total)
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %s  %s\n", r.CreatedAt.In(n.loc).Format("2006-01-02 15:04"), r.Model, r.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}
