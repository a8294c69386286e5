package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Settings is the live configuration surface the commands operate on
type Settings interface {
	Get(key string) (string, error)
	List() map[string]string
	UpdateConfig(key, value string) error
	ExcludedKeywords() []string
	AddExcludedKeyword(keyword string) bool
	RemoveExcludedKeyword(keyword string) bool
	Snapshot() (string, error)
}

// Status is what /status and /debug report
type Status struct {
	TargetChatID   int64
	Workers        int
	RunningTasks   int
	MessagesCached int
	LinksCached    int
	BrowserActive  int
}

// Commands answers bot commands. Commands that change state are restricted
// to the admin chat.
type Commands struct {
	api      API
	settings Settings
	status   func() Status
	shutdown func()
	adminID  int64
	logger   *zap.Logger
}

// NewCommands creates the command handler. status and shutdown may be nil.
func NewCommands(api API, settings Settings, status func() Status, shutdown func(), adminID int64, logger *zap.Logger) *Commands {
	if status == nil {
		status = func() Status { return Status{} }
	}
	return &Commands{
		api:      api,
		settings: settings,
		status:   status,
		shutdown: shutdown,
		adminID:  adminID,
		logger:   logger,
	}
}

// Handle answers one command message
func (c *Commands) Handle(ctx context.Context, m *tgbotapi.Message) {
	reply := c.Reply(m)
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(m.Chat.ID, reply)
	out.ReplyToMessageID = m.MessageID
	if _, err := c.api.Send(out); err != nil {
		c.logger.Error("Failed to send command reply",
			zap.String("command", m.Command()),
			zap.Error(err))
	}

	if m.Command() == "shutdown" && c.isAdmin(m) && c.shutdown != nil {
		c.shutdown()
	}
}

// Reply builds the answer to a command. Unknown commands get the help text.
func (c *Commands) Reply(m *tgbotapi.Message) string {
	args := strings.Fields(m.CommandArguments())
	c.logger.Info("Command received",
		zap.String("command", m.Command()),
		zap.Int64("chat_id", m.Chat.ID))

	switch m.Command() {
	case "ping":
		return "pong"
	case "status":
		return c.statusText()
	case "debug":
		return c.debugText()
	case "config":
		return c.config(m, args)
	case "exclude":
		return c.exclude(m, args)
	case "shutdown":
		if !c.isAdmin(m) {
			return "You do not have permission to shut the bot down."
		}
		return "Shutting down."
	default:
		return helpText
	}
}

const helpText = `Commands:
/ping
/status
/debug
/config list | get <key> | set <key> <value>
/exclude list | add <keyword> | remove <keyword>
/shutdown`

func (c *Commands) isAdmin(m *tgbotapi.Message) bool {
	if c.adminID == 0 {
		return false
	}
	if m.Chat != nil && m.Chat.ID == c.adminID {
		return true
	}
	return m.From != nil && m.From.ID == c.adminID
}

func (c *Commands) statusText() string {
	me, err := c.api.GetMe()
	name := me.UserName
	if err != nil {
		name = "unavailable"
	}
	st := c.status()
	return fmt.Sprintf("Bot: @%s\nTarget chat: %d\nWorkers: %d (%d running)\nCached messages: %d\nCached links: %d",
		name, st.TargetChatID, st.Workers, st.RunningTasks, st.MessagesCached, st.LinksCached)
}

func (c *Commands) debugText() string {
	var sb strings.Builder
	sb.WriteString("Self-check\n")
	sb.WriteString("Time: " + time.Now().Format(time.RFC3339) + "\n")

	if me, err := c.api.GetMe(); err != nil {
		sb.WriteString("Bot: error: " + err.Error() + "\n")
	} else {
		sb.WriteString("Bot: @" + me.UserName + "\n")
	}

	st := c.status()
	if st.TargetChatID == 0 {
		sb.WriteString("Target chat: not set\n")
	} else {
		fmt.Fprintf(&sb, "Target chat: %d\n", st.TargetChatID)
	}
	fmt.Fprintf(&sb, "Browser sessions: %d of %d busy", st.BrowserActive, st.Workers)
	return sb.String()
}

func (c *Commands) config(m *tgbotapi.Message, args []string) string {
	if len(args) == 0 || args[0] == "list" {
		values := c.settings.List()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s = %s\n", k, values[k])
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	switch args[0] {
	case "dump":
		out, err := c.settings.Snapshot()
		if err != nil {
			return err.Error()
		}
		return out
	case "get":
		if len(args) != 2 {
			return "Usage: /config get <key>"
		}
		v, err := c.settings.Get(args[1])
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%s = %s", args[1], v)
	case "set":
		if !c.isAdmin(m) {
			return "You do not have permission to change settings."
		}
		if len(args) < 3 {
			return "Usage: /config set <key> <value>"
		}
		value := strings.Join(args[2:], " ")
		if err := c.settings.UpdateConfig(args[1], value); err != nil {
			return err.Error()
		}
		c.logger.Info("Setting changed", zap.String("key", args[1]), zap.String("value", value))
		return fmt.Sprintf("%s = %s", args[1], value)
	default:
		return "Usage: /config list | dump | get <key> | set <key> <value>"
	}
}

func (c *Commands) exclude(m *tgbotapi.Message, args []string) string {
	if len(args) == 0 || args[0] == "list" {
		kws := c.settings.ExcludedKeywords()
		if len(kws) == 0 {
			return "No excluded keywords."
		}
		return "Excluded keywords:\n" + strings.Join(kws, "\n")
	}

	if len(args) < 2 {
		return "Usage: /exclude add|remove <keyword>"
	}
	if !c.isAdmin(m) {
		return "You do not have permission to change excluded keywords."
	}
	keyword := strings.Join(args[1:], " ")

	switch args[0] {
	case "add":
		if !c.settings.AddExcludedKeyword(keyword) {
			return fmt.Sprintf("%q is already excluded.", keyword)
		}
		return fmt.Sprintf("Excluding %q.", keyword)
	case "remove":
		if !c.settings.RemoveExcludedKeyword(keyword) {
			return fmt.Sprintf("%q was not excluded.", keyword)
		}
		return fmt.Sprintf("No longer excluding %q.", keyword)
	default:
		return "Usage: /exclude list | add <keyword> | remove <keyword>"
	}
}
