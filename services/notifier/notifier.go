package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"lyrics-resolver-go/config"
	"lyrics-resolver-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Notifier interface for different notification methods
type Notifier interface {
	Send(subject, message string) error
}

var notifyClient = &http.Client{Timeout: 10 * time.Second}

// FromConfig builds every notifier whose settings are present
func FromConfig(c config.Config) []Notifier {
	var notifiers []Notifier

	if c.Notifier.SMTPHost != "" {
		notifiers = append(notifiers, &EmailNotifier{
			SMTPHost:     c.Notifier.SMTPHost,
			SMTPPort:     c.Notifier.SMTPPort,
			SMTPUsername: c.Notifier.SMTPUsername,
			SMTPPassword: c.Notifier.SMTPPassword,
			FromEmail:    c.Notifier.FromEmail,
			ToEmail:      c.Notifier.ToEmail,
		})
	}
	if c.Notifier.TelegramBotToken != "" {
		notifiers = append(notifiers, &TelegramNotifier{
			BotToken: c.Notifier.TelegramBotToken,
			ChatID:   c.Notifier.TelegramChatID,
		})
	}
	if c.Notifier.NtfyTopic != "" {
		notifiers = append(notifiers, &NtfyNotifier{
			Topic:  c.Notifier.NtfyTopic,
			Server: c.Notifier.NtfyServer,
		})
	}

	for _, n := range notifiers {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, TypeName(n))
	}
	return notifiers
}

// TypeName returns a short label for a notifier
func TypeName(n Notifier) string {
	switch n.(type) {
	case *EmailNotifier:
		return "email"
	case *TelegramNotifier:
		return "telegram"
	case *NtfyNotifier:
		return "ntfy"
	default:
		return "unknown"
	}
}

// =============================================================================
// EMAIL NOTIFIER
// =============================================================================

type EmailNotifier struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string
}

func (e *EmailNotifier) Send(subject, message string) error {
	auth := smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.FromEmail, e.ToEmail, subject, message))

	port := e.SMTPPort
	if port == "" {
		port = "587"
	}
	if err := smtp.SendMail(e.SMTPHost+":"+port, auth, e.FromEmail, []string{e.ToEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Infof("%s Email notification sent to %s", logcolors.LogNotifier, e.ToEmail)
	return nil
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

const defaultTelegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // Default: https://api.telegram.org
}

func (t *TelegramNotifier) Send(subject, message string) error {
	base := t.APIBase
	if base == "" {
		base = defaultTelegramAPI
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), t.BotToken)

	payload := map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", subject, message),
		"parse_mode": "Markdown",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	resp, err := notifyClient.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	log.Infof("%s Telegram notification sent to chat %s", logcolors.LogNotifier, t.ChatID)
	return nil
}

// =============================================================================
// NTFY.SH NOTIFIER
// =============================================================================

type NtfyNotifier struct {
	Topic  string
	Server string // Default: https://ntfy.sh
}

func (n *NtfyNotifier) Send(subject, message string) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s", strings.TrimRight(server, "/"), n.Topic), bytes.NewBufferString(message))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Title", subject)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "warning")

	resp, err := notifyClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}
