package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lyrics-resolver-go/config"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	n := &TelegramNotifier{BotToken: "TOKEN", ChatID: "42", APIBase: server.URL}
	if err := n.Send("Subject", "Body"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if payload["chat_id"] != "42" || payload["text"] != "*Subject*\n\nBody" {
		t.Errorf("Unexpected payload %v", payload)
	}
}

func TestTelegramNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := &TelegramNotifier{BotToken: "TOKEN", APIBase: server.URL}
	if err := n.Send("s", "m"); err == nil {
		t.Error("Expected error for non-200 status")
	}
}

func TestNtfyNotifier_Send(t *testing.T) {
	var title, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alerts" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		title = r.Header.Get("Title")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer server.Close()

	n := &NtfyNotifier{Topic: "alerts", Server: server.URL + "/"}
	if err := n.Send("Cache Cleared", "done"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if title != "Cache Cleared" || body != "done" {
		t.Errorf("Unexpected request title=%q body=%q", title, body)
	}
}

func TestFromConfig(t *testing.T) {
	var c config.Config
	if got := FromConfig(c); len(got) != 0 {
		t.Errorf("Expected no notifiers, got %d", len(got))
	}

	c.Notifier.TelegramBotToken = "t"
	c.Notifier.NtfyTopic = "topic"
	c.Notifier.SMTPHost = "smtp.example.com"

	got := FromConfig(c)
	if len(got) != 3 {
		t.Fatalf("Expected 3 notifiers, got %d", len(got))
	}
	want := []string{"email", "telegram", "ntfy"}
	for i, n := range got {
		if TypeName(n) != want[i] {
			t.Errorf("notifier %d = %s, want %s", i, TypeName(n), want[i])
		}
	}
}
