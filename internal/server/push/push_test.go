package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"olh/internal/server/database"

	"google.golang.org/api/option"
)

type fakeSender struct {
	err  error
	sent []string
}

func (f *fakeSender) Send(_ context.Context, token string, msg Message) error {
	f.sent = append(f.sent, token+"|"+msg.Title)
	return f.err
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed user", func(t *testing.T) {
		store := database.NewMemoryStore()
		sender := &fakeSender{}
		d := NewDispatcher(store, sender, 0)
		if _, err := d.Subscribe(ctx, "u1", "tok-1"); err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		d.Notify(ctx, "u1", Message{Title: "Material Approved"})

		if len(sender.sent) != 1 || sender.sent[0] != "tok-1|Material Approved" {
			t.Errorf("unexpected deliveries %v", sender.sent)
		}
	})

	t.Run("skips users without subscription", func(t *testing.T) {
		sender := &fakeSender{}
		d := NewDispatcher(database.NewMemoryStore(), sender, 0)

		d.Notify(ctx, "nobody", Message{Title: "x"})

		if len(sender.sent) != 0 {
			t.Errorf("expected no deliveries, got %v", sender.sent)
		}
	})

	t.Run("transport failure keeps subscription", func(t *testing.T) {
		store := database.NewMemoryStore()
		d := NewDispatcher(store, &fakeSender{err: fmt.Errorf("%w: timeout", ErrDelivery)}, 0)
		d.Subscribe(ctx, "u1", "tok-1")

		d.Notify(ctx, "u1", Message{Title: "x"})

		sub, _ := store.GetPushSubscription(ctx, "u1")
		if sub == nil {
			t.Error("subscription should survive a transient failure")
		}
	})

	t.Run("expired token removes subscription", func(t *testing.T) {
		store := database.NewMemoryStore()
		d := NewDispatcher(store, &fakeSender{err: ErrTokenExpired}, 0)
		d.Subscribe(ctx, "u1", "tok-1")

		d.Notify(ctx, "u1", Message{Title: "x"})

		sub, _ := store.GetPushSubscription(ctx, "u1")
		if sub != nil {
			t.Error("expected subscription to be removed")
		}
	})
}

func TestDispatcher_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	d := NewDispatcher(store, LogSender{}, 0)

	first, err := d.Subscribe(ctx, "u1", "tok-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, err := d.Subscribe(ctx, "u1", "tok-2")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected upsert to keep id %s, got %s", first.ID, second.ID)
	}

	sub, _ := store.GetPushSubscription(ctx, "u1")
	if sub.Token != "tok-2" {
		t.Errorf("expected latest token, got %s", sub.Token)
	}

	if err := d.Unsubscribe(ctx, "u1"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if sub, _ := store.GetPushSubscription(ctx, "u1"); sub != nil {
		t.Error("expected subscription removed")
	}
}

func TestFCMSender(t *testing.T) {
	ctx := context.Background()

	type captured struct {
		path string
		body []byte
	}

	newSenderFor := func(t *testing.T, baseURL string, status int, body string) (*FCMSender, *captured) {
		got := &captured{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.path = r.URL.Path
			got.body, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
		t.Cleanup(srv.Close)

		s, err := NewFCMSender(ctx, "olh-test", "", baseURL,
			option.WithEndpoint(srv.URL+"/"),
			option.WithoutAuthentication(),
		)
		if err != nil {
			t.Fatalf("new sender: %v", err)
		}
		return s, got
	}
	newSender := func(t *testing.T, status int, body string) (*FCMSender, *captured) {
		return newSenderFor(t, "https://olh.example.com", status, body)
	}

	type sentMessage struct {
		Message struct {
			Data    map[string]string `json:"data"`
			Webpush *struct {
				FcmOptions struct {
					Link string `json:"link"`
				} `json:"fcmOptions"`
			} `json:"webpush"`
		} `json:"message"`
	}
	decodeSent := func(t *testing.T, body []byte) sentMessage {
		t.Helper()
		var m sentMessage
		if err := json.Unmarshal(body, &m); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		return m
	}

	t.Run("sends to project endpoint", func(t *testing.T) {
		s, path := newSender(t, http.StatusOK, `{"name":"projects/olh-test/messages/1"}`)
		if err := s.Send(ctx, "tok", Message{Title: "t", Body: "b", URL: "/materials"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(path.path, "projects/olh-test/messages:send") {
			t.Errorf("unexpected path %s", path.path)
		}
	})

	t.Run("webpush link is absolute", func(t *testing.T) {
		tests := []struct {
			name string
			url  string
			want string
		}{
			{"root", "/", "https://olh.example.com/"},
			{"path", "/materials/42", "https://olh.example.com/materials/42"},
			{"already absolute", "https://cdn.example.com/x", "https://cdn.example.com/x"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, got := newSender(t, http.StatusOK, `{"name":"projects/olh-test/messages/1"}`)
				if err := s.Send(ctx, "tok", Message{Title: "t", URL: tt.url}); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				m := decodeSent(t, got.body)
				if m.Message.Webpush == nil {
					t.Fatal("expected webpush options")
				}
				if link := m.Message.Webpush.FcmOptions.Link; link != tt.want {
					t.Errorf("link = %q, want %q", link, tt.want)
				}
				if m.Message.Data["url"] != tt.want {
					t.Errorf("data url = %q, want %q", m.Message.Data["url"], tt.want)
				}
			})
		}
	})

	t.Run("omits link without https base", func(t *testing.T) {
		s, got := newSenderFor(t, "http://localhost:5000", http.StatusOK, `{"name":"projects/olh-test/messages/1"}`)
		if err := s.Send(ctx, "tok", Message{Title: "t", URL: "/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m := decodeSent(t, got.body)
		if m.Message.Webpush != nil {
			t.Errorf("expected no webpush link, got %q", m.Message.Webpush.FcmOptions.Link)
		}
		if m.Message.Data["url"] != "/" {
			t.Errorf("data url = %q, want /", m.Message.Data["url"])
		}
	})

	t.Run("unregistered token", func(t *testing.T) {
		s, _ := newSender(t, http.StatusNotFound,
			`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`)
		err := s.Send(ctx, "tok", Message{Title: "t"})
		if !errors.Is(err, ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("invalid argument", func(t *testing.T) {
		s, _ := newSender(t, http.StatusBadRequest,
			`{"error":{"code":400,"message":"bad payload","status":"INVALID_ARGUMENT"}}`)
		err := s.Send(ctx, "tok", Message{Title: "t"})
		if !errors.Is(err, ErrDelivery) || errors.Is(err, ErrTokenExpired) {
			t.Errorf("expected plain ErrDelivery, got %v", err)
		}
	})
}
