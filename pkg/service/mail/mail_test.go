package mail_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stenolab/steno/pkg/service/mail"
)

func TestResendSend(t *testing.T) {
	var received map[string]string
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := mail.NewResend("test-key", "noreply@example.com", mail.WithEndpoint(srv.URL))
	err := notifier.Send(context.Background(), "user@example.com", "Summary", "<h1>Notes</h1>")
	gt.NoError(t, err).Required()

	gt.Value(t, authHeader).Equal("Bearer test-key")
	gt.Value(t, received["from"]).Equal("noreply@example.com")
	gt.Value(t, received["to"]).Equal("user@example.com")
	gt.Value(t, received["subject"]).Equal("Summary")
	gt.Value(t, received["html"]).Equal("<h1>Notes</h1>")
}

func TestResendSendErrors(t *testing.T) {
	t.Run("missing recipient", func(t *testing.T) {
		notifier := mail.NewResend("key", "noreply@example.com")
		gt.Error(t, notifier.Send(context.Background(), "", "s", "b"))
	})

	t.Run("API error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		notifier := mail.NewResend("bad-key", "noreply@example.com", mail.WithEndpoint(srv.URL))
		err := notifier.Send(context.Background(), "user@example.com", "s", "b")
		gt.Error(t, err)
		gt.Bool(t, strings.Contains(err.Error(), "email API returned an error")).True()
	})
}

func TestSummaryBody(t *testing.T) {
	t.Run("with summary", func(t *testing.T) {
		body := mail.SummaryBody("we met", "<ul><li>do it</li></ul>")
		gt.Bool(t, strings.Contains(body, "<h1>Meeting Summary</h1>")).True()
		gt.Bool(t, strings.Contains(body, "we met")).True()
		gt.Bool(t, strings.Contains(body, "<h1>Action Items</h1>")).True()
	})

	t.Run("actions only", func(t *testing.T) {
		body := mail.SummaryBody("", "<ul><li>do it</li></ul>")
		gt.Bool(t, strings.Contains(body, "Meeting Summary")).False()
		gt.Bool(t, strings.Contains(body, "<h1>Action Items</h1>")).True()
	})
}

func TestSummarySubject(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)
	gt.Value(t, mail.SummarySubject(at)).Equal("Summary | Meeting on 14 Mar 2026 3:04PM | Steno")
}
