package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quorum/internal/store"
	"quorum/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	sent []string
	err  error
}

func (r *recordingChannel) Channel() string { return "TEST" }

func (r *recordingChannel) SendText(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

func newStore(t *testing.T) *sqlite.SqliteStore {
	t.Helper()
	s, err := sqlite.OpenDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTelegramSendText(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42", srv.URL, time.Second)
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "hello", body["text"])
	assert.Equal(t, "Markdown", body["parse_mode"])
}

func TestTelegramSendTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegram("TOKEN", "42", srv.URL, time.Second).SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	err = NewTelegram("", "", srv.URL, time.Second).SendText(context.Background(), "x")
	assert.Error(t, err)
}

func TestTelegramSendTextErrorWithoutJSONContentType(t *testing.T) {
	for _, ct := range []string{"", "text/plain; charset=utf-8"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header()["Content-Type"] = nil
			if ct != "" {
				w.Header().Set("Content-Type", ct)
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		}))
		err := NewTelegram("TOKEN", "42", srv.URL, time.Second).SendText(context.Background(), "x")
		srv.Close()
		require.Error(t, err, "content type %q", ct)
		assert.Contains(t, err.Error(), "status=400")
		assert.Contains(t, err.Error(), "chat not found", "content type %q", ct)
	}
}

func TestTelegramSendTextRejectedWithOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"message is too long"}`))
	}))
	defer srv.Close()

	err := NewTelegram("TOKEN", "42", srv.URL, time.Second).SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is too long")
}

func TestDispatcherFiltersCategories(t *testing.T) {
	ch := &recordingChannel{}
	d := NewDispatcher(ch, nil, []string{"trade_execution", " RISK_ALERT "}, time.Second)

	out := d.Notify(context.Background(), ProfitLoss, ProfitLossMessage(PnLInfo{Symbol: "BTCUSDT"}), nil)
	assert.True(t, out.Skipped)
	assert.Empty(t, ch.sent)

	out = d.Notify(context.Background(), RiskAlert, RiskAlertMessage("HIGH", "LOW_CONFIDENCE", nil), nil)
	assert.True(t, out.Delivered)
	assert.Equal(t, "TEST", out.Channel)
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "Risk alert")
	assert.Contains(t, ch.sent[0], "LOW_CONFIDENCE")
}

func TestDispatcherRecordsFailures(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	ch := &recordingChannel{err: errors.New("boom")}
	d := NewDispatcher(ch, st, nil, time.Second)

	out := d.Notify(ctx, SystemStatus, SystemStatusMessage(StatusError, map[string]string{"error": "exchange down"}), map[string]string{"symbol": "BTCUSDT"})
	assert.False(t, out.Delivered)
	assert.Equal(t, "boom", out.Error)

	var rows int
	var delivered bool
	var data string
	require.NoError(t, store.Read(ctx, st, func(uow store.UnitOfWork) error {
		list, err := uow.Notifications().List(ctx, store.Query{})
		if err != nil {
			return err
		}
		rows = len(list)
		if rows > 0 {
			delivered = list[0].Delivered
			data = string(list[0].Data)
		}
		return nil
	}))
	assert.Equal(t, 1, rows)
	assert.False(t, delivered)
	assert.JSONEq(t, `{"symbol":"BTCUSDT"}`, data)
}

func TestDispatcherWithoutChannelLogs(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, 0)
	out := d.Notify(context.Background(), DailyReport, DailyReportMessage(ReportInfo{Date: "2024-05-01"}), nil)
	assert.True(t, out.Delivered)
	assert.Equal(t, "LOG", out.Channel)
}

func TestTemplates(t *testing.T) {
	msg := TradeMessage(TradeInfo{Symbol: "BTCUSDT", Action: "OPEN_LONG", Side: "LONG", Quantity: 0.002, Price: 50000, Leverage: 2, Confidence: 0.73})
	text := msg.RenderMarkdown()
	assert.Contains(t, text, "Quantity: 0.002")
	assert.Contains(t, text, "Price: $50,000.00")
	assert.Contains(t, text, "Confidence: 73.0%")

	pnl := ProfitLossMessage(PnLInfo{Symbol: "ETHUSDT", Side: "LONG", EntryPrice: 2000, ExitPrice: 1900, Quantity: 1, PnL: -100})
	assert.Equal(t, "📉", pnl.Icon)
	assert.Contains(t, pnl.PlainText(), "Ratio: -5.00%")

	assert.Equal(t, "🟢", SystemStatusMessage(StatusHealthy, nil).Icon)
	assert.Equal(t, "🟡", SystemStatusMessage(StatusWarning, nil).Icon)
	assert.Equal(t, "-1,234,567.89", money(-1234567.891))
	assert.Equal(t, "12.00", money(12))
}

func TestRenderMarkdownTimestamp(t *testing.T) {
	msg := StructuredMessage{Title: "x", Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	assert.Contains(t, msg.RenderMarkdown(), "Time: 2024-05-01 10:00:00 UTC")
}
