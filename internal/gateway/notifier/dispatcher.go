package notifier

import (
	"context"
	"strings"
	"time"

	"quorum/internal/logger"
	"quorum/internal/store"
	"quorum/internal/store/model"
)

// Dispatcher filters by category, renders, sends through one TextNotifier
// and records every attempt in the store.
type Dispatcher struct {
	channel TextNotifier
	store   store.Store
	enabled map[Category]bool
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher enables the given categories. An empty list enables all.
// A nil channel logs messages instead of sending them.
func NewDispatcher(channel TextNotifier, st store.Store, categories []string, timeout time.Duration) *Dispatcher {
	enabled := make(map[Category]bool, len(categories))
	for _, c := range categories {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			enabled[Category(c)] = true
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{channel: channel, store: st, enabled: enabled, timeout: timeout, now: time.Now}
}

func (d *Dispatcher) Enabled(cat Category) bool {
	return len(d.enabled) == 0 || d.enabled[cat]
}

func (d *Dispatcher) Notify(ctx context.Context, cat Category, msg StructuredMessage, data any) Delivery {
	if !d.Enabled(cat) {
		return Delivery{Skipped: true}
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = d.now()
	}
	var out Delivery
	if d.channel == nil {
		logger.Infof("[notify][%s] %s", cat, msg.PlainText())
		out = Delivery{Delivered: true, Channel: "LOG"}
	} else {
		out.Channel = d.channel.Channel()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := d.channel.SendText(sendCtx, msg.RenderMarkdown())
		cancel()
		if err != nil {
			logger.Warnf("notify %s via %s failed: %v", cat, out.Channel, err)
			out.Error = err.Error()
		} else {
			out.Delivered = true
		}
	}
	d.record(ctx, cat, msg, data, out)
	return out
}

func (d *Dispatcher) record(ctx context.Context, cat Category, msg StructuredMessage, data any, out Delivery) {
	if d.store == nil {
		return
	}
	row := model.NotificationModel{
		Category:      string(cat),
		Channel:       out.Channel,
		Title:         strings.TrimSpace(msg.Icon + " " + msg.Title),
		Body:          msg.PlainText(),
		Delivered:     out.Delivered,
		Error:         out.Error,
		Data:          model.JSON(data),
		CreatedAtUnix: msg.Timestamp.UnixMilli(),
	}
	ctx = context.WithoutCancel(ctx)
	err := store.Atomic(ctx, d.store, func(uow store.UnitOfWork) error {
		return uow.Notifications().Insert(ctx, &row)
	})
	if err != nil {
		logger.Warnf("record notification %s failed: %v", cat, err)
	}
}
