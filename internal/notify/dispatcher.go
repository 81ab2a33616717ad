package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/stockpulse/stockpulse/internal/model"
	"gorm.io/gorm"
)

// ErrKind classifies where a dispatch attempt failed.
type ErrKind int

// Dispatch failure kinds.
const (
	ErrNone ErrKind = iota
	ErrMailAPI
	ErrTransport
)

// Result is the outcome of one dispatch attempt. Failures are values, not
// panics: callers branch on Kind instead of unwinding.
type Result struct {
	Kind ErrKind
	Err  error
}

// OK reports whether the message was accepted by the provider.
func (r Result) OK() bool { return r.Kind == ErrNone }

// Message is one email to dispatch plus its audit fields.
type Message struct {
	CompanyID string
	Type      string
	Recipient string
	Subject   string
	HTML      string
	Metadata  map[string]any
}

// Dispatcher sends messages and records one NotificationLog row per
// attempt. The log write is best-effort: its failure is logged and
// swallowed, never surfaced to the caller.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	log    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(db *gorm.DB, sender Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{db: db, sender: sender, log: log}
}

// Dispatch sends msg and records the outcome. There is no retry: a failed
// send is recorded as status=failed and returned as a non-OK Result.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Result {
	sendErr := d.sender.Send(ctx, msg.Recipient, msg.Subject, msg.HTML)

	entry := model.NotificationLog{
		CompanyID: msg.CompanyID,
		Type:      msg.Type,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Status:    model.NotificationSent,
		Metadata:  encodeMetadata(msg.Metadata),
	}

	var res Result
	if sendErr != nil {
		entry.Status = model.NotificationFailed
		entry.ErrorMessage = sendErr.Error()
		res = Result{Kind: classify(sendErr), Err: sendErr}
		d.log.Error("mail dispatch failed",
			"company_id", msg.CompanyID, "type", msg.Type, "err", sendErr)
	}

	if err := d.db.WithContext(ctx).Create(&entry).Error; err != nil {
		d.log.Error("notification log write failed",
			"company_id", msg.CompanyID, "type", msg.Type, "err", err)
	}
	return res
}

func classify(err error) ErrKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ErrMailAPI
	}
	return ErrTransport
}

func encodeMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(b)
}
