// Package mailer renders order notification emails and delivers them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/flicky/apnishop-api/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrUnavailable is returned while the breaker is open and sends are being skipped.
var ErrUnavailable = errors.New("mailer: smtp unavailable")

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Mailer struct {
	sender Sender
	cb     *gobreaker.CircuitBreaker
	tmpl   *template.Template
	log    *slog.Logger
}

var subjects = map[string]string{
	model.EventOrderPlaced:    "Order %s confirmed",
	model.EventOrderShipped:   "Order %s has shipped",
	model.EventOrderDelivered: "Order %s delivered",
}

func New(sender Sender, log *slog.Logger) *Mailer {
	rupees := accounting.Accounting{Symbol: "₹", Precision: 2, Thousand: ",", Decimal: "."}
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return rupees.FormatMoneyDecimal(d) },
	}).ParseFS(templateFS, "templates/*.html"))

	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Mailer{sender: sender, cb: gobreaker.NewCircuitBreaker(settings), tmpl: tmpl, log: log}
}

// Render builds the email for event without sending it.
func (m *Mailer) Render(event model.OrderEvent, order *model.Order, user *model.User) (Message, error) {
	subject, ok := subjects[event.Type]
	if !ok {
		return Message{}, fmt.Errorf("no template for event %q", event.Type)
	}

	var body bytes.Buffer
	data := struct {
		Name  string
		Order *model.Order
	}{Name: user.FullName(), Order: order}
	if err := m.tmpl.ExecuteTemplate(&body, event.Type+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", event.Type, err)
	}
	return Message{To: user.Email, Subject: fmt.Sprintf(subject, order.OrderNumber), HTML: body.String()}, nil
}

// SendOrderEvent renders and sends the notification for event through the circuit breaker.
func (m *Mailer) SendOrderEvent(ctx context.Context, event model.OrderEvent, order *model.Order, user *model.User) error {
	msg, err := m.Render(event, order, user)
	if err != nil {
		return err
	}

	_, err = m.cb.Execute(func() (interface{}, error) {
		return nil, m.sender.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("send %s email: %w", event.Type, err)
	}
	return nil
}
