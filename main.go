package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-kernel/framework/app"
	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/routing"
	"github.com/km-arc/go-kernel/framework/transformers"
)

// ── Domain ───────────────────────────────────────────────────────────────────

type Mailer interface {
	Send(to, subject string) error
}

type logMailer struct{ logger *slog.Logger }

func (m *logMailer) Send(to, subject string) error {
	m.logger.Info("mail sent", "to", to, "subject", subject)
	return nil
}

type Order struct {
	ID       string
	Customer string
	Total    int
	Paid     bool
}

type Invoice struct {
	OrderID string `json:"order_id"`
	Amount  int    `json:"amount"`
	Mailer  Mailer `json:"-" inject:"mailer"`
}

// NewInvoice declines unpaid orders.
func NewInvoice(o *Order) (*Invoice, error) {
	if !o.Paid {
		return nil, transformers.ErrNotApplicable
	}
	return &Invoice{OrderID: o.ID, Amount: o.Total}, nil
}

// ── Provider ─────────────────────────────────────────────────────────────────

type BillingServiceProvider struct {
	container.BaseProvider
}

func (p *BillingServiceProvider) Register(c *container.Container) error {
	c.Singleton("mailer", func(c *container.Container) any {
		return &logMailer{logger: container.Resolve[*slog.Logger](c, "log")}
	})
	registry := container.Resolve[*transformers.Registry](c, "transformers.registry")
	return transformers.RegisterAuto(registry, transformers.Declaration{Feature: "billing"}, NewInvoice)
}

func (p *BillingServiceProvider) Boot(c *container.Container) error {
	engine := container.Resolve[*transformers.Engine](c, "transformers")
	orders := map[string]*Order{
		"1": {ID: "1", Customer: "ada@example.com", Total: 4200, Paid: true},
		"2": {ID: "2", Customer: "bob@example.com", Total: 990},
	}

	router := container.Resolve[*routing.Router](c, "router")
	router.Prefix("/orders", func(r *routing.Router) {
		r.Get("/{id}/invoice", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			order, ok := orders[routing.Param(req, "id")]
			if !ok {
				res.NotFound("Order not found.")
				return
			}
			invoice, ok, err := transformers.As[*Invoice](engine, order)
			if err != nil {
				res.ServerError(err.Error())
				return
			}
			if !ok {
				res.NotFound("No invoice for this order.")
				return
			}
			if err := invoice.Mailer.Send(order.Customer, "Invoice "+invoice.OrderID); err != nil {
				res.ServerError(err.Error())
				return
			}
			res.Success(invoice)
		})
	})
	return nil
}

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	application.Features().Declare("billing", true)

	if err := application.Register(&BillingServiceProvider{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Logger().Error("application stopped", "error", err)
		os.Exit(1)
	}
}
