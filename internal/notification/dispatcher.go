package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"crmgateway/internal/domain"
	"crmgateway/internal/infrastructure/email"
	"crmgateway/internal/infrastructure/whatsapp"
)

type WhatsAppSender interface {
	Send(ctx context.Context, msg whatsapp.Message) whatsapp.Result
}

type EmailSender interface {
	Send(ctx context.Context, e email.Email) email.Result
}

type Options struct {
	DefaultOrigin string
	SendTimeout   time.Duration
	Language      string
}

// Dispatcher turns order transitions into background sends. Nothing it
// does can fail the caller: results are only logged.
type Dispatcher struct {
	planner  *Planner
	renderer *Renderer
	whatsapp WhatsAppSender
	email    EmailSender
	opts     Options
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewDispatcher wires the senders. emailSender may be nil to disable the
// email channel.
func NewDispatcher(planner *Planner, renderer *Renderer, wa WhatsAppSender, emailSender EmailSender, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		planner:  planner,
		renderer: renderer,
		whatsapp: wa,
		email:    emailSender,
		opts:     opts,
		logger:   logger,
	}
}

// Dispatch plans the notifications for tr and starts one goroutine per
// action. It returns the number of sends started.
func (d *Dispatcher) Dispatch(ctx context.Context, order domain.Order, tr Transition) int {
	if !tr.Changed() {
		return 0
	}

	origin, ok := OriginFrom(ctx)
	if !ok {
		origin = d.opts.DefaultOrigin
	}

	actions := d.planner.Plan(order, tr, NewLinks(origin))
	if len(actions) == 0 {
		d.logger.Debug("no notification for transition",
			zap.String("orderId", order.ID),
			zap.String("status", string(tr.NewStatus)),
			zap.String("paymentStatus", string(tr.NewPaymentStatus)),
			zap.Bool("hasPhone", order.CustomerPhone != ""),
		)
		return 0
	}

	// Sends outlive the request that triggered them.
	bg := context.WithoutCancel(ctx)
	for _, a := range actions {
		d.wg.Add(1)
		go func(a Action) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("notification send panicked",
						zap.String("orderId", a.OrderID),
						zap.String("kind", string(a.Kind)),
						zap.Any("panic", r),
					)
				}
			}()
			d.send(bg, a)
		}(a)
	}

	return len(actions)
}

// Wait blocks until every started send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, a Action) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	body := d.renderer.Body(ctx, a)
	log := d.logger.With(zap.String("orderId", a.OrderID), zap.String("kind", string(a.Kind)))

	params := make([]whatsapp.Param, 0, len(a.Params))
	for _, p := range a.Params {
		params = append(params, whatsapp.Param{Name: p.Key, Value: p.Value})
	}

	res := d.whatsapp.Send(ctx, whatsapp.Message{
		Phone:        a.RecipientPhone,
		TemplateName: string(a.Kind),
		Language:     d.opts.Language,
		Body:         body,
		Params:       params,
	})
	if res.Success {
		log.Info("notification sent", zap.String("channel", "whatsapp"), zap.String("messageId", res.MessageID))
	} else {
		log.Error("notification failed", zap.String("channel", "whatsapp"), zap.String("error", res.Error))
	}

	if d.email == nil || a.RecipientEmail == "" {
		return
	}

	eres := d.email.Send(ctx, email.Email{
		To:           a.RecipientEmail,
		Subject:      d.renderer.Subject(a),
		Body:         body,
		TemplateVars: a.Values(),
	})
	if eres.Success {
		log.Info("notification sent", zap.String("channel", "email"), zap.String("result", eres.Message))
	} else {
		log.Error("notification failed", zap.String("channel", "email"), zap.String("error", eres.Message))
	}
}
