package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/tutorhub/tutorhub-backend/internal/reconciliation"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type reconciler interface {
	HandleCheckoutCompleted(ctx context.Context, ref string) (reconciliation.Result, error)
	HandleCheckoutExpired(ctx context.Context, ref string) (reconciliation.Result, error)
}

type ServiceParams struct {
	Engine reconciler
	Logger *logger.Logger
}

// Service routes verified Stripe events to the reconciliation engine.
type Service struct {
	engine reconciler
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation engine required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{engine: params.Engine, logg: logg}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	decoded, err := DecodeEvent(event)
	if err != nil {
		return err
	}

	switch ev := decoded.(type) {
	case CheckoutCompleted:
		_, err := s.engine.HandleCheckoutCompleted(ctx, ev.SessionID)
		return err
	case CheckoutExpired:
		_, err := s.engine.HandleCheckoutExpired(ctx, ev.SessionID)
		return err
	case Unrecognized:
		s.logg.Debug(s.logg.WithField(ctx, "event_type", ev.Type), "ignoring stripe event")
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unhandled gateway event")
	}
}
