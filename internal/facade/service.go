// Package facade runs every wallet operation through the same sequence:
// enrich the request, show a confirmation, execute on approval, then apply
// side effects and notify.
package facade

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/host"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
	"github.com/hedera-wallet/hedera_wallet/internal/notification"
	"github.com/hedera-wallet/hedera_wallet/internal/swap"
	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// Deps aggregates what the facade orchestrates.
type Deps struct {
	Clients       ledger.ClientFactory
	Mirrors       *mirror.Registry
	Wallets       *wallet.Service
	Dialog        host.Dialog
	Notifier      notification.Notifier
	Executor      *command.Executor
	Swaps         *swap.Scheduler
	Fee           fees.ServiceFee
	BalanceMaxAge time.Duration
	Logger        *zap.Logger
}

// Service exposes one method per wallet operation.
type Service struct {
	clients       ledger.ClientFactory
	mirrors       *mirror.Registry
	wallets       *wallet.Service
	dialog        host.Dialog
	notifier      notification.Notifier
	executor      *command.Executor
	swaps         *swap.Scheduler
	fee           fees.ServiceFee
	balanceMaxAge time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewService builds the facade.
func NewService(d Deps) *Service {
	return &Service{
		clients:       d.Clients,
		mirrors:       d.Mirrors,
		wallets:       d.Wallets,
		dialog:        d.Dialog,
		notifier:      d.Notifier,
		executor:      d.Executor,
		swaps:         d.Swaps,
		fee:           d.Fee,
		balanceMaxAge: d.BalanceMaxAge,
		logger:        d.Logger,
		now:           time.Now,
	}
}

// RequestContext identifies who is asking and on which network.
type RequestContext struct {
	Origin  string
	Network string
}

// session is the per-request view of the caller's account.
type session struct {
	rc       RequestContext
	account  wallet.Account
	client   ledger.Client
	mirror   mirror.Source
	operator command.Operator
}

// plan is one operation prepared for confirmation.
type plan struct {
	title    string
	fields   []command.Field
	warnings []string
	cmd      command.Command
	// execute replaces the default executor run, e.g. for swaps.
	execute func(ctx context.Context) (any, error)
	// after runs only once the ledger confirmed success.
	after func(ctx context.Context, result any) error
}

func (s *Service) open(ctx context.Context, op string, rc RequestContext) (*session, error) {
	acct, err := s.wallets.Get(ctx, rc.Origin, rc.Network)
	if errors.Is(err, wallet.ErrNotFound) {
		return nil, xerrors.Precondition(op, "no account is configured for this origin on "+rc.Network)
	}
	if err != nil {
		return nil, xerrors.Unavailable(op, "account state", err)
	}
	if acct.AccountID == "" {
		return nil, xerrors.Precondition(op, "the account for this origin was deleted")
	}
	src, err := s.mirrors.Get(rc.Network)
	if err != nil {
		return nil, xerrors.Precondition(op, err.Error())
	}
	client, err := s.clients.ClientFor(ctx, rc.Network, acct.AccountID, acct.KeyStore.Key())
	if err != nil {
		return nil, xerrors.Unavailable(op, "ledger client", err)
	}
	return &session{
		rc:      rc,
		account: acct,
		client:  client,
		mirror:  src,
		operator: command.Operator{
			AccountID: acct.AccountID,
			PublicKey: acct.KeyStore.PublicKey,
			Key:       acct.KeyStore.Key(),
		},
	}, nil
}

// run drives one operation. build prepares the plan against the open
// session; nothing reaches the ledger unless the user approves it.
func (s *Service) run(ctx context.Context, op string, rc RequestContext, build func(ctx context.Context, ss *session) (*plan, error)) (any, error) {
	ss, err := s.open(ctx, op, rc)
	if err != nil {
		return nil, s.fail(op, rc, err)
	}
	defer ss.client.Close()

	p, err := build(ctx, ss)
	if err != nil {
		return nil, s.fail(op, rc, xerrors.WithOp(op, err))
	}

	approved, err := s.dialog.Confirm(ctx, host.Prompt{Origin: rc.Origin, Title: p.title, Content: render(ss, p)})
	if err != nil {
		return nil, s.fail(op, rc, xerrors.Unavailable(op, "confirmation dialog", err))
	}
	if !approved {
		return nil, s.fail(op, rc, xerrors.UserRejected(op))
	}

	var result any
	if p.execute != nil {
		result, err = p.execute(ctx)
	} else {
		result, err = s.executor.Run(ctx, ss.client, p.cmd)
	}
	if err != nil {
		return nil, s.fail(op, rc, xerrors.WithOp(op, err))
	}

	if p.after != nil {
		if err := p.after(ctx, result); err != nil {
			s.logger.Error("post-execution update failed",
				zap.String("op", op),
				zap.String("origin", rc.Origin),
				zap.Error(err))
		}
	}
	s.notify(ctx, op, rc, p.title, result)
	return result, nil
}

func (s *Service) fail(op string, rc RequestContext, err error) error {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("origin", rc.Origin),
		zap.String("network", rc.Network),
		zap.String("kind", string(xerrors.KindOf(err))),
		zap.Error(err),
	}
	if errors.Is(err, xerrors.ErrUserRejected) {
		s.logger.Info("operation rejected by user", fields...)
	} else {
		s.logger.Warn("operation failed", fields...)
	}
	return err
}

func (s *Service) notify(ctx context.Context, op string, rc RequestContext, title string, result any) {
	msg := notification.Message{
		Kind:   notification.KindTransactionExecuted,
		Origin: rc.Origin,
		Title:  title,
		Body:   op + " completed",
	}
	switch r := result.(type) {
	case command.Result:
		msg.TransactionID = r.TransactionID
	case SwapResult:
		msg.TransactionID = r.Result.TransactionID
		if r.Status == swap.StatusCreated {
			msg.Kind = notification.KindSwapPending
			msg.Body = "swap " + r.ScheduleID + " waits for the counterparty"
		}
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", zap.String("op", op), zap.Error(err))
	}
}

func render(ss *session, p *plan) host.Content {
	content := host.Content{
		host.Heading(p.title),
		host.Copyable("Account", ss.account.AccountID),
		host.Row("Network", ss.rc.Network),
		host.Divider(),
	}
	for _, f := range p.fields {
		content = append(content, host.Row(f.Label, f.Value))
	}
	if len(p.warnings) > 0 {
		content = append(content, host.Divider())
		for _, w := range p.warnings {
			content = append(content, host.Text("Warning: "+w))
		}
	}
	return content
}
