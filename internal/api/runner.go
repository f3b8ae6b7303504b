package api

import (
	"context"
	"log/slog"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/audit"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/platform/db"
	"github.com/pictor-board/pictor/internal/shared"
)

// Runner dispatches jobs: validate arguments, check authentication and
// privileges, execute inside one transaction, append one audit entry.
// Every stage fails closed, and nothing before the execute stage has side
// effects.
type Runner struct {
	logger     *slog.Logger
	resolver   *access.Resolver
	transactor db.Transactor
	audit      *audit.Logger
}

// NewRunner constructs a Runner.
func NewRunner(logger *slog.Logger, resolver *access.Resolver, transactor db.Transactor, auditLogger *audit.Logger) *Runner {
	return &Runner{logger: logger, resolver: resolver, transactor: transactor, audit: auditLogger}
}

// Run executes one job invocation end to end.
func (r *Runner) Run(ctx context.Context, job Job, args ArgumentSet, actor *auth.Context) (any, error) {
	if actor == nil {
		actor = auth.AnonymousContext()
	}

	if req := job.RequiredArguments(); req != nil {
		if verdict := req.Evaluate(args); !verdict.Satisfied {
			return nil, shared.ValidationError(verdict.Missing)
		}
	}

	if job.AuthenticationRequired() && !actor.Authenticated {
		return nil, shared.NewError(shared.KindAuthentication, "Not logged in")
	}

	if job.ConfirmedEmailRequired() && !actor.EmailConfirmed {
		return nil, shared.NewError(shared.KindUnconfirmedEmail, "E-mail address not confirmed")
	}

	if err := r.checkPrivileges(job, args, actor); err != nil {
		return nil, err
	}

	var result any
	err := r.transactor.InTx(ctx, func(ctx context.Context) error {
		var execErr error
		result, execErr = job.Execute(ctx, args, actor)
		return execErr
	})
	if err != nil {
		r.logger.Debug("job failed",
			slog.String("job", job.Name()),
			slog.String("actor", actor.ActorName()),
			slog.Any("error", err))
		return nil, err
	}

	template, fields := job.AuditEntry(args, actor, result)
	r.audit.Append(actor.ActorName(), template, fields)
	if err := r.audit.Flush(ctx); err != nil {
		// The state change committed; a lost audit line must not fail the job.
		r.logger.Error("audit flush", slog.String("job", job.Name()), slog.Any("error", err))
	}

	r.logger.Info("job completed",
		slog.String("job", job.Name()),
		slog.String("actor", actor.ActorName()))
	return result, nil
}

func (r *Runner) checkPrivileges(job Job, args ArgumentSet, actor *auth.Context) error {
	if main := job.MainPrivilege(); main != "" {
		if !r.resolver.Allows(main, actor.Rank) {
			return shared.NewError(shared.KindInsufficientPrivilege, "Insufficient privileges")
		}
	}
	if sub := job.SubPrivilege(args, actor); sub != "" {
		if !r.resolver.Allows(sub, actor.Rank) {
			return shared.NewError(shared.KindInsufficientPrivilege, "Insufficient privileges")
		}
	}
	return nil
}
