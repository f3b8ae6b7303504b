package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/api"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/mail"
	"github.com/pictor-board/pictor/internal/shared"
)

// JobRegister is the job-type identifier for account registration.
const JobRegister = "register-user"

// RegisterConfig carries the registration knobs from configuration.
type RegisterConfig struct {
	// PassMinLength is the minimum accepted password length. There is no
	// upper bound; the stored digest is fixed-size regardless of input.
	PassMinLength int
	// NeedEmailForRegistering enables the email confirmation flow.
	NeedEmailForRegistering bool
}

// RegisterJob creates a new user account.
//
// The very first account in the system is granted admin rank unconditionally;
// the account count runs inside the same transaction as the insert, so two
// racing first registrations serialize instead of both becoming admin.
type RegisterJob struct {
	repo     Repository
	mailer   mail.Mailer
	resolver *access.Resolver
	cfg      RegisterConfig
}

// NewRegisterJob constructs the job.
func NewRegisterJob(repo Repository, mailer mail.Mailer, resolver *access.Resolver, cfg RegisterConfig) *RegisterJob {
	return &RegisterJob{repo: repo, mailer: mailer, resolver: resolver, cfg: cfg}
}

func (j *RegisterJob) Name() string { return JobRegister }

func (j *RegisterJob) RequiredArguments() api.Requirement {
	return api.AllArgs(api.ArgUserName, api.ArgPassword)
}

func (j *RegisterJob) MainPrivilege() access.Privilege {
	return access.PrivRegisterAccount
}

// SubPrivilege gates explicitly requested non-default ranks. The gate applies
// before execution, so a denied request creates nothing.
func (j *RegisterJob) SubPrivilege(args api.ArgumentSet, _ *auth.Context) access.Privilege {
	if args.Has(api.ArgAccessRank) && args.String(api.ArgAccessRank) != access.Registered.String() {
		return access.PrivChangeAccessRank
	}
	return ""
}

func (j *RegisterJob) AuthenticationRequired() bool { return false }

func (j *RegisterJob) ConfirmedEmailRequired() bool { return false }

func (j *RegisterJob) Execute(ctx context.Context, args api.ArgumentSet, actor *auth.Context) (any, error) {
	name := args.String(api.ArgUserName)
	password := args.String(api.ArgPassword)

	if _, err := j.repo.FindByName(ctx, name); err == nil {
		return nil, shared.NewError(shared.KindDuplicateName, "User with this name is already registered")
	} else if shared.KindOf(err) != shared.KindNotFound {
		return nil, err
	}

	if len(password) < j.cfg.PassMinLength {
		return nil, shared.NewError(shared.KindPolicy, "Password must have at least %d characters", j.cfg.PassMinLength)
	}

	count, err := j.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	firstUser := count == 0

	rank := access.Registered
	if args.Has(api.ArgAccessRank) {
		requested, err := access.ParseRank(args.String(api.ArgAccessRank))
		if err != nil {
			return nil, shared.NewError(shared.KindValidation, "Unknown access rank %q", args.String(api.ArgAccessRank))
		}
		rank = requested
	}
	if firstUser {
		rank = access.Admin
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{Name: name, PasswordHash: hash, Rank: rank}

	email := args.String(api.ArgEmail)
	sendConfirmation := false
	if email != "" {
		inUse, err := j.repo.ConfirmedEmailInUse(ctx, email)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, shared.NewError(shared.KindDuplicateEmail, "User with this e-mail is already registered")
		}
		if j.confirmationSkipped(rank) {
			user.ConfirmedEmail = email
		} else {
			user.UnconfirmedEmail = email
			user.EmailToken = uuid.NewString()
			sendConfirmation = true
		}
	}

	if err := j.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if sendConfirmation {
		if err := j.mailer.SendAccountConfirmation(ctx, email, user.Name, user.EmailToken); err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (j *RegisterJob) AuditEntry(args api.ArgumentSet, actor *auth.Context, result any) (string, map[string]string) {
	subject := args.String(api.ArgUserName)
	if user, ok := result.(*User); ok {
		subject = user.Name
	}
	return "{user} registered {subject}", map[string]string{
		"user":    actor.ActorName(),
		"subject": subject,
	}
}

// confirmationSkipped evaluates the no-confirmation policy against the rank
// of the account being created, not the caller's.
func (j *RegisterJob) confirmationSkipped(rank access.Rank) bool {
	if !j.cfg.NeedEmailForRegistering {
		return true
	}
	return j.resolver.Resolve(access.PrivSkipEmailConfirm).Allows(rank)
}

var _ api.Job = (*RegisterJob)(nil)
