package users

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/api"
	"github.com/pictor-board/pictor/internal/audit"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/shared"
)

type memoryUserRepo struct {
	users  []*User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{}
}

func (r *memoryUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *memoryUserRepo) FindByName(ctx context.Context, name string) (*User, error) {
	fold := FoldName(name)
	for _, u := range r.users {
		if FoldName(u.Name) == fold {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.NewError(shared.KindNotFound, "User %q not found", name)
}

func (r *memoryUserRepo) ConfirmedEmailInUse(ctx context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.ConfirmedEmail != "" && strings.EqualFold(u.ConfirmedEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *User) error {
	fold := FoldName(user.Name)
	for _, u := range r.users {
		if FoldName(u.Name) == fold {
			return shared.NewError(shared.KindDuplicateName, "User with this name is already registered")
		}
	}
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users = append(r.users, &copied)
	return nil
}

type spyMailer struct {
	sent []string
}

func (m *spyMailer) SendAccountConfirmation(ctx context.Context, to, userName, token string) error {
	m.sent = append(m.sent, to)
	return nil
}

type passTransactor struct{}

func (passTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type registerFixture struct {
	repo   *memoryUserRepo
	mailer *spyMailer
	runner *api.Runner
	job    *RegisterJob
	logBuf *bytes.Buffer
}

type fixtureOpts struct {
	privileges map[string]string
	cfg        RegisterConfig
}

func defaultOpts() fixtureOpts {
	return fixtureOpts{
		privileges: map[string]string{
			"users:register":           "anonymous",
			"users:change-access-rank": "nobody",
		},
		cfg: RegisterConfig{PassMinLength: 5},
	}
}

func newRegisterFixture(t *testing.T, opts fixtureOpts) *registerFixture {
	t.Helper()
	resolver, err := access.NewResolver(opts.privileges)
	require.NoError(t, err)
	repo := newMemoryUserRepo()
	mailer := &spyMailer{}
	logBuf := &bytes.Buffer{}
	runner := api.NewRunner(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver,
		passTransactor{},
		audit.NewLogger(audit.NewLineSink(logBuf)),
	)
	return &registerFixture{
		repo:   repo,
		mailer: mailer,
		runner: runner,
		job:    NewRegisterJob(repo, mailer, resolver, opts.cfg),
		logBuf: logBuf,
	}
}

func (f *registerFixture) register(t *testing.T, args map[string]string) (*User, error) {
	t.Helper()
	result, err := f.runner.Run(context.Background(), f.job, api.NewArgumentSet(args), auth.AnonymousContext())
	if err != nil {
		return nil, err
	}
	user, ok := result.(*User)
	require.True(t, ok)
	return user, nil
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	user1, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
	})
	require.NoError(t, err)
	assert.Equal(t, "dummy", user1.Name)
	assert.Equal(t, access.Admin, user1.Rank)
	assert.NotEmpty(t, user1.PasswordHash)

	user2, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy2",
		api.ArgPassword: "sekai",
	})
	require.NoError(t, err)
	assert.Equal(t, access.Registered, user2.Rank)
}

func TestRegisterMissingArguments(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	_, err := f.register(t, map[string]string{api.ArgUserName: "dummy"})
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	var typed *shared.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, []string{api.ArgPassword}, typed.MissingArgs)
}

func TestRegisterTooShortPassword(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	_, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "seka",
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindPolicy, shared.KindOf(err))
	assert.Contains(t, err.Error(), "Password must have at least")
	assert.Empty(t, f.repo.users)
}

func TestRegisterSkipsMailingUponFailure(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	f := newRegisterFixture(t, opts)

	_, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "seka",
		api.ArgEmail:    "godzilla@whitestar.gov",
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindPolicy, shared.KindOf(err))
	assert.Empty(t, f.mailer.sent)
	assert.Zero(t, f.logBuf.Len())
}

func TestRegisterVeryLongPassword(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	password := strings.Repeat("s", 10000)
	user, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: password,
	})
	require.NoError(t, err)
	assert.Less(t, len(user.PasswordHash), 100)

	assert.True(t, auth.VerifyPassword(user.PasswordHash, password))
	assert.False(t, auth.VerifyPassword(user.PasswordHash, password+"!"))
}

func TestRegisterDuplicateNames(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	_, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
	})
	require.NoError(t, err)

	for _, name := range []string{"dummy", "DUMMY", "Dummy"} {
		_, err = f.register(t, map[string]string{
			api.ArgUserName: name,
			api.ArgPassword: "sekai",
		})
		require.Error(t, err, "name %q", name)
		assert.Equal(t, shared.KindDuplicateName, shared.KindOf(err))
		assert.Contains(t, err.Error(), "User with this name is already registered")
	}
	assert.Len(t, f.repo.users, 1)
}

func TestRegisterAccessRankDenial(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	_, err := f.register(t, map[string]string{
		api.ArgUserName:   "dummy",
		api.ArgPassword:   "sekai",
		api.ArgAccessRank: "power-user",
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindInsufficientPrivilege, shared.KindOf(err))
	assert.Contains(t, err.Error(), "Insufficient privileges")
	assert.Empty(t, f.repo.users)
}

func TestRegisterElevatedRankWithPrivilege(t *testing.T) {
	opts := defaultOpts()
	opts.privileges["users:change-access-rank"] = "anonymous"
	f := newRegisterFixture(t, opts)

	// first user is forced admin regardless of the request
	user1, err := f.register(t, map[string]string{
		api.ArgUserName:   "dummy",
		api.ArgPassword:   "sekai",
		api.ArgAccessRank: "power-user",
	})
	require.NoError(t, err)
	assert.Equal(t, access.Admin, user1.Rank)

	user2, err := f.register(t, map[string]string{
		api.ArgUserName:   "dummy2",
		api.ArgPassword:   "sekai",
		api.ArgAccessRank: "power-user",
	})
	require.NoError(t, err)
	assert.Equal(t, access.PowerUser, user2.Rank)
}

func TestRegisterUnknownAccessRank(t *testing.T) {
	opts := defaultOpts()
	opts.privileges["users:change-access-rank"] = "anonymous"
	f := newRegisterFixture(t, opts)

	_, err := f.register(t, map[string]string{
		api.ArgUserName:   "dummy",
		api.ArgPassword:   "sekai",
		api.ArgAccessRank: "emperor",
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func registerTwoWithEmails(t *testing.T, f *registerFixture) (*User, *User) {
	t.Helper()
	user1, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "godzilla@whitestar.gov",
	})
	require.NoError(t, err)
	user2, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy2",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "godzilla2@whitestar.gov",
	})
	require.NoError(t, err)
	return user1, user2
}

func TestRegisterEmailsMixedConfirmation(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "admin"
	f := newRegisterFixture(t, opts)

	user1, user2 := registerTwoWithEmails(t, f)

	// first user is admin and skips confirmation
	assert.Equal(t, "godzilla@whitestar.gov", user1.ConfirmedEmail)
	assert.Empty(t, user1.UnconfirmedEmail)

	// second user has to confirm manually
	assert.Equal(t, "godzilla2@whitestar.gov", user2.UnconfirmedEmail)
	assert.Empty(t, user2.ConfirmedEmail)
	assert.NotEmpty(t, user2.EmailToken)

	assert.Equal(t, []string{"godzilla2@whitestar.gov"}, f.mailer.sent)
}

func TestRegisterEmailsEveryoneMustConfirm(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "nobody"
	f := newRegisterFixture(t, opts)

	user1, user2 := registerTwoWithEmails(t, f)

	assert.Equal(t, "godzilla@whitestar.gov", user1.UnconfirmedEmail)
	assert.Empty(t, user1.ConfirmedEmail)
	assert.Equal(t, "godzilla2@whitestar.gov", user2.UnconfirmedEmail)
	assert.Empty(t, user2.ConfirmedEmail)

	assert.Len(t, f.mailer.sent, 2)
}

func TestRegisterEmailsEveryoneSkipsConfirm(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "anonymous"
	f := newRegisterFixture(t, opts)

	user1, user2 := registerTwoWithEmails(t, f)

	assert.Equal(t, "godzilla@whitestar.gov", user1.ConfirmedEmail)
	assert.Empty(t, user1.UnconfirmedEmail)
	assert.Equal(t, "godzilla2@whitestar.gov", user2.ConfirmedEmail)
	assert.Empty(t, user2.UnconfirmedEmail)

	assert.Empty(t, f.mailer.sent)
}

func TestRegisterTwoUsersSameUnconfirmedEmail(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "nobody"
	f := newRegisterFixture(t, opts)

	_, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "godzilla@whitestar.gov",
	})
	require.NoError(t, err)

	// unconfirmed duplicates are allowed
	_, err = f.register(t, map[string]string{
		api.ArgUserName: "dummy2",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "godzilla@whitestar.gov",
	})
	assert.NoError(t, err)
}

func TestRegisterDuplicateConfirmedEmail(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "anonymous"
	f := newRegisterFixture(t, opts)

	_, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "godzilla@whitestar.gov",
	})
	require.NoError(t, err)

	_, err = f.register(t, map[string]string{
		api.ArgUserName: "dummy2",
		api.ArgPassword: "sekai",
		api.ArgEmail:    "Godzilla@whitestar.gov",
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindDuplicateEmail, shared.KindOf(err))
	assert.Contains(t, err.Error(), "User with this e-mail is already registered")
}

func TestRegisterNoEmailLeavesBothFieldsEmpty(t *testing.T) {
	opts := defaultOpts()
	opts.cfg.NeedEmailForRegistering = true
	opts.privileges["users:edit-email-no-confirm"] = "nobody"
	f := newRegisterFixture(t, opts)

	user, err := f.register(t, map[string]string{
		api.ArgUserName: "dummy",
		api.ArgPassword: "sekai",
	})
	require.NoError(t, err)
	assert.Empty(t, user.ConfirmedEmail)
	assert.Empty(t, user.UnconfirmedEmail)
	assert.Empty(t, f.mailer.sent)
}

func TestRegisterLogBuffering(t *testing.T) {
	f := newRegisterFixture(t, defaultOpts())

	for _, name := range []string{"dummy", "dummy2"} {
		_, err := f.register(t, map[string]string{
			api.ArgUserName: name,
			api.ArgPassword: "sekai",
		})
		require.NoError(t, err)
	}

	lines := strings.Split(strings.TrimRight(f.logBuf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "anonymous registered dummy")
	assert.Contains(t, lines[1], "anonymous registered dummy2")
}
