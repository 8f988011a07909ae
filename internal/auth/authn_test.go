package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jx-dohwan/devlog/internal/user"
)

// fakeDirectory is an in-memory UserDirectory recording write activity.
type fakeDirectory struct {
	byEmail map[string]*user.User
	created int
	nextID  int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEmail: make(map[string]*user.User)}
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (*user.User, error) {
	for _, u := range d.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) Create(_ context.Context, u *user.User) error {
	if _, ok := d.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	d.nextID++
	u.ID = fmt.Sprintf("user-%03d", d.nextID)
	cp := *u
	d.byEmail[u.Email] = &cp
	d.created++
	return nil
}

// fakeHasher counts calls so tests can assert it was (not) consulted.
type fakeHasher struct {
	hashCalls   int
	verifyCalls int
}

func (h *fakeHasher) Hash(plaintext string) (string, error) {
	h.hashCalls++
	return "digest:" + plaintext, nil
}

func (h *fakeHasher) Verify(plaintext, digest string) bool {
	h.verifyCalls++
	return digest == "digest:"+plaintext
}

type fakeNotifier struct {
	welcomed []string
	err      error
}

func (n *fakeNotifier) SendWelcome(_ context.Context, email, _ string) error {
	n.welcomed = append(n.welcomed, email)
	return n.err
}

func newTestAuthService(t *testing.T, clock *time.Time) (*Service, *fakeDirectory, *fakeHasher, *fakeNotifier) {
	t.Helper()
	dir := newFakeDirectory()
	hasher := &fakeHasher{}
	notifier := &fakeNotifier{}
	store := NewMemorySessionStore().WithNow(func() time.Time { return *clock })
	tokens, err := NewTokenService(store, "test-secret", "devlog",
		WithClock(func() time.Time { return *clock }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(dir, hasher, tokens, notifier)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, dir, hasher, notifier
}

func TestSignUpCreatesAccountAndWelcomes(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, dir, hasher, notifier := newTestAuthService(t, &clock)
	ctx := context.Background()

	err := svc.SignUp(ctx, SignUpInput{Email: "A@X.com", Password: "password123", Nickname: " ann "})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if dir.created != 1 || hasher.hashCalls != 1 {
		t.Fatalf("expected one create and one hash, got %d/%d", dir.created, hasher.hashCalls)
	}

	u := dir.byEmail["a@x.com"]
	if u == nil {
		t.Fatal("email must be stored lowercased")
	}
	if u.PasswordHash != "digest:password123" {
		t.Fatalf("unexpected stored digest: %s", u.PasswordHash)
	}
	if u.Nickname != "ann" {
		t.Fatalf("nickname must be trimmed, got %q", u.Nickname)
	}
	if u.Role != user.RoleUser {
		t.Fatalf("new accounts default to the user role, got %s", u.Role)
	}
	if len(notifier.welcomed) != 1 || notifier.welcomed[0] != "a@x.com" {
		t.Fatalf("expected a welcome notification, got %v", notifier.welcomed)
	}
}

func TestSignUpConflictDoesNoWork(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, dir, hasher, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	if err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "password123", Nickname: "ann"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	hashesBefore, createdBefore := hasher.hashCalls, dir.created

	err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "different456", Nickname: "bob"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// The conflict is detected before any hashing or persistence happens.
	if hasher.hashCalls != hashesBefore {
		t.Fatal("conflicting sign-up must not hash the password")
	}
	if dir.created != createdBefore {
		t.Fatal("conflicting sign-up must not create an account")
	}
}

func TestSignUpMapsStorageRaceToConflict(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, dir, _, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	// Simulate losing the lookup/insert race: the directory reports the
	// email free but the insert hits the unique constraint.
	dirWithRace := &racingDirectory{fakeDirectory: dir}
	svcRace, err := NewService(dirWithRace, &fakeHasher{}, svc.tokens, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	err = svcRace.SignUp(ctx, SignUpInput{Email: "fresh@x.com", Password: "password123", Nickname: "ann"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict from raced insert, got %v", err)
	}
}

// racingDirectory reports every email as free but rejects every insert,
// mimicking a concurrent registration between lookup and insert.
type racingDirectory struct {
	*fakeDirectory
}

func (d *racingDirectory) FindByEmail(context.Context, string) (*user.User, error) {
	return nil, nil
}

func (d *racingDirectory) Create(context.Context, *user.User) error {
	return user.ErrEmailTaken
}

func TestValidateUserUnknownEmailSkipsHasher(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, hasher, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	u, err := svc.ValidateUser(ctx, "ghost@x.com", "whatever1")
	if err != nil {
		t.Fatalf("ValidateUser: %v", err)
	}
	if u != nil {
		t.Fatal("unknown email must resolve to no user")
	}
	if hasher.verifyCalls != 0 {
		t.Fatal("unknown email must not consult the hasher")
	}
}

func TestValidateUserWrongPassword(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, hasher, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	if err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "password123", Nickname: "ann"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	u, err := svc.ValidateUser(ctx, "a@x.com", "password124")
	if err != nil {
		t.Fatalf("ValidateUser: %v", err)
	}
	if u != nil {
		t.Fatal("wrong password must resolve to no user")
	}
	if hasher.verifyCalls != 1 {
		t.Fatalf("expected one verification, got %d", hasher.verifyCalls)
	}
}

func TestSignInLifecycle(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, dir, _, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	if err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "password123", Nickname: "ann"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	// Wrong credentials yield the same opaque denial as an unknown email.
	if _, err := svc.SignIn(ctx, "a@x.com", "password124"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "ghost@x.com", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown email: expected ErrUnauthorized, got %v", err)
	}

	pair, err := svc.SignIn(ctx, "a@x.com", "password123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	stored := dir.byEmail["a@x.com"]
	principal, err := svc.Tokens().VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if principal.ID != stored.ID || principal.Role != user.RoleUser {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	// Refresh rotation works exactly once per token.
	next, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if _, err := svc.RefreshTokens(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("replayed refresh: expected ErrUnauthorized, got %v", err)
	}
	// Containment swept the successor session too.
	if _, err := svc.RefreshTokens(ctx, next.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("contained refresh: expected ErrUnauthorized, got %v", err)
	}
}

func TestSignOutInvalidatesAccessAndSessions(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, dir, _, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	if err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "password123", Nickname: "ann"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	pair, err := svc.SignIn(ctx, "a@x.com", "password123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	subjectID := dir.byEmail["a@x.com"].ID

	if err := svc.SignOut(ctx, subjectID, pair.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	// The access token dies immediately, not at its natural expiry.
	if _, err := svc.Tokens().VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected blacklisted access token to fail, got %v", err)
	}
	// And no refresh session survives.
	if _, err := svc.RefreshTokens(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked refresh to fail, got %v", err)
	}
}

func TestSignOutRejectsForeignToken(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	if err := svc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "password123", Nickname: "ann"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	pair, err := svc.SignIn(ctx, "a@x.com", "password123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// Presenting someone else's token must not sign them out.
	if err := svc.SignOut(ctx, "other-subject", pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Tokens().VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("token must remain valid after rejected sign-out: %v", err)
	}
}

func TestSignUpValidatesInput(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestAuthService(t, &clock)
	ctx := context.Background()

	cases := []SignUpInput{
		{Email: "", Password: "password123", Nickname: "ann"},
		{Email: "a@x.com", Password: "", Nickname: "ann"},
		{Email: "a@x.com", Password: "password123", Nickname: "   "},
	}
	for _, in := range cases {
		if err := svc.SignUp(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}
