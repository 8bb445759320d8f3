package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/sqlite"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
)

func init() {
	helpers.BcryptCost = bcrypt.MinCost
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type recordingNotifier struct {
	users []string
	err   error
}

func (n *recordingNotifier) UserSignedUp(_ context.Context, u *entity.User) error {
	n.users = append(n.users, u.Username)
	return n.err
}

// failingTokens refuses to issue tokens.
type failingTokens struct {
	repository.TokenRepository
}

func (failingTokens) GetOrCreate(context.Context, int64, string) (*entity.AuthToken, error) {
	return nil, errors.New("token store down")
}

func newAuth(store *sqlite.Store, notifier SignupNotifier) *AuthService {
	return NewAuthService(store.Users(), store.Tokens(), nil, 0, notifier, helpers.NewDiscardLogger())
}

func signup(t *testing.T, s *AuthService, username string) *AuthResult {
	t.Helper()
	res, err := s.Signup(context.Background(), SignupInput{
		Username:        username,
		Email:           username + "@x.com",
		Password:        "pw12345",
		ConfirmPassword: "pw12345",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return res
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return ve.Message
}

func TestSignupIssuesTokenAndNotifies(t *testing.T) {
	store := openStore(t)
	n := &recordingNotifier{}
	s := newAuth(store, n)

	res := signup(t, s, "alice")
	if len(res.Token) != 40 {
		t.Fatalf("token = %q, want 40 hex chars", res.Token)
	}
	if res.User.ID == 0 || res.User.Username != "alice" || !res.User.IsActive {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if len(n.users) != 1 || n.users[0] != "alice" {
		t.Fatalf("notified = %v", n.users)
	}
}

func TestSignupNotifierFailureIsIgnored(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, &recordingNotifier{err: errors.New("queue down")})
	signup(t, s, "alice")
}

func TestSignupValidationOrder(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	signup(t, s, "alice")
	ctx := context.Background()

	cases := []struct {
		name string
		in   SignupInput
		want string
	}{
		{"blank username", SignupInput{Username: "  ", Email: "a@x.com", Password: "p", ConfirmPassword: "q"}, "Username, email, and password are required"},
		{"missing password", SignupInput{Username: "bob", Email: "b@x.com"}, "Username, email, and password are required"},
		{"mismatch", SignupInput{Username: "dave", Email: "b@x.com", Password: "p", ConfirmPassword: "q"}, "Passwords do not match"},
		{"taken username", SignupInput{Username: "alice", Email: "alice@x.com", Password: "p", ConfirmPassword: "p"}, "Username already exists"},
		{"taken email", SignupInput{Username: "bob", Email: "alice@x.com", Password: "p", ConfirmPassword: "p"}, "Email already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Signup(ctx, tc.in)
			if got := validationMessage(t, err); got != tc.want {
				t.Fatalf("message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSignupMismatchCreatesNoUser(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	ctx := context.Background()

	_, err := s.Signup(ctx, SignupInput{Username: "carol", Email: "carol@x.com", Password: "p", ConfirmPassword: "q"})
	if got := validationMessage(t, err); got != "Passwords do not match" {
		t.Fatalf("message = %q", got)
	}
	for name, exists := range map[string]func(context.Context, string) (bool, error){
		"carol":       store.Users().ExistsByUsername,
		"carol@x.com": store.Users().ExistsByEmail,
	} {
		ok, err := exists(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatalf("%s was stored by a rejected signup", name)
		}
	}
}

func TestSignupTakenUsernameCreatesNoUserOrToken(t *testing.T) {
	store := openStore(t)
	n := &recordingNotifier{}
	s := newAuth(store, n)
	ctx := context.Background()
	first := signup(t, s, "alice")

	_, err := s.Signup(ctx, SignupInput{Username: "alice", Email: "other@x.com", Password: "p", ConfirmPassword: "p"})
	if got := validationMessage(t, err); got != "Username already exists" {
		t.Fatalf("message = %q", got)
	}
	if ok, err := store.Users().ExistsByEmail(ctx, "other@x.com"); err != nil || ok {
		t.Fatalf("rejected signup stored its email: ok=%v err=%v", ok, err)
	}
	tok, err := store.Tokens().GetOrCreate(ctx, first.User.ID, "ffffffffffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatal(err)
	}
	if tok.Key != first.Token {
		t.Fatalf("token = %s, want the original %s", tok.Key, first.Token)
	}
	if len(n.users) != 1 {
		t.Fatalf("notified %v, want only the first signup", n.users)
	}
}

func TestSignupRollsBackUserWhenTokenFails(t *testing.T) {
	store := openStore(t)
	s := NewAuthService(store.Users(), failingTokens{store.Tokens()}, nil, 0, nil, helpers.NewDiscardLogger())

	_, err := s.Signup(context.Background(), SignupInput{Username: "alice", Email: "a@x.com", Password: "p", ConfirmPassword: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("unexpected validation error: %v", err)
	}
	exists, err := store.Users().ExistsByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("user row survived a failed signup")
	}
}

func TestLoginReturnsSameTokenUntilLogout(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	ctx := context.Background()
	first := signup(t, s, "alice")

	again, err := s.Login(ctx, "alice", "pw12345")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if again.Token != first.Token {
		t.Fatalf("login token %q != signup token %q", again.Token, first.Token)
	}

	s.Logout(ctx, first.Token)
	if _, err := s.WhoAmI(ctx, first.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("whoami after logout err = %v", err)
	}

	fresh, err := s.Login(ctx, "alice", "pw12345")
	if err != nil {
		t.Fatalf("login after logout: %v", err)
	}
	if fresh.Token == first.Token {
		t.Fatal("expected a new token after logout")
	}
}

func TestLoginFailures(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	ctx := context.Background()
	signup(t, s, "alice")

	if _, err := s.Login(ctx, "", "pw"); validationMessage(t, err) != "Username and password are required" {
		t.Fatalf("blank username err = %v", err)
	}
	if _, err := s.Login(ctx, "alice", ""); validationMessage(t, err) != "Username and password are required" {
		t.Fatalf("blank password err = %v", err)
	}
	if _, err := s.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "pw12345"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestWhoAmI(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	ctx := context.Background()
	res := signup(t, s, "alice")

	u, err := s.WhoAmI(ctx, res.Token)
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if u.ID != res.User.ID || u.Email != "alice@x.com" {
		t.Fatalf("whoami user = %+v", u)
	}
	for _, key := range []string{"", "deadbeef"} {
		if _, err := s.WhoAmI(ctx, key); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("whoami(%q) err = %v", key, err)
		}
	}
}

func TestLogoutUnknownTokenIsNoop(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	s.Logout(context.Background(), "")
	s.Logout(context.Background(), "not-a-token")
}

func TestUserByIDRejectsMissingUser(t *testing.T) {
	store := openStore(t)
	s := newAuth(store, nil)
	if _, err := s.UserByID(context.Background(), 42); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
}

type capturePublisher struct {
	bodies []any
}

func (p *capturePublisher) PublishJSON(_ context.Context, body any) error {
	p.bodies = append(p.bodies, body)
	return nil
}

func TestWelcomeNotifierPublishesTemplateJob(t *testing.T) {
	pub := &capturePublisher{}
	n := NewWelcomeNotifier(pub, "Tasks", "http://localhost:8080/login/")
	if err := n.UserSignedUp(context.Background(), &entity.User{Username: "alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(pub.bodies) != 1 {
		t.Fatalf("published %d jobs", len(pub.bodies))
	}
	job, ok := pub.bodies[0].(mailer.EmailJob)
	if !ok {
		t.Fatalf("body type = %T", pub.bodies[0])
	}
	if job.To != "alice@x.com" || job.Template != mailer.TemplateWelcome {
		t.Fatalf("job = %+v", job)
	}
	if job.Data["Username"] != "alice" || job.Data["AppName"] != "Tasks" {
		t.Fatalf("data = %v", job.Data)
	}
}
