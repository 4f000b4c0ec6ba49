package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/limiter"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/repository"
	"github.com/hugo-r/server-challenge/internal/repository/memory"
	"github.com/hugo-r/server-challenge/internal/session"
)

type fakeUsers struct {
	users  []model.User
	getErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.ID == id {
			c := u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByCredentials(_ context.Context, name, secret string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Name == name && u.Secret == secret {
			c := u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newAuth(users repository.UserRepository, lim limiter.Limiter) *AuthServiceImpl {
	return NewAuthService(users, session.NewCodec(testKey, time.Hour), lim)
}

func TestAuth_LoginWithIP_MissingFields(t *testing.T) {
	t.Parallel()
	lim := &fakeLimiter{allowOK: true}
	s := newAuth(memory.NewUserRepo(memory.DemoUsers), lim)

	for _, c := range [][2]string{{"", ""}, {"bia", ""}, {"", "b"}} {
		if _, _, err := s.LoginWithIP(context.Background(), c[0], c[1], "1.2.3.4"); !errors.Is(err, errs.ErrMissingFields) {
			t.Fatalf("%q/%q: want ErrMissingFields, got %v", c[0], c[1], err)
		}
	}
	if lim.allowCalls != 0 || lim.failureCalls != 0 {
		t.Fatalf("missing fields must not touch the limiter")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: []model.User{{ID: 1, Name: "bia", Secret: "b"}}}
	lim := &fakeLimiter{allowOK: true}
	s := newAuth(users, lim)
	ctx := context.Background()

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(ctx, "bia", "b", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(ctx, "bia", "b", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(ctx, "bia", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	lim.failBlocked = false
	if _, _, err := s.LoginWithIP(ctx, "bia", "wrong", ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials on wrong password, got %v", err)
	}
	if _, _, err := s.LoginWithIP(ctx, "nobody", "b", ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials on unknown user, got %v", err)
	}

	tok, u, err := s.LoginWithIP(ctx, "bia", "b", "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.Value == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if u.ID != 1 || u.Name != "bia" {
		t.Fatalf("bad user returned: %+v", u)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}
}

func TestAuth_LoginWithIP_StoreErrorIsInternal(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	lim := &fakeLimiter{allowOK: true}
	s := newAuth(&fakeUsers{getErr: boom}, lim)

	_, _, err := s.LoginWithIP(context.Background(), "bia", "b", "")
	if !errors.Is(err, boom) || errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
	if lim.failureCalls != 0 {
		t.Fatalf("store failure must not count as a failed login")
	}
}

func TestAuth_LoginWithIP_RealLimiterLocksOut(t *testing.T) {
	t.Parallel()

	lim := limiter.NewMemory(newLimiterStore(t), time.Minute, 2, time.Minute)
	s := newAuth(memory.NewUserRepo(memory.DemoUsers), lim)
	ctx := context.Background()

	if _, _, err := s.LoginWithIP(ctx, "bia", "x", "10.0.0.1"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("first failure: %v", err)
	}
	if _, _, err := s.LoginWithIP(ctx, "bia", "x", "10.0.0.1"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("second failure must lock out, got %v", err)
	}
	if _, _, err := s.LoginWithIP(ctx, "bia", "b", "10.0.0.1"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("correct password during lockout: want ErrRateLimited, got %v", err)
	}
	if _, _, err := s.LoginWithIP(ctx, "bia", "b", "10.0.0.2"); err != nil {
		t.Fatalf("other ip must log in: %v", err)
	}
}

func TestAuth_ValidateSession(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: []model.User{{ID: 2, Name: "hugo", Secret: "h"}}}
	s := newAuth(users, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	tok, _, err := s.LoginWithIP(ctx, "hugo", "h", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	u, err := s.ValidateSession(ctx, tok.Value)
	if err != nil || u.ID != 2 || u.Name != "hugo" {
		t.Fatalf("ValidateSession: %+v %v", u, err)
	}

	if _, err := s.ValidateSession(ctx, tok.Value+"x"); !errors.Is(err, errs.ErrInvalidSession) {
		t.Fatalf("tampered: want ErrInvalidSession, got %v", err)
	}
	if _, err := s.ValidateSession(ctx, ""); !errors.Is(err, errs.ErrInvalidSession) {
		t.Fatalf("empty: want ErrInvalidSession, got %v", err)
	}

	stale, err := session.NewCodec(testKey, time.Hour).Encode(99)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := s.ValidateSession(ctx, stale.Value); !errors.Is(err, errs.ErrInvalidSession) {
		t.Fatalf("unknown user: want ErrInvalidSession, got %v", err)
	}

	users.getErr = errors.New("db down")
	if _, err := s.ValidateSession(ctx, tok.Value); err == nil || errors.Is(err, errs.ErrInvalidSession) {
		t.Fatalf("store error must surface as internal, got %v", err)
	}
}
