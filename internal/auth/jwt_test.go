package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/discord-relay/internal/apperror"
)

const testSecret = "test-secret-at-least-16-chars!!"

// fakeClock is a settable time source shared between issue and verify.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ts, err := NewTokenService(testSecret, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts, clock
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE
// =========================================================================

func TestIssueAccessToken_LooksLikeJWT(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, err := ts.IssueAccessToken("42")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("token has %d dots, want 2", got)
	}
}

func TestIssueAccessToken_EmptySubject(t *testing.T) {
	ts, _ := newTestTokenService(t)

	if _, err := ts.IssueAccessToken(""); err == nil {
		t.Fatal("IssueAccessToken() should reject an empty subject")
	}
}

func TestIssueAccessToken_Claims(t *testing.T) {
	ts, clock := newTestTokenService(t)

	token, err := ts.IssueAccessToken("42")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}

	if c.Subject != "42" {
		t.Errorf("sub = %q, want %q", c.Subject, "42")
	}
	if !c.IssuedAt.Time.Equal(clock.t) {
		t.Errorf("iat = %v, want %v", c.IssuedAt.Time, clock.t)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != AccessTokenTTL {
		t.Errorf("exp - iat = %v, want %v", got, AccessTokenTTL)
	}
}

func TestIssueAccessToken_DeterministicForSameInstant(t *testing.T) {
	ts, clock := newTestTokenService(t)

	a, _ := ts.IssueAccessToken("42")
	b, _ := ts.IssueAccessToken("42")
	if a != b {
		t.Error("tokens issued at the same instant for the same subject should be identical")
	}

	clock.t = clock.t.Add(time.Second)
	c, _ := ts.IssueAccessToken("42")
	if a == c {
		t.Error("tokens issued at different instants should differ")
	}
}

// =========================================================================
// VALIDATE
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts, _ := newTestTokenService(t)

	for _, subject := range []string{"42", "80351110224678912", "user with spaces", "ü"} {
		token, err := ts.IssueAccessToken(subject)
		if err != nil {
			t.Fatalf("IssueAccessToken(%q) error = %v", subject, err)
		}
		got, err := ts.Validate(token)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if got != subject {
			t.Errorf("Validate() subject = %q, want %q", got, subject)
		}
	}
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	ts, clock := newTestTokenService(t)
	issuedAt := clock.t

	token, err := ts.IssueAccessToken("42")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	clock.t = issuedAt.Add(AccessTokenTTL - time.Second)
	if _, err := ts.Validate(token); err != nil {
		t.Fatalf("Validate() one second before expiry error = %v", err)
	}

	clock.t = issuedAt.Add(AccessTokenTTL)
	_, err = ts.Validate(token)
	if !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() at expiry error = %v, want ErrInvalidToken", err)
	}

	clock.t = issuedAt.Add(AccessTokenTTL + time.Hour)
	if _, err := ts.Validate(token); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() after expiry error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, _ := ts.IssueAccessToken("42")
	tampered := token[:len(token)-3] + "xxx"

	if _, err := ts.Validate(tampered); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.IssueAccessToken("42")

	if _, err := ts2.Validate(token); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_RejectsUnsignedToken(t *testing.T) {
	ts, clock := newTestTokenService(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := ts.Validate(raw); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_RequiresExpiry(t *testing.T) {
	ts, _ := newTestTokenService(t)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "42"})
	raw, _ := noExp.SignedString([]byte(testSecret))

	if _, err := ts.Validate(raw); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts, _ := newTestTokenService(t)

	for _, in := range []string{"", "not.a.jwt.token", "abc"} {
		if _, err := ts.Validate(in); !errors.Is(err, apperror.ErrInvalidToken) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidToken", in, err)
		}
	}
}
