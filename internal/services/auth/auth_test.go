// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/models"
	"codeberg.org/oliverandrich/portfolio-admin/internal/repository"
	"codeberg.org/oliverandrich/portfolio-admin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc   *Service
	repo  *repository.Repository
	mail  *testutil.MailRecorder
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	mail := &testutil.MailRecorder{}
	cfg := &config.AuthConfig{OTPTTL: time.Hour}

	f := &fixture{
		repo:  repo,
		mail:  mail,
		clock: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(repo, mail, cfg)
	f.svc.hashCost = bcrypt.MinCost
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) stored(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.repo.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return user
}

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, message, apiErr.Message)
}

func TestSignup_NewUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	stored := f.stored(t, "a@x.com")
	assert.False(t, stored.IsVerified)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	require.True(t, stored.HasPendingCode())
	assert.Len(t, *stored.VerifyCode, 6)
	assert.True(t, stored.VerifyCodeExpiry.Equal(f.clock.Add(time.Hour)))

	sent := f.mail.Last(t)
	assert.Equal(t, "a@x.com", sent.To)
	assert.Equal(t, "User", sent.DisplayName)
	assert.Equal(t, *stored.VerifyCode, sent.Code)
}

func TestSignup_NormalizesEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupParams{Email: "  A@X.com ", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", f.stored(t, "a@x.com").Email)
}

func TestSignup_VerifiedUserConflict(t *testing.T) {
	f := newFixture(t)
	existing := testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)

	_, err := f.svc.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: "another1"})

	requireAPIError(t, err, http.StatusConflict, MsgUserExists)
	stored := f.stored(t, "a@x.com")
	assert.Equal(t, existing.PasswordHash, stored.PasswordHash)
	assert.False(t, stored.HasPendingCode())
	assert.Empty(t, f.mail.Sent())
}

func TestSignup_UnverifiedUserResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	first := f.stored(t, "a@x.com")

	f.advance(10 * time.Minute)
	_, err = f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "different2"})
	require.NoError(t, err)

	second := f.stored(t, "a@x.com")
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.IsVerified)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(second.PasswordHash), []byte("different2")))
	assert.True(t, second.VerifyCodeExpiry.After(*first.VerifyCodeExpiry))
	assert.Len(t, f.mail.Sent(), 2)
}

func TestSignup_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		message  string
	}{
		{"bad email", "not-an-email", "secret1", MsgInvalidEmail},
		{"display name email", "Bob <bob@x.com>", "secret1", MsgInvalidEmail},
		{"short password", "a@x.com", "abc", MsgInvalidPassword},
		{"numeric password", "a@x.com", "48291734", MsgInvalidPassword},
		{"common password", "a@x.com", "password1", MsgInvalidPassword},
		{"password like email", "jonathan@x.com", "jonathan1", MsgInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Signup(context.Background(), SignupParams{Email: tt.email, Password: tt.password})

			requireAPIError(t, err, http.StatusBadRequest, tt.message)
			assert.Empty(t, f.mail.Sent())
		})
	}
}

func TestSignup_DeliveryFailureKeepsCode(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = errors.New("smtp unavailable")

	_, err := f.svc.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: "secret1"})

	requireAPIError(t, err, http.StatusInternalServerError, MsgDeliveryFailed)
	assert.ErrorIs(t, err, f.mail.Err)
	stored := f.stored(t, "a@x.com")
	assert.True(t, stored.HasPendingCode())
	assert.False(t, stored.IsVerified)
}

func TestVerify_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.mail.Last(t).Code

	user, err := f.svc.Verify(ctx, "a@x.com", " "+code+" ")

	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	stored := f.stored(t, "a@x.com")
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerifyCode)
	assert.Nil(t, stored.VerifyCodeExpiry)
}

func TestVerify_CodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.mail.Last(t).Code
	_, err = f.svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "a@x.com", code)

	requireAPIError(t, err, http.StatusBadRequest, MsgAlreadyVerified)
}

func TestVerify_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Verify(context.Background(), "nobody@x.com", "123456")

	requireAPIError(t, err, http.StatusNotFound, MsgUserNotFound)
}

func TestVerify_WrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.mail.Last(t).Code
	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}

	_, err = f.svc.Verify(ctx, "a@x.com", wrong)

	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidCode)
	stored := f.stored(t, "a@x.com")
	assert.False(t, stored.IsVerified)
	assert.Equal(t, code, *stored.VerifyCode)
}

func TestVerify_MalformedCode(t *testing.T) {
	for _, submitted := range []string{"12345", "1234567", "12a456", "099999", ""} {
		t.Run(submitted, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
			require.NoError(t, err)

			_, err = f.svc.Verify(ctx, "a@x.com", submitted)

			requireAPIError(t, err, http.StatusBadRequest, MsgInvalidCode)
			assert.False(t, f.stored(t, "a@x.com").IsVerified)
		})
	}
}

func TestVerify_TrimsSubmittedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.mail.Last(t).Code

	_, err = f.svc.Verify(ctx, "a@x.com", " "+code+"\n")

	require.NoError(t, err)
	assert.True(t, f.stored(t, "a@x.com").IsVerified)
}

func TestVerify_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		expired bool
	}{
		{"just before expiry", time.Hour - time.Second, false},
		{"exactly at expiry", time.Hour, true},
		{"after expiry", 2 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
			require.NoError(t, err)
			code := f.mail.Last(t).Code

			f.advance(tt.elapsed)
			_, err = f.svc.Verify(ctx, "a@x.com", code)

			if tt.expired {
				requireAPIError(t, err, http.StatusBadRequest, MsgCodeExpired)
				assert.False(t, f.stored(t, "a@x.com").IsVerified)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVerify_NoPendingCode(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", false)
	user.ClearVerifyCode()
	require.NoError(t, f.repo.SaveUser(context.Background(), user))

	_, err := f.svc.Verify(context.Background(), "a@x.com", "123456")

	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidCode)
}

func TestForgetPassword(t *testing.T) {
	for _, verified := range []bool{true, false} {
		f := newFixture(t)
		testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", verified)

		_, err := f.svc.ForgetPassword(context.Background(), "A@x.com")

		require.NoError(t, err)
		stored := f.stored(t, "a@x.com")
		require.True(t, stored.HasPendingCode())
		assert.Equal(t, verified, stored.IsVerified)
		sent := f.mail.Last(t)
		assert.Equal(t, "Admin", sent.DisplayName)
		assert.Equal(t, *stored.VerifyCode, sent.Code)
	}
}

func TestForgetPassword_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ForgetPassword(context.Background(), "nobody@x.com")

	requireAPIError(t, err, http.StatusNotFound, MsgUserNotFound)
	assert.Empty(t, f.mail.Sent())
}

func TestForgetPassword_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)
	f.mail.Err = errors.New("mailbox unavailable")

	_, err := f.svc.ForgetPassword(context.Background(), "a@x.com")

	requireAPIError(t, err, http.StatusBadRequest, MsgDeliveryFailed)
	assert.True(t, f.stored(t, "a@x.com").HasPendingCode())
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)
	_, err := f.svc.ForgetPassword(ctx, "a@x.com")
	require.NoError(t, err)
	code := f.mail.Last(t).Code

	_, err = f.svc.ResetPassword(ctx, ResetPasswordParams{Email: "a@x.com", Code: code, Password: "brandnew7"})

	require.NoError(t, err)
	stored := f.stored(t, "a@x.com")
	assert.True(t, stored.IsVerified)
	assert.False(t, stored.HasPendingCode())

	_, err = f.svc.Login(ctx, "a@x.com", "secret1")
	requireAPIError(t, err, http.StatusUnauthorized, MsgWrongPassword)
	_, err = f.svc.Login(ctx, "a@x.com", "brandnew7")
	require.NoError(t, err)
}

func TestResetPassword_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)

	_, err := f.svc.ResetPassword(ctx, ResetPasswordParams{Email: "nobody@x.com", Code: "123456", Password: "brandnew7"})
	requireAPIError(t, err, http.StatusNotFound, MsgUserNotFound)

	_, err = f.svc.ResetPassword(ctx, ResetPasswordParams{Email: "a@x.com", Code: "123456", Password: "brandnew7"})
	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidCode)

	_, err = f.svc.ForgetPassword(ctx, "a@x.com")
	require.NoError(t, err)
	code := f.mail.Last(t).Code

	_, err = f.svc.ResetPassword(ctx, ResetPasswordParams{Email: "a@x.com", Code: code, Password: "123"})
	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidPassword)

	f.advance(time.Hour)
	_, err = f.svc.ResetPassword(ctx, ResetPasswordParams{Email: "a@x.com", Code: code, Password: "brandnew7"})
	requireAPIError(t, err, http.StatusBadRequest, MsgResetExpired)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	created := testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", false)
	before := f.stored(t, "a@x.com")

	user, err := f.svc.Login(context.Background(), "A@X.COM", "secret1")

	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	after := f.stored(t, "a@x.com")
	assert.Equal(t, before, after)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "nobody@x.com", "secret1")

	requireAPIError(t, err, http.StatusNotFound, MsgUserNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)

	_, err := f.svc.Login(context.Background(), "a@x.com", "wrong-one")

	requireAPIError(t, err, http.StatusUnauthorized, MsgWrongPassword)
}

func TestLogin_RequireVerified(t *testing.T) {
	f := newFixture(t)
	f.svc.config.RequireVerified = true
	testutil.NewTestUser(t, f.repo, "pending@x.com", "secret1", false)
	testutil.NewTestUser(t, f.repo, "done@x.com", "secret1", true)

	_, err := f.svc.Login(context.Background(), "pending@x.com", "secret1")
	requireAPIError(t, err, http.StatusUnauthorized, MsgNotVerified)

	_, err = f.svc.Login(context.Background(), "done@x.com", "secret1")
	require.NoError(t, err)
}

func TestUser(t *testing.T) {
	f := newFixture(t)
	created := testutil.NewTestUser(t, f.repo, "a@x.com", "secret1", true)

	user, err := f.svc.User(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = f.svc.User(context.Background(), "missing")
	requireAPIError(t, err, http.StatusNotFound, MsgUserNotFound)
}

func TestScenario_SignupVerifyLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := f.mail.Last(t).Code

	_, err = f.svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, SignupParams{Email: "a@x.com", Password: "secret1"})
	requireAPIError(t, err, http.StatusConflict, MsgUserExists)

	user, err := f.svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}

func TestCreateAdmin_NewAccount(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.CreateAdmin(context.Background(), " Owner@Example.com ", "portfolio-2025")

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	stored := f.stored(t, "owner@example.com")
	assert.Equal(t, models.RoleAdmin, stored.Role)
	assert.True(t, stored.IsVerified)
	assert.False(t, stored.HasPendingCode())
	assert.Empty(t, f.mail.Sent())

	_, err = f.svc.Login(context.Background(), "owner@example.com", "portfolio-2025")
	assert.NoError(t, err)
}

func TestCreateAdmin_PromotesExisting(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	before := f.stored(t, "a@x.com")

	user, err := f.svc.CreateAdmin(context.Background(), "a@x.com", "portfolio-2025")

	require.NoError(t, err)
	assert.Equal(t, before.ID, user.ID)
	stored := f.stored(t, "a@x.com")
	assert.Equal(t, models.RoleAdmin, stored.Role)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerifyCode)
	assert.Nil(t, stored.VerifyCodeExpiry)
	assert.NotEqual(t, before.PasswordHash, stored.PasswordHash)
}

func TestCreateAdmin_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAdmin(context.Background(), "not-an-email", "portfolio-2025")
	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidEmail)

	_, err = f.svc.CreateAdmin(context.Background(), "a@x.com", "123")
	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidPassword)
}

func TestCanonicalEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"a@x.com", "a@x.com", true},
		{"  Bob@X.com ", "bob@x.com", true},
		{"Bob <bob@x.com>", "bob <bob@x.com>", false},
		{"<bob@x.com>", "<bob@x.com>", false},
		{"not-an-email", "not-an-email", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			addr, ok := CanonicalEmail(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, addr)
		})
	}
}

func TestSignup_DisplayNameDoesNotCreateSecondAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupParams{Email: "Bob <bob@x.com>", Password: "secret1"})
	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidEmail)

	_, err = f.repo.GetUserByEmail(context.Background(), "bob <bob@x.com>")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.Signup(context.Background(), SignupParams{Email: "bob@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", f.stored(t, "bob@x.com").Email)
}

func TestCreateAdmin_RejectsDisplayName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAdmin(context.Background(), "Owner <owner@example.com>", "portfolio-2025")

	requireAPIError(t, err, http.StatusBadRequest, MsgInvalidEmail)
}
