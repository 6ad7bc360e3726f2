package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/socialauth/internal/models"
	apierrors "github.com/Bidon15/socialauth/internal/pkg/errors"
	"github.com/Bidon15/socialauth/internal/repository"
)

const testAvatarBase = "https://avatar.iran.liara.run/public"

func newTestAuthService(users *mockUserRepo, conns *mockConnectionRepo) AuthService {
	return NewAuthService(users, conns, testHasher(), testTokens(), AuthServiceConfig{
		AvatarBaseURL: testAvatarBase,
		Logger:        testLogger(),
	})
}

func janeSignup() SignupRequest {
	return SignupRequest{
		Fullname:        "Jane Doe",
		Username:        "jane",
		Email:           "jane@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Gender:          "female",
	}
}

func TestSignup_Success(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockConnectionRepo())

	res, err := svc.Signup(context.Background(), janeSignup())
	require.NoError(t, err)
	require.NotNil(t, res.User)

	assert.Equal(t, "jane", res.User.Username)
	assert.Equal(t, "", res.User.Bio)
	assert.Equal(t, models.LoginTypeLocal, res.User.LoginType)
	assert.Equal(t, testAvatarBase+"/girl?username=jane", res.User.ProfilePicture)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)

	userID, err := testTokens().Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	b, err := json.Marshal(res.User.PublicView())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), res.User.PasswordHash)

	stored, _ := users.GetByUsername(context.Background(), "jane")
	assert.NotNil(t, stored)
}

func TestSignup_MaleAvatar(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())

	req := janeSignup()
	req.Username = "john doe"
	req.Gender = "male"

	res, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, testAvatarBase+"/boy?username=john+doe", res.User.ProfilePicture)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *SignupRequest)
		wantField string
		wantMsg   string
	}{
		{"missing fullname", func(r *SignupRequest) { r.Fullname = "" }, "fullname", "Please fill in all fields"},
		{"missing username", func(r *SignupRequest) { r.Username = "" }, "username", "Please fill in all fields"},
		{"missing password", func(r *SignupRequest) { r.Password = "" }, "password", "Please fill in all fields"},
		{"missing confirm", func(r *SignupRequest) { r.ConfirmPassword = "" }, "confirmPassword", "Please fill in all fields"},
		{"missing gender", func(r *SignupRequest) { r.Gender = "" }, "gender", "Please fill in all fields"},
		{"mismatch", func(r *SignupRequest) { r.ConfirmPassword = "secret2" }, "confirmPassword", "Password don't match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepo()
			svc := newTestAuthService(users, newMockConnectionRepo())

			req := janeSignup()
			tt.mutate(&req)

			_, err := svc.Signup(context.Background(), req)
			require.Error(t, err)

			apiErr := apierrors.AsAPIError(err)
			assert.Equal(t, apierrors.CodeValidation, apiErr.Code)
			assert.Equal(t, tt.wantField, apiErr.Field)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Empty(t, users.users)
		})
	}
}

func TestSignup_EmailIsOptional(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())

	req := janeSignup()
	req.Email = ""

	_, err := svc.Signup(context.Background(), req)
	assert.NoError(t, err)
}

func TestSignup_DuplicateUsername(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())
	ctx := context.Background()

	_, err := svc.Signup(ctx, janeSignup())
	require.NoError(t, err)

	_, err = svc.Signup(ctx, janeSignup())
	require.Error(t, err)

	apiErr := apierrors.AsAPIError(err)
	assert.Equal(t, apierrors.CodeConflict, apiErr.Code)
	assert.Equal(t, "Username already exists", apiErr.Message)
}

func TestSignup_ConcurrentDuplicateYieldsOneConflict(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Signup(context.Background(), janeSignup())
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apierrors.AsAPIError(err).Code == apierrors.CodeConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestSignup_StoreRaceMapsToConflict(t *testing.T) {
	users := newMockUserRepo()
	users.createErr = repository.ErrDuplicate
	svc := newTestAuthService(users, newMockConnectionRepo())

	_, err := svc.Signup(context.Background(), janeSignup())
	assert.Equal(t, apierrors.CodeConflict, apierrors.AsAPIError(err).Code)
}

func TestSignup_InternalErrors(t *testing.T) {
	t.Run("store unreachable", func(t *testing.T) {
		users := newMockUserRepo()
		users.getErr = errors.New("connection refused")
		svc := newTestAuthService(users, newMockConnectionRepo())

		_, err := svc.Signup(context.Background(), janeSignup())
		assert.Same(t, apierrors.ErrInternal, err)
	})

	t.Run("hasher failure", func(t *testing.T) {
		svc := NewAuthService(newMockUserRepo(), newMockConnectionRepo(), failingHasher{}, testTokens(), AuthServiceConfig{Logger: testLogger()})

		_, err := svc.Signup(context.Background(), janeSignup())
		assert.Same(t, apierrors.ErrInternal, err)
	})
}

func TestLogin(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockConnectionRepo())
	ctx := context.Background()

	signed, err := svc.Signup(ctx, janeSignup())
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, LoginRequest{Username: "jane", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, signed.User.ID, res.User.ID)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		_, wrongPw := svc.Login(ctx, LoginRequest{Username: "jane", Password: "wrong"})
		_, noUser := svc.Login(ctx, LoginRequest{Username: "nobody", Password: "secret1"})
		_, empty := svc.Login(ctx, LoginRequest{})

		for _, err := range []error{wrongPw, noUser, empty} {
			require.Error(t, err)
			apiErr := apierrors.AsAPIError(err)
			assert.Equal(t, "Invalid credentials", apiErr.Message)
			assert.Equal(t, 400, apiErr.StatusCode)
		}
		assert.Equal(t, wrongPw, noUser)
	})

	t.Run("store error is internal", func(t *testing.T) {
		users.getErr = errors.New("timeout")
		defer func() { users.getErr = nil }()

		_, err := svc.Login(ctx, LoginRequest{Username: "jane", Password: "secret1"})
		assert.Same(t, apierrors.ErrInternal, err)
	})
}

func TestGetUserInfo(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockConnectionRepo())
	ctx := context.Background()

	res, err := svc.Signup(ctx, janeSignup())
	require.NoError(t, err)

	got, err := svc.GetUserInfo(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", got.Username)

	// Deleted after the token was issued.
	require.NoError(t, users.Delete(ctx, res.User.ID))
	_, err = svc.GetUserInfo(ctx, res.User.ID)
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestToggleFollow_Involution(t *testing.T) {
	users := newMockUserRepo()
	conns := newMockConnectionRepo()
	svc := newTestAuthService(users, conns)
	ctx := context.Background()

	me, err := svc.Signup(ctx, janeSignup())
	require.NoError(t, err)
	other := janeSignup()
	other.Username = "bob"
	bob, err := svc.Signup(ctx, other)
	require.NoError(t, err)

	first, err := svc.ToggleFollow(ctx, me.User.ID, bob.User.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Created)
	assert.Nil(t, first.Deleted)
	assert.Equal(t, bob.User.ID, first.Created.FollowerID)
	assert.Equal(t, me.User.ID, first.Created.FollowingID)
	assert.NotEmpty(t, first.Created.ID)

	second, err := svc.ToggleFollow(ctx, me.User.ID, bob.User.ID)
	require.NoError(t, err)
	require.NotNil(t, second.Deleted)
	assert.Nil(t, second.Created)
	assert.Equal(t, first.Created.ID, second.Deleted.ID)

	assert.Empty(t, conns.conns)
	assert.Equal(t, 1, conns.creates)
	assert.Equal(t, 1, conns.deletes)
}

func TestToggleFollow_ResponseShape(t *testing.T) {
	created, err := json.Marshal(&ToggleResult{Created: &models.Connection{ID: "c1"}})
	require.NoError(t, err)
	assert.Contains(t, string(created), `"newConnection"`)
	assert.NotContains(t, string(created), `"deletedConnection"`)

	deleted, err := json.Marshal(&ToggleResult{Deleted: &models.Connection{ID: "c1"}})
	require.NoError(t, err)
	assert.Contains(t, string(deleted), `"deletedConnection"`)
}

func TestToggleFollow_InvalidFollower(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())
	ctx := context.Background()

	for _, followerID := range []string{"", "missing"} {
		_, err := svc.ToggleFollow(ctx, "me", followerID)
		apiErr := apierrors.AsAPIError(err)
		assert.Equal(t, apierrors.CodeValidation, apiErr.Code)
		assert.Equal(t, "Invalid follower", apiErr.Message)
	}
}

func TestToggleFollow_ConcurrentCreateReportsWinner(t *testing.T) {
	users := newMockUserRepo()
	conns := newMockConnectionRepo()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{ID: "follower", Username: "f"}))
	winner := &models.Connection{ID: "winner", FollowerID: "follower", FollowingID: "me"}

	// Find misses, then Create collides with an edge inserted in between.
	racing := &racingConnectionRepo{mockConnectionRepo: conns, winner: winner}
	svc := NewAuthService(users, racing, testHasher(), testTokens(), AuthServiceConfig{Logger: testLogger()})

	res, err := svc.ToggleFollow(ctx, "me", "follower")
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.Equal(t, "winner", res.Created.ID)
}

// racingConnectionRepo inserts winner just before Create runs.
type racingConnectionRepo struct {
	*mockConnectionRepo
	winner *models.Connection
}

func (r *racingConnectionRepo) Create(ctx context.Context, conn *models.Connection) error {
	r.mu.Lock()
	r.conns[pairKey(r.winner.FollowerID, r.winner.FollowingID)] = r.winner
	r.mu.Unlock()
	return repository.ErrDuplicate
}

func TestValidateSession(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockConnectionRepo())
	ctx := context.Background()

	tok, _, err := testTokens().Issue("user-1")
	require.NoError(t, err)

	userID, err := svc.ValidateSession(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = svc.ValidateSession(ctx, "")
	assert.ErrorIs(t, err, apierrors.ErrUnauthorized)

	_, err = svc.ValidateSession(ctx, "garbage")
	assert.ErrorIs(t, err, apierrors.ErrUnauthorized)
}
