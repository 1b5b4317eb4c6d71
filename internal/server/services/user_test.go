package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAnn(t *testing.T, s *UserService) *AuthResult {
	t.Helper()
	res, err := s.Register(context.Background(), "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)
	return res
}

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)

	res, err := s.Register(context.Background(), "  Ann@Example.COM ", "secret1", "  Ann Smith ")
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, "Ann Smith", res.User.FullName)
	assert.True(t, res.User.IsActive)
	assert.Nil(t, res.User.LastLogin)
	assert.NotEmpty(t, res.User.ID)

	stored := repo.byID[res.User.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	claims, err := s.tokens.ValidateAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "ann@example.com", claims.Email)

	_, err = s.tokens.ValidateRefresh(res.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newUserService(t, db, newMemUsersRepo())

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"no at sign", "ann.example.com", "secret1", common.ErrorInvalidEmailFormat},
		{"no dot", "ann@example", "secret1", common.ErrorInvalidEmailFormat},
		{"short password", "ann@example.com", "12345", common.ErrorPasswordTooShort},
		{"multibyte password counted in runes", "ann@example.com", "ééééé", common.ErrorPasswordTooShort},
		{"password over bcrypt limit", "ann@example.com", strings.Repeat("x", 73), common.ErrorPasswordTooLong},
		{"email over column width", strings.Repeat("a", 250) + "@b.com", "secret1", common.ErrorFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.email, tt.password, "Ann")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestRegister_FullNameLength(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)

	_, err := s.Register(context.Background(), "ann@example.com", "secret1", strings.Repeat("é", 256))
	assert.ErrorIs(t, err, common.ErrorFieldTooLong)
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, repo.byID)

	_, err = s.Register(context.Background(), "ann@example.com", "secret1", strings.Repeat("é", 255))
	assert.NoError(t, err)
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newUserService(t, db, newMemUsersRepo())

	_, err := s.Register(context.Background(), "a@b.com", "secret1", "A")
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "A@B.com", "secret2", "B")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_EmailStaysReservedAfterDelete(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newUserService(t, db, newMemUsersRepo())

	res := registerAnn(t, s)
	require.NoError(t, s.DeleteAccount(context.Background(), res.User.ID, "secret1"))

	_, err := s.Register(context.Background(), "ann@example.com", "secret1", "Ann")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_InsertRaceMapsToConflict(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	repo.createErr = common.ErrorAlreadyExists
	s := newUserService(t, db, repo)

	_, err := s.Register(context.Background(), "a@b.com", "secret1", "A")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repo := newMemUsersRepo()
	repo.emailInUseErr = errBoom{}
	s := newUserService(t, db, repo)
	_, err := s.Register(context.Background(), "a@b.com", "secret1", "A")
	assert.ErrorIs(t, err, common.ErrorInternal)

	repo = newMemUsersRepo()
	repo.createErr = errBoom{}
	s = newUserService(t, db, repo)
	_, err = s.Register(context.Background(), "a@b.com", "secret1", "A")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotContains(t, err.Error(), "boom")
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)

	t.Run("success updates last login", func(t *testing.T) {
		res, err := s.Login(context.Background(), " ANN@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)
		require.NotNil(t, res.User.LastLogin)
		assert.NotNil(t, repo.byID[reg.User.ID].LastLogin)
		assert.NotEmpty(t, res.Tokens.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.Login(context.Background(), "ann@example.com", "wrong-pass")
		assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.Login(context.Background(), "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
	})

	t.Run("deactivated is reported before the password check", func(t *testing.T) {
		require.NoError(t, s.DeleteAccount(context.Background(), reg.User.ID, "secret1"))

		_, err := s.Login(context.Background(), "ann@example.com", "secret1")
		assert.ErrorIs(t, err, common.ErrorAccountDeactivated)

		_, err = s.Login(context.Background(), "ann@example.com", "wrong-pass")
		assert.ErrorIs(t, err, common.ErrorAccountDeactivated)
	})
}

func TestLogin_PasswordExtendedPastBcryptLimit(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := newUserService(t, db, newMemUsersRepo())
	ctx := context.Background()

	pw := strings.Repeat("x", 72)
	reg, err := s.Register(ctx, "a@b.com", pw, "A")
	require.NoError(t, err)

	_, err = s.Login(ctx, "a@b.com", pw+"-anything-appended")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)

	err = s.ChangePassword(ctx, reg.User.ID, pw+"!", "secret2")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	err = s.DeleteAccount(ctx, reg.User.ID, pw+"!")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Login(ctx, "a@b.com", pw)
	assert.NoError(t, err)
}

func TestLogin_StoreFailures(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	registerAnn(t, s)

	repo.touchErr = errBoom{}
	_, err := s.Login(context.Background(), "ann@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrorInternal)

	repo.touchErr = nil
	repo.getErr = errBoom{}
	_, err = s.Login(context.Background(), "ann@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestRefreshTokens(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)

	pair, err := s.RefreshTokens(context.Background(), reg.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := s.tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "ann@example.com", claims.Email)

	// the old refresh token is not revoked
	_, err = s.RefreshTokens(context.Background(), reg.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = s.RefreshTokens(context.Background(), reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = s.RefreshTokens(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestRefreshTokens_PicksUpChangedEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	s := newUserService(t, db, newMemUsersRepo())
	reg := registerAnn(t, s)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, s.UpdateProfile(context.Background(), reg.User.ID, "", "new@example.com"))

	pair, err := s.RefreshTokens(context.Background(), reg.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := s.tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", claims.Email)
}

func TestRefreshTokens_UserGoneOrInactive(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)

	require.NoError(t, s.DeleteAccount(context.Background(), reg.User.ID, "secret1"))
	_, err := s.RefreshTokens(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorAccountDeactivated)

	delete(repo.byID, reg.User.ID)
	_, err = s.RefreshTokens(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestGetProfile(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)

	view, err := s.GetProfile(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", view.Email)
	assert.Equal(t, "Ann", view.FullName)

	_, err = s.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	repo.getErr = errBoom{}
	_, err = s.GetProfile(context.Background(), reg.User.ID)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestUpdateProfile(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	ann := registerAnn(t, s)
	bob, err := s.Register(context.Background(), "bob@example.com", "secret1", "Bob")
	require.NoError(t, err)

	t.Run("name only", func(t *testing.T) {
		before := repo.byID[ann.User.ID].UpdatedAt
		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, s.UpdateProfile(context.Background(), ann.User.ID, "  Ann B ", ""))
		assert.Equal(t, "Ann B", repo.byID[ann.User.ID].FullName)
		assert.Equal(t, "ann@example.com", repo.byID[ann.User.ID].Email)
		assert.True(t, repo.byID[ann.User.ID].UpdatedAt.After(before))
	})

	t.Run("email normalized", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, s.UpdateProfile(context.Background(), ann.User.ID, "", " Ann2@Example.com "))
		assert.Equal(t, "ann2@example.com", repo.byID[ann.User.ID].Email)
	})

	t.Run("own email is not a conflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, s.UpdateProfile(context.Background(), ann.User.ID, "", "ann2@example.com"))
	})

	t.Run("email owned by another user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.UpdateProfile(context.Background(), ann.User.ID, "Ann", "BOB@example.com")
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
		assert.Equal(t, "Ann B", repo.byID[ann.User.ID].FullName, "no partial write on conflict")
		assert.Equal(t, "bob@example.com", repo.byID[bob.User.ID].Email)
	})

	t.Run("nothing to update", func(t *testing.T) {
		err := s.UpdateProfile(context.Background(), ann.User.ID, "   ", "")
		assert.ErrorIs(t, err, common.ErrorNoFieldsToUpdate)
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("invalid email", func(t *testing.T) {
		err := s.UpdateProfile(context.Background(), ann.User.ID, "Ann", "nope")
		assert.ErrorIs(t, err, common.ErrorInvalidEmailFormat)
	})

	t.Run("blank email is an invalid address", func(t *testing.T) {
		err := s.UpdateProfile(context.Background(), ann.User.ID, "", "   ")
		assert.ErrorIs(t, err, common.ErrorInvalidEmailFormat)
	})

	t.Run("fields over column width", func(t *testing.T) {
		err := s.UpdateProfile(context.Background(), ann.User.ID, strings.Repeat("n", 256), "")
		assert.ErrorIs(t, err, common.ErrorFieldTooLong)

		err = s.UpdateProfile(context.Background(), ann.User.ID, "", strings.Repeat("a", 250)+"@b.com")
		assert.ErrorIs(t, err, common.ErrorFieldTooLong)
		assert.Equal(t, "Ann B", repo.byID[ann.User.ID].FullName)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.UpdateProfile(context.Background(), "ghost", "X", "")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		repo.updateErr = errBoom{}
		defer func() { repo.updateErr = nil }()

		err := s.UpdateProfile(context.Background(), ann.User.ID, "X", "")
		assert.ErrorIs(t, err, common.ErrorInternal)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)
	ctx := context.Background()

	err := s.ChangePassword(ctx, reg.User.ID, "secret1", "12345")
	assert.ErrorIs(t, err, common.ErrorPasswordTooShort)

	err = s.ChangePassword(ctx, reg.User.ID, "wrong-pass", "123456")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	err = s.ChangePassword(ctx, "ghost", "secret1", "123456")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.ChangePassword(ctx, reg.User.ID, "secret1", "123456"))

	_, err = s.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)

	_, err = s.Login(ctx, "ann@example.com", "123456")
	assert.NoError(t, err)

	repo.updateErr = errBoom{}
	err = s.ChangePassword(ctx, reg.User.ID, "123456", "abcdef")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestDeleteAccount(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteAccount(ctx, reg.User.ID, "wrong-pass"), common.ErrorUnauthorized)
	assert.True(t, repo.byID[reg.User.ID].IsActive)

	assert.ErrorIs(t, s.DeleteAccount(ctx, "ghost", "secret1"), common.ErrorNotFound)

	repo.deactivateErr = errBoom{}
	assert.ErrorIs(t, s.DeleteAccount(ctx, reg.User.ID, "secret1"), common.ErrorInternal)
	repo.deactivateErr = nil

	require.NoError(t, s.DeleteAccount(ctx, reg.User.ID, "secret1"))
	assert.False(t, repo.byID[reg.User.ID].IsActive)
	assert.Len(t, repo.byID, 1, "soft delete keeps the row")
}

func TestLogout_DoesNotTouchStore(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := newMemUsersRepo()
	s := newUserService(t, db, repo)
	reg := registerAnn(t, s)

	s.Logout(context.Background(), reg.User.ID, reg.User.Email)

	// tokens keep working after logout
	_, err := s.tokens.ValidateAccess(reg.Tokens.AccessToken)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
