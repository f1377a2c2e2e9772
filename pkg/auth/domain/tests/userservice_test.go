package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop/pkg/auth/domain/model"
	"shop/pkg/auth/domain/service"
	"shop/pkg/common/authmw"
)

const goodPassword = "Sup3rSecret!"

func setup(t *testing.T) (service.UserService, *mockUserRepository) {
	t.Helper()
	repo := &mockUserRepository{store: make(map[int64]*model.User)}
	return service.NewUserService(repo, plainPasswordManager{}), repo
}

func TestRegister(t *testing.T) {
	users, repo := setup(t)

	user, err := users.Register(context.Background(), "alice", "alice@example.com", goodPassword, "")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, authmw.RoleCustomer, user.Role, "role defaults to customer")
	assert.True(t, user.IsActive)
	assert.NotEqual(t, goodPassword, user.PasswordHash)
	assert.WithinDuration(t, time.Now().UTC(), user.CreatedAt, time.Minute)
	assert.Len(t, repo.store, 1)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		message  string
	}{
		{"missing username", "", "a@example.com", goodPassword, "Username, email, and password are required"},
		{"missing email", "alice", "", goodPassword, "Username, email, and password are required"},
		{"missing password", "alice", "a@example.com", "", "Username, email, and password are required"},
		{"bad email", "alice", "not-an-email", goodPassword, "Invalid email format"},
		{"short password", "alice", "a@example.com", "Ab1!", "Password must be at least 8 characters long"},
		{"no uppercase", "alice", "a@example.com", "sup3rsecret!", "Password must contain at least one uppercase letter"},
		{"no lowercase", "alice", "a@example.com", "SUP3RSECRET!", "Password must contain at least one lowercase letter"},
		{"no digit", "alice", "a@example.com", "SuperSecret!", "Password must contain at least one digit"},
		{"no special", "alice", "a@example.com", "Sup3rSecret", "Password must contain at least one special character"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, repo := setup(t)
			_, err := users.Register(context.Background(), tc.username, tc.email, tc.password, "")

			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Message)
			assert.Empty(t, repo.store)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	users, _ := setup(t)
	_, err := users.Register(context.Background(), "alice", "alice@example.com", goodPassword, "")
	require.NoError(t, err)

	_, err = users.Register(context.Background(), "alice", "other@example.com", goodPassword, "")
	assert.ErrorIs(t, err, model.ErrUsernameTaken)

	_, err = users.Register(context.Background(), "bob", "alice@example.com", goodPassword, "")
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	users, repo := setup(t)
	registered, err := users.Register(context.Background(), "alice", "alice@example.com", goodPassword, "")
	require.NoError(t, err)

	t.Run("success records last login", func(t *testing.T) {
		user, err := users.Authenticate(context.Background(), "alice", goodPassword)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		require.NotNil(t, user.LastLogin)
		assert.WithinDuration(t, time.Now().UTC(), *user.LastLogin, time.Minute)
		require.NotNil(t, repo.store[user.ID].LastLogin)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := users.Authenticate(context.Background(), "mallory", goodPassword)
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := users.Authenticate(context.Background(), "alice", "WrongPass1!")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		repo.store[registered.ID].IsActive = false
		defer func() { repo.store[registered.ID].IsActive = true }()

		_, err := users.Authenticate(context.Background(), "alice", goodPassword)
		assert.ErrorIs(t, err, service.ErrAccountDeactivated)
	})
}

func TestUpdateUser(t *testing.T) {
	users, _ := setup(t)
	alice, err := users.Register(context.Background(), "alice", "alice@example.com", goodPassword, "")
	require.NoError(t, err)
	_, err = users.Register(context.Background(), "bob", "bob@example.com", goodPassword, "")
	require.NoError(t, err)

	t.Run("email change", func(t *testing.T) {
		email := "alice2@example.com"
		updated, err := users.UpdateUser(context.Background(), alice.ID, service.UpdateUserParams{Email: &email})
		require.NoError(t, err)
		assert.Equal(t, email, updated.Email)
	})

	t.Run("invalid email", func(t *testing.T) {
		email := "nope"
		_, err := users.UpdateUser(context.Background(), alice.ID, service.UpdateUserParams{Email: &email})
		var verr *service.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("email owned by someone else", func(t *testing.T) {
		email := "bob@example.com"
		_, err := users.UpdateUser(context.Background(), alice.ID, service.UpdateUserParams{Email: &email})
		assert.ErrorIs(t, err, model.ErrEmailTaken)
	})

	t.Run("unknown user", func(t *testing.T) {
		email := "x@example.com"
		_, err := users.UpdateUser(context.Background(), 999, service.UpdateUserParams{Email: &email})
		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})
}

func TestChangePassword(t *testing.T) {
	users, repo := setup(t)
	alice, err := users.Register(context.Background(), "alice", "alice@example.com", goodPassword, "")
	require.NoError(t, err)

	t.Run("wrong old password", func(t *testing.T) {
		err := users.ChangePassword(context.Background(), alice.ID, "WrongPass1!", "N3wSecret!x")
		assert.ErrorIs(t, err, service.ErrWrongOldPassword)
	})

	t.Run("weak new password", func(t *testing.T) {
		err := users.ChangePassword(context.Background(), alice.ID, goodPassword, "short")
		var verr *service.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("success", func(t *testing.T) {
		err := users.ChangePassword(context.Background(), alice.ID, goodPassword, "N3wSecret!x")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(repo.store[alice.ID].PasswordHash, "N3wSecret!x"))

		_, err = users.Authenticate(context.Background(), "alice", "N3wSecret!x")
		assert.NoError(t, err)
	})
}

var _ model.UserRepository = &mockUserRepository{}

type mockUserRepository struct {
	nextID int64
	store  map[int64]*model.User
}

func (m *mockUserRepository) Create(_ context.Context, user *model.User) error {
	m.nextID++
	user.ID = m.nextID
	clone := *user
	m.store[user.ID] = &clone
	return nil
}

func (m *mockUserRepository) Update(_ context.Context, user *model.User) error {
	if _, ok := m.store[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	clone := *user
	m.store[user.ID] = &clone
	return nil
}

func (m *mockUserRepository) Find(_ context.Context, id int64) (*model.User, error) {
	user, ok := m.store[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range m.store {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.store {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) List(_ context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(m.store))
	for _, user := range m.store {
		users = append(users, *user)
	}
	return users, nil
}

// plainPasswordManager marks hashes instead of computing them, which keeps
// the password flow observable in assertions.
type plainPasswordManager struct{}

func (plainPasswordManager) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainPasswordManager) Check(hashed, plain string) (bool, error) {
	return hashed == "hashed:"+plain, nil
}
