package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "carnet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, bcrypt.MinCost, nil), st
}

func TestEnsureDefaultOwner(t *testing.T) {
	svc, st := newTestService(t)

	created, err := svc.EnsureDefaultOwner("secret")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefaultOwner("other")
	require.NoError(t, err)
	assert.False(t, created, "second call must not create another owner")

	n, err := st.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err := svc.Authenticate(DefaultOwner, "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, u.Role)
}

func TestAuthenticate(t *testing.T) {
	svc, st := newTestService(t)
	_, err := svc.EnsureDefaultOwner("secret")
	require.NoError(t, err)

	_, err = svc.Authenticate(DefaultOwner, "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate("nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)

	u, err := svc.Authenticate(DefaultOwner, "secret")
	require.NoError(t, err)

	stored, err := st.GetUser(u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	entries, err := st.AuditLog(10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, store.ActionLogin, entries[0].Action)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, u.ID, *entries[0].UserID)
}

func TestCreateUserRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnsureDefaultOwner("secret")
	require.NoError(t, err)
	owner, err := svc.Authenticate(DefaultOwner, "secret")
	require.NoError(t, err)

	_, err = svc.CreateUser(owner, "claire", "pw", domain.RoleConsultant)
	require.NoError(t, err)

	consultant, err := svc.Authenticate("claire", "pw")
	require.NoError(t, err)

	_, err = svc.CreateUser(consultant, "paul", "pw", domain.RoleConsultant)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateUser(owner, "claire", "pw", domain.RoleConsultant)
	assert.ErrorIs(t, err, store.ErrDuplicateName)

	_, err = svc.CreateUser(owner, "paul", "pw", "admin")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnsureDefaultOwner("secret")
	require.NoError(t, err)
	owner, err := svc.Authenticate(DefaultOwner, "secret")
	require.NoError(t, err)

	err = svc.ChangePassword(owner, "wrong", "new")
	assert.ErrorIs(t, err, ErrBadCredentials)

	require.NoError(t, svc.ChangePassword(owner, "secret", "new"))

	_, err = svc.Authenticate(DefaultOwner, "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(DefaultOwner, "new")
	assert.NoError(t, err)
}

func TestAllowed(t *testing.T) {
	owner := &domain.User{Role: domain.RoleOwner, Active: true}
	consultant := &domain.User{Role: domain.RoleConsultant, Active: true}
	inactive := &domain.User{Role: domain.RoleOwner}

	tests := []struct {
		name   string
		user   *domain.User
		action string
		want   bool
	}{
		{"owner writes", owner, ActionWrite, true},
		{"owner creates users", owner, ActionCreateUser, true},
		{"consultant reads", consultant, ActionRead, true},
		{"consultant views", consultant, ActionView, true},
		{"consultant exports", consultant, ActionExport, true},
		{"consultant cannot write", consultant, ActionWrite, false},
		{"consultant cannot create users", consultant, ActionCreateUser, false},
		{"inactive owner", inactive, ActionRead, false},
		{"nobody", nil, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.user, tt.action))
		})
	}
}
