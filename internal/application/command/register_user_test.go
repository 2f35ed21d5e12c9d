package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

type fakeUserRepo struct {
	byID    map[shared.UserID]*user.Profile
	byEmail map[string]*user.Profile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[shared.UserID]*user.Profile),
		byEmail: make(map[string]*user.Profile),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, p *user.Profile) error {
	if _, ok := r.byEmail[p.Email]; ok {
		return shared.ErrUserExists
	}
	cp := *p
	r.byID[p.ID] = &cp
	r.byEmail[p.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID shared.UserID) (*user.Profile, error) {
	p, ok := r.byID[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.Profile, error) {
	p, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUserRepo) TopByXP(_ context.Context, limit int) ([]*user.Profile, error) {
	var out []*user.Profile
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestRegisterHandler(repo *fakeUserRepo) *RegisterUserHandler {
	h := NewRegisterUserHandler(repo, nil)
	h.bcryptCost = bcrypt.MinCost
	return h
}

func TestRegisterUser(t *testing.T) {
	repo := newFakeUserRepo()
	h := newTestRegisterHandler(repo)

	res, err := h.Handle(context.Background(), RegisterUserCommand{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.UserID)
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, 0, res.TotalXP)
	assert.Equal(t, 1, res.Level)

	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	h := newTestRegisterHandler(repo)

	cmd := RegisterUserCommand{Email: "bob@example.com", Username: "bob", Password: "hunter2hunter2"}
	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestRegisterUser_Validation(t *testing.T) {
	h := newTestRegisterHandler(newFakeUserRepo())

	cases := []struct {
		name string
		cmd  RegisterUserCommand
	}{
		{"missing email", RegisterUserCommand{Username: "bob", Password: "hunter2hunter2"}},
		{"bad email", RegisterUserCommand{Email: "not-an-email", Username: "bob", Password: "hunter2hunter2"}},
		{"missing username", RegisterUserCommand{Email: "bob@example.com", Password: "hunter2hunter2"}},
		{"long username", RegisterUserCommand{Email: "bob@example.com", Username: strings.Repeat("b", 31), Password: "hunter2hunter2"}},
		{"short password", RegisterUserCommand{Email: "bob@example.com", Username: "bob", Password: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tc.cmd)
			assert.Error(t, err)
		})
	}
}
