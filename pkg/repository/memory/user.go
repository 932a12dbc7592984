package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[types.UserID]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[types.UserID]*model.User),
	}
}

func (r *userRepository) Get(ctx context.Context, userID types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("userID", userID))
	}
	copied := *user
	return &copied, nil
}

// SaveUser seeds a user record. The interface is read-only (accounts are
// managed by another system); this is for development and tests.
func (m *Memory) SaveUser(user *model.User) {
	m.user.mu.Lock()
	defer m.user.mu.Unlock()

	copied := *user
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	m.user.users[user.ID] = &copied
}
