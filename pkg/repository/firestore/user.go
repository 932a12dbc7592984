package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userDoc struct {
	ID            string    `firestore:"ID"`
	Email         string    `firestore:"Email"`
	EmailsEnabled bool      `firestore:"EmailsEnabled"`
	MemoryEnabled bool      `firestore:"MemoryEnabled"`
	CreatedAt     time.Time `firestore:"CreatedAt"`
}

type userRepository struct {
	client *firestore.Client
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{client: client}
}

func (r *userRepository) Get(ctx context.Context, userID types.UserID) (*model.User, error) {
	snap, err := r.client.Collection("users").Doc(userID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("userID", userID))
	}

	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user", goerr.V("userID", userID))
	}

	return &model.User{
		ID:            types.UserID(d.ID),
		Email:         d.Email,
		EmailsEnabled: d.EmailsEnabled,
		MemoryEnabled: d.MemoryEnabled,
		CreatedAt:     d.CreatedAt,
	}, nil
}
