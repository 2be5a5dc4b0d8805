package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// TokenRepository keeps each account under blockdeck:tokens:<user_id>.
type TokenRepository struct {
	client goredis.UniversalClient
}

func NewTokenRepository(client goredis.UniversalClient) *TokenRepository {
	return &TokenRepository{client: client}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("%s:tokens:%s", keyPrefix, userID)
}

func (tr *TokenRepository) Get(ctx context.Context, userID string) (*models.TokenAccount, error) {
	data, err := tr.client.Get(ctx, tokenKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewTokenAccountError("Get", userID, persistence.ErrTokenAccountNotFound)
		}

		return nil, persistence.NewTokenAccountError("Get", userID, err)
	}

	var account models.TokenAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, persistence.NewTokenAccountError("Get", userID, fmt.Errorf("failed to decode token account: %w", err))
	}

	return &account, nil
}

func (tr *TokenRepository) Put(ctx context.Context, account *models.TokenAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return persistence.NewTokenAccountError("Put", account.UserID, err)
	}

	if err := tr.client.Set(ctx, tokenKey(account.UserID), data, 0).Err(); err != nil {
		return persistence.NewTokenAccountError("Put", account.UserID, err)
	}

	return nil
}
