package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/persistence"
)

// TokenRepository stores each token account as tokens/<user_id>.json.
type TokenRepository struct {
	root string
}

func NewTokenRepository(root string) *TokenRepository {
	return &TokenRepository{root: root}
}

func (tr *TokenRepository) dir() string {
	return path.Join(tr.root, "tokens")
}

func (tr *TokenRepository) path(userID string) string {
	return path.Join(tr.dir(), userID+".json")
}

func (tr *TokenRepository) Get(_ context.Context, userID string) (*models.TokenAccount, error) {
	data, err := os.ReadFile(tr.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewTokenAccountError("Get", userID, persistence.ErrTokenAccountNotFound)
		}

		return nil, persistence.NewTokenAccountError("Get", userID, err)
	}

	var account models.TokenAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, persistence.NewTokenAccountError("Get", userID, fmt.Errorf("failed to decode token account file: %w", err))
	}

	return &account, nil
}

func (tr *TokenRepository) Put(_ context.Context, account *models.TokenAccount) error {
	if err := os.MkdirAll(tr.dir(), workflowDirPerm); err != nil {
		return persistence.NewTokenAccountError("Put", account.UserID, err)
	}

	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return persistence.NewTokenAccountError("Put", account.UserID, err)
	}

	if err := os.WriteFile(tr.path(account.UserID), data, 0o644); err != nil {
		return persistence.NewTokenAccountError("Put", account.UserID, err)
	}

	return nil
}
