// Package file provides file-based persistence: one JSON document per
// workflow and per token account under a root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/blockdeck/blockdeck/pkg/persistence"
)

type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	tokenRepo    *TokenRepository
}

// NewPersistence creates file persistence rooted at the given directory.
// A "file://" scheme prefix is stripped if present.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		tokenRepo:    NewTokenRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) TokenRepository() persistence.TokenRepository {
	return fp.tokenRepo
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
