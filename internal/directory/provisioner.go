// Package directory mirrors console accounts into an external SQL identity
// directory when one is configured. In production the directory is the
// authoritative identity service; this keeps it in sync with admin actions.
package directory

import (
	"context"

	"hrms/internal/models"
)

type Provisioner interface {
	UpsertAccount(ctx context.Context, username, passwordHash string, role models.Role) error
	SetActive(ctx context.Context, username string, active bool) error
}

type NoopProvisioner struct{}

func (NoopProvisioner) UpsertAccount(ctx context.Context, username, passwordHash string, role models.Role) error {
	return nil
}
func (NoopProvisioner) SetActive(ctx context.Context, username string, active bool) error {
	return nil
}
