package storage

import (
	"context"

	"github.com/slok/bua/internal/model"
)

// CredentialRepository is the interface for API credential persistence.
//
// Mutate is the atomic unit for lifecycle checks that read and write in one
// step (expiry evaluation, usage accounting, revocation): the callback runs
// with the record exclusively held, so no concurrent caller can observe or
// produce an intermediate state.
type CredentialRepository interface {
	CreateCredential(ctx context.Context, c model.Credential) error
	GetCredential(ctx context.Context, token string) (*model.Credential, error)
	ListCredentials(ctx context.Context) ([]model.Credential, error)
	MutateCredential(ctx context.Context, token string, fn func(*model.Credential) error) error
}

// TaskRepository is the interface for task record persistence.
//
// UpdateTask applies fn to the stored record as one atomic update: readers
// never observe a partially transcribed terminal state.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, fn func(*model.Task) error) error
}
