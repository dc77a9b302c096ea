package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
)

// CredentialRepositoryConfig is the configuration for the memory credential
// repository.
type CredentialRepositoryConfig struct {
	Logger log.Logger
}

func (c *CredentialRepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.memory.Credential"})
	return nil
}

// CredentialRepository is an in-memory implementation of
// storage.CredentialRepository. State lives for the process lifetime only.
type CredentialRepository struct {
	credentials map[string]*model.Credential
	mu          sync.RWMutex
	logger      log.Logger
}

// NewCredentialRepository creates a new memory credential repository.
func NewCredentialRepository(cfg CredentialRepositoryConfig) (*CredentialRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &CredentialRepository{
		credentials: make(map[string]*model.Credential),
		logger:      cfg.Logger,
	}, nil
}

// CreateCredential stores a new credential.
func (r *CredentialRepository) CreateCredential(ctx context.Context, c model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[c.Token]; ok {
		return fmt.Errorf("credential: %w", model.ErrAlreadyExists)
	}

	cCopy := c
	r.credentials[c.Token] = &cCopy
	r.logger.Debugf("Created credential in repository")

	return nil
}

// GetCredential retrieves a credential by token.
func (r *CredentialRepository) GetCredential(ctx context.Context, token string) (*model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.credentials[token]
	if !ok {
		return nil, fmt.Errorf("credential: %w", model.ErrNotFound)
	}

	// Return a copy.
	cCopy := *c
	return &cCopy, nil
}

// ListCredentials returns all credentials.
func (r *CredentialRepository) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	credentials := make([]model.Credential, 0, len(r.credentials))
	for _, c := range r.credentials {
		credentials = append(credentials, *c)
	}

	return credentials, nil
}

// MutateCredential runs fn on the stored record under the write lock. The
// record is mutated in place only when fn returns nil.
func (r *CredentialRepository) MutateCredential(ctx context.Context, token string, fn func(*model.Credential) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.credentials[token]
	if !ok {
		return fmt.Errorf("credential: %w", model.ErrNotFound)
	}

	cCopy := *c
	if err := fn(&cCopy); err != nil {
		return err
	}
	*c = cCopy

	return nil
}

// TaskRepositoryConfig is the configuration for the memory task repository.
type TaskRepositoryConfig struct {
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.memory.Task"})
	return nil
}

// TaskRepository is an in-memory implementation of storage.TaskRepository.
// Insertion order is preserved for listing.
type TaskRepository struct {
	tasks  map[string]*model.Task
	order  []string
	mu     sync.RWMutex
	logger log.Logger
}

// NewTaskRepository creates a new memory task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		tasks:  make(map[string]*model.Task),
		logger: cfg.Logger,
	}, nil
}

// CreateTask stores a new task record.
func (r *TaskRepository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyExists)
	}

	tCopy := t
	r.tasks[t.ID] = &tCopy
	r.order = append(r.order, t.ID)
	r.logger.Debugf("Created task in repository: %s", t.ID)

	return nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	tCopy := *t
	return &tCopy, nil
}

// ListTasks returns all tasks in insertion order.
func (r *TaskRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		tasks = append(tasks, *r.tasks[id])
	}

	return tasks, nil
}

// UpdateTask applies fn to the stored record as one atomic update. The
// record changes only when fn returns nil, so readers never observe a
// half-applied update.
func (r *TaskRepository) UpdateTask(ctx context.Context, id string, fn func(*model.Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	tCopy := *t
	if err := fn(&tCopy); err != nil {
		return err
	}
	*t = tCopy
	r.logger.Debugf("Updated task in repository: %s", id)

	return nil
}
