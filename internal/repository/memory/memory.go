// Package memory is an in-process record store for tests and development
// runs. It honours the same version checks and unique indexes as the
// persistent backends.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

type Store struct {
	mu          sync.RWMutex
	boxes       map[string]*lockbox.Box
	invitations map[string]*lockbox.Invitation
	codes       map[string]string
	tasks       map[uuid.UUID]*repository.OutboxTask
	timeNow     func() time.Time
}

func New() *Store {
	return &Store{
		boxes:       make(map[string]*lockbox.Box),
		invitations: make(map[string]*lockbox.Invitation),
		codes:       make(map[string]string),
		tasks:       make(map[uuid.UUID]*repository.OutboxTask),
		timeNow:     time.Now,
	}
}

func (s *Store) Boxes() *BoxStore               { return &BoxStore{s} }
func (s *Store) Invitations() *InvitationStore { return &InvitationStore{s} }
func (s *Store) Outbox() *OutboxStore           { return &OutboxStore{s} }

type BoxStore struct{ s *Store }

func (r *BoxStore) Create(ctx context.Context, b *lockbox.Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.boxes[b.ID]; ok {
		return repository.ErrDuplicate
	}
	b.Version = 1
	r.s.boxes[b.ID] = b.Clone()
	return nil
}

func (r *BoxStore) Get(ctx context.Context, id string) (*lockbox.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.boxes[id]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return b.Clone(), nil
}

func (r *BoxStore) ListByOwner(ctx context.Context, ownerID string) ([]*lockbox.Box, error) {
	return r.list(ctx, func(b *lockbox.Box) bool { return b.OwnerID == ownerID })
}

func (r *BoxStore) ListByGuardian(ctx context.Context, userID string) ([]*lockbox.Box, error) {
	return r.list(ctx, func(b *lockbox.Box) bool {
		g, _ := b.Guardian(userID)
		return g != nil
	})
}

func (r *BoxStore) list(ctx context.Context, match func(*lockbox.Box) bool) ([]*lockbox.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*lockbox.Box
	for _, b := range r.s.boxes {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *lockbox.Box) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *BoxStore) UpdateIfVersion(ctx context.Context, b *lockbox.Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.boxes[b.ID]
	if !ok {
		return repository.ErrObjectNotFound
	}
	if cur.Version != b.Version {
		return repository.ErrVersionConflict
	}
	b.Version++
	r.s.boxes[b.ID] = b.Clone()
	return nil
}

func (r *BoxStore) DeleteIfVersion(ctx context.Context, id string, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.boxes[id]
	if !ok {
		return repository.ErrObjectNotFound
	}
	if cur.Version != version {
		return repository.ErrVersionConflict
	}
	delete(r.s.boxes, id)
	return nil
}

type InvitationStore struct{ s *Store }

func copyInvitation(inv *lockbox.Invitation) *lockbox.Invitation {
	c := *inv
	if inv.LinkedUserID != nil {
		linked := *inv.LinkedUserID
		c.LinkedUserID = &linked
	}
	return &c
}

func (r *InvitationStore) Create(ctx context.Context, inv *lockbox.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invitations[inv.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.codes[inv.InviteCode]; ok {
		return repository.ErrDuplicate
	}
	inv.Version = 1
	r.s.invitations[inv.ID] = copyInvitation(inv)
	r.s.codes[inv.InviteCode] = inv.ID
	return nil
}

func (r *InvitationStore) Get(ctx context.Context, id string) (*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return copyInvitation(inv), nil
}

func (r *InvitationStore) GetByCode(ctx context.Context, code string) (*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.codes[code]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return copyInvitation(r.s.invitations[id]), nil
}

func (r *InvitationStore) ListByBox(ctx context.Context, boxID string) ([]*lockbox.Invitation, error) {
	return r.list(ctx, func(inv *lockbox.Invitation) bool { return inv.BoxID == boxID }, nil, 0)
}

func (r *InvitationStore) ListByCreator(ctx context.Context, creatorID string, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error) {
	return r.list(ctx, func(inv *lockbox.Invitation) bool { return inv.CreatorID == creatorID }, after, limit)
}

func (r *InvitationStore) list(ctx context.Context, match func(*lockbox.Invitation) bool, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*lockbox.Invitation
	for _, inv := range r.s.invitations {
		if !match(inv) || (after != nil && !after.After(inv)) {
			continue
		}
		out = append(out, copyInvitation(inv))
	}
	slices.SortFunc(out, func(a, b *lockbox.Invitation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InvitationStore) UpdateIfVersion(ctx context.Context, inv *lockbox.Invitation, task *repository.OutboxTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.invitations[inv.ID]
	if !ok {
		return repository.ErrObjectNotFound
	}
	if cur.Version != inv.Version {
		return repository.ErrVersionConflict
	}
	if inv.InviteCode != cur.InviteCode {
		if _, taken := r.s.codes[inv.InviteCode]; taken {
			return repository.ErrDuplicate
		}
		delete(r.s.codes, cur.InviteCode)
		r.s.codes[inv.InviteCode] = inv.ID
	}
	inv.Version++
	r.s.invitations[inv.ID] = copyInvitation(inv)
	if task != nil {
		r.s.putTask(task)
	}
	return nil
}

func (s *Store) putTask(task *repository.OutboxTask) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := s.timeNow().UTC()
	c := *task
	c.Status = repository.TaskStatusCreated
	c.Attributes = maps.Clone(task.Attributes)
	c.CreatedAt = now
	c.UpdatedAt = now
	s.tasks[c.ID] = &c
}

type OutboxStore struct{ s *Store }

func (r *OutboxStore) ClaimProcessable(ctx context.Context, limit, maxAttempts int, staleBefore time.Time) ([]*repository.OutboxTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var claimable []*repository.OutboxTask
	for _, t := range r.s.tasks {
		if t.Claimable(maxAttempts, staleBefore) {
			claimable = append(claimable, t)
		}
	}
	slices.SortFunc(claimable, func(a, b *repository.OutboxTask) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	if limit > 0 && len(claimable) > limit {
		claimable = claimable[:limit]
	}
	now := r.s.timeNow().UTC()
	out := make([]*repository.OutboxTask, 0, len(claimable))
	for _, t := range claimable {
		t.Status = repository.TaskStatusProcessing
		t.UpdatedAt = now
		c := *t
		c.Attributes = maps.Clone(t.Attributes)
		out = append(out, &c)
	}
	return out, nil
}

func (r *OutboxStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return repository.ErrObjectNotFound
	}
	t.Status = status
	t.Attempts = attempts
	t.LastError = lastError
	t.CompletedAt = completedAt
	t.UpdatedAt = r.s.timeNow().UTC()
	return nil
}

// Tasks returns a snapshot of every stored outbox task.
func (r *OutboxStore) Tasks() []repository.OutboxTask {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.OutboxTask, 0, len(r.s.tasks))
	for _, t := range r.s.tasks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b repository.OutboxTask) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
