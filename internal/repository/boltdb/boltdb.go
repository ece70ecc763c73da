// Package boltdb keeps the record store in a single bbolt file. Records are
// JSON envelopes carrying the store version; secondary indexes are separate
// buckets whose keys are "<indexed value>\x00<record id>".
package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

var (
	bucketBoxes             = []byte("boxes")
	bucketBoxOwner          = []byte("box_owner")
	bucketBoxGuardian       = []byte("box_guardian")
	bucketInvitations       = []byte("invitations")
	bucketInvitationCode    = []byte("invitation_code")
	bucketInvitationBox     = []byte("invitation_box")
	bucketInvitationCreator = []byte("invitation_creator")
	bucketOutbox            = []byte("outbox_tasks")

	allBuckets = [][]byte{
		bucketBoxes, bucketBoxOwner, bucketBoxGuardian,
		bucketInvitations, bucketInvitationCode, bucketInvitationBox, bucketInvitationCreator,
		bucketOutbox,
	}
)

type record struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type Store struct {
	db      *bolt.DB
	timeNow func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, timeNow: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Boxes() *BoxStore               { return &BoxStore{s} }
func (s *Store) Invitations() *InvitationStore { return &InvitationStore{s} }
func (s *Store) Outbox() *OutboxStore           { return &OutboxStore{s} }

func indexKey(value, id string) []byte {
	return []byte(value + "\x00" + id)
}

// indexedIDs returns the record ids stored under value in an index bucket.
func indexedIDs(b *bolt.Bucket, value string) []string {
	prefix := []byte(value + "\x00")
	var ids []string
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		ids = append(ids, string(k[len(prefix):]))
	}
	return ids
}

func getRecord(b *bolt.Bucket, id string) (*record, error) {
	raw := b.Get([]byte(id))
	if raw == nil {
		return nil, repository.ErrObjectNotFound
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return &rec, nil
}

func putRecord(b *bolt.Bucket, id string, version int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", id, err)
	}
	raw, err := json.Marshal(record{Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", id, err)
	}
	return b.Put([]byte(id), raw)
}

type BoxStore struct{ s *Store }

func decodeBox(rec *record) (*lockbox.Box, error) {
	var b lockbox.Box
	if err := json.Unmarshal(rec.Data, &b); err != nil {
		return nil, fmt.Errorf("decoding box: %w", err)
	}
	b.Version = rec.Version
	return &b, nil
}

func guardianIDs(b *lockbox.Box) []string {
	ids := make([]string, 0, len(b.Guardians))
	for _, g := range b.Guardians {
		ids = append(ids, g.ID)
	}
	return ids
}

func (r *BoxStore) Create(ctx context.Context, b *lockbox.Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.s.db.Update(func(tx *bolt.Tx) error {
		boxes := tx.Bucket(bucketBoxes)
		if boxes.Get([]byte(b.ID)) != nil {
			return repository.ErrDuplicate
		}
		if err := putRecord(boxes, b.ID, 1, b); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBoxOwner).Put(indexKey(b.OwnerID, b.ID), []byte{}); err != nil {
			return err
		}
		gb := tx.Bucket(bucketBoxGuardian)
		for _, id := range guardianIDs(b) {
			if err := gb.Put(indexKey(id, b.ID), []byte{}); err != nil {
				return err
			}
		}
		b.Version = 1
		return nil
	})
}

func (r *BoxStore) Get(ctx context.Context, id string) (*lockbox.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *lockbox.Box
	err := r.s.db.View(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx.Bucket(bucketBoxes), id)
		if err != nil {
			return err
		}
		out, err = decodeBox(rec)
		return err
	})
	return out, err
}

func (r *BoxStore) ListByOwner(ctx context.Context, ownerID string) ([]*lockbox.Box, error) {
	return r.listIndexed(ctx, bucketBoxOwner, ownerID)
}

func (r *BoxStore) ListByGuardian(ctx context.Context, userID string) ([]*lockbox.Box, error) {
	return r.listIndexed(ctx, bucketBoxGuardian, userID)
}

func (r *BoxStore) listIndexed(ctx context.Context, index []byte, value string) ([]*lockbox.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*lockbox.Box
	err := r.s.db.View(func(tx *bolt.Tx) error {
		boxes := tx.Bucket(bucketBoxes)
		for _, id := range indexedIDs(tx.Bucket(index), value) {
			rec, err := getRecord(boxes, id)
			if errors.Is(err, repository.ErrObjectNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			b, err := decodeBox(rec)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *lockbox.Box) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, err
}

func (r *BoxStore) UpdateIfVersion(ctx context.Context, b *lockbox.Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.s.db.Update(func(tx *bolt.Tx) error {
		boxes := tx.Bucket(bucketBoxes)
		rec, err := getRecord(boxes, b.ID)
		if err != nil {
			return err
		}
		if rec.Version != b.Version {
			return repository.ErrVersionConflict
		}
		prev, err := decodeBox(rec)
		if err != nil {
			return err
		}
		if err := putRecord(boxes, b.ID, b.Version+1, b); err != nil {
			return err
		}
		if err := reindexGuardians(tx.Bucket(bucketBoxGuardian), b.ID, guardianIDs(prev), guardianIDs(b)); err != nil {
			return err
		}
		b.Version++
		return nil
	})
}

func reindexGuardians(idx *bolt.Bucket, boxID string, before, after []string) error {
	for _, id := range before {
		if !slices.Contains(after, id) {
			if err := idx.Delete(indexKey(id, boxID)); err != nil {
				return err
			}
		}
	}
	for _, id := range after {
		if !slices.Contains(before, id) {
			if err := idx.Put(indexKey(id, boxID), []byte{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *BoxStore) DeleteIfVersion(ctx context.Context, id string, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.s.db.Update(func(tx *bolt.Tx) error {
		boxes := tx.Bucket(bucketBoxes)
		rec, err := getRecord(boxes, id)
		if err != nil {
			return err
		}
		if rec.Version != version {
			return repository.ErrVersionConflict
		}
		b, err := decodeBox(rec)
		if err != nil {
			return err
		}
		if err := boxes.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBoxOwner).Delete(indexKey(b.OwnerID, id)); err != nil {
			return err
		}
		return reindexGuardians(tx.Bucket(bucketBoxGuardian), id, guardianIDs(b), nil)
	})
}

type InvitationStore struct{ s *Store }

func decodeInvitation(rec *record) (*lockbox.Invitation, error) {
	var inv lockbox.Invitation
	if err := json.Unmarshal(rec.Data, &inv); err != nil {
		return nil, fmt.Errorf("decoding invitation: %w", err)
	}
	inv.Version = rec.Version
	return &inv, nil
}

func (r *InvitationStore) Create(ctx context.Context, inv *lockbox.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.s.db.Update(func(tx *bolt.Tx) error {
		invitations := tx.Bucket(bucketInvitations)
		codes := tx.Bucket(bucketInvitationCode)
		if invitations.Get([]byte(inv.ID)) != nil || codes.Get([]byte(inv.InviteCode)) != nil {
			return repository.ErrDuplicate
		}
		if err := putRecord(invitations, inv.ID, 1, inv); err != nil {
			return err
		}
		if err := codes.Put([]byte(inv.InviteCode), []byte(inv.ID)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInvitationBox).Put(indexKey(inv.BoxID, inv.ID), []byte{}); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInvitationCreator).Put(indexKey(inv.CreatorID, inv.ID), []byte{}); err != nil {
			return err
		}
		inv.Version = 1
		return nil
	})
}

func (r *InvitationStore) Get(ctx context.Context, id string) (*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *lockbox.Invitation
	err := r.s.db.View(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx.Bucket(bucketInvitations), id)
		if err != nil {
			return err
		}
		out, err = decodeInvitation(rec)
		return err
	})
	return out, err
}

func (r *InvitationStore) GetByCode(ctx context.Context, code string) (*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *lockbox.Invitation
	err := r.s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketInvitationCode).Get([]byte(code))
		if id == nil {
			return repository.ErrObjectNotFound
		}
		rec, err := getRecord(tx.Bucket(bucketInvitations), string(id))
		if err != nil {
			return err
		}
		out, err = decodeInvitation(rec)
		return err
	})
	return out, err
}

func (r *InvitationStore) ListByBox(ctx context.Context, boxID string) ([]*lockbox.Invitation, error) {
	return r.listIndexed(ctx, bucketInvitationBox, boxID, nil, 0)
}

func (r *InvitationStore) ListByCreator(ctx context.Context, creatorID string, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error) {
	return r.listIndexed(ctx, bucketInvitationCreator, creatorID, after, limit)
}

func (r *InvitationStore) listIndexed(ctx context.Context, index []byte, value string, after *repository.Cursor, limit int) ([]*lockbox.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*lockbox.Invitation
	err := r.s.db.View(func(tx *bolt.Tx) error {
		invitations := tx.Bucket(bucketInvitations)
		for _, id := range indexedIDs(tx.Bucket(index), value) {
			rec, err := getRecord(invitations, id)
			if err != nil {
				return err
			}
			inv, err := decodeInvitation(rec)
			if err != nil {
				return err
			}
			if after == nil || after.After(inv) {
				out = append(out, inv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
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
	return r.s.db.Update(func(tx *bolt.Tx) error {
		invitations := tx.Bucket(bucketInvitations)
		rec, err := getRecord(invitations, inv.ID)
		if err != nil {
			return err
		}
		if rec.Version != inv.Version {
			return repository.ErrVersionConflict
		}
		prev, err := decodeInvitation(rec)
		if err != nil {
			return err
		}
		if prev.InviteCode != inv.InviteCode {
			codes := tx.Bucket(bucketInvitationCode)
			if codes.Get([]byte(inv.InviteCode)) != nil {
				return repository.ErrDuplicate
			}
			if err := codes.Delete([]byte(prev.InviteCode)); err != nil {
				return err
			}
			if err := codes.Put([]byte(inv.InviteCode), []byte(inv.ID)); err != nil {
				return err
			}
		}
		if err := putRecord(invitations, inv.ID, inv.Version+1, inv); err != nil {
			return err
		}
		if task != nil {
			if err := r.s.putTask(tx, task); err != nil {
				return err
			}
		}
		inv.Version++
		return nil
	})
}

func (s *Store) putTask(tx *bolt.Tx, task *repository.OutboxTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := s.timeNow().UTC()
	task.Status = repository.TaskStatusCreated
	task.CreatedAt = now
	task.UpdatedAt = now
	return putTaskRecord(tx.Bucket(bucketOutbox), task)
}

func putTaskRecord(b *bolt.Bucket, task *repository.OutboxTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding outbox task %s: %w", task.ID, err)
	}
	return b.Put([]byte(task.ID.String()), data)
}

type OutboxStore struct{ s *Store }

func (r *OutboxStore) ClaimProcessable(ctx context.Context, limit, maxAttempts int, staleBefore time.Time) ([]*repository.OutboxTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var claimed []*repository.OutboxTask
	err := r.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		var candidates []*repository.OutboxTask
		err := b.ForEach(func(_, v []byte) error {
			var t repository.OutboxTask
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("decoding outbox task: %w", err)
			}
			if t.Claimable(maxAttempts, staleBefore) {
				candidates = append(candidates, &t)
			}
			return nil
		})
		if err != nil {
			return err
		}
		slices.SortFunc(candidates, func(a, b *repository.OutboxTask) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		})
		if limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}
		now := r.s.timeNow().UTC()
		for _, t := range candidates {
			t.Status = repository.TaskStatusProcessing
			t.UpdatedAt = now
			if err := putTaskRecord(b, t); err != nil {
				return err
			}
		}
		claimed = candidates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *OutboxStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		raw := b.Get([]byte(id.String()))
		if raw == nil {
			return repository.ErrObjectNotFound
		}
		var t repository.OutboxTask
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("decoding outbox task %s: %w", id, err)
		}
		t.Status = status
		t.Attempts = attempts
		t.LastError = lastError
		t.CompletedAt = completedAt
		t.UpdatedAt = r.s.timeNow().UTC()
		return putTaskRecord(b, &t)
	})
}
