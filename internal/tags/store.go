package tags

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/kv"
	"github.com/jimmcbubbles/usertags/internal/logger"
)

// Storage keys, all under the store's namespace.
const (
	KeyUserData   = "UserData"
	KeyTagIndex   = "TagIndex"
	KeyGlobalTags = "GlobalTags"
	KeyRevision   = "Revision"
)

// Options configures a Store.
type Options struct {
	Namespace string
	Lookup    identity.Lookup
	Locale    string
	Logger    *slog.Logger
}

// Store owns the in-memory document and the read-modify-write cycle around
// it. Mutations are serialized; each one works on a copy that replaces the
// live document only after every key has been persisted.
type Store struct {
	storage   kv.Storage
	namespace string
	lookup    identity.Lookup
	sorter    Sorter
	logger    *slog.Logger

	// writeMu serializes mutations. mu guards the fields below it.
	writeMu sync.Mutex

	mu       sync.RWMutex
	doc      *Document
	index    Index
	revision string
}

// Result describes the outcome of a mutation.
type Result struct {
	Changed  bool     `json:"changed"`
	Touched  int      `json:"touched"`
	Pruned   []string `json:"pruned,omitempty"`
	Revision string   `json:"revision"`
}

// Open creates a Store over storage and loads the current document.
func Open(ctx context.Context, storage kv.Storage, opts Options) (*Store, error) {
	if opts.Namespace == "" {
		opts.Namespace = "UserTags"
	}
	if opts.Lookup == nil {
		opts.Lookup = identity.None
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	s := &Store{
		storage:   storage,
		namespace: opts.Namespace,
		lookup:    opts.Lookup,
		sorter:    NewSorter(opts.Locale),
		logger:    opts.Logger.With("component", "tags", "namespace", opts.Namespace),
		doc:       NewDocument(),
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with what storage holds. Absent keys
// read as empty. Legacy and emptied records are upgraded in memory: records
// without tags are dropped and the index is rebuilt from what remains. The
// next save writes the canonical shape back.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc := NewDocument()

	if data, ok, err := s.storage.Load(ctx, s.namespace, KeyUserData); err != nil {
		return errors.NewInternal(fmt.Errorf("load %s: %w", KeyUserData, err))
	} else if ok && len(data) > 0 {
		var records map[string]*Record
		if err := json.Unmarshal(data, &records); err != nil {
			return errors.NewInternal(fmt.Errorf("decode %s: %w", KeyUserData, err))
		}
		for id, r := range records {
			if r == nil {
				r = &Record{}
			}
			r.UserID = id
			doc.Records[id] = r
		}
	}
	pruned := doc.Prune()

	if data, ok, err := s.storage.Load(ctx, s.namespace, KeyGlobalTags); err != nil {
		return errors.NewInternal(fmt.Errorf("load %s: %w", KeyGlobalTags, err))
	} else if ok && len(data) > 0 {
		if err := json.Unmarshal(data, doc.Global); err != nil {
			return errors.NewInternal(fmt.Errorf("decode %s: %w", KeyGlobalTags, err))
		}
	}

	index := RebuildIndex(doc.Records, s.lookup)
	if data, ok, err := s.storage.Load(ctx, s.namespace, KeyTagIndex); err != nil {
		return errors.NewInternal(fmt.Errorf("load %s: %w", KeyTagIndex, err))
	} else if ok && len(data) > 0 {
		var stored Index
		if err := json.Unmarshal(data, &stored); err != nil {
			s.logger.Warn("discarding unreadable tag index", "error", err)
		} else if !slices.Equal(stored.Names(), index.Names()) {
			s.logger.Info("stored tag index out of date, rebuilt", "stored", len(stored), "rebuilt", len(index))
		}
	}

	var revision string
	if data, ok, err := s.storage.Load(ctx, s.namespace, KeyRevision); err != nil {
		return errors.NewInternal(fmt.Errorf("load %s: %w", KeyRevision, err))
	} else if ok {
		revision = string(data)
	}

	s.mu.Lock()
	s.doc = doc
	s.index = index
	s.revision = revision
	s.mu.Unlock()

	s.logger.Debug("tag store loaded", "records", len(doc.Records), "pruned", len(pruned), "global", doc.Global.Len())
	return nil
}

// Apply runs fn against a copy of the document and persists the copy when
// fn reports a change. Use it for compound mutations that must land as one
// save.
func (s *Store) Apply(ctx context.Context, op string, fn func(doc *Document) (touched int, changed bool, err error)) (*Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.doc.Clone()
	revision := s.revision
	s.mu.RUnlock()

	touched, changed, err := fn(next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &Result{Revision: revision}, nil
	}

	pruned, revision, err := s.save(ctx, next)
	if err != nil {
		s.logger.Error("save failed", "op", op, "error", err)
		return nil, err
	}

	s.logger.Debug("tag store saved", "op", op, "touched", touched, "pruned", len(pruned), "revision", revision)
	return &Result{Changed: true, Touched: touched, Pruned: pruned, Revision: revision}, nil
}

// save prunes empty records, derives the index, persists every key and only
// then swaps next in as the live document. Must be called with writeMu held.
func (s *Store) save(ctx context.Context, next *Document) ([]string, string, error) {
	pruned := next.Prune()
	index := RebuildIndex(next.Records, s.lookup)

	revision, err := newRevision()
	if err != nil {
		return nil, "", errors.NewInternal(err)
	}

	userData, err := json.Marshal(next.Records)
	if err != nil {
		return nil, "", errors.NewInternal(err)
	}
	globalTags, err := json.Marshal(next.Global)
	if err != nil {
		return nil, "", errors.NewInternal(err)
	}
	tagIndex, err := json.Marshal(index)
	if err != nil {
		return nil, "", errors.NewInternal(err)
	}

	// Records first: the registry and index are only meaningful next to them.
	entries := []kv.Entry{
		{Key: KeyUserData, Value: userData},
		{Key: KeyGlobalTags, Value: globalTags},
		{Key: KeyTagIndex, Value: tagIndex},
		{Key: KeyRevision, Value: []byte(revision)},
	}
	if err := kv.SaveAll(ctx, s.storage, s.namespace, entries); err != nil {
		return nil, "", errors.NewSaveFailed(err)
	}

	s.mu.Lock()
	s.doc = next
	s.index = index
	s.revision = revision
	s.mu.Unlock()

	return pruned, revision, nil
}

// newRevision generates a ULID stamp for a save.
func newRevision() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// AddTag gives userID the sanitized tag. Empty or duplicate tags are no-ops.
func (s *Store) AddTag(ctx context.Context, userID, tag string) (*Result, error) {
	return s.Apply(ctx, "add_tag", func(doc *Document) (int, bool, error) {
		changed := doc.GetOrInitRecord(userID, s.lookup).AddTag(tag)
		return boolCount(changed), changed, nil
	})
}

// RemoveTag takes tag away from userID. A record left without tags is deleted.
func (s *Store) RemoveTag(ctx context.Context, userID, tag string) (*Result, error) {
	return s.Apply(ctx, "remove_tag", func(doc *Document) (int, bool, error) {
		r, ok := doc.Records[userID]
		if !ok {
			return 0, false, nil
		}
		changed := r.RemoveTag(Sanitize(tag))
		return boolCount(changed), changed, nil
	})
}

// MoveTag reorders one user's tags.
func (s *Store) MoveTag(ctx context.Context, userID string, from, to int) (*Result, error) {
	return s.Apply(ctx, "move_tag", func(doc *Document) (int, bool, error) {
		r, ok := doc.Records[userID]
		if !ok {
			return 0, false, errors.NewNotFound(userID)
		}
		if err := r.MoveTag(from, to); err != nil {
			return 0, false, errors.NewInvalidRequest(err.Error())
		}
		return 1, from != to, nil
	})
}

// SetTags replaces userID's tag list. An empty list deletes the record.
func (s *Store) SetTags(ctx context.Context, userID string, tags []string) (*Result, error) {
	return s.Apply(ctx, "set_tags", func(doc *Document) (int, bool, error) {
		changed := doc.SetTags(userID, tags, s.lookup)
		return boolCount(changed), changed, nil
	})
}

// RenameTag relabels a tag across every record and the registry.
func (s *Store) RenameTag(ctx context.Context, oldName, newName string) (*Result, error) {
	return s.Apply(ctx, "rename_tag", func(doc *Document) (int, bool, error) {
		touched, changed := doc.RenameTag(oldName, newName)
		return touched, changed, nil
	})
}

// DeleteTag removes a tag from every record and the registry.
func (s *Store) DeleteTag(ctx context.Context, name string) (*Result, error) {
	return s.Apply(ctx, "delete_tag", func(doc *Document) (int, bool, error) {
		touched, changed := doc.DeleteTag(name)
		return touched, changed, nil
	})
}

// DuplicateTag copies a tag under a fresh name onto every holder and
// returns that name.
func (s *Store) DuplicateTag(ctx context.Context, name string) (string, *Result, error) {
	var copyName string
	res, err := s.Apply(ctx, "duplicate_tag", func(doc *Document) (int, bool, error) {
		var touched int
		var changed bool
		copyName, touched, changed = doc.DuplicateTag(name)
		return touched, changed, nil
	})
	if err != nil {
		return "", nil, err
	}
	return copyName, res, nil
}

// AddGlobalTag registers a tag that has no holders yet.
func (s *Store) AddGlobalTag(ctx context.Context, name string) (*Result, error) {
	return s.Apply(ctx, "add_global_tag", func(doc *Document) (int, bool, error) {
		changed := doc.Global.Add(name)
		return 0, changed, nil
	})
}

// Record returns a copy of userID's record. The second result is false when
// the user holds no tags; the returned record is then empty but usable.
func (s *Store) Record(userID string) (Record, bool) {
	s.mu.RLock()
	r, ok := s.doc.Records[userID]
	var out *Record
	if ok {
		out = r.clone()
	}
	s.mu.RUnlock()

	if !ok {
		out = &Record{UserID: userID, Tags: []string{}}
	}
	if out.Username == nil || *out.Username == "" {
		if p, found := s.lookup.GetUser(userID); found && p.Username != "" {
			name := p.Username
			out.Username = &name
		}
	}
	return *out, ok
}

// Records returns copies of every record ordered by user id.
func (s *Store) Records() []Record {
	return s.View().Records()
}

// View returns a consistent copy of the live state. Reads that combine
// records, counts, registry membership or the revision must come from one
// View so a concurrent save cannot interleave between them.
func (s *Store) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &View{
		Doc:      s.doc.Clone(),
		Index:    s.index.clone(),
		Revision: s.revision,
		sorter:   s.sorter,
	}
}

// Index returns a copy of the live index.
func (s *Store) Index() Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.clone()
}

// Revision is the ULID of the last successful save.
func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Lookup returns the identity lookup used to backfill usernames.
func (s *Store) Lookup() identity.Lookup {
	return s.lookup
}

// Sorter returns the collation used for display ordering.
func (s *Store) Sorter() Sorter {
	return s.sorter
}

// AllTags returns every known tag name, collated.
func (s *Store) AllTags() []string {
	return s.View().AllTags()
}

// Counts returns how many users hold each known tag.
func (s *Store) Counts() map[string]int {
	return s.View().Counts()
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
