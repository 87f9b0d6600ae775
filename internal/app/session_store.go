package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

// RecordName is the fixed name under which session records are persisted.
const RecordName = "auth-storage"

const lockStripes = 64

// RecordKey returns the persistence key of the session record of clientID.
func RecordKey(clientID string) string {
	return RecordName + ":" + clientID
}

// SessionStore owns the session records of all clients. Records are loaded
// from and written through to the repository on every transition; writes for
// one client are serialized.
type SessionStore struct {
	repo domain.SessionRepository
	log  *slog.Logger

	locks [lockStripes]sync.Mutex

	epochMu sync.Mutex
	epochs  *lru.Cache[string, uint64]

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewSessionStore creates a store over repo. epochCacheSize bounds the number
// of clients whose logout epoch is remembered.
func NewSessionStore(repo domain.SessionRepository, epochCacheSize int, log *slog.Logger) (*SessionStore, error) {
	epochs, err := lru.New[string, uint64](epochCacheSize)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return &SessionStore{
		repo:     repo,
		log:      log.With(logger.Component("session_store")),
		epochs:   epochs,
		inflight: make(map[string]struct{}),
	}, nil
}

// Open returns the handle through which one request reads and mutates the
// session of clientID.
func (s *SessionStore) Open(clientID string) *SessionHandle {
	return &SessionHandle{store: s, clientID: clientID, epoch: s.epoch(clientID)}
}

// Ping checks the repository when it supports health checks.
func (s *SessionStore) Ping(ctx context.Context) error {
	if p, ok := s.repo.(domain.SessionPinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *SessionStore) lock(clientID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return &s.locks[h.Sum32()%lockStripes]
}

// epoch returns the current epoch of clientID, or zero if the client has not
// logged out since its entry was last remembered.
func (s *SessionStore) epoch(clientID string) uint64 {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	e, _ := s.epochs.Get(clientID)
	return e
}

func (s *SessionStore) advanceEpoch(clientID string) uint64 {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	e, ok := s.epochs.Get(clientID)
	if !ok {
		e = randomEpoch()
	}
	e++
	if e == 0 {
		e = 1
	}
	s.epochs.Add(clientID, e)
	return e
}

func randomEpoch() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (s *SessionStore) load(ctx context.Context, clientID string) (domain.Session, error) {
	rec, err := s.repo.Load(ctx, RecordKey(clientID))
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return domain.Session{}, nil
	}
	if !rec.Consistent() {
		s.log.Warn("discarding inconsistent session record", logger.ClientID(clientID))
		if err := s.repo.Delete(ctx, RecordKey(clientID)); err != nil {
			return domain.Session{}, fmt.Errorf("delete session: %w", err)
		}
		return domain.Session{}, nil
	}
	return *rec, nil
}

func (s *SessionStore) persist(ctx context.Context, clientID string, sess domain.Session) error {
	if sess.Empty() {
		if err := s.repo.Delete(ctx, RecordKey(clientID)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	}
	if err := s.repo.Save(ctx, RecordKey(clientID), sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SessionHandle is the session of one client as seen by one request.
// Mutating transitions fail with ErrStaleSession once the client has logged
// out after the handle was opened.
type SessionHandle struct {
	store    *SessionStore
	clientID string
	epoch    uint64
}

// ClientID returns the client the handle belongs to.
func (h *SessionHandle) ClientID() string {
	return h.clientID
}

// Snapshot rehydrates the session from the repository. It never contacts the
// backend: token freshness is discovered on the first authorized call.
func (h *SessionHandle) Snapshot(ctx context.Context) (domain.Session, error) {
	mu := h.store.lock(h.clientID)
	mu.Lock()
	defer mu.Unlock()
	return h.store.load(ctx, h.clientID)
}

// Login sets user and token together and marks the session authenticated.
func (h *SessionHandle) Login(ctx context.Context, user domain.User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	_, err := h.mutate(ctx, true, func(sess *domain.Session) error {
		u := user
		*sess = domain.Session{User: &u, Token: token, IsAuthenticated: true}
		return nil
	})
	if err == nil {
		h.store.log.Info("session authenticated", logger.ClientID(h.clientID), logger.UserID(user.ID))
	}
	return err
}

// Logout clears user, token and the authentication flag and removes the
// persisted record. Handles opened before the logout become stale.
func (h *SessionHandle) Logout(ctx context.Context) error {
	mu := h.store.lock(h.clientID)
	mu.Lock()
	defer mu.Unlock()

	return h.clear(ctx)
}

// LogoutIfToken logs out only while the stored token is still token. It
// reports whether the session was cleared; a session that has since moved on
// to another token is left alone.
func (h *SessionHandle) LogoutIfToken(ctx context.Context, token string) (bool, error) {
	mu := h.store.lock(h.clientID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := h.store.load(ctx, h.clientID)
	if err != nil {
		return false, err
	}
	if token == "" || sess.Token != token {
		return false, nil
	}
	return true, h.clear(ctx)
}

// clear must be called with the client lock held.
func (h *SessionHandle) clear(ctx context.Context) error {
	h.epoch = h.store.advanceEpoch(h.clientID)
	if err := h.store.persist(ctx, h.clientID, domain.Session{}); err != nil {
		return err
	}
	h.store.log.Info("session cleared", logger.ClientID(h.clientID))
	return nil
}

// UpdateUser merges patch into the current user. Without a user it is a
// no-op; token and authentication flag are never touched.
func (h *SessionHandle) UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.Session, error) {
	return h.mutate(ctx, true, func(sess *domain.Session) error {
		if sess.User == nil {
			return errNoChange
		}
		u := patch.Apply(*sess.User)
		sess.User = &u
		return nil
	})
}

// SetToken stores a credential ahead of the profile.
func (h *SessionHandle) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	_, err := h.mutate(ctx, true, func(sess *domain.Session) error {
		sess.Token = token
		return nil
	})
	return err
}

// SetUser stores the profile and marks the session authenticated. A token
// must already be present; otherwise ErrTokenRequired is returned and the
// session is left unchanged.
func (h *SessionHandle) SetUser(ctx context.Context, user domain.User) error {
	_, err := h.mutate(ctx, true, func(sess *domain.Session) error {
		if sess.Token == "" {
			return ErrTokenRequired
		}
		u := user
		sess.User = &u
		sess.IsAuthenticated = true
		return nil
	})
	return err
}

// RollbackToken discards token if it is still the stored one. It applies even
// to stale handles; a session that has since taken another token is kept.
func (h *SessionHandle) RollbackToken(ctx context.Context, token string) error {
	_, err := h.mutate(ctx, false, func(sess *domain.Session) error {
		if sess.Token != token {
			return errNoChange
		}
		*sess = domain.Session{}
		return nil
	})
	return err
}

// Acquire admits one in-flight submission of action for the client. The
// returned release func must be called when the submission settles.
func (h *SessionHandle) Acquire(action string) (release func(), err error) {
	key := h.clientID + "\x00" + action
	s := h.store
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, ErrDuplicateSubmission
	}
	s.inflight[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.inflightMu.Lock()
			delete(s.inflight, key)
			s.inflightMu.Unlock()
		})
	}, nil
}

// errNoChange lets a transition report that nothing needs persisting.
var errNoChange = errors.New("no change")

func (h *SessionHandle) mutate(ctx context.Context, checkEpoch bool, fn func(*domain.Session) error) (domain.Session, error) {
	mu := h.store.lock(h.clientID)
	mu.Lock()
	defer mu.Unlock()

	if checkEpoch && h.store.epoch(h.clientID) != h.epoch {
		return domain.Session{}, ErrStaleSession
	}

	sess, err := h.store.load(ctx, h.clientID)
	if err != nil {
		return domain.Session{}, err
	}
	before := sess
	if err := fn(&sess); err != nil {
		if errors.Is(err, errNoChange) {
			return before, nil
		}
		return before, err
	}
	if err := h.store.persist(ctx, h.clientID, sess); err != nil {
		return before, err
	}
	return sess, nil
}
