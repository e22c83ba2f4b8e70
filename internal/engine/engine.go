// Package engine implements the matchmaking state machine that turns
// searching users into exclusive chat pairs, and the relay that forwards
// content between the members of a pair.
package engine

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tk22kalal/chatbot/internal/models"
	"github.com/tk22kalal/chatbot/internal/storage"
)

var (
	// ErrUnknownUser means the caller never completed /start.
	ErrUnknownUser = errors.New("unknown user")
	// ErrAlreadyPaired means a search was requested while a chat is live.
	ErrAlreadyPaired = errors.New("already in a chat")
	// ErrAlreadySearching means a search was requested twice.
	ErrAlreadySearching = errors.New("already searching")
	// ErrNotInSession means there is no live session for the user.
	ErrNotInSession = errors.New("not in a session")
	// ErrNotSearching means a cancel was requested while not queued.
	ErrNotSearching = errors.New("not searching")
)

// Rand is the injectable randomness seam used for partner selection and
// token generation, so matching is reproducible under test.
type Rand interface {
	Intn(n int) int
}

// Result is the outcome of a search request. When Matched is false the
// user has been queued.
type Result struct {
	Matched   bool
	PartnerID int64
	Session   *models.ChatSession
}

// Engine owns the match queue and every transition of a user's pairing
// state. A single mutex guards the whole "check candidates, commit both
// users" section; that is the one concurrency-correctness requirement of
// the system, and the global lock is the simplest shape that honors it.
type Engine struct {
	mu    sync.Mutex
	store storage.Storage
	rng   Rand

	// queue holds the users currently waiting for a partner. The Redis
	// mirror kept through storage only serves restart recovery; this map
	// is authoritative.
	queue map[int64]struct{}
}

// New creates an Engine around the given store and randomness source.
func New(store storage.Storage, rng Rand) *Engine {
	return &Engine{
		store: store,
		rng:   rng,
		queue: make(map[int64]struct{}),
	}
}

// RecoverQueue refills the in-memory queue from the Redis mirror after a
// restart, dropping entries whose user record is no longer searching.
func (e *Engine) RecoverQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.store.SearchQueueMembers()
	if err != nil {
		log.Printf("ERROR: Failed to recover search queue: %v", err)
		return
	}
	for _, id := range ids {
		user, err := e.store.GetUser(id)
		if err != nil || user == nil || user.ChatState != models.StateSearching {
			if err := e.store.RemoveFromSearchQueue(id); err != nil {
				log.Printf("WARNING: Failed to drop stale queue entry %d: %v", id, err)
			}
			continue
		}
		e.queue[id] = struct{}{}
	}
	log.Printf("Search queue recovered with %d waiting users.", len(e.queue))
}

// RequestSearch queues the user, or pairs them immediately when another
// eligible user is waiting. Being paired or already queued is signalled
// with a sentinel error and changes nothing.
func (e *Engine) RequestSearch(userID int64) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchLocked(userID)
}

// CancelSearch removes a queued user from the match queue.
func (e *Engine) CancelSearch(userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := e.store.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownUser
	}
	if user.ChatState != models.StateSearching {
		return ErrNotSearching
	}

	e.dequeue(userID)
	user.ChatState = models.StateIdle
	user.PartnerID = nil
	return e.store.SaveUser(user)
}

// EndSession closes the caller's live session and clears both members'
// pairing state. It returns the partner's ID so the caller can notify
// them. Ending twice yields ErrNotInSession the second time.
func (e *Engine) EndSession(userID int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endLocked(userID)
}

// NextPartner ends the current session and immediately re-queues the same
// user inside one critical section, so no concurrent search can observe
// the intermediate state. The old partner's ID is returned alongside the
// new search outcome.
func (e *Engine) NextPartner(userID int64) (int64, *Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	partnerID, err := e.endLocked(userID)
	if err != nil {
		return 0, nil, err
	}
	result, err := e.searchLocked(userID)
	if err != nil {
		return partnerID, nil, err
	}
	return partnerID, result, nil
}

// Searching reports whether the user is currently queued.
func (e *Engine) Searching(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.queue[userID]
	return ok
}

func (e *Engine) searchLocked(userID int64) (*Result, error) {
	user, err := e.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	switch user.ChatState {
	case models.StatePaired:
		return nil, ErrAlreadyPaired
	case models.StateSearching:
		return nil, ErrAlreadySearching
	}

	partnerID, found := e.pickPartner(userID)
	if !found {
		user.ChatState = models.StateSearching
		user.PartnerID = nil
		if err := e.store.SaveUser(user); err != nil {
			return nil, err
		}
		e.enqueue(userID)
		return &Result{Matched: false}, nil
	}

	partner, err := e.store.GetUser(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil || partner.ChatState != models.StateSearching {
		// Queue entry went stale; drop it and keep the requester queued.
		e.dequeue(partnerID)
		return e.searchLocked(userID)
	}

	token, err := e.generateToken()
	if err != nil {
		return nil, err
	}
	session := &models.ChatSession{
		Token:     token,
		User1ID:   userID,
		User2ID:   partnerID,
		StartedAt: time.Now(),
	}
	if err := e.store.CreateSession(session); err != nil {
		return nil, err
	}

	e.dequeue(partnerID)
	user.ChatState = models.StatePaired
	user.PartnerID = &partnerID
	partner.ChatState = models.StatePaired
	partner.PartnerID = &userID
	if err := e.store.SaveUser(user); err != nil {
		return nil, err
	}
	if err := e.store.SaveUser(partner); err != nil {
		return nil, err
	}

	log.Printf("Match: %d and %d in session %s", userID, partnerID, token)
	return &Result{Matched: true, PartnerID: partnerID, Session: session}, nil
}

func (e *Engine) endLocked(userID int64) (int64, error) {
	user, err := e.store.GetUser(userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUnknownUser
	}
	if !user.InChat() {
		return 0, ErrNotInSession
	}
	partnerID := *user.PartnerID

	session, err := e.store.GetActiveSessionForUser(userID)
	if err != nil {
		return 0, err
	}
	if session != nil {
		if err := e.store.CloseSession(session.Token); err != nil {
			return 0, err
		}
	}

	user.ChatState = models.StateIdle
	user.PartnerID = nil
	if err := e.store.SaveUser(user); err != nil {
		return 0, err
	}

	partner, err := e.store.GetUser(partnerID)
	if err != nil {
		return 0, err
	}
	if partner != nil {
		partner.ChatState = models.StateIdle
		partner.PartnerID = nil
		if err := e.store.SaveUser(partner); err != nil {
			return 0, err
		}
	}
	return partnerID, nil
}

// pickPartner selects uniformly at random among the queued users other
// than the requester. Candidates are sorted so the choice is a pure
// function of the Rand seam.
func (e *Engine) pickPartner(userID int64) (int64, bool) {
	candidates := make([]int64, 0, len(e.queue))
	for id := range e.queue {
		if id != userID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates[e.rng.Intn(len(candidates))], true
}

func (e *Engine) enqueue(userID int64) {
	e.queue[userID] = struct{}{}
	if err := e.store.AddToSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to mirror queue add for %d: %v", userID, err)
	}
}

func (e *Engine) dequeue(userID int64) {
	delete(e.queue, userID)
	if err := e.store.RemoveFromSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to mirror queue removal for %d: %v", userID, err)
	}
}
