package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/tk22kalal/chatbot/internal/models"
	"github.com/tk22kalal/chatbot/internal/storage"
)

var (
	// ErrUnsupportedContent is returned for content kinds the relay does
	// not forward. The partner is never notified.
	ErrUnsupportedContent = errors.New("unsupported content kind")
	// ErrPartnerUnreachable means delivery failed and the session has
	// been torn down as a side effect.
	ErrPartnerUnreachable = errors.New("partner unreachable")
)

// Delivery is the external capability that puts content in front of a
// user. Implementations return an error when the recipient cannot be
// reached.
type Delivery interface {
	Send(userID int64, content models.Content) error
}

// AuditSink receives redacted relay summaries and lifecycle notices.
type AuditSink interface {
	Log(text string)
}

// Relay forwards content between the two members of a live session,
// stripping all sender identity on the way through.
type Relay struct {
	store    storage.Storage
	engine   *Engine
	delivery Delivery
	audit    AuditSink
	rng      Rand
	// sampleRate sends 1-in-N successful relays to the audit sink.
	// Zero disables sampling entirely.
	sampleRate int
}

// NewRelay wires the relay. audit may be nil when no log channel is
// configured.
func NewRelay(store storage.Storage, eng *Engine, delivery Delivery, audit AuditSink, rng Rand, sampleRate int) *Relay {
	return &Relay{
		store:      store,
		engine:     eng,
		delivery:   delivery,
		audit:      audit,
		rng:        rng,
		sampleRate: sampleRate,
	}
}

// Relay forwards content from the sender to their partner and returns the
// partner's ID. A delivery failure is terminal for the pairing: the
// session is closed for both members before ErrPartnerUnreachable is
// returned.
func (r *Relay) Relay(senderID int64, content models.Content) (int64, error) {
	if !content.Supported() {
		return 0, ErrUnsupportedContent
	}

	session, err := r.store.GetActiveSessionForUser(senderID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrNotInSession
	}
	partnerID, ok := session.OtherMember(senderID)
	if !ok {
		return 0, ErrNotInSession
	}

	// Rebuild the outbound item from the payload alone; sender metadata
	// must not cross the relay.
	outbound := models.Content{
		Kind:    content.Kind,
		Text:    content.Text,
		FileID:  content.FileID,
		Caption: content.Caption,
	}
	if err := r.delivery.Send(partnerID, outbound); err != nil {
		log.Printf("Relay delivery to %d failed, closing session %s: %v", partnerID, session.Token, err)
		if _, endErr := r.engine.EndSession(senderID); endErr != nil && !errors.Is(endErr, ErrNotInSession) {
			log.Printf("ERROR: Failed to tear down session %s: %v", session.Token, endErr)
		}
		return partnerID, ErrPartnerUnreachable
	}

	if err := r.store.AppendSessionMessage(session.Token, senderID, content.TranscriptText()); err != nil {
		// Delivery already happened; a transcript miss is logged, not fatal.
		log.Printf("ERROR: Transcript append failed for session %s: %v", session.Token, err)
	}

	if r.audit != nil && r.sampleRate > 0 && r.rng.Intn(r.sampleRate) == 0 {
		r.audit.Log(fmt.Sprintf(
			"💬 <b>Message Sample</b>\n\nToken: <code>%s</code>\nFrom: %d\nTo: %d\nType: %s",
			session.Token, senderID, partnerID, content.Kind,
		))
	}
	return partnerID, nil
}
