package models

// Content kinds the relay knows how to forward. Anything else is mapped to
// ContentUnsupported at the Telegram boundary before it reaches the relay.
const (
	ContentText        = "text"
	ContentPhoto       = "photo"
	ContentVideo       = "video"
	ContentAudio       = "audio"
	ContentVoice       = "voice"
	ContentDocument    = "document"
	ContentSticker     = "sticker"
	ContentAnimation   = "animation"
	ContentVideoNote   = "video_note"
	ContentUnsupported = "unsupported"
)

// MediaPlaceholder is what transcript entries record in place of media payloads.
const MediaPlaceholder = "[Media]"

// Content is the closed tagged union carried between a sender and the
// delivery capability. It deliberately holds no sender metadata: forwarding
// a Content reconstructs a fresh outbound message.
type Content struct {
	Kind string
	// Text is set only for ContentText.
	Text string
	// FileID is the platform payload reference for every media kind.
	FileID string
	// Caption is optional and only meaningful for media kinds.
	Caption string
}

// TranscriptText returns the line logged to the session transcript.
func (c Content) TranscriptText() string {
	if c.Kind == ContentText {
		return c.Text
	}
	return MediaPlaceholder
}

// Supported reports whether the relay may forward this content.
func (c Content) Supported() bool {
	switch c.Kind {
	case ContentText, ContentPhoto, ContentVideo, ContentAudio, ContentVoice,
		ContentDocument, ContentSticker, ContentAnimation, ContentVideoNote:
		return true
	}
	return false
}
