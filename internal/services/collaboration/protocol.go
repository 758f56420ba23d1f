package collaboration

import (
	"encoding/json"

	"openstream/internal/models"
)

// Application close codes, in the 4000-4999 range reserved for
// application use. A connection-closing error is first reported as an
// error frame carrying the same numeric code, then used in the close
// handshake.
const (
	// CloseAuthFailed covers invalid or expired tokens, denied branch
	// access and the authentication deadline expiring. Access denial is
	// deliberately indistinguishable from a bad credential.
	CloseAuthFailed = 4001
	// CloseInvalidFirstMessage: the first message was not an authenticate
	// message.
	CloseInvalidFirstMessage = 4002
	// CloseMissingToken: the authenticate message carried no token. Also
	// used (without closing) when the slideshow cannot be found during
	// authentication.
	CloseMissingToken = 4004
	// CloseMalformedPayload: the frame was not parseable JSON, an update
	// carried no data, or the update payload failed validation.
	CloseMalformedPayload = 4005
	// CloseInternalError: unexpected processing failure.
	CloseInternalError = 4006
	// ClosePresenceFailure: the shared presence subsystem is unavailable.
	ClosePresenceFailure = 4007
)

// Client message types.
const (
	msgTypeAuthenticate = "authenticate"
	msgTypeUpdate       = "update"
	msgTypeMessage      = "message"
)

// inboundMessage is the envelope for every client frame. Fields beyond
// Type are populated depending on the message type. Data stays raw here:
// its shape is only a concern of the update handler, and a non-object
// data field must not make the envelope itself unparseable.
type inboundMessage struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

func mustMarshal(v any) []byte {
	frame, err := json.Marshal(v)
	if err != nil {
		// Frames are built from plain maps and models; a marshal failure
		// is a programming error.
		panic(err)
	}
	return frame
}

func errorFrame(description string, code int) []byte {
	return mustMarshal(map[string]any{
		"error": description,
		"code":  code,
	})
}

func authenticatedFrame() []byte {
	return mustMarshal(map[string]string{"type": "authenticated"})
}

func dataFrame(snapshot any) []byte {
	return mustMarshal(map[string]any{"data": snapshot})
}

func messageFrame(text string) []byte {
	return mustMarshal(map[string]string{"message": text})
}

func presenceFrame(entries []models.PresenceEntry) []byte {
	return mustMarshal(map[string]any{"presence": entries})
}
