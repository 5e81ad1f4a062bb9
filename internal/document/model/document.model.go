package model

// Note is the wire shape of a stored note. Timestamps are epoch seconds.
type Note struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	Content  string `json:"content"`
	Created  int64  `json:"created"`
	Modified int64  `json:"modified"`
}

type CreateNoteRequest struct {
	Content string `json:"content"`
}

type CreateNoteResponse struct {
	ID string `json:"id"`
}

type UpdateNoteRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type DeleteNoteRequest struct {
	ID string `json:"id"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// Change is pushed over the websocket after every successful write.
type Change struct {
	Type   string `json:"type"`
	NoteID string `json:"note_id"`
	Owner  string `json:"owner"`
}

const (
	NoteCreated = "NOTE_CREATED"
	NoteUpdated = "NOTE_UPDATED"
	NoteDeleted = "NOTE_DELETED"
)

// Record is a note as stored, with content sealed by the owner's data key.
type Record struct {
	ID       string
	Owner    string
	Content  []byte
	Nonce    []byte
	Created  int64
	Modified int64
}
