package events

import "time"

const (
	TypeFileUploaded  = "file.uploaded"
	TypeFileDeleted   = "file.deleted"
	TypeFolderCreated = "folder.created"
	TypeFolderRenamed = "folder.renamed"
	TypeFolderDeleted = "folder.deleted"
	TypeQuotaChanged  = "quota.changed"
)

// Event is pushed to every live connection of the affected user.
type Event struct {
	Type      string    `json:"type"`
	FolderID  *string   `json:"folder_id,omitempty"`
	FileID    string    `json:"file_id,omitempty"`
	UsedSpace *int64    `json:"used_space,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events without blocking the caller on slow consumers.
type Publisher interface {
	Publish(userID string, e Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Event) {}

// Nop discards every event.
func Nop() Publisher { return nopPublisher{} }
