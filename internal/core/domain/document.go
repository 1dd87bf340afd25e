package domain

import (
	"strconv"
	"strings"
	"time"
)

// Document is a remote document known to the local catalog.
type Document struct {
	// RemoteID is the document's identity in the remote store.
	RemoteID string `json:"remote_id"`

	// Title is the last title reported by the remote store.
	Title string `json:"title"`

	// Version is the highest revision seen so far. It never decreases.
	Version int64 `json:"version"`

	// FolderID weakly references a Folder. Empty means unattached.
	FolderID string `json:"folder_id,omitempty"`

	// LastUpdated is when Version or Title last changed locally.
	LastUpdated time.Time `json:"-"`

	// LastUpdatedMs is LastUpdated on the wire (Unix milliseconds).
	LastUpdatedMs int64 `json:"last_updated"`
}

// NewDocument creates a Document as first observed in a remote listing.
func NewDocument(remoteID, title string, version int64, ts time.Time) (*Document, error) {
	d := &Document{
		RemoteID:    remoteID,
		Title:       title,
		Version:     version,
		LastUpdated: ts,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the record before it is written.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.RemoteID) == "" {
		return ErrInvalidRecord.WithDetails("remote_id is required")
	}
	if strings.ContainsAny(d.RemoteID, `/\`) {
		return ErrInvalidRecord.WithDetails("remote_id must not contain path separators")
	}
	if d.Version < 0 {
		return ErrInvalidRecord.WithDetails("version must be >= 0")
	}
	return nil
}

// ApplyRemote applies a remote report to the document.
//
// The version only ratchets upwards: a report of an older or equal version
// leaves it as is. A changed title is always taken. LastUpdated is set to
// now when either field changes. It returns true if anything changed.
func (d *Document) ApplyRemote(title string, version int64, now time.Time) bool {
	changed := false
	if version > d.Version {
		d.Version = version
		d.LastUpdated = now
		changed = true
	}
	if title != d.Title {
		d.Title = title
		d.LastUpdated = now
		changed = true
	}
	return changed
}

// AttachTo sets the weak folder reference.
func (d *Document) AttachTo(f *Folder) {
	if f == nil {
		d.FolderID = ""
		return
	}
	d.FolderID = f.ID
}

// Clone returns a copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	return &c
}

// String implements fmt.Stringer.
func (d *Document) String() string {
	return "Document " + d.Title + " at version " + strconv.FormatInt(d.Version, 10)
}

// BeforeEncode syncs the wire timestamp from LastUpdated.
func (d *Document) BeforeEncode() {
	if d.LastUpdated.IsZero() {
		d.LastUpdatedMs = 0
		return
	}
	d.LastUpdatedMs = d.LastUpdated.UnixMilli()
}

// AfterDecode restores LastUpdated from the wire timestamp.
func (d *Document) AfterDecode() {
	if d.LastUpdatedMs == 0 {
		d.LastUpdated = time.Time{}
		return
	}
	d.LastUpdated = time.UnixMilli(d.LastUpdatedMs)
}
