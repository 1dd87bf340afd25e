package domain

import "strings"

// Folder is a remote folder. Its Name is recorded when the folder is first
// seen and not refreshed afterwards.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewFolder creates a Folder.
func NewFolder(id, name string) (*Folder, error) {
	f := &Folder{ID: id, Name: name}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the record before it is written.
func (f *Folder) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrInvalidRecord.WithDetails("folder id is required")
	}
	return nil
}
