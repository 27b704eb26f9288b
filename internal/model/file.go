// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// UploadRecord holds the metadata kept for one successfully relayed file. The
// bytes themselves live on whichever external host accepted them; this record
// is the only local trace.
type UploadRecord struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
	DirectURL    string `json:"directUrl"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	Service      string `json:"service"`
	// ProviderFileID is the host's own identifier, kept so remote cleanup can
	// address the copy later. Omitted from JSON output.
	ProviderFileID string    `json:"-"`
	UploadDate     time.Time `json:"uploadDate"`
	Downloads      int64     `json:"downloads"`
	// Expiry is nil for durable hosts; disposable hosts report when the file
	// may disappear.
	Expiry *time.Time `json:"expiry,omitempty"`
}

// ListItem is the trimmed view returned by the listing endpoint.
type ListItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	DirectURL  string    `json:"directUrl"`
	Size       int64     `json:"size"`
	Service    string    `json:"service"`
	UploadDate time.Time `json:"uploadDate"`
	Downloads  int64     `json:"downloads"`
}

// ListView converts a record into its listing representation.
func (r *UploadRecord) ListView() ListItem {
	return ListItem{
		ID:         r.ID,
		Name:       r.OriginalName,
		URL:        r.URL,
		DirectURL:  r.DirectURL,
		Size:       r.Size,
		Service:    r.Service,
		UploadDate: r.UploadDate,
		Downloads:  r.Downloads,
	}
}

// DetailView is the full per-file view returned by GET /api/files/{id}.
type DetailView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	DirectURL  string     `json:"directUrl"`
	Size       int64      `json:"size"`
	MimeType   string     `json:"mimeType"`
	Service    string     `json:"service"`
	UploadDate time.Time  `json:"uploadDate"`
	Downloads  int64      `json:"downloads"`
	Expiry     *time.Time `json:"expiry"`
}

// Detail converts a record into its detail representation.
func (r *UploadRecord) Detail() DetailView {
	return DetailView{
		ID:         r.ID,
		Name:       r.OriginalName,
		URL:        r.URL,
		DirectURL:  r.DirectURL,
		Size:       r.Size,
		MimeType:   r.MimeType,
		Service:    r.Service,
		UploadDate: r.UploadDate,
		Downloads:  r.Downloads,
		Expiry:     r.Expiry,
	}
}
