// Package registry contains the in-memory metadata store for relayed files.
// Records live only for the lifetime of the process; the backing hosts are
// disposable, so losing metadata on restart is accepted.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/RelayDrop/internal/model"
)

var (
	// ErrNotFound is exported so callers can compare errors using errors.Is.
	ErrNotFound = errors.New("file not found")
	// ErrDuplicateID signals an id collision on insert. With uuid-generated
	// ids this indicates a caller bug rather than an expected condition.
	ErrDuplicateID = errors.New("duplicate file id")
)

// Registry guards the record set with an RWMutex so request handlers and the
// expiry sweeper share one locking discipline. Insertion order is tracked
// separately to support the capacity cap.
type Registry struct {
	mu       sync.RWMutex
	files    map[string]*model.UploadRecord
	order    []string
	capacity int
}

// New constructs a Registry. A capacity <= 0 disables the cap.
func New(capacity int) *Registry {
	return &Registry{
		files:    make(map[string]*model.UploadRecord),
		capacity: capacity,
	}
}

// Insert appends a record. When the capacity cap is exceeded the
// oldest-inserted records are silently dropped to bound memory; this is a
// best-effort cap by insertion order, not an LRU.
func (r *Registry) Insert(record *model.UploadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[record.ID]; ok {
		return ErrDuplicateID
	}
	if record.UploadDate.IsZero() {
		record.UploadDate = time.Now().UTC()
	}
	r.files[record.ID] = record
	r.order = append(r.order, record.ID)
	for r.capacity > 0 && len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.files, oldest)
	}
	return nil
}

// Get returns a record copy; absence is a normal outcome reported via
// ErrNotFound.
func (r *Registry) Get(id string) (*model.UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListResult carries one page of records plus the pagination totals.
type ListResult struct {
	Files      []model.ListItem
	Total      int
	Page       int
	TotalPages int
	Limit      int
}

// List filters, sorts and paginates the record set. A non-empty search term
// shorter than minSearch is ignored rather than rejected, matching the
// original service's behavior. Pages are 1-indexed; totalPages has a floor of
// 1 even when the filtered set is empty.
func (r *Registry) List(page, limit int, search string, minSearch int) ListResult {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	// Views are materialized under the read lock; the shared records must not
	// be touched once it is released, or a concurrent download-count bump
	// races the read.
	r.mu.RLock()
	filtered := make([]model.ListItem, 0, len(r.files))
	needle := strings.ToLower(search)
	applyFilter := search != "" && len(search) >= minSearch
	for _, rec := range r.files {
		if applyFilter && !strings.Contains(strings.ToLower(rec.OriginalName), needle) {
			continue
		}
		filtered = append(filtered, rec.ListView())
	}
	r.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].UploadDate.After(filtered[j].UploadDate)
	})

	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return ListResult{
		Files:      filtered[start:end],
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		Limit:      limit,
	}
}

// IncrementDownloads bumps the download counter and returns the new value.
func (r *Registry) IncrementDownloads(id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.files[id]
	if !ok {
		return 0, ErrNotFound
	}
	rec.Downloads++
	return rec.Downloads, nil
}

// Delete removes a record and returns it so the caller can run remote
// cleanup against the host that stored the bytes.
func (r *Registry) Delete(id string) (*model.UploadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.files, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	cp := *rec
	return &cp, nil
}

// ServiceStats aggregates per-host usage.
type ServiceStats struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// Stats summarizes the live record set.
type Stats struct {
	TotalFiles     int                     `json:"totalFiles"`
	TotalSize      int64                   `json:"totalSize"`
	TotalDownloads int64                   `json:"totalDownloads"`
	Services       map[string]ServiceStats `json:"services"`
}

// Stats computes aggregate statistics over all live records.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{Services: make(map[string]ServiceStats)}
	for _, rec := range r.files {
		stats.TotalFiles++
		stats.TotalSize += rec.Size
		stats.TotalDownloads += rec.Downloads
		svc := stats.Services[rec.Service]
		svc.Count++
		svc.Size += rec.Size
		stats.Services[rec.Service] = svc
	}
	return stats
}

// RemoveExpired drops every record whose expiry is set and before now,
// returning the removed records. Records without an expiry are never touched,
// so running it again immediately is a no-op.
func (r *Registry) RemoveExpired(now time.Time) []*model.UploadRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*model.UploadRecord
	kept := r.order[:0]
	for _, id := range r.order {
		rec := r.files[id]
		if rec != nil && rec.Expiry != nil && rec.Expiry.Before(now) {
			delete(r.files, id)
			removed = append(removed, rec)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// Len reports the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
