package model

import "time"

// DivisionID scopes every record harvested from the BC openinfo portal
const DivisionID = "ocd-division/country:ca/province:bc"

// Record represents one public-records request and its published response
type Record struct {
	DivisionID    string `json:"division_id"`              // Jurisdiction scope, half of the fingerprint
	ID            string `json:"id"`                       // Opaque id from the detail link (recorduid)
	Identifier    string `json:"identifier"`               // Human code, e.g. "FIN-2011-00184"
	Position      int    `json:"position"`                 // Numeric suffix of Identifier
	Title         string `json:"title"`                    // e.g. "FOI Request - FIN-2011-00184"
	Abstract      string `json:"abstract"`                 // Full abstract from the detail page
	Organization  string `json:"organization"`             // Ministry
	ApplicantType string `json:"applicant_type,omitempty"` // e.g. "Individual", "Media"
	ProcessingFee string `json:"processing_fee,omitempty"` // Decimal text without currency symbol
	Date          string `json:"date"`                     // Publication date, YYYY-MM-DD
	URL           string `json:"url"`                      // Detail page URL

	Letters []Document `json:"letters,omitempty"`
	Notes   []Document `json:"notes,omitempty"`
	Files   []Document `json:"files,omitempty"`

	// Aggregates over primary-bundle documents only
	ByteSize      int64   `json:"byte_size"`
	NumberOfPages int     `json:"number_of_pages"`
	NumberOfRows  int     `json:"number_of_rows"`
	Duration      float64 `json:"duration"` // Seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint identifies a record across repeated runs
type Fingerprint struct {
	DivisionID string
	ID         string
}

// Fingerprint returns the persistence key for the record
func (r *Record) Fingerprint() Fingerprint {
	return Fingerprint{DivisionID: r.DivisionID, ID: r.ID}
}

// String returns the id, or the identifier when the id is unknown
func (r *Record) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Identifier
}

// ResetMetrics zeroes the aggregate counters before a metrics pass
func (r *Record) ResetMetrics() {
	r.ByteSize = 0
	r.NumberOfPages = 0
	r.NumberOfRows = 0
	r.Duration = 0
}

// AttachmentGroup names one of the three attachment lists
type AttachmentGroup string

const (
	GroupLetters AttachmentGroup = "letters"
	GroupNotes   AttachmentGroup = "notes"
	GroupFiles   AttachmentGroup = "files"
)

// AttachmentGroups is the fixed iteration order over a record's documents
var AttachmentGroups = []AttachmentGroup{GroupLetters, GroupNotes, GroupFiles}

// Group returns a pointer to the slice backing the named group, so callers
// can mutate documents in place
func (r *Record) Group(g AttachmentGroup) *[]Document {
	switch g {
	case GroupLetters:
		return &r.Letters
	case GroupNotes:
		return &r.Notes
	case GroupFiles:
		return &r.Files
	default:
		return nil
	}
}

// Document represents one file attached to a record
type Document struct {
	Title         string `json:"title"`                     // Link text, used as the file name
	URL           string `json:"url"`                       // Link target
	ByteSizeLabel string `json:"byte_size_label,omitempty"` // Declared size from the page, e.g. "1.2MB"

	MediaType     string   `json:"media_type,omitempty"`
	ByteSize      *int64   `json:"byte_size,omitempty"`       // Actual size of the downloaded bytes
	NumberOfPages *int     `json:"number_of_pages,omitempty"` // PDF, TIFF
	NumberOfRows  *int     `json:"number_of_rows,omitempty"`  // Spreadsheets, CSV
	Duration      *float64 `json:"duration,omitempty"`        // Audio/video, seconds
}

// HasLength reports whether a length metric has already been computed
func (d *Document) HasLength() bool {
	return d.NumberOfPages != nil || d.NumberOfRows != nil || d.Duration != nil
}
