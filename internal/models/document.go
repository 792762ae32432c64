package models

import "time"

// SnippetCap is the maximum number of runes kept from the recovered text.
const SnippetCap = 4000

// DocumentRecord is the stored record for one ingested PDF.
// Derived fields are nil when the heuristics found nothing.
type DocumentRecord struct {
	ID            string `firestore:"id" json:"id"`
	ResourceRef   string `firestore:"resourceRef" json:"resourceRef"`
	FileName      string `firestore:"fileName" json:"fileName"`
	FileSizeBytes int64  `firestore:"fileSizeBytes" json:"fileSizeBytes"`
	PageCount     int    `firestore:"pageCount" json:"pageCount"`
	FileHash      string `firestore:"fileHash,omitempty" json:"fileHash,omitempty"`

	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`

	OCRPerformed          bool     `firestore:"ocrPerformed" json:"ocrPerformed"`
	OCRLanguages          []string `firestore:"ocrLanguages" json:"ocrLanguages"`
	DetectedLanguageCodes []string `firestore:"detectedLanguageCodes" json:"detectedLanguageCodes"`

	Title          *string    `firestore:"title,omitempty" json:"title,omitempty"`
	Author         *string    `firestore:"author,omitempty" json:"author,omitempty"`
	Year           *int       `firestore:"year,omitempty" json:"year,omitempty"`
	Vendor         *string    `firestore:"vendor,omitempty" json:"vendor,omitempty"`
	InvoiceDate    *time.Time `firestore:"invoiceDate,omitempty" json:"invoiceDate,omitempty"`
	Amount         *float64   `firestore:"amount,omitempty" json:"amount,omitempty"`
	Passenger      *string    `firestore:"passenger,omitempty" json:"passenger,omitempty"`
	Airline        *string    `firestore:"airline,omitempty" json:"airline,omitempty"`
	FlightDate     *time.Time `firestore:"flightDate,omitempty" json:"flightDate,omitempty"`
	ContentSnippet *string    `firestore:"contentSnippet,omitempty" json:"contentSnippet,omitempty"`

	Tags  []string `firestore:"tags" json:"tags"`
	Notes *string  `firestore:"notes,omitempty" json:"notes,omitempty"`

	LastWorkflowExecutionID string `firestore:"lastWorkflowExecutionId,omitempty" json:"lastWorkflowExecutionId,omitempty"` // For traceability
}

// Fields is the partial field set produced by the metadata extractors.
type Fields struct {
	Year        *int
	Vendor      *string
	InvoiceDate *time.Time
	Amount      *float64
	Passenger   *string
	Airline     *string
	FlightDate  *time.Time
}

// RecoveredText is the transient output of text recovery. It is consumed by
// the extractors and the classifier and never persisted.
type RecoveredText struct {
	Text         string
	Pages        []string
	OCRPerformed bool
	Languages    []string
	PageCount    int
	Title        string
	Author       string
}

// Snippet returns the first SnippetCap runes of s.
func Snippet(s string) string {
	r := []rune(s)
	if len(r) <= SnippetCap {
		return s
	}
	return string(r[:SnippetCap])
}
