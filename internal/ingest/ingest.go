// Package ingest turns document references into stored-ready records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfmanager/internal/classify"
	"github.com/Lllllllleong/pdfmanager/internal/extract"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
)

// DefaultConcurrency is the number of documents ingested at once.
const DefaultConcurrency = 4

// Status of one ingested reference.
type Status string

const (
	StatusIngested  Status = "ingested"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Outcome is the result for one input reference. Record is set for
// ingested and duplicate outcomes; Err is set for failures.
type Outcome struct {
	Ref    string
	Status Status
	Record *models.DocumentRecord
	Kind   models.FailureKind
	Err    error
}

// Recoverer produces the text of a local PDF.
type Recoverer interface {
	Recover(ctx context.Context, path string, languages []string) models.RecoveredText
}

// HashIndex finds an existing record by file hash.
type HashIndex interface {
	FindByHash(ctx context.Context, hash string) (models.DocumentRecord, bool, error)
}

// Ingestor builds records for batches of references. Documents are processed
// concurrently; pages within a document are processed sequentially.
type Ingestor struct {
	resolver    resource.Resolver
	recoverer   Recoverer
	index       HashIndex
	languages   []string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithConcurrency bounds the number of documents processed at once.
func WithConcurrency(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithLanguages sets the recognition languages passed to OCR.
func WithLanguages(languages []string) Option {
	return func(in *Ingestor) { in.languages = languages }
}

// WithHashIndex enables duplicate detection: a reference whose content hash
// is already stored, or is claimed by another reference of the same batch,
// is reported as a duplicate and not re-ingested.
func WithHashIndex(index HashIndex) Option {
	return func(in *Ingestor) { in.index = index }
}

func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingestor) { in.logger = logger }
}

func New(resolver resource.Resolver, recoverer Recoverer, opts ...Option) *Ingestor {
	in := &Ingestor{
		resolver:    resolver,
		recoverer:   recoverer,
		languages:   ocr.DefaultLanguages,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest processes refs and returns one outcome per ref, in input order.
// A failure affects only its own outcome.
func (in *Ingestor) Ingest(ctx context.Context, refs []string) []Outcome {
	outcomes := make([]Outcome, len(refs))
	claims := &hashClaims{byHash: make(map[string]*hashClaim)}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(in.concurrency)
	for i, ref := range refs {
		eg.Go(func() error {
			outcomes[i] = in.ingestOne(gctx, ref, claims)
			return nil
		})
	}
	_ = eg.Wait()

	return outcomes
}

func (in *Ingestor) ingestOne(ctx context.Context, ref string, claims *hashClaims) (outcome Outcome) {
	logCtx := in.logger.With("ref", ref)

	if err := ctx.Err(); err != nil {
		return failed(ref, err)
	}

	h, err := in.resolver.Resolve(ctx, ref)
	if err != nil {
		logCtx.Warn("Could not resolve document.", "error", err)
		if !errors.Is(err, models.ErrAccessDenied) {
			err = fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
		}
		return failed(ref, err)
	}
	defer h.Close()

	hash, err := h.Hash()
	if err != nil {
		logCtx.Warn("Could not read document.", "error", err)
		return failed(ref, fmt.Errorf("%w: %v", models.ErrAccessDenied, err))
	}
	logCtx = logCtx.With("fileHash", hash)

	if in.index != nil {
		for {
			c, owner := claims.acquire(hash)
			if owner {
				defer func() { claims.release(hash, c, outcome.Record) }()
				break
			}
			select {
			case <-c.done:
			case <-ctx.Done():
				return failed(ref, ctx.Err())
			}
			if c.rec != nil {
				logCtx.Info("Duplicate file in batch. Skipping.", "existingDocId", c.rec.ID)
				return Outcome{Ref: ref, Status: StatusDuplicate, Record: c.rec}
			}
			// The earlier claimant failed; try to take over.
		}

		existing, ok, err := in.index.FindByHash(ctx, hash)
		if err != nil {
			logCtx.Error("Failed to check for duplicate", "error", err)
			return failed(ref, err)
		}
		if ok {
			logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existing.ID)
			return Outcome{Ref: ref, Status: StatusDuplicate, Record: &existing}
		}
	}

	text := in.recoverer.Recover(ctx, h.Path, in.languages)
	if err := ctx.Err(); err != nil {
		return failed(ref, err)
	}

	rec := BuildRecord(h, hash, text, in.now(), in.newID())
	logCtx.Info("Document ingested.", "documentId", rec.ID, "pageCount", rec.PageCount, "ocr", rec.OCRPerformed, "tags", rec.Tags)
	return Outcome{Ref: h.Ref, Status: StatusIngested, Record: &rec}
}

// hashClaims hands each content hash of a batch to one reference at a time.
// Other references with the same hash wait for the claimant's record.
type hashClaims struct {
	mu     sync.Mutex
	byHash map[string]*hashClaim
}

type hashClaim struct {
	done chan struct{}
	rec  *models.DocumentRecord
}

// acquire returns a new claim and true when the caller owns hash, or the
// current claim and false.
func (h *hashClaims) acquire(hash string) (*hashClaim, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.byHash[hash]; ok {
		return c, false
	}
	c := &hashClaim{done: make(chan struct{})}
	h.byHash[hash] = c
	return c, true
}

// release publishes rec to waiters. A nil rec frees the hash for the next
// reference.
func (h *hashClaims) release(hash string, c *hashClaim, rec *models.DocumentRecord) {
	h.mu.Lock()
	if rec == nil {
		delete(h.byHash, hash)
	}
	h.mu.Unlock()
	c.rec = rec
	close(c.done)
}

func failed(ref string, err error) Outcome {
	return Outcome{Ref: ref, Status: StatusFailed, Kind: models.FailureKindOf(err), Err: err}
}

// BuildRecord assembles a new record from a resolved handle and its
// recovered text.
func BuildRecord(h *resource.Handle, hash string, text models.RecoveredText, now time.Time, id string) models.DocumentRecord {
	fields := extract.Extract(text.Text)
	rec := models.DocumentRecord{
		ID:            id,
		ResourceRef:   h.Ref,
		FileName:      h.Name,
		FileSizeBytes: h.Size,
		PageCount:     text.PageCount,
		FileHash:      hash,
		CreatedAt:     now,
		UpdatedAt:     now,
		OCRPerformed:  text.OCRPerformed,
		Title:         nonEmpty(text.Title),
		Author:        nonEmpty(text.Author),
		Year:          fields.Year,
		Vendor:        fields.Vendor,
		InvoiceDate:   fields.InvoiceDate,
		Amount:        fields.Amount,
		Passenger:     fields.Passenger,
		Airline:       fields.Airline,
		FlightDate:    fields.FlightDate,
		Tags:          classify.Classify(text.Text),
	}
	if text.OCRPerformed {
		rec.OCRLanguages = ocr.LanguagesOrDefault(text.Languages)
		rec.DetectedLanguageCodes = ocr.DetectedCodes(rec.OCRLanguages)
	}
	if strings.TrimSpace(text.Text) != "" {
		snippet := models.Snippet(text.Text)
		rec.ContentSnippet = &snippet
	}
	return rec
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
