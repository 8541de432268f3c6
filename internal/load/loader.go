// Package load consumes record sequences and persists them in atomic batches.
package load

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/censusdb/census/pkg/types"
)

// DefaultBatchSize is the number of records buffered per bulk insert.
const DefaultBatchSize = 1000

// Source is a finite stream of person records, consumed once.
// *generate.Sequence satisfies this.
type Source interface {
	Next() (types.Person, bool)
}

// Sink receives committed batches. *directory.Store satisfies this.
type Sink interface {
	// InsertBatch persists all records in one atomic write, or none.
	InsertBatch(ctx context.Context, people []types.Person) (int, error)

	// RecordBatch writes one committed batch into the load ledger.
	RecordBatch(ctx context.Context, sessionID string, batchSeq, rowCount int, checksum string) error
}

// Result summarizes a load run. Inserted is valid even when the run aborts:
// it counts records committed before the failing batch.
type Result struct {
	SessionID string
	Inserted  int
	Batches   int
}

// Loader buffers records into fixed-size batches and flushes each batch as
// one atomic insert. The buffer is exclusively owned and cleared after every
// successful flush.
type Loader struct {
	sink      Sink
	batchSize int
}

// NewLoader creates a loader flushing batches of batchSize records.
// A batchSize of zero or less falls back to DefaultBatchSize.
func NewLoader(sink Sink, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		sink:      sink,
		batchSize: batchSize,
	}
}

// Load consumes the source to exhaustion, flushing full batches as they fill
// and the final short batch at the end. The first batch failure aborts the
// run; the returned Result carries the count committed so far.
// Atomicity holds per batch only: a reader may observe some but not all
// batches of a run.
func (l *Loader) Load(ctx context.Context, src Source) (*Result, error) {
	result := &Result{
		SessionID: uuid.New().String(),
	}

	buf := make([]types.Person, 0, l.batchSize)
	for {
		p, ok := src.Next()
		if !ok {
			break
		}
		buf = append(buf, p)

		if len(buf) >= l.batchSize {
			if err := l.flush(ctx, result, buf); err != nil {
				return result, err
			}
			buf = buf[:0]
		}
	}

	if len(buf) > 0 {
		if err := l.flush(ctx, result, buf); err != nil {
			return result, err
		}
	}

	return result, nil
}

// flush persists one batch and records it in the load ledger.
func (l *Loader) flush(ctx context.Context, result *Result, batch []types.Person) error {
	n, err := l.sink.InsertBatch(ctx, batch)
	if err != nil {
		log.Printf("[WARN] load: batch %d of session %s failed after %d committed rows: %v",
			result.Batches, result.SessionID, result.Inserted, err)
		return err
	}

	checksum := batchChecksum(batch)
	if err := l.sink.RecordBatch(ctx, result.SessionID, result.Batches, n, checksum); err != nil {
		// The batch itself committed; count it before aborting.
		result.Inserted += n
		result.Batches++
		return err
	}

	result.Inserted += n
	result.Batches++
	return nil
}

// batchChecksum computes a murmur3 content hash over the batch, used as the
// ledger checksum for load-run auditing.
func batchChecksum(batch []types.Person) string {
	h := murmur3.New64()
	for _, p := range batch {
		h.Write([]byte(p.FullName))
		h.Write([]byte{0})
		h.Write([]byte(p.BirthDate))
		h.Write([]byte{0})
		h.Write([]byte(p.Gender))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
