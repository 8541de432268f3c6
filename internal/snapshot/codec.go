package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/golang/snappy"

	cenerrors "github.com/censusdb/census/internal/errors"
	"github.com/censusdb/census/pkg/types"
)

// Snapshot file layout: an 8-byte magic, the big-endian row count, the
// uncompressed payload size, then the snappy-compressed payload. The payload
// is a stream of uvarint-length-prefixed JSON records.
var snapshotMagic = [8]byte{'C', 'E', 'N', 'S', 'N', 'A', 'P', '1'}

// encodeRecords serializes and compresses the records into the snapshot
// wire format. Returns the encoded blob and the uncompressed payload size.
func encodeRecords(people []types.Person) ([]byte, int64, error) {
	var payload bytes.Buffer
	var lenBuf [binary.MaxVarintLen64]byte

	for _, p := range people {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, 0, cenerrors.NewSnapshotError(cenerrors.CodeExportFailed,
				"failed to marshal record", err)
		}
		n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
		payload.Write(lenBuf[:n])
		payload.Write(data)
	}

	compressed := snappy.Encode(nil, payload.Bytes())

	var out bytes.Buffer
	out.Write(snapshotMagic[:])
	var header [16]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(len(people)))
	binary.BigEndian.PutUint64(header[8:16], uint64(payload.Len()))
	out.Write(header[:])
	out.Write(compressed)

	return out.Bytes(), int64(payload.Len()), nil
}

// decodeRecords parses a snapshot blob back into records.
func decodeRecords(blob []byte) ([]types.Person, error) {
	if len(blob) < len(snapshotMagic)+16 {
		return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
			"snapshot truncated")
	}
	if !bytes.Equal(blob[:8], snapshotMagic[:]) {
		return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
			"bad snapshot magic")
	}

	rowCount := binary.BigEndian.Uint64(blob[8:16])
	rawSize := binary.BigEndian.Uint64(blob[16:24])

	payload, err := snappy.Decode(nil, blob[24:])
	if err != nil {
		return nil, cenerrors.NewSnapshotError(cenerrors.CodeCorruptStream,
			"failed to decompress snapshot", err)
	}
	if uint64(len(payload)) != rawSize {
		return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
			"snapshot payload size mismatch")
	}

	// Every record costs at least one payload byte, so a row count beyond
	// the payload size can only come from a corrupt header.
	if rowCount > uint64(len(payload)) {
		return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
			"snapshot row count exceeds payload size")
	}

	people := make([]types.Person, 0, rowCount)
	for len(payload) > 0 {
		recLen, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload)-n) < recLen {
			return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
				"snapshot record length corrupt")
		}
		payload = payload[n:]

		var p types.Person
		if err := json.Unmarshal(payload[:recLen], &p); err != nil {
			return nil, cenerrors.NewSnapshotError(cenerrors.CodeCorruptStream,
				"failed to unmarshal record", err)
		}
		people = append(people, p)
		payload = payload[recLen:]
	}

	if uint64(len(people)) != rowCount {
		return nil, cenerrors.New(cenerrors.ErrCategorySnapshot, cenerrors.CodeCorruptStream,
			"snapshot row count mismatch")
	}
	return people, nil
}
