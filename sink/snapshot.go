package sink

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot header.
var snapshotMagic = []byte("LOGTRAP1")

// WriteSnapshot dumps the stored records to a file for post-mortem
// inspection: the magic header followed by a zstd stream of
// length-prefixed JSON rows ([len uint32 LE][row]).
func (r *Records) WriteSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.writeSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Records) writeSnapshot(w io.Writer) error {
	if _, err := w.Write(snapshotMagic); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}

	lenBuf := make([]byte, 4)
	for _, rec := range r.All() {
		data, err := json.Marshal(rec)
		if err != nil {
			enc.Close()
			return err
		}
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))
		if _, err := enc.Write(lenBuf); err != nil {
			enc.Close()
			return err
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

// ReadSnapshot loads a snapshot file written by WriteSnapshot,
// replacing the store contents with the rows it holds.
func (r *Records) ReadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	if !bytes.Equal(magic, snapshotMagic) {
		return fmt.Errorf("not a logtrap snapshot: bad magic %q", magic)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var entries []Record
	lenBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(dec, lenBuf); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("snapshot row length: %w", err)
		}
		data := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(dec, data); err != nil {
			return fmt.Errorf("snapshot row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("snapshot row: %w", err)
		}
		entries = append(entries, rec)
	}

	r.Replace(entries)
	return nil
}
