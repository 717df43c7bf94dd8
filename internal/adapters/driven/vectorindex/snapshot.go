package vectorindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

const (
	snapshotMagic   = "RTVI"
	snapshotVersion = uint16(1)
	headerSize      = 4 + 2 + 4 + 4 + 8
	trailerSize     = 4
)

// writeSnapshot writes snap to a temporary file and renames it over path.
func writeSnapshot(path string, snap *snapshot) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), FileName+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(tmp)
	w := io.MultiWriter(bw, crc)

	header := make([]byte, headerSize)
	copy(header, snapshotMagic)
	binary.LittleEndian.PutUint16(header[4:], snapshotVersion)
	binary.LittleEndian.PutUint32(header[6:], uint32(snap.dims))
	binary.LittleEndian.PutUint32(header[10:], uint32(len(snap.rows)))
	binary.LittleEndian.PutUint64(header[14:], uint64(snap.updatedAt.UnixNano()))
	if _, err = w.Write(header); err != nil {
		return err
	}

	var buf [4]byte
	vec := make([]byte, 4*snap.dims)
	for i := range snap.rows {
		meta, merr := json.Marshal(&snap.rows[i])
		if merr != nil {
			return merr
		}
		binary.LittleEndian.PutUint32(buf[:], uint32(len(meta)))
		if _, err = w.Write(buf[:]); err != nil {
			return err
		}
		if _, err = w.Write(meta); err != nil {
			return err
		}
		for j, x := range snap.rows[i].Vector {
			binary.LittleEndian.PutUint32(vec[j*4:], math.Float32bits(x))
		}
		if _, err = w.Write(vec); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(buf[:], crc.Sum32())
	if _, err = bw.Write(buf[:]); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(path))
}

// syncDir flushes the directory entry so the rename survives a crash.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// readSnapshot loads a snapshot file. Structural problems are reported as
// domain.ErrIndexCorrupted; a missing file as os.ErrNotExist.
func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	if len(data) < headerSize+trailerSize {
		return nil, corrupt("file too short (%d bytes)", len(data))
	}
	body := data[:len(data)-trailerSize]
	if got, want := crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(data[len(body):]); got != want {
		return nil, corrupt("checksum mismatch")
	}
	if string(body[:4]) != snapshotMagic {
		return nil, corrupt("bad magic")
	}
	if v := binary.LittleEndian.Uint16(body[4:]); v != snapshotVersion {
		return nil, corrupt("unsupported version %d", v)
	}

	dims := int(binary.LittleEndian.Uint32(body[6:]))
	count := int(binary.LittleEndian.Uint32(body[10:]))
	snap := &snapshot{
		dims:      dims,
		updatedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(body[14:]))),
	}
	if count > 0 && dims == 0 {
		return nil, corrupt("%d rows without dimensions", count)
	}
	// Each row needs at least its length prefix and vector.
	if count > (len(body)-headerSize)/(4+4*dims) {
		return nil, corrupt("row count %d exceeds file size", count)
	}

	snap.rows = make([]driven.IndexRow, count)
	snap.norms = make([]float64, count)
	off := headerSize
	for i := 0; i < count; i++ {
		if off+4 > len(body) {
			return nil, corrupt("row %d truncated", i)
		}
		metaLen := int(binary.LittleEndian.Uint32(body[off:]))
		off += 4
		if metaLen > len(body)-off || off+metaLen+4*dims > len(body) {
			return nil, corrupt("row %d truncated", i)
		}
		if err := json.Unmarshal(body[off:off+metaLen], &snap.rows[i]); err != nil {
			return nil, corrupt("row %d metadata: %v", i, err)
		}
		off += metaLen

		v := make([]float32, dims)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
			off += 4
		}
		snap.rows[i].Vector = v
		snap.norms[i] = norm(v)
	}
	if off != len(body) {
		return nil, corrupt("%d trailing bytes", len(body)-off)
	}
	if count == 0 {
		snap.dims = 0
	}
	return snap, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrIndexCorrupted, fmt.Sprintf(format, args...))
}
