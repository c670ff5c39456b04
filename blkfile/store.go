// Package blkfile locates and decodes blocks and individual transactions
// from Bitcoin Core's append-only blk*.dat files (spec §4.4). It is
// grounded directly on the teacher's pkg/parser/block.go, which already
// skips the 4-byte magic/4-byte size prefix and deserializes through
// github.com/btcsuite/btcd/wire — generalized here from "parse the first
// block in a single given file" into "seek to an arbitrary (file_no,
// offset) pair across a whole directory of files."
package blkfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/btcsuite/btcd/wire"

	"chainreader/chainerr"
	"chainreader/reader"
)

var blkFileRe = regexp.MustCompile(`^blk(\d+)\.dat$`)

// Store resolves a (file_no, offset) pair to a buffered file handle and
// decodes the block or transaction found there. The file_no -> path
// catalog is built once at construction; handles are opened per call.
type Store struct {
	paths map[int32]string
}

// Open scans dir for blk<digits>.dat files, following one level of
// symlink, and builds the file_no -> path catalog. An empty catalog is a
// construction-time error, per spec §4.4.
func Open(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, chainerr.Configf("blkfile.Open", err)
	}

	paths := make(map[int32]string)
	for _, e := range entries {
		name := e.Name()
		full := filepath.Join(dir, name)

		info := e
		if info.Type()&os.ModeSymlink != 0 {
			resolved, err := os.Readlink(full)
			if err != nil {
				continue
			}
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(dir, resolved)
			}
			full = resolved
			name = filepath.Base(resolved)
		}

		m := blkFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 32)
		if err != nil {
			continue
		}
		paths[int32(n)] = full
	}

	if len(paths) == 0 {
		return nil, chainerr.Configf("blkfile.Open", os.ErrNotExist)
	}
	return &Store{paths: paths}, nil
}

// FileNos returns every known file_no, ascending, mostly useful for tests
// and diagnostics.
func (s *Store) FileNos() []int32 {
	nos := make([]int32, 0, len(s.paths))
	for n := range s.paths {
		nos = append(nos, n)
	}
	sort.Slice(nos, func(i, j int) bool { return nos[i] < nos[j] })
	return nos
}

func (s *Store) open(fileNo int32) (*os.File, error) {
	path, ok := s.paths[fileNo]
	if !ok {
		return nil, chainerr.NotFoundf("blkfile", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, chainerr.IOf("blkfile", err)
	}
	return f, nil
}

// ReadBlock reads and decodes the block stored in file_no at offset
// (the payload offset recorded by blocks/index, i.e. the byte right after
// the 4-byte magic and 4-byte size fields). Per spec §4.4, it seeks to
// offset-4 to read the size prefix, then decodes exactly that many bytes.
func (s *Store) ReadBlock(fileNo int32, offset int64) (*wire.MsgBlock, error) {
	f, err := s.open(fileNo)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(offset-4, io.SeekStart); err != nil {
		return nil, chainerr.IOf("blkfile.ReadBlock", err)
	}
	br := bufio.NewReader(f)

	size, err := reader.New(br).ReadUint32LE()
	if err != nil {
		return nil, chainerr.IOf("blkfile.ReadBlock", err)
	}

	lr := io.LimitReader(br, int64(size))
	block := new(wire.MsgBlock)
	if err := block.Deserialize(lr); err != nil {
		return nil, chainerr.Corruptf("blkfile.ReadBlock", err)
	}
	return block, nil
}

// ReadTransaction reads and decodes a single transaction inside the block
// stored in file_no at blockOffset (the block's payload offset), at byte
// offset txOffset measured from the end of the block's 80-byte header,
// per spec §4.4.
func (s *Store) ReadTransaction(fileNo int32, blockOffset, txOffset int64) (*wire.MsgTx, error) {
	f, err := s.open(fileNo)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(blockOffset+txOffset+80, io.SeekStart); err != nil {
		return nil, chainerr.IOf("blkfile.ReadTransaction", err)
	}
	br := bufio.NewReader(f)

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(br); err != nil {
		return nil, chainerr.Corruptf("blkfile.ReadTransaction", err)
	}
	return tx, nil
}
