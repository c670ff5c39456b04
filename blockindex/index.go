package blockindex

import (
	"encoding/hex"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"chainreader/chainerr"
)

const recordPrefix = 'b'

// Index is the in-memory, read-only directory of every known block,
// sorted by height, built once at construction by scanning blocks/index
// (spec §4.3). It is safe for concurrent read-only use by any number of
// goroutines.
type Index struct {
	records  []Record          // sorted by Height
	byHeight map[int32]int     // Height -> index into records
	byHash   map[string]int32  // hex(hash) -> Height
}

// Open scans path (a Bitcoin Core blocks/index LevelDB directory) and
// builds the in-memory index. Opening is fatal on failure, per spec §4.3.
func Open(path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true})
	if err != nil {
		return nil, chainerr.Configf("blockindex.Open", err)
	}
	defer db.Close()

	iter := db.NewIterator(util.BytesPrefix([]byte{recordPrefix}), nil)
	defer iter.Release()

	var records []Record
	for iter.Next() {
		key := iter.Key()
		if len(key) != 33 {
			continue
		}
		var hash chainhash.Hash
		copy(hash[:], key[1:])

		// goleveldb's iterator reuses its key/value buffers; copy the
		// value before decoding beyond this iteration.
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		rec, err := decodeRecord(hash, value)
		if err != nil {
			return nil, err
		}
		if !rec.Status.FullyValid() || !rec.Status.HasData() {
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, chainerr.IOf("blockindex.Open", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Height < records[j].Height })

	byHeight := make(map[int32]int, len(records))
	byHash := make(map[string]int32, len(records))
	for i, rec := range records {
		byHeight[rec.Height] = i
		byHash[hex.EncodeToString(rec.Hash[:])] = rec.Height
	}

	return &Index{records: records, byHeight: byHeight, byHash: byHash}, nil
}

// MaxHeight returns the number of known headers.
func (idx *Index) MaxHeight() int32 {
	return int32(len(idx.records))
}

// Header returns the record at height h.
func (idx *Index) Header(h int32) (Record, error) {
	i, ok := idx.byHeight[h]
	if !ok {
		return Record{}, chainerr.NotFoundf("blockindex.Header", nil)
	}
	return idx.records[i], nil
}

// HashAt returns the block hash at height h.
func (idx *Index) HashAt(h int32) (chainhash.Hash, error) {
	rec, err := idx.Header(h)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return rec.Hash, nil
}

// HeightOf returns the height of the given block hash.
func (idx *Index) HeightOf(hash chainhash.Hash) (int32, error) {
	h, ok := idx.byHash[hex.EncodeToString(hash[:])]
	if !ok {
		return 0, chainerr.NotFoundf("blockindex.HeightOf", nil)
	}
	return h, nil
}

// BlockCount returns the largest h such that every record in [0, h) has
// TxCount > 0 — the contiguous downloaded prefix, per spec §4.6 (Bitcoin
// Core marks not-yet-downloaded headers with n_tx == 0).
func (idx *Index) BlockCount() int32 {
	var h int32
	for h = 0; h < int32(len(idx.records)); h++ {
		i, ok := idx.byHeight[h]
		if !ok || idx.records[i].TxCount == 0 {
			break
		}
	}
	return h
}

// HeightToFileOffset returns a lookup table from (file_no, data_pos) to
// height, built once from the loaded index. It is used by the tx index
// (spec §4.5) to reverse-resolve a transaction record to a block height.
func (idx *Index) HeightToFileOffset() map[FileOffset]int32 {
	m := make(map[FileOffset]int32, len(idx.records))
	for _, rec := range idx.records {
		if rec.FileNo == noPos {
			continue
		}
		m[FileOffset{FileNo: rec.FileNo, DataPos: rec.DataPos}] = rec.Height
	}
	return m
}

// FileOffset identifies a block's storage location: which blk<N>.dat file
// and the byte offset of the block payload within it.
type FileOffset struct {
	FileNo  int32
	DataPos int64
}
