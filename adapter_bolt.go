package chainbase

import (
	"time"

	"go.etcd.io/bbolt"
)

var dataBucketName = []byte("chainbase")

// boltAdapter is a kvAdapter backed by go.etcd.io/bbolt, opened read-only
// or read-write per DatabaseMode. Keys are the decimal-ASCII encoding of
// a RecordID (encodeKey); values are opaque caller bytes, stored in a
// single top-level bucket.
//
// Grounded on edb's storage_bolt.go (boltStorage/boltStorageTx/
// boltBucket), narrowed from edb's nested-bucket, cursor-oriented
// interface down to the four flat operations spec.md §4.4 calls for.
type boltAdapter struct {
	bdb   *bbolt.DB
	merge MergeOperator
}

// openBoltAdapter opens (creating if necessary) a bbolt file at path.
// Default options mirror edb.Open: FreelistMapType and a generous
// InitialMmapSize (1 GiB unless Options.MmapSize is set) for write-heavy
// workloads — the closest bbolt
// analogue to spec.md §6's "level-style compaction optimized, parallelism
// raised to host parallelism" RocksDB defaults, which have no bbolt
// equivalent.
func openBoltAdapter(path string, mode DatabaseMode, opt Options) (*boltAdapter, error) {
	bopt := &bbolt.Options{
		Timeout:      10 * time.Second,
		ReadOnly:     mode == ModeReadOnly,
		FreelistType: bbolt.FreelistMapType,
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, err
	}

	if mode != ModeReadOnly {
		err = bdb.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(dataBucketName)
			return err
		})
		if err != nil {
			bdb.Close()
			return nil, err
		}
	}

	return &boltAdapter{bdb: bdb, merge: opt.MergeOperator}, nil
}

func (a *boltAdapter) Get(id RecordID) ([]byte, error) {
	var out []byte
	err := a.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucketName)
		if b == nil {
			return nil
		}
		if v := b.Get(encodeKeyNoPool(id)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (a *boltAdapter) Put(id RecordID, value []byte) error {
	return a.bdb.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(dataBucketName)
		if err != nil {
			return err
		}
		return b.Put(encodeKeyNoPool(id), value)
	})
}

func (a *boltAdapter) Delete(id RecordID) error {
	return a.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucketName)
		if b == nil {
			return nil
		}
		return b.Delete(encodeKeyNoPool(id))
	})
}

func (a *boltAdapter) Merge(id RecordID, value []byte) error {
	return a.bdb.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(dataBucketName)
		if err != nil {
			return err
		}
		key := encodeKeyNoPool(id)
		existing := b.Get(key)
		merged := value
		if a.merge != nil {
			merged = a.merge(existing, value)
		}
		return b.Put(key, merged)
	})
}

func (a *boltAdapter) Close() error {
	return a.bdb.Close()
}

// encodeKeyNoPool encodes id without borrowing from keyBytesPool: the key
// slice passed to a bbolt call is retained internally by bbolt until
// commit, so it must not be returned to the pool by the caller.
func encodeKeyNoPool(id RecordID) []byte {
	k := encodeKey(id)
	out := append([]byte(nil), k...)
	releaseKeyBytes(k)
	return out
}
