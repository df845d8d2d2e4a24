// Package leveldb es el driver embebido: un solo proceso, sin servidor de base
// de datos. Los valores son JSON bajo claves con prefijo por tabla.
package leveldb

import (
	"encoding/json"
	"sync"

	"health-consent/internal/ports/storage"

	"github.com/pkg/errors"
	ldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = storage.ErrNotFound

const (
	prefixPatient     = "patient/"
	prefixSession     = "session/"
	prefixConsent     = "consent/"
	prefixConsentCode = "consentcode/"
	prefixGroup       = "group/"
	prefixMember      = "member/"
	prefixGrant       = "grant/"
	prefixRecord      = "record/"
)

// DB comparte el handle y el lock de escritura entre todos los repos: los
// read-modify-write (claim + sesión) se serializan acá y se escriben en un batch.
type DB struct {
	mu sync.Mutex
	db *ldb.DB
}

func Open(path string) (*DB, error) {
	db, err := ldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "leveldb: open %s", path)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) get(key string, v any) error {
	data, err := d.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, ldb.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "leveldb: get %s", key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "leveldb: decode %s", key)
	}
	return nil
}

func (d *DB) has(key string) (bool, error) {
	ok, err := d.db.Has([]byte(key), nil)
	if err != nil {
		return false, errors.Wrapf(err, "leveldb: has %s", key)
	}
	return ok, nil
}

func (d *DB) write(b *ldb.Batch) error {
	if err := d.db.Write(b, nil); err != nil {
		return errors.Wrap(err, "leveldb: write batch")
	}
	return nil
}

func (d *DB) put(key string, v any) error {
	b := new(ldb.Batch)
	if err := batchPut(b, key, v); err != nil {
		return err
	}
	return d.write(b)
}

func batchPut(b *ldb.Batch, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "leveldb: encode %s", key)
	}
	b.Put([]byte(key), data)
	return nil
}

// scan recorre las claves con ese prefijo en orden. fn devuelve false para cortar.
func (d *DB) scan(prefix string, fn func(key string, value []byte) (bool, error)) error {
	iter := d.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		more, err := fn(string(iter.Key()), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return errors.Wrapf(err, "leveldb: scan %s", prefix)
	}
	return nil
}

// scanJSON decodifica cada valor del prefijo en un T nuevo.
func scanJSON[T any](d *DB, prefix string, fn func(key string, v T) bool) error {
	return d.scan(prefix, func(key string, value []byte) (bool, error) {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return false, errors.Wrapf(err, "leveldb: decode %s", key)
		}
		return fn(key, v), nil
	})
}
