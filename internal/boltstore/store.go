// Package boltstore keeps the ledger in a single bbolt file. Records are JSON
// values in one bucket per record family.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/services"

	bolt "go.etcd.io/bbolt"
)

var log = config.InitLogger()

var (
	bucketEscrows      = []byte("escrows")
	bucketPools        = []byte("pools")
	bucketParticipants = []byte("participants")
	bucketWhitelist    = []byte("whitelist")
	bucketBalances     = []byte("balances")
	bucketBurns        = []byte("burns")
	bucketLottery      = []byte("lottery")
	bucketEligible     = []byte("eligible")
	bucketWinners      = []byte("winners")
	bucketOperations   = []byte("operations")

	allBuckets = [][]byte{
		bucketEscrows,
		bucketPools,
		bucketParticipants,
		bucketWhitelist,
		bucketBalances,
		bucketBurns,
		bucketLottery,
		bucketEligible,
		bucketWinners,
		bucketOperations,
	}
)

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Error("Error opening bolt database: ", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		log.Error("Error closing bolt database: ", err)
		return err
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(tx services.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx services.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) get(bucket []byte, key string, v any) error {
	data := t.tx.Bucket(bucket).Get([]byte(key))
	if data == nil {
		return fmt.Errorf("%w: %s %s", common.ErrNotFound, bucket, key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", common.ErrStoreUnavailable, bucket, key, err)
	}
	return nil
}

func (t *boltTx) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", bucket, key, err)
	}
	if err := t.tx.Bucket(bucket).Put([]byte(key), data); err != nil {
		return fmt.Errorf("%w: put %s %s: %v", common.ErrStoreUnavailable, bucket, key, err)
	}
	return nil
}

func (t *boltTx) has(bucket []byte, key string) bool {
	return t.tx.Bucket(bucket).Get([]byte(key)) != nil
}

// pairKey joins two key parts. The first part is length-prefixed so no pair
// of ids can produce the key of another pair, and every key of one first
// part shares the prefix pairKey(a, "").
func pairKey(a, b string) string {
	buf := make([]byte, 4, 4+len(a)+len(b))
	binary.BigEndian.PutUint32(buf, uint32(len(a)))
	buf = append(buf, a...)
	buf = append(buf, b...)
	return string(buf)
}
