// Package history keeps a journal of delivered messages: frames committed by
// the composer and frames shown by the terminal bridge.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/rkjdid/util"
	bolt "go.etcd.io/bbolt"

	"github.com/solar3s/padlink/frame"
)

var bucket = []byte("frames")

var ErrClosed = errors.New("history: journal is closed")

type Config struct {
	Enabled bool
	Path    string        // database file, relative to the root directory
	Keep    int           // entries kept, oldest are pruned; 0 keeps all
	Timeout util.Duration // wait for the file lock on open
}

var DefaultConfig = Config{
	Enabled: true,
	Path:    "history.db",
	Keep:    1000,
	Timeout: util.Duration(time.Second),
}

type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Entry is one journaled frame.
type Entry struct {
	Seq       uint64
	Time      time.Time
	Direction Direction
	Kind      string
	ID        byte
	Payload   string
}

type Journal struct {
	db   *bolt.DB
	keep uint64
}

// Open opens or creates the journal at path. cfg.Path is ignored.
func Open(path string, cfg *Config) (*Journal, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Duration(cfg.Timeout)})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	j := &Journal{db: db}
	if cfg.Keep > 0 {
		j.keep = uint64(cfg.Keep)
	}
	return j, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Record appends f to the journal, pruning the oldest entries past Keep.
func (j *Journal) Record(dir Direction, f frame.Frame) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		v, err := json.Marshal(Entry{
			Seq:       seq,
			Time:      time.Now(),
			Direction: dir,
			Kind:      f.ID.String(),
			ID:        byte(f.ID),
			Payload:   string(f.Payload),
		})
		if err != nil {
			return err
		}
		if err = b.Put(itob(seq), v); err != nil {
			return err
		}
		if j.keep == 0 || seq <= j.keep {
			return nil
		}

		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= seq-j.keep; k, _ = c.Next() {
			stale = append(stale, k)
		}
		for _, k := range stale {
			if err = b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (j *Journal) Recent(n int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	var out []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Last(); k != nil && (n <= 0 || len(out) < n); k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Len returns the number of entries held.
func (j *Journal) Len() int {
	if j == nil || j.db == nil {
		return 0
	}
	var n int
	j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
