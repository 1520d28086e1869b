package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/dark-cli/deptmaster"
	"github.com/dark-cli/deptmaster/client"
)

var (
	queueBucket      = []byte("queue")
	logBucket        = []byte("log")
	projectionBucket = []byte("projections")
	stateBucket      = []byte("state")
)

// Store is the durable session state for one wallet. All keys are prefixed
// with the wallet id, so several sessions can share one database file.
type Store struct {
	Driver   *Driver
	WalletID string
}

func NewStore(driver *Driver, walletID string) *Store {
	return &Store{Driver: driver, WalletID: walletID}
}

func (s *Store) prefix() []byte {
	return []byte(s.WalletID + "/")
}

// queueKey orders entries by local creation time, id as tie-break, so the
// queue drains in the order the user acted.
func (s *Store) queueKey(qe client.QueuedEvent) []byte {
	return []byte(fmt.Sprintf("%s/%020d/%s", s.WalletID, qe.Event.Timestamp.UnixNano(), qe.Event.ID))
}

func (s *Store) Queue() ([]client.QueuedEvent, error) {
	queue := make([]client.QueuedEvent, 0)
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(queueBucket).Cursor()
		prefix := s.prefix()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var qe client.QueuedEvent
			if err := json.Unmarshal(data, &qe); err != nil {
				return err
			}
			queue = append(queue, qe)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *Store) Enqueue(qe client.QueuedEvent) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(queueBucket)

		// Replace any entry already holding this event id.
		c := bucket.Cursor()
		prefix := s.prefix()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var existing client.QueuedEvent
			if err := json.Unmarshal(data, &existing); err != nil {
				return err
			}
			if existing.Event.ID == qe.Event.ID {
				if err := bucket.Delete(k); err != nil {
					return err
				}
				break
			}
		}

		data, err := json.Marshal(qe)
		if err != nil {
			return err
		}
		return bucket.Put(s.queueKey(qe), data)
	})
}

func (s *Store) DeleteQueued(eventID string) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(queueBucket)
		c := bucket.Cursor()
		prefix := s.prefix()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var qe client.QueuedEvent
			if err := json.Unmarshal(data, &qe); err != nil {
				return err
			}
			if qe.Event.ID == eventID {
				return bucket.Delete(k)
			}
		}
		return nil
	})
}

func (s *Store) Log() ([]deptmaster.Event, error) {
	events := make([]deptmaster.Event, 0)
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(logBucket).Cursor()
		prefix := s.prefix()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var e deptmaster.Event
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) PutLog(events []deptmaster.Event) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(logBucket)
		for _, e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(s.WalletID+"/"+e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Cursor() (time.Time, error) {
	var cursor time.Time
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(stateBucket).Get([]byte(s.WalletID + "/cursor"))
		if data == nil {
			return nil
		}
		return cursor.UnmarshalText(data)
	})
	return cursor, err
}

func (s *Store) SaveCursor(cursor time.Time) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := cursor.MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(stateBucket).Put([]byte(s.WalletID+"/cursor"), data)
	})
}

func (s *Store) Projection() (*deptmaster.Projection, error) {
	var data []byte
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(projectionBucket).Get([]byte(s.WalletID))
		if stored != nil {
			data = make([]byte, len(stored))
			copy(data, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return deptmaster.NewProjection(s.WalletID), nil
	}

	var p deptmaster.Projection
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Contacts == nil {
		p.Contacts = map[string]*deptmaster.Contact{}
	}
	if p.Transactions == nil {
		p.Transactions = map[string]*deptmaster.Transaction{}
	}
	return &p, nil
}

func (s *Store) SaveProjection(p *deptmaster.Projection) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(projectionBucket).Put([]byte(s.WalletID), data)
	})
}

func (s *Store) Fingerprint() (string, error) {
	var fingerprint string
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(stateBucket).Get([]byte(s.WalletID + "/fingerprint"))
		fingerprint = string(data)
		return nil
	})
	return fingerprint, err
}

func (s *Store) SaveFingerprint(fingerprint string) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(s.WalletID+"/fingerprint"), []byte(fingerprint))
	})
}

func (s *Store) ClearSynced() error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		prefix := s.prefix()

		logB := tx.Bucket(logBucket)
		keys := make([][]byte, 0)
		c := logB.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := logB.Delete(k); err != nil {
				return err
			}
		}

		queueB := tx.Bucket(queueBucket)
		keys = keys[:0]
		c = queueB.Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var qe client.QueuedEvent
			if err := json.Unmarshal(data, &qe); err != nil {
				return err
			}
			if qe.Synced {
				keys = append(keys, append([]byte(nil), k...))
			}
		}
		for _, k := range keys {
			if err := queueB.Delete(k); err != nil {
				return err
			}
		}

		if err := tx.Bucket(projectionBucket).Delete([]byte(s.WalletID)); err != nil {
			return err
		}

		stateB := tx.Bucket(stateBucket)
		if err := stateB.Delete([]byte(s.WalletID + "/cursor")); err != nil {
			return err
		}
		return stateB.Delete([]byte(s.WalletID + "/fingerprint"))
	})
}
