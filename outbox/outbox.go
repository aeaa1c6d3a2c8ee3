package outbox

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gusrub/geary/lib"
)

// Filename is the outbox database file inside the account data directory.
const Filename = "outbox.db"

const pendingBucket = "pending"

// Message is a queued send.
type Message struct {
	ID     uint64
	To     []string
	Raw    []byte
	Queued time.Time
}

// Outbox is the persistent queue of messages waiting for the SMTP sender.
// The sender drains Pending and reports completion through MarkSent; the
// account store translates the OnSent callback into its email_sent event.
type Outbox struct {
	dbFile string
	db     *bolt.DB
	log    lib.Logger

	mu     sync.Mutex
	onSent func(Message)
}

func Open(filename string, logger lib.Logger) (*Outbox, error) {
	options := bolt.DefaultOptions
	options.Timeout = 10 * time.Second

	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", filename, err)
	}
	db, err := bolt.Open(filename, 0600, options)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pendingBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{
		dbFile: filename,
		db:     db,
		log:    lib.DefaultLogger(logger),
	}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// OnSent installs the callback fired for every message reported as sent.
// Pass nil to disconnect.
func (o *Outbox) OnSent(fn func(Message)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onSent = fn
}

// Queue appends a raw message to the outbox and returns its queue id.
func (o *Outbox) Queue(raw []byte, to []string) (uint64, error) {
	var id uint64
	err := o.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(pendingBucket))
		var err error
		id, err = bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("cannot get next outbox ID: %w", err)
		}
		message := Message{
			ID:     id,
			To:     to,
			Raw:    raw,
			Queued: time.Now().UTC(),
		}
		value, err := serializeMessage(&message)
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(id), value)
	})
	if err != nil {
		return 0, err
	}
	o.log.Printf("outbox: queued message %d for %d recipient(s)", id, len(to))
	return id, nil
}

// Pending lists queued messages in send order.
func (o *Outbox) Pending() ([]Message, error) {
	messages := make([]Message, 0)
	err := o.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(pendingBucket))
		return bucket.ForEach(func(key, value []byte) error {
			message, err := deserializeMessage(value)
			if err != nil {
				// skip the damaged entry, the rest of the queue still sends
				o.log.Printf("outbox: skipping unreadable entry %x: %v", key, err)
				return nil
			}
			messages = append(messages, *message)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkSent removes a sent message from the queue and fires OnSent.
func (o *Outbox) MarkSent(id uint64) error {
	var message *Message
	err := o.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(pendingBucket))
		value := bucket.Get(sequenceKey(id))
		if value == nil {
			return lib.ErrMessageNotFound
		}
		var err error
		if message, err = deserializeMessage(value); err != nil {
			message = &Message{ID: id}
		}
		return bucket.Delete(sequenceKey(id))
	})
	if err != nil {
		return err
	}
	o.mu.Lock()
	onSent := o.onSent
	o.mu.Unlock()
	if onSent != nil {
		onSent(*message)
	}
	return nil
}

func sequenceKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func serializeMessage(message *Message) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := gob.NewEncoder(buffer).Encode(message)
	return buffer.Bytes(), err
}

func deserializeMessage(value []byte) (*Message, error) {
	message := &Message{}
	err := gob.NewDecoder(bytes.NewBuffer(value)).Decode(message)
	return message, err
}
