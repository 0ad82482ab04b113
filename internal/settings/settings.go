// Package settings stores per-torrent settings that the engine does not persist by itself in a Bolt database.
package settings

import (
	"errors"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by Update when the torrent is not in the store.
var ErrNotFound = errors.New("torrent settings not found")

var (
	torrentsBucket = []byte("torrents")

	autoManagedKey    = []byte("auto_managed")
	downloadLimitKey  = []byte("download_limit")
	uploadLimitKey    = []byte("upload_limit")
	maxConnectionsKey = []byte("max_connections")
	maxUploadsKey     = []byte("max_uploads")
	sequentialKey     = []byte("sequential_download")
	queuePositionKey  = []byte("queue_position")
	savePathKey       = []byte("save_path")
)

// Settings of a single torrent. Zero limits mean unlimited.
type Settings struct {
	AutoManaged        bool
	DownloadLimit      int
	UploadLimit        int
	MaxConnections     int
	MaxUploads         int
	SequentialDownload bool
	QueuePosition      int
	// SavePath is empty until the storage is moved out of the engine's data directory.
	SavePath string
}

// Default settings for a torrent that is not in the store.
var Default = Settings{
	AutoManaged: true,
}

// Store keeps Settings keyed by torrent ID.
type Store struct {
	db *bolt.DB
}

// Open the database file at path, creating it if missing.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o640, &bolt.Options{Timeout: time.Second})
	if err == bolt.ErrTimeout {
		return nil, errors.New("settings database is locked by another process")
	}
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists(torrentsBucket)
		return err2
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns settings of the torrent. ok is false and Default is returned if the torrent is not in the store.
func (s *Store) Get(id string) (st Settings, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(torrentsBucket).Bucket([]byte(id))
		if b == nil {
			st = Default
			return nil
		}
		ok = true
		st, err = read(b)
		return err
	})
	return
}

// Put replaces settings of the torrent.
func (s *Store) Put(id string, st Settings) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(torrentsBucket).CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return err
		}
		return write(b, st)
	})
}

// Update reads the settings of the torrent, calls fn and writes them back in a single transaction.
// It returns ErrNotFound if the torrent is not in the store. Use Put to add a torrent.
func (s *Store) Update(id string, fn func(*Settings) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(torrentsBucket).Bucket([]byte(id))
		if b == nil {
			return ErrNotFound
		}
		st, err := read(b)
		if err != nil {
			return err
		}
		err = fn(&st)
		if err != nil {
			return err
		}
		return write(b, st)
	})
}

// Delete removes the torrent from the store.
// Queue positions of the torrents behind it are moved one step forward.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		tb := tx.Bucket(torrentsBucket)
		b := tb.Bucket([]byte(id))
		if b == nil {
			return nil
		}
		removed, err := strconv.Atoi(string(b.Get(queuePositionKey)))
		if err != nil {
			return err
		}
		err = tb.DeleteBucket([]byte(id))
		if err != nil {
			return err
		}
		var keys [][]byte
		err = tb.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			b2 := tb.Bucket(k)
			if b2 == nil {
				continue
			}
			pos, err := strconv.Atoi(string(b2.Get(queuePositionKey)))
			if err != nil {
				return err
			}
			if pos > removed {
				err = b2.Put(queuePositionKey, []byte(strconv.Itoa(pos-1)))
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// List returns settings of all torrents keyed by torrent ID.
func (s *Store) List() (map[string]Settings, error) {
	ret := make(map[string]Settings)
	err := s.db.View(func(tx *bolt.Tx) error {
		tb := tx.Bucket(torrentsBucket)
		return tb.ForEach(func(k, _ []byte) error {
			b := tb.Bucket(k)
			if b == nil {
				return nil
			}
			st, err := read(b)
			if err != nil {
				return err
			}
			ret[string(k)] = st
			return nil
		})
	})
	return ret, err
}

// NextQueuePosition returns the position at the end of the queue.
func (s *Store) NextQueuePosition() (int, error) {
	all, err := s.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, st := range all {
		if st.QueuePosition >= n {
			n = st.QueuePosition + 1
		}
	}
	return n, nil
}

func read(b *bolt.Bucket) (Settings, error) {
	var st Settings
	var err error
	st.AutoManaged = string(b.Get(autoManagedKey)) == "1"
	st.SequentialDownload = string(b.Get(sequentialKey)) == "1"
	st.SavePath = string(b.Get(savePathKey))
	ints := []struct {
		key []byte
		val *int
	}{
		{downloadLimitKey, &st.DownloadLimit},
		{uploadLimitKey, &st.UploadLimit},
		{maxConnectionsKey, &st.MaxConnections},
		{maxUploadsKey, &st.MaxUploads},
		{queuePositionKey, &st.QueuePosition},
	}
	for _, i := range ints {
		value := b.Get(i.key)
		if value == nil {
			continue
		}
		*i.val, err = strconv.Atoi(string(value))
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func write(b *bolt.Bucket, st Settings) error {
	values := map[string]string{
		string(autoManagedKey):    boolString(st.AutoManaged),
		string(sequentialKey):     boolString(st.SequentialDownload),
		string(savePathKey):       st.SavePath,
		string(downloadLimitKey):  strconv.Itoa(unlimited(st.DownloadLimit)),
		string(uploadLimitKey):    strconv.Itoa(unlimited(st.UploadLimit)),
		string(maxConnectionsKey): strconv.Itoa(unlimited(st.MaxConnections)),
		string(maxUploadsKey):     strconv.Itoa(unlimited(st.MaxUploads)),
		string(queuePositionKey):  strconv.Itoa(st.QueuePosition),
	}
	for k, v := range values {
		err := b.Put([]byte(k), []byte(v))
		if err != nil {
			return err
		}
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// unlimited normalizes negative limits to 0.
func unlimited(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
