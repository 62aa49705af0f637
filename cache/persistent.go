package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "cache"

// ErrKeyNotFound is returned for missing or expired keys
var ErrKeyNotFound = errors.New("key not found")

// DurableStore is the bbolt-backed durable tier. Values carry their own
// expiry and are optionally gzip-compressed.
type DurableStore struct {
	mu                 sync.RWMutex // guards db across backup and restore
	db                 *bolt.DB
	dbPath             string
	backupPath         string
	compressionEnabled bool
	now                func() time.Time
}

// durableEntry is the on-disk record
type durableEntry struct {
	Value     string `json:"value"`
	StoredAt  int64  `json:"storedAt"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix seconds, 0 means never
}

func (e durableEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.Unix() >= e.ExpiresAt
}

// DurableOptions configure a DurableStore
type DurableOptions struct {
	Path        string
	BackupPath  string
	Compression bool
	Now         func() time.Time
}

// NewDurableStore opens (or creates) the cache database
func NewDurableStore(opts DurableOptions) (*DurableStore, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	dir := filepath.Dir(opts.Path)
	if info, err := os.Stat(dir); err == nil {
		log.Infof("%s Directory %s exists (IsDir: %v)", logcolors.LogCacheInit, dir, info.IsDir())
	} else {
		log.Infof("%s Directory %s does not exist, creating...", logcolors.LogCacheInit, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if opts.BackupPath != "" {
		if err := os.MkdirAll(opts.BackupPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
		log.Infof("%s Backup directory set to: %s", logcolors.LogCacheInit, opts.BackupPath)
	}

	if info, err := os.Stat(opts.Path); err == nil {
		log.Infof("%s Found existing database file at: %s (size: %d bytes)", logcolors.LogCacheInit, opts.Path, info.Size())
	} else {
		log.Infof("%s Creating new database file at: %s", logcolors.LogCacheInit, opts.Path)
	}

	s := &DurableStore{
		dbPath:             opts.Path,
		backupPath:         opts.BackupPath,
		compressionEnabled: opts.Compression,
		now:                opts.Now,
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Durable cache initialized at %s (compression: %v)", logcolors.LogCacheDurable, opts.Path, opts.Compression)
	return s, nil
}

func (s *DurableStore) open() error {
	db, err := bolt.Open(s.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create cache bucket: %w", err)
	}
	s.db = db
	return nil
}

// Get returns the live value stored under key, or ErrKeyNotFound
func (s *DurableStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry durableEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrKeyNotFound
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", err
	}
	if entry.expired(s.now()) {
		return "", ErrKeyNotFound
	}

	if !s.compressionEnabled {
		return entry.Value, nil
	}
	value, err := utils.DecompressString(entry.Value)
	if err != nil {
		return "", fmt.Errorf("decompressing %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key for ttl. A ttl <= 0 never expires.
func (s *DurableStore) Put(key, value string, ttl time.Duration) error {
	stored := value
	if s.compressionEnabled {
		var err error
		if stored, err = utils.CompressString(value); err != nil {
			return fmt.Errorf("compressing %s: %w", key, err)
		}
	}

	now := s.now()
	entry := durableEntry{Value: stored, StoredAt: now.Unix()}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl).Unix()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes a key
func (s *DurableStore) Delete(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes all entries
func (s *DurableStore) Clear() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Purge deletes expired entries and returns how many were removed
func (s *DurableStore) Purge() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry durableEntry
			if json.Unmarshal(v, &entry) != nil || entry.expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err == nil && removed > 0 {
		log.Infof("%s Purged %d expired entries", logcolors.LogCacheDurable, removed)
	}
	return removed, err
}

// Keys returns the live keys with the given prefix, sorted
func (s *DurableStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if !strings.HasPrefix(string(k), prefix) {
				return nil
			}
			var entry durableEntry
			if json.Unmarshal(v, &entry) == nil && !entry.expired(now) {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}

// Stats returns the number of stored entries and their approximate size
func (s *DurableStore) Stats() (numKeys int, sizeInKB int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			numKeys++
			size += len(k) + len(v)
			return nil
		})
	})
	return numKeys, size / 1024
}

// Backup copies the database file into the backup directory and returns its path
func (s *DurableStore) Backup() (string, error) {
	if s.backupPath == "" {
		return "", fmt.Errorf("no backup directory configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.now().Format("2006-01-02_15-04-05.000")
	backupFilePath := filepath.Join(s.backupPath, fmt.Sprintf("cache_backup_%s.db", timestamp))
	log.Infof("%s Creating backup at: %s", logcolors.LogCacheBackup, backupFilePath)

	// A read transaction gives a consistent snapshot without closing the database
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupFilePath, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to copy database: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogCacheBackup, backupFilePath)
	return backupFilePath, nil
}

// BackupAndClear creates a backup of the cache and then clears it
func (s *DurableStore) BackupAndClear() (string, error) {
	backupPath, err := s.Backup()
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if err := s.Clear(); err != nil {
		return backupPath, fmt.Errorf("backup created but failed to clear cache: %w", err)
	}

	log.Infof("%s Cache cleared successfully (backup: %s)", logcolors.LogCacheClear, backupPath)
	return backupPath, nil
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns the available backup files, newest first
func (s *DurableStore) ListBackups() ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(s.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to get info for %s: %v", logcolors.LogCacheBackups, entry.Name(), err)
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(s.backupPath, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].FileName > backups[j].FileName
	})
	return backups, nil
}

// RestoreFromBackup replaces the current database with a backup file
func (s *DurableStore) RestoreFromBackup(backupFileName string) error {
	if filepath.Ext(backupFileName) != ".db" || filepath.Base(backupFileName) != backupFileName {
		return fmt.Errorf("invalid backup file: %s", backupFileName)
	}
	backupFilePath := filepath.Join(s.backupPath, backupFileName)
	if _, err := os.Stat(backupFilePath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupFileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Infof("%s Starting restore from backup: %s", logcolors.LogCacheBackup, backupFileName)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close current database: %w", err)
	}

	preRestore := s.dbPath + ".pre-restore"
	if err := copyFile(s.dbPath, preRestore); err != nil {
		if reopenErr := s.open(); reopenErr != nil {
			log.Errorf("%s Failed to reopen database: %v", logcolors.LogCacheBackup, reopenErr)
		}
		return fmt.Errorf("failed to save current database: %w", err)
	}

	if err := copyFile(backupFilePath, s.dbPath); err != nil {
		if restoreErr := copyFile(preRestore, s.dbPath); restoreErr != nil {
			log.Errorf("%s Failed to put back the previous database: %v", logcolors.LogCacheBackup, restoreErr)
		}
		if reopenErr := s.open(); reopenErr != nil {
			log.Errorf("%s Failed to reopen database: %v", logcolors.LogCacheBackup, reopenErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(preRestore)

	if err := s.open(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %w", err)
	}

	log.Infof("%s Successfully restored from backup: %s", logcolors.LogCacheBackup, backupFileName)
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err = io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// Close closes the database
func (s *DurableStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
