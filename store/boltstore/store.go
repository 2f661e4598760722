// Package boltstore implements pipeline.Store on a single-file bbolt
// database.
//
// Layout: one bucket per entity keyed by ID, plus index buckets whose keys
// sort by (repo, branch, scope, version) or by parent ID, so listings are
// prefix scans. Writes are append-only per structure version, matching the
// pipeline's retention model.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/pipeline"
)

var (
	bucketStructures     = []byte("structures")
	bucketStructureIndex = []byte("structure_index")
	bucketPages          = []byte("pages")
	bucketPageIndex      = []byte("page_index")
	bucketChunks         = []byte("chunks")
	bucketChunkIndex     = []byte("chunk_index")
)

// Store is a bbolt-backed pipeline.Store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) a store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketStructures, bucketStructureIndex,
			bucketPages, bucketPageIndex,
			bucketChunks, bucketChunkIndex,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// scopeKey builds the structure index key. Fields are NUL-separated and
// the version is big-endian, so a prefix scan yields ascending versions.
func scopeKey(repo, branch, scope string, version int) []byte {
	prefix := scopePrefix(repo, branch, scope)
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(version))
	return append(prefix, v[:]...)
}

func scopePrefix(repo, branch, scope string) []byte {
	var buf bytes.Buffer
	buf.WriteString(repo)
	buf.WriteByte(0)
	buf.WriteString(branch)
	buf.WriteByte(0)
	buf.WriteString(scope)
	buf.WriteByte(0)
	return buf.Bytes()
}

// childKey builds a parent-prefixed index key.
func childKey(parentID, childID string) []byte {
	return []byte(parentID + "\x00" + childID)
}

// CreateStructureVersion implements pipeline.Store.
func (s *Store) CreateStructureVersion(
	ctx context.Context,
	v *pipeline.StructureVersion,
) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal structure version: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketStructures).Put(
			[]byte(v.ID), data,
		); err != nil {
			return err
		}
		return tx.Bucket(bucketStructureIndex).Put(
			scopeKey(v.Repo, v.Branch, v.Scope, v.Version),
			[]byte(v.ID),
		)
	})
}

// ListStructureVersions implements pipeline.Store.
func (s *Store) ListStructureVersions(
	ctx context.Context,
	repo, branch, scope string,
) ([]*pipeline.StructureVersion, error) {
	var versions []*pipeline.StructureVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		structures := tx.Bucket(bucketStructures)
		c := tx.Bucket(bucketStructureIndex).Cursor()
		prefix := scopePrefix(repo, branch, scope)
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			data := structures.Get(id)
			if data == nil {
				continue
			}
			var v pipeline.StructureVersion
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("unmarshal structure version: %w", err)
			}
			versions = append(versions, &v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// GetLatestStructure implements pipeline.Store.
func (s *Store) GetLatestStructure(
	ctx context.Context,
	repo, branch, scope string,
) (*pipeline.StructureVersion, error) {
	versions, err := s.ListStructureVersions(ctx, repo, branch, scope)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, wikigen.ErrNoStructure
	}
	return versions[len(versions)-1], nil
}

// DeleteStructureVersion implements pipeline.Store. It removes the version
// together with its pages and their chunks.
func (s *Store) DeleteStructureVersion(
	ctx context.Context,
	id string,
) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		structures := tx.Bucket(bucketStructures)
		data := structures.Get([]byte(id))
		if data == nil {
			return nil
		}
		var v pipeline.StructureVersion
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal structure version: %w", err)
		}

		if err := deleteChildren(
			tx, bucketPageIndex, id,
			func(pageID []byte) error {
				if err := deleteChildren(
					tx, bucketChunkIndex, string(pageID),
					func(chunkID []byte) error {
						return tx.Bucket(bucketChunks).Delete(chunkID)
					},
				); err != nil {
					return err
				}
				return tx.Bucket(bucketPages).Delete(pageID)
			},
		); err != nil {
			return err
		}

		if err := tx.Bucket(bucketStructureIndex).Delete(
			scopeKey(v.Repo, v.Branch, v.Scope, v.Version),
		); err != nil {
			return err
		}
		return structures.Delete([]byte(id))
	})
}

// deleteChildren walks an index bucket's parent prefix, invokes del for
// each child ID, and removes the index entries.
func deleteChildren(
	tx *bolt.Tx,
	indexBucket []byte,
	parentID string,
	del func(childID []byte) error,
) error {
	index := tx.Bucket(indexBucket)
	prefix := []byte(parentID + "\x00")
	c := index.Cursor()

	var indexKeys [][]byte
	for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
		if err := del(id); err != nil {
			return err
		}
		indexKeys = append(indexKeys, append([]byte(nil), k...))
	}
	for _, k := range indexKeys {
		if err := index.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// CreatePages implements pipeline.Store.
func (s *Store) CreatePages(
	ctx context.Context,
	pages []*pipeline.StoredPage,
) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, page := range pages {
			data, err := json.Marshal(page)
			if err != nil {
				return fmt.Errorf("marshal page: %w", err)
			}
			if err := tx.Bucket(bucketPages).Put(
				[]byte(page.ID), data,
			); err != nil {
				return err
			}
			if err := tx.Bucket(bucketPageIndex).Put(
				childKey(page.StructureID, page.ID),
				[]byte(page.ID),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateChunks implements pipeline.Store.
func (s *Store) CreateChunks(
	ctx context.Context,
	chunks []*pipeline.StoredChunk,
) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, chunk := range chunks {
			data, err := json.Marshal(chunk)
			if err != nil {
				return fmt.Errorf("marshal chunk: %w", err)
			}
			if err := tx.Bucket(bucketChunks).Put(
				[]byte(chunk.ID), data,
			); err != nil {
				return err
			}
			if err := tx.Bucket(bucketChunkIndex).Put(
				childKey(chunk.PageID, chunk.ID),
				[]byte(chunk.ID),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPagesForStructure implements pipeline.Store.
func (s *Store) GetPagesForStructure(
	ctx context.Context,
	structureID string,
) ([]*pipeline.StoredPage, error) {
	var pages []*pipeline.StoredPage
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketPages)
		return scanChildren(
			tx, bucketPageIndex, structureID,
			func(id []byte) error {
				data := bucket.Get(id)
				if data == nil {
					return nil
				}
				var page pipeline.StoredPage
				if err := json.Unmarshal(data, &page); err != nil {
					return fmt.Errorf("unmarshal page: %w", err)
				}
				pages = append(pages, &page)
				return nil
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// GetChunksForPage implements pipeline.Store.
func (s *Store) GetChunksForPage(
	ctx context.Context,
	pageID string,
) ([]*pipeline.StoredChunk, error) {
	var chunks []*pipeline.StoredChunk
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketChunks)
		return scanChildren(
			tx, bucketChunkIndex, pageID,
			func(id []byte) error {
				data := bucket.Get(id)
				if data == nil {
					return nil
				}
				var chunk pipeline.StoredChunk
				if err := json.Unmarshal(data, &chunk); err != nil {
					return fmt.Errorf("unmarshal chunk: %w", err)
				}
				chunks = append(chunks, &chunk)
				return nil
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// scanChildren walks an index bucket's parent prefix.
func scanChildren(
	tx *bolt.Tx,
	indexBucket []byte,
	parentID string,
	visit func(childID []byte) error,
) error {
	c := tx.Bucket(indexBucket).Cursor()
	prefix := []byte(parentID + "\x00")
	for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// SetReadme implements pipeline.Store.
func (s *Store) SetReadme(
	ctx context.Context,
	structureID, readme string,
) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketStructures)
		data := bucket.Get([]byte(structureID))
		if data == nil {
			return wikigen.ErrNoStructure
		}
		var v pipeline.StructureVersion
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal structure version: %w", err)
		}
		v.Readme = readme
		updated, err := json.Marshal(&v)
		if err != nil {
			return fmt.Errorf("marshal structure version: %w", err)
		}
		return bucket.Put([]byte(structureID), updated)
	})
}

// Compile-time check.
var _ pipeline.Store = (*Store)(nil)
