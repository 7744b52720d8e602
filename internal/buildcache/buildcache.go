// Package buildcache is a content-addressed cache for compiled images:
// the SHA-256 of a module's source text keys a row holding the
// previously compiled image bytes. The caller (commands.BuildCommand)
// still compiles the module on every build; on a hit it writes the
// cached bytes in place of the fresh ones. Grounded on
// sentra-language-sentra/internal/database's sql.DB-over-modernc.org/
// sqlite connection style, narrowed to this cache's single table.
package buildcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Cache wraps a single-file sqlite database holding one row per
// distinct source hash ever compiled.
type Cache struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	source_hash TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL,
	image       BLOB NOT NULL,
	created_at  DATETIME NOT NULL
);
`

// Open creates or attaches to the cache database at path (typically
// under the caller's build output directory), applying the schema if
// this is a fresh file.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening build cache: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging build cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying build cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Hash returns the content-address for a module's source text.
func Hash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the previously cached image for sourceHash and the
// build ID that produced it, or ok=false on a cache miss.
func (c *Cache) Lookup(ctx context.Context, sourceHash string) (image []byte, buildID string, ok bool, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT build_id, image FROM builds WHERE source_hash = ?`, sourceHash)
	if err := row.Scan(&buildID, &image); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("looking up build cache entry: %w", err)
	}
	return image, buildID, true, nil
}

// Store records a freshly compiled image under sourceHash, tagged with
// a fresh build ID, and returns that ID for the caller to stamp into
// its disassembly header (internal/disasm).
func (c *Cache) Store(ctx context.Context, sourceHash string, image []byte) (buildID string, err error) {
	buildID = uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO builds (source_hash, build_id, image, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_hash) DO UPDATE SET build_id = excluded.build_id, image = excluded.image, created_at = excluded.created_at`,
		sourceHash, buildID, image, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("storing build cache entry: %w", err)
	}
	return buildID, nil
}
