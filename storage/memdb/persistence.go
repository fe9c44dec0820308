package memdb

import (
	"os"
	"path/filepath"
)

// DefaultPersistencePath returns the conventional on-disk location a
// durable backend would use, $HOME/.pebbledb/versatus.pb. Backend itself
// never reads or writes this path: it is a hint for callers wiring in
// their own durable storage.Backend, ported from the original
// PebbleDB::get_db_path.
func DefaultPersistencePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pebbledb", "versatus.pb"), nil
}
