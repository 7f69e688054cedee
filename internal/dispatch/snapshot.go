package dispatch

import (
	"os"

	"rediscore/internal/rdb"
	"rediscore/internal/rediserr"
)

// readSnapshotBytes returns the raw bytes of the snapshot file at path,
// falling back to the built-in empty database if the file is missing.
func readSnapshotBytes(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rdb.EmptyDB(), nil
		}
		return nil, rediserr.IOErr(err)
	}
	return b, nil
}
