package sqlite_test

import (
	"testing"

	"github.com/waddle-im/waddle/storage"
	"github.com/waddle-im/waddle/storage/sqlite"
	"github.com/waddle-im/waddle/storage/storagetest"
)

func TestSQLiteStorage(t *testing.T) {
	storagetest.TestStorage(t, func() storage.Storage {
		s, err := sqlite.New(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}
