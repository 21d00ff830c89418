package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelDBExistence(t *testing.T) {
	path := "level"
	_ = os.RemoveAll(path)

	db, err := NewLevelDB(path)
	assert.NoError(t, err)
	defer os.RemoveAll(path)
	defer db.Close()

	_, err = db.Get([]byte("not_exist"))
	assert.Equal(t, ErrNotFound, err)

	err = db.Put([]byte("exist"), []byte{})
	assert.NoError(t, err)

	val, err := db.Get([]byte("exist"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{}, val)
}

func TestLevelDBReopen(t *testing.T) {
	path := "level"
	_ = os.RemoveAll(path)

	db, err := NewLevelDB(path)
	assert.NoError(t, err)
	defer os.RemoveAll(path)

	assert.NoError(t, db.Put([]byte("exist"), []byte("value")))
	assert.NoError(t, db.Close())

	db2, err := NewLevelDB(path)
	assert.NoError(t, err)
	defer db2.Close()

	v, err := db2.Get([]byte("exist"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	assert.NoError(t, db2.Delete([]byte("exist")))

	_, err = db2.Get([]byte("exist"))
	assert.Equal(t, ErrNotFound, err)
}
