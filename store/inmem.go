package store

import (
	"bytes"
	"sync"

	"github.com/huandu/skiplist"
)

var _ KV = (*inmemKV)(nil)

type inmemKV struct {
	sync.RWMutex
	db *skiplist.SkipList
}

func NewInmem() *inmemKV {
	var comparator skiplist.GreaterThanFunc = func(lhs, rhs interface{}) bool {
		return bytes.Compare(lhs.([]byte), rhs.([]byte)) == 1
	}

	return &inmemKV{db: skiplist.New(comparator)}
}

func (s *inmemKV) Close() error {
	s.Lock()
	defer s.Unlock()

	s.db.Init()
	s.db = nil
	return nil
}

func (s *inmemKV) Get(key []byte) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	buf, found := s.db.GetValue(key)
	if !found {
		return nil, ErrNotFound
	}

	return buf.([]byte), nil
}

func (s *inmemKV) Put(key, value []byte) error {
	s.Lock()
	defer s.Unlock()

	_ = s.db.Set(key, value)
	return nil
}

func (s *inmemKV) Delete(key []byte) error {
	s.Lock()
	defer s.Unlock()

	_ = s.db.Remove(key)
	return nil
}

func (s *inmemKV) Has(key []byte) (bool, error) {
	s.RLock()
	defer s.RUnlock()

	_, found := s.db.GetValue(key)
	return found, nil
}

func (s *inmemKV) Dir() string {
	return ""
}
