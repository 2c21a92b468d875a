package store

import (
	"context"
	"sync"

	"taskbot/model"
)

// MemoryStore is the default backend: process-lifetime state, as the bot
// originally ran. Guarded by a single RWMutex; records handed out are clones.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.TaskRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*model.TaskRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec *model.TaskRecord) error {
	if rec.UserLimit <= 0 {
		return model.ErrInvalidUserLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[rec.ChannelID]; ok {
		return model.ErrDuplicateChannel
	}
	s.tasks[rec.ChannelID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, channelID string) (*model.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tasks[channelID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Remove(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, channelID)
	return nil
}

func (s *MemoryStore) Mutate(_ context.Context, channelID string, fn func(*model.TaskRecord) error) (*model.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[channelID]
	if !ok {
		return nil, model.ErrNotFound
	}
	// fn works on a clone so a failed mutation leaves the stored record alone.
	next := rec.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.tasks[channelID] = next
	return next.Clone(), nil
}
