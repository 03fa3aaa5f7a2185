// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_correlation

import (
	"fmt"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

type keyKind uint8

const (
	kindIndex keyKind = iota
	kindLocal
	kindRemote
)

// Key addresses a correlation entry by one of the three identifier spaces.
type Key struct {
	kind  keyKind
	index int
	id    string
}

func IndexKey(idx int) Key { return Key{kind: kindIndex, index: idx} }
func LocalKey(id string) Key { return Key{kind: kindLocal, id: id} }
func RemoteKey(id string) Key { return Key{kind: kindRemote, id: id} }

func (k Key) String() string {
	switch k.kind {
	case kindIndex:
		return fmt.Sprintf("idx:%d", k.index)
	case kindLocal:
		return "local:" + k.id
	default:
		return "remote:" + k.id
	}
}

// SaveMetadata is the "saved" half of a partial update.
type SaveMetadata struct {
	RemoteID string
	Media    internal_type.MediaRef
}

// Partial is whatever a single message contributed to a segment.
type Partial struct {
	Saved       *SaveMetadata
	Transcripts map[internal_type.ProviderKey]string
}

// Entry is the merged view of everything received for one segment.
type Entry struct {
	Index       int
	LocalID     string
	RemoteID    string
	Saved       *SaveMetadata
	Transcripts map[internal_type.ProviderKey]string
	Inserted    bool
}

func (e *Entry) clone() Entry {
	out := *e
	if e.Saved != nil {
		saved := *e.Saved
		out.Saved = &saved
	}
	out.Transcripts = make(map[internal_type.ProviderKey]string, len(e.Transcripts))
	for k, v := range e.Transcripts {
		out.Transcripts[k] = v
	}
	return out
}

// SlotIndex is the view of the session timeline the store needs to resolve
// a local id or to allocate a new slot.
type SlotIndex interface {
	LookupLocalID(localID string) (int, bool)
	Append() int
}

// Store keeps one entry per segment in an arena and indexes it under every
// identifier seen for that segment. It is scoped to one session and is not
// safe for concurrent use.
type Store struct {
	logger   commons.Logger
	arena    []*Entry
	byIndex  map[int]int
	byLocal  map[string]int
	byRemote map[string]int
}

func NewStore(logger commons.Logger) *Store {
	s := &Store{logger: logger}
	s.Reset()
	return s
}

// Reset drops every entry. Called when a new session starts.
func (s *Store) Reset() {
	s.arena = nil
	s.byIndex = make(map[int]int)
	s.byLocal = make(map[string]int)
	s.byRemote = make(map[string]int)
}

func (s *Store) Len() int {
	return len(s.arena)
}

// ResolveIndex returns the sequence index a message belongs to. Precedence:
// explicit index, established remote id, local id, then a freshly appended
// slot. Every identifier the message carries is bound to the result.
func (s *Store) ResolveIndex(ref internal_type.Ref, slots SlotIndex) int {
	idx := s.resolve(ref, slots)
	s.Bind(idx, ref)
	return idx
}

func (s *Store) resolve(ref internal_type.Ref, slots SlotIndex) int {
	if ref.HasIndex() {
		return ref.Index
	}
	if ref.RemoteID != "" {
		if h, ok := s.byRemote[ref.RemoteID]; ok {
			return s.arena[h].Index
		}
	}
	if ref.LocalID != "" {
		if h, ok := s.byLocal[ref.LocalID]; ok {
			return s.arena[h].Index
		}
		if idx, ok := slots.LookupLocalID(ref.LocalID); ok {
			return idx
		}
	}
	idx := slots.Append()
	s.logger.Debugf("correlation: %v for local=%q remote=%q, appended slot %d",
		internal_type.ErrCorrelationMiss, ref.LocalID, ref.RemoteID, idx)
	return idx
}

func (s *Store) entryFor(idx int) int {
	if h, ok := s.byIndex[idx]; ok {
		return h
	}
	s.arena = append(s.arena, &Entry{
		Index:       idx,
		Transcripts: make(map[internal_type.ProviderKey]string),
	})
	h := len(s.arena) - 1
	s.byIndex[idx] = h
	return h
}

// Bind points every identifier in ref at the entry for idx. An identifier
// already bound to another segment keeps its first mapping.
func (s *Store) Bind(idx int, ref internal_type.Ref) {
	h := s.entryFor(idx)
	entry := s.arena[h]
	if ref.LocalID != "" {
		s.bindID(s.byLocal, ref.LocalID, h, "local")
		if entry.LocalID == "" {
			entry.LocalID = ref.LocalID
		}
	}
	if ref.RemoteID != "" {
		s.bindID(s.byRemote, ref.RemoteID, h, "remote")
		if entry.RemoteID == "" {
			entry.RemoteID = ref.RemoteID
		}
	}
}

func (s *Store) bindID(index map[string]int, id string, h int, label string) {
	existing, ok := index[id]
	if !ok {
		index[id] = h
		return
	}
	if existing != h {
		s.logger.Debugf("correlation: %s id %q stays on slot %d, ignoring slot %d",
			label, id, s.arena[existing].Index, s.arena[h].Index)
	}
}

func (s *Store) lookup(key Key) (int, bool) {
	switch key.kind {
	case kindIndex:
		h, ok := s.byIndex[key.index]
		return h, ok
	case kindLocal:
		h, ok := s.byLocal[key.id]
		return h, ok
	default:
		h, ok := s.byRemote[key.id]
		return h, ok
	}
}

// Get returns a copy of the entry addressed by key.
func (s *Store) Get(key Key) (Entry, bool) {
	h, ok := s.lookup(key)
	if !ok {
		return Entry{}, false
	}
	return s.arena[h].clone(), true
}

// MergeResult reports what a merge changed.
type MergeResult struct {
	Entry Entry
	// SavedApplied is true when this merge stored the save metadata.
	SavedApplied bool
	// Changed lists providers whose text was written by this merge.
	Changed []internal_type.ProviderKey
}

// Merge folds a partial update into the entry for key. Save metadata is
// first-write-wins, provider text is last-write-wins. An index key creates
// the entry on demand; other keys must already be bound.
func (s *Store) Merge(key Key, p Partial) (MergeResult, bool) {
	h, ok := s.lookup(key)
	if !ok {
		if key.kind != kindIndex {
			s.logger.Debugf("correlation: merge on unbound key %s", key)
			return MergeResult{}, false
		}
		h = s.entryFor(key.index)
	}
	entry := s.arena[h]
	res := MergeResult{}
	if p.Saved != nil && entry.Saved == nil {
		saved := *p.Saved
		entry.Saved = &saved
		res.SavedApplied = true
		if saved.RemoteID != "" {
			s.Bind(entry.Index, internal_type.Ref{Index: entry.Index, RemoteID: saved.RemoteID})
		}
	}
	for provider, text := range p.Transcripts {
		entry.Transcripts[provider] = text
		res.Changed = append(res.Changed, provider)
	}
	res.Entry = entry.clone()
	return res, true
}

// MarkInserted flags the entry as reflected on the timeline. It reports
// whether the flag was newly set.
func (s *Store) MarkInserted(key Key) bool {
	h, ok := s.lookup(key)
	if !ok || s.arena[h].Inserted {
		return false
	}
	s.arena[h].Inserted = true
	return true
}
