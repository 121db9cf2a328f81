package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"askai/config"
	"askai/model"
)

// HistoryFileName is the history file inside the data directory.
const HistoryFileName = "ask_ai_plugin_history_v2.json"

// History modes
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
)

// ErrNotFound is returned when no history record has the requested uid.
var ErrNotFound = errors.New("history record not found")

// Answer is one AI's answer inside a history record.
type Answer struct {
	Answer    string             `json:"answer"`
	Timestamp time.Time          `json:"timestamp"`
	ModelInfo model.AnswerSource `json:"model_info"`
}

// HistoryRecord is one question asked about one or more books.
type HistoryRecord struct {
	UID       string            `json:"uid"`
	Timestamp time.Time         `json:"timestamp"`
	Mode      string            `json:"mode"`
	Books     []model.Book      `json:"books"`
	Question  string            `json:"question"`
	Answers   map[string]Answer `json:"answers"`
}

// HasBook reports whether the record references bookID.
func (r HistoryRecord) HasBook(bookID string) bool {
	for _, b := range r.Books {
		if b.ID == bookID {
			return true
		}
	}
	return false
}

// AIIDs returns the ids of the AIs that answered, sorted.
func (r HistoryRecord) AIIDs() []string {
	ids := make([]string, 0, len(r.Answers))
	for id := range r.Answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HistoryManager persists history records as a single JSON file.
type HistoryManager struct {
	path string
	lock *fileLock
	mu   sync.Mutex
	now  func() time.Time
}

// NewHistoryManager creates a manager for the history file in dataDir.
func NewHistoryManager(dataDir string) (*HistoryManager, error) {
	// 0700 - history contains the user's questions
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, HistoryFileName)
	return &HistoryManager{
		path: path,
		lock: newFileLock(path + ".lock"),
		now:  time.Now,
	}, nil
}

// Path returns the location of the history file.
func (h *HistoryManager) Path() string {
	return h.path
}

// GenerateUID builds a record uid from the current time and the book ids.
// Format: <unix-millis>_<first 8 hex chars of sha1(sorted ids joined by ",")>
func GenerateUID(bookIDs []string) string {
	return generateUID(time.Now(), bookIDs)
}

func generateUID(now time.Time, bookIDs []string) string {
	ids := append([]string(nil), bookIDs...)
	sort.Strings(ids)
	sum := sha1.Sum([]byte(strings.Join(ids, ",")))
	return fmt.Sprintf("%d_%s", now.UnixMilli(), hex.EncodeToString(sum[:])[:8])
}

// SaveHistory stores aiID's answer under uid. Answers from several AIs for
// the same uid are merged into one record.
func (h *HistoryManager) SaveHistory(uid, mode string, books []model.Book, question, aiID, answer string, info model.AnswerSource) error {
	if uid == "" {
		return errors.New("history uid is required")
	}
	if mode == "" {
		mode = ModeSingle
		if len(books) > 1 {
			mode = ModeMulti
		}
	}

	return h.update(func(records map[string]*HistoryRecord) error {
		now := h.now()
		rec, ok := records[uid]
		if !ok {
			rec = &HistoryRecord{
				UID:       uid,
				Timestamp: now,
				Mode:      mode,
				Books:     books,
				Question:  question,
				Answers:   make(map[string]Answer),
			}
			records[uid] = rec
		}
		if rec.Answers == nil {
			rec.Answers = make(map[string]Answer)
		}
		rec.Answers[aiID] = Answer{Answer: answer, Timestamp: now, ModelInfo: info}

		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[History] Saved answer uid=%s ai=%s chars=%d", uid, aiID, len(answer))
		}
		return nil
	})
}

// GetHistoryByUID returns the record with the given uid or ErrNotFound.
func (h *HistoryManager) GetHistoryByUID(uid string) (*HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.read(false)
	if err != nil {
		return nil, err
	}
	rec, ok := records[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	return rec, nil
}

// GetHistoriesForBook returns every record mentioning bookID, newest first.
func (h *HistoryManager) GetHistoriesForBook(bookID string) ([]HistoryRecord, error) {
	all, err := h.List()
	if err != nil {
		return nil, err
	}

	var out []HistoryRecord
	for _, rec := range all {
		if rec.HasBook(bookID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// List returns all records, newest first.
func (h *HistoryManager) List() ([]HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.read(false)
	if err != nil {
		return nil, err
	}
	return sortedRecords(records), nil
}

// Delete removes one record.
func (h *HistoryManager) Delete(uid string) error {
	return h.update(func(records map[string]*HistoryRecord) error {
		if _, ok := records[uid]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		delete(records, uid)
		return nil
	})
}

// Clear removes every record. Returns how many were removed.
func (h *HistoryManager) Clear() (int, error) {
	var n int
	err := h.update(func(records map[string]*HistoryRecord) error {
		n = len(records)
		for uid := range records {
			delete(records, uid)
		}
		return nil
	})
	return n, err
}

// ExportToJSON writes one record to exportPath as indented JSON.
func (h *HistoryManager) ExportToJSON(uid, exportPath string) error {
	rec, err := h.GetHistoryByUID(uid)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// 0600 - exports contain the user's questions
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// update runs fn over the freshly read records and rewrites the file, holding
// both the in-process mutex and the cross-process lock file.
func (h *HistoryManager) update(fn func(map[string]*HistoryRecord) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := h.lock.Release(); err != nil && config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[History] Failed to release lock: %v", err)
		}
	}()

	records, err := h.read(true)
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	return h.write(records)
}

// read loads the history file. A missing or corrupt file is an empty
// history. moveCorrupt renames a corrupt file aside; only update passes it,
// since it holds the lock file.
func (h *HistoryManager) read(moveCorrupt bool) (map[string]*HistoryRecord, error) {
	records := make(map[string]*HistoryRecord)

	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return records, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		if !moveCorrupt {
			return make(map[string]*HistoryRecord), nil
		}
		backup := fmt.Sprintf("%s.corrupt-%d", h.path, h.now().Unix())
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[History] Corrupt history file, moving to %s: %v", backup, err)
		}
		if rerr := os.Rename(h.path, backup); rerr != nil {
			return nil, fmt.Errorf("failed to parse history: %w", err)
		}
		return make(map[string]*HistoryRecord), nil
	}

	for uid, rec := range records {
		if rec == nil {
			delete(records, uid)
			continue
		}
		if rec.UID == "" {
			rec.UID = uid
		}
	}
	return records, nil
}

// write replaces the history file atomically via a temp file + rename.
func (h *HistoryManager) write(records map[string]*HistoryRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.path), ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

func sortedRecords(records map[string]*HistoryRecord) []HistoryRecord {
	out := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].UID > out[j].UID
	})
	return out
}
