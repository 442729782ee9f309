// Package store persists the ledger as a single keyed JSON document,
// compatible with the htb_data.json layout of earlier versions of the
// tracker. A corrupt file is preserved under a .bak name and the tracker
// starts from an empty store rather than crashing.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
)

// document is the on-disk shape: {"users": {"<htb id>": {...}}}.
type document struct {
	Users     map[string]*userDoc `json:"users"`
	LastReset string              `json:"last_reset,omitempty"`
}

// userDoc mirrors the per-user record. User flags are stored as
// "<machineID>_user" composite strings for compatibility with existing
// data files.
type userDoc struct {
	Name        string     `json:"name"`
	DiscordID   flexString `json:"discord_id"`
	Machines    int        `json:"machines"`
	Challenges  int        `json:"challenges"`
	Streak      int        `json:"streak"`
	SolvedIDs   []int      `json:"solved_ids"`
	UserFlagIDs []string   `json:"user_flag_ids"`
	RootFlagIDs []int      `json:"root_flag_ids"`
}

// flexString decodes both JSON strings and numbers. Older databases wrote
// the Discord id as a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("discord_id is neither string nor number: %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// FileStore reads and writes the document at a fixed path. Saves are
// write-temp-then-rename so a crash mid-write never truncates the store.
type FileStore struct {
	path string
	log  *zap.Logger
}

// NewFile returns a store over the given path. The logger may be nil.
func NewFile(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// Load reads the store. A missing file yields an empty ledger state; a
// corrupt file is renamed to <path>.bak and also yields an empty state.
// Only genuine I/O failures surface as errors.
func (s *FileStore) Load() (map[string]*ledger.User, string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*ledger.User{}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading store %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		backup := s.path + ".bak"
		s.log.Warn("store is corrupt, backing up and starting fresh",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(err))
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return nil, "", fmt.Errorf("backing up corrupt store: %w", renameErr)
		}
		return map[string]*ledger.User{}, "", nil
	}

	users := make(map[string]*ledger.User, len(doc.Users))
	for id, d := range doc.Users {
		users[id] = d.toUser()
	}
	return users, doc.LastReset, nil
}

// Save implements ledger.Store. It runs with the ledger lock held, so it
// marshals synchronously and must not retain the map.
func (s *FileStore) Save(users map[string]*ledger.User, lastReset string) error {
	doc := document{
		Users:     make(map[string]*userDoc, len(users)),
		LastReset: lastReset,
	}
	for id, u := range users {
		doc.Users[id] = fromUser(u)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

func (d *userDoc) toUser() *ledger.User {
	u := &ledger.User{
		Name:       d.Name,
		DiscordID:  string(d.DiscordID),
		Machines:   d.Machines,
		Challenges: d.Challenges,
		Streak:     d.Streak,
		Solved:     make(map[int]struct{}, len(d.SolvedIDs)),
		Pending:    make(map[int]struct{}, len(d.UserFlagIDs)),
		Roots:      make(map[int]struct{}, len(d.RootFlagIDs)),
	}
	for _, id := range d.SolvedIDs {
		u.Solved[id] = struct{}{}
	}
	for _, id := range d.RootFlagIDs {
		u.Roots[id] = struct{}{}
	}
	for _, composite := range d.UserFlagIDs {
		id, ok := parseUserFlagID(composite)
		if !ok {
			continue
		}
		// Entries resolved by a root flag are pending no longer; old
		// databases kept them forever.
		if _, resolved := u.Roots[id]; resolved {
			continue
		}
		u.Pending[id] = struct{}{}
	}
	return u
}

func fromUser(u *ledger.User) *userDoc {
	d := &userDoc{
		Name:        u.Name,
		DiscordID:   flexString(u.DiscordID),
		Machines:    u.Machines,
		Challenges:  u.Challenges,
		Streak:      u.Streak,
		SolvedIDs:   sortedKeys(u.Solved),
		RootFlagIDs: sortedKeys(u.Roots),
	}
	d.UserFlagIDs = make([]string, 0, len(u.Pending))
	for _, id := range sortedKeys(u.Pending) {
		d.UserFlagIDs = append(d.UserFlagIDs, fmt.Sprintf("%d_user", id))
	}
	return d
}

// parseUserFlagID extracts the machine id from a "<id>_user" composite.
func parseUserFlagID(composite string) (int, bool) {
	base, found := strings.CutSuffix(composite, "_user")
	if !found {
		return 0, false
	}
	id, err := strconv.Atoi(base)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sortedKeys(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
