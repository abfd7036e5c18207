package featureflags

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Known flags.
const (
	// AIAgents gates the /api/agents endpoints.
	AIAgents = "ai_agents"
	// SearchIndex gates syncing approved listings to the external search index.
	SearchIndex = "search_index"
	// AdminFeed gates the moderation websocket feed.
	AdminFeed = "admin_feed"
)

// Manager evaluates feature flags defined in a key=value list, for example
// "ai_agents=on,search_index=25%,admin_feed=off". Flags can be changed at
// runtime by admins.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := parsePair(pair)
		if !ok {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

func parsePair(pair string) (string, string, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
	if !found {
		return "", "", false
	}
	key, value = normalize(key), normalize(value)
	if key == "" || !validValue(value) {
		return "", "", false
	}
	return key, value, true
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
//
// A nil Manager or an unknown flag is disabled.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	m.mu.RLock()
	value, ok := m.flags[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return evaluate(name, value, userID)
}

func evaluate(name, value string, userID uint) bool {
	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, ok := percentage(value)
	if !ok || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Set changes one flag. It reports false when value is not a recognised
// flag value, leaving the flag untouched.
func (m *Manager) Set(name, value string) bool {
	key, value := normalize(name), normalize(value)
	if key == "" || !validValue(value) {
		return false
	}
	m.mu.Lock()
	m.flags[key] = value
	m.mu.Unlock()
	return true
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name, value := range raw {
		out[name] = evaluate(name, value, userID)
	}
	return out
}

func validValue(value string) bool {
	switch value {
	case "on", "true", "1", "off", "false", "0":
		return true
	}
	_, ok := percentage(value)
	return ok
}

func percentage(value string) (int, bool) {
	raw, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil || pct < 0 {
		return 0, false
	}
	return pct, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	return int(xxhash.Sum64String(normalize(name)+":"+strconv.FormatUint(uint64(userID), 10)) % 100)
}
