package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Prefs are session preferences persisted between runs.
type Prefs struct {
	ServerURL string    `json:"server_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

func prefsFilePath() string {
	cfg, _ := os.UserConfigDir()
	return filepath.Join(cfg, "civimap", "prefs.json")
}

// SnapshotDBPath is the default location of the offline report snapshot.
func SnapshotDBPath() string {
	cfg, _ := os.UserConfigDir()
	return filepath.Join(cfg, "civimap", "reports.db")
}

func LoadPrefs() Prefs {
	var p Prefs
	data, err := os.ReadFile(prefsFilePath())
	if err != nil {
		return p
	}
	json.Unmarshal(data, &p)
	return p
}

func SavePrefs(serverURL string) {
	p := Prefs{ServerURL: serverURL, UpdatedAt: time.Now()}
	data, _ := json.MarshalIndent(p, "", "  ")
	dir := filepath.Dir(prefsFilePath())
	os.MkdirAll(dir, 0755)
	os.WriteFile(prefsFilePath(), data, 0644)
}
