// Package syncq is the CLI's offline action queue. Actions taken while the
// API is unreachable are appended here and replayed in order by the next
// sync, preserving the server's batch ordering semantics.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"

	"clickmart/internal/cli"
)

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".cmart")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]cli.WireAction, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []cli.WireAction{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []cli.WireAction{}, nil
	}
	var out []cli.WireAction
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(actions []cli.WireAction) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(action cli.WireAction) error {
	actions, err := Load()
	if err != nil {
		return err
	}
	actions = append(actions, action)
	return Save(actions)
}

func Clear() error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}
