// Package archive turns an in-memory snapshot into a durable artifact and
// back, and owns the artifact naming convention.
package archive

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rehberci/backupd/internal/domain"
)

// Marshal serializes a snapshot to its artifact form. Map keys are emitted
// in sorted order, so identical snapshots produce identical bytes.
func Marshal(snap domain.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("serialize snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal reverses Marshal.
func Unmarshal(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("deserialize snapshot: %w", err)
	}
	return snap, nil
}

// ArtifactName builds the canonical object name for a job's artifact:
// backup_<job-id>_<iso-timestamp>.json, with the timestamp's colons replaced
// by dashes so the name is safe on every backend. Job ids are unique, so
// names never collide even across concurrent jobs.
func ArtifactName(jobID string, ts time.Time) string {
	stamp := strings.ReplaceAll(ts.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("backup_%s_%s.json", jobID, stamp)
}
