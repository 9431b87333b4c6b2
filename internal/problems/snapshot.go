package problems

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/sirupsen/logrus"
)

// LatestSnapshot is the storage name of the most recent dataset
const LatestSnapshot = "snapshots/latest.json"

// snapshotHistoryPrefix prefixes the timestamped snapshot names
const snapshotHistoryPrefix = "snapshots/problems-"

// ErrSnapshotNotFound is returned when no snapshot exists at the requested location
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the serialized dataset handed to the repository at startup
type Snapshot struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Problems    []models.Problem        `json:"problems"`
	Metrics     models.DashboardMetrics `json:"metrics"`
}

// SnapshotName returns the archive name for a snapshot generated at t
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("%s%s.json", snapshotHistoryPrefix, t.UTC().Format("2006-01-02-15-04-05"))
}

// Repository builds an immutable repository over the snapshot
func (s *Snapshot) Repository() *MemoryRepository {
	return NewMemoryRepository(s.Problems, s.Metrics)
}

// Validate checks the snapshot at the loading boundary so the repository can
// trust its records.
func (s *Snapshot) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(s.Problems))

	for i, p := range s.Problems {
		label := fmt.Sprintf("problem #%d (%q)", i, p.ID)
		if p.ID == "" {
			problems = append(problems, label+": id is required")
		} else if seen[p.ID] {
			problems = append(problems, label+": duplicate id")
		}
		seen[p.ID] = true

		if !p.SourcePlatform.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown platform %q", label, p.SourcePlatform))
		}
		if !p.Category.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", label, p.Category))
		}
		if !p.Sentiment.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown sentiment %q", label, p.Sentiment))
		}
		if p.UrgencyScore < 0 || p.UrgencyScore > 100 {
			problems = append(problems, fmt.Sprintf("%s: urgency_score %d out of range", label, p.UrgencyScore))
		}
		if p.BusinessPotential < 0 || p.BusinessPotential > 100 {
			problems = append(problems, fmt.Sprintf("%s: business_potential %d out of range", label, p.BusinessPotential))
		}
		if p.Upvotes < 0 || p.Engagement.Comments < 0 || p.Engagement.Shares < 0 || p.Engagement.Views < 0 {
			problems = append(problems, label+": negative engagement counter")
		}
		if p.DateDiscovered.IsZero() {
			problems = append(problems, label+": date_discovered is required")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid snapshot: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DecodeSnapshot parses and validates a snapshot document
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LoadSnapshot reads a snapshot from storage
func LoadSnapshot(store storage.StorageInterface, name string) (*Snapshot, error) {
	data, err := store.Retrieve(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to retrieve snapshot %s: %w", name, err)
	}
	return DecodeSnapshot(data)
}

// SaveSnapshot writes snapshot under name
func SaveSnapshot(store storage.StorageInterface, name string, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return store.Store(name, data)
}

// PruneSnapshots deletes all but the newest keep timestamped snapshots and
// returns how many were removed. The latest snapshot is never touched.
func PruneSnapshots(store storage.StorageInterface, keep int) (int, error) {
	names, err := store.List(snapshotHistoryPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if keep < 0 {
		keep = 0
	}
	if len(names) <= keep {
		return 0, nil
	}

	// timestamped names sort chronologically
	sort.Strings(names)
	removed := 0
	for _, name := range names[:len(names)-keep] {
		if err := store.Delete(name); err != nil {
			return removed, fmt.Errorf("failed to delete snapshot %s: %w", name, err)
		}
		removed++
	}

	logrus.Infof("Pruned %d old snapshots, keeping %d", removed, keep)
	return removed, nil
}

// FetchSnapshot downloads a snapshot published at url
func FetchSnapshot(ctx context.Context, client *resty.Client, url string) (*Snapshot, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, url)
	default:
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode())
	}

	return DecodeSnapshot(resp.Body())
}

// Bootstrap picks the initial dataset: the snapshot at url when set, then the
// latest stored snapshot, then the seed fixtures.
func Bootstrap(ctx context.Context, store storage.StorageInterface, client *resty.Client, url string) *MemoryRepository {
	if url != "" && client != nil {
		snapshot, err := FetchSnapshot(ctx, client, url)
		if err == nil {
			logrus.Infof("Loaded %d problems from %s", len(snapshot.Problems), url)
			return snapshot.Repository()
		}
		logrus.Warnf("Failed to load snapshot from %s: %v", url, err)
	}

	if store != nil {
		snapshot, err := LoadSnapshot(store, LatestSnapshot)
		if err == nil {
			logrus.Infof("Loaded %d problems from stored snapshot generated %s",
				len(snapshot.Problems), snapshot.GeneratedAt.Format(time.RFC3339))
			return snapshot.Repository()
		}
		if errors.Is(err, ErrSnapshotNotFound) {
			logrus.Info("No stored snapshot found")
		} else {
			logrus.Warnf("Failed to load stored snapshot: %v", err)
		}
	}

	logrus.Info("Serving seed problem dataset")
	return NewFixtureRepository()
}
