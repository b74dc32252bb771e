// Package storage keeps run records on disk: JSON metadata with the
// parameters applied to every control object, and a CSV of recorded
// samples.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string                    `json:"id"`
	Model     string                    `json:"model"`
	Device    string                    `json:"device"`
	Timestamp time.Time                 `json:"timestamp"`
	Steps     uint64                    `json:"steps"`
	Cycles    int                       `json:"cycles"`
	Params    map[string]map[string]any `json:"params"`
	Variables map[string][]float64      `json:"variables,omitempty"`
	Metrics   map[string]float64        `json:"metrics"`
}

// Save writes meta and the recorder's samples under a fresh run ID, which
// it returns. A zero timestamp is filled in.
func (s *Store) Save(meta RunMetadata, rec *Recorder) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Model, uuid.NewString())
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.Metrics == nil {
		meta.Metrics = map[string]float64{}
	}
	meta.Metrics["energy_drift"] = rec.EnergyDrift()

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, "samples.csv"), rec.Samples()); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// create hands a new file at path to write. A failed close is reported
// unless write already failed.
func create(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)
	return write(f)
}

func closeFile(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func writeJSON(path string, v any) error {
	return create(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeSamples(path string, samples []Sample) error {
	return create(path, func(out io.Writer) error {
		return encodeSamples(out, samples)
	})
}

func encodeSamples(out io.Writer, samples []Sample) error {
	w := csv.NewWriter(out)
	header := []string{"timestep", "time", "energy"}
	if len(samples) > 0 {
		for i := range samples[0].State {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, smp := range samples {
		row := []string{strconv.FormatUint(smp.Timestep, 10), formatFloat(smp.Time), formatFloat(smp.Energy)}
		for _, v := range smp.State {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns saved runs, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) < 3 {
			return nil, fmt.Errorf("storage: %s: line %d: short record", runID, line+2)
		}
		ts, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: line %d: %w", runID, line+2, err)
		}
		vals := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("storage: %s: line %d: %w", runID, line+2, err)
			}
		}
		samples = append(samples, Sample{Timestep: ts, Time: vals[0], Energy: vals[1], State: vals[2:]})
	}
	return samples, nil
}
