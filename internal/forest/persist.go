package forest

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Snapshot is what gets written to disk: the trained ensemble plus the
// metadata the /model/info endpoint reports.
type Snapshot struct {
	Forest    *Forest
	Accuracy  float64
	TrainedAt time.Time
}

// SaveSnapshot gob-encodes the snapshot, creating parent directories as
// needed.
func SaveSnapshot(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create model directory")
	}

	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create model file")
	}
	defer fh.Close()

	if err := gob.NewEncoder(fh).Encode(snap); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadSnapshot reads a previously saved model from disk.
func LoadSnapshot(path string) (Snapshot, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "open model file")
	}
	defer fh.Close()

	var snap Snapshot
	if err := gob.NewDecoder(fh).Decode(&snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode model")
	}
	return snap, nil
}

// WriteCSV dumps the dataset with feature_N headers and a target column so
// the training data ships alongside the model.
func WriteCSV(path string, X [][]float64, y []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create dataset file")
	}
	defer fh.Close()

	w := csv.NewWriter(fh)

	header := make([]string, 0, len(X[0])+1)
	for j := range X[0] {
		header = append(header, fmt.Sprintf("feature_%d", j))
	}
	header = append(header, "target")
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write dataset header")
	}

	row := make([]string, len(header))
	for i, x := range X {
		for j, v := range x {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = strconv.Itoa(y[i])
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write dataset row")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flush dataset")
}
