package forest

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Info is the metadata exposed by the model info endpoint.
type Info struct {
	ModelType string    `json:"model_type"`
	Features  int       `json:"n_features"`
	Trees     int       `json:"n_estimators"`
	Accuracy  float64   `json:"accuracy"`
	TrainedAt time.Time `json:"trained_at"`
}

// Manager owns the live model for the service: it loads a snapshot from
// disk at startup (training one if none exists) and swaps in a fresh model
// on retrain. Safe for concurrent use.
type Manager struct {
	modelPath string
	dataPath  string
	dataset   DatasetConfig
	model     Config

	mu   sync.RWMutex
	snap Snapshot
}

// NewManager wires paths and training configuration. Call LoadOrTrain
// before serving.
func NewManager(modelPath, dataPath string, dataset DatasetConfig, model Config) *Manager {
	return &Manager{
		modelPath: modelPath,
		dataPath:  dataPath,
		dataset:   dataset,
		model:     model,
	}
}

// LoadOrTrain restores the persisted model when present, otherwise trains
// and persists a new one.
func (m *Manager) LoadOrTrain() error {
	if _, err := os.Stat(m.modelPath); err == nil {
		snap, err := LoadSnapshot(m.modelPath)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.snap = snap
		m.mu.Unlock()
		logrus.WithField("path", m.modelPath).Info("forest: loaded persisted model")
		return nil
	}
	return m.Retrain()
}

// Retrain generates a fresh dataset, trains, evaluates on a held-out 20%,
// persists the snapshot and dataset, and swaps the live model.
func (m *Manager) Retrain() error {
	X, y, err := m.dataset.Generate()
	if err != nil {
		return err
	}

	trainX, trainY, testX, testY := Split(X, y, 0.2, m.dataset.Seed)

	f, err := Train(trainX, trainY, m.model)
	if err != nil {
		return errors.Wrap(err, "train forest")
	}

	acc, err := f.Evaluate(testX, testY)
	if err != nil {
		return errors.Wrap(err, "evaluate forest")
	}

	snap := Snapshot{Forest: f, Accuracy: acc, TrainedAt: time.Now().UTC()}
	if err := SaveSnapshot(m.modelPath, snap); err != nil {
		return err
	}
	if m.dataPath != "" {
		if err := WriteCSV(m.dataPath, X, y); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"accuracy": acc,
		"trees":    m.model.Trees,
	}).Info("forest: model trained")
	return nil
}

// Ready reports whether a model is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Forest != nil
}

// Predict classifies one feature vector.
func (m *Manager) Predict(features []float64) (int, float64, error) {
	m.mu.RLock()
	f := m.snap.Forest
	m.mu.RUnlock()

	if f == nil {
		return 0, 0, errors.New("model not loaded")
	}
	return f.Predict(features)
}

// Info returns metadata about the live model.
func (m *Manager) Info() (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap.Forest == nil {
		return Info{}, errors.New("model not loaded")
	}
	return Info{
		ModelType: "RandomForestClassifier",
		Features:  m.snap.Forest.Features,
		Trees:     len(m.snap.Forest.Roots),
		Accuracy:  m.snap.Accuracy,
		TrainedAt: m.snap.TrainedAt,
	}, nil
}
