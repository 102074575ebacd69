// Package storage persists churn runs using BoltDB: the fitted encoder
// state, the trained model with its validation predictions, and the exported
// test predictions of every run.
//
// Encoder states are stored verbatim so a reloaded run transforms rows into
// exactly the same vectors as the run that produced it.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"churnlab/internal/eval"
	"churnlab/internal/export"
	"churnlab/internal/features"
	"churnlab/internal/ml"
)

// DBFile is the database file name inside the data directory.
const DBFile = "churnlab.db"

const (
	encodersBucket    = "encoders"    // run id -> features.State
	runsBucket        = "runs"        // run id -> RunRecord
	runIndexBucket    = "run_index"   // created_at unix nanos -> run id
	predictionsBucket = "predictions" // run id -> []export.Prediction
)

// ErrNotFound is returned when a run or encoder id is unknown.
var ErrNotFound = errors.New("storage: not found")

// RunRecord is everything needed to re-evaluate a finished run.
type RunRecord struct {
	ID           string             `json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	TrainSource  string             `json:"train_source"`
	TestSource   string             `json:"test_source"`
	TrainRows    int                `json:"train_rows"`
	ValRows      int                `json:"val_rows"`
	TestRows     int                `json:"test_rows"`
	EncoderWidth int                `json:"encoder_width"`
	Threshold    float64            `json:"threshold"`
	Metrics      eval.Metrics       `json:"metrics"`
	ROC          eval.ROC           `json:"roc"`
	History      ml.History         `json:"history"`
	Model        ml.LogisticModel   `json:"model"`
	Validation   eval.PredictionSet `json:"validation"`
}

// Store wraps the BoltDB handle.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database in dataPath and ensures all buckets exist.
func Open(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{encodersBucket, runsBucket, runIndexBucket, predictionsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func putJSON(tx *bbolt.Tx, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
}

func getJSON(tx *bbolt.Tx, bucket, key string, v any) error {
	data := tx.Bucket([]byte(bucket)).Get([]byte(key))
	if data == nil {
		return fmt.Errorf("%w: %s %q", ErrNotFound, bucket, key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s %q: %w", bucket, key, err)
	}
	return nil
}

// SaveEncoder stores a fitted encoder under id.
func (s *Store) SaveEncoder(id string, st *features.State) error {
	if st == nil || !st.Fitted {
		return features.ErrNotFitted
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, encodersBucket, id, st)
	})
}

// LoadEncoder returns the encoder stored under id.
func (s *Store) LoadEncoder(id string) (*features.State, error) {
	st := &features.State{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, encodersBucket, id, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// indexKey sorts chronologically under bytes.Compare.
func indexKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", t.UnixNano()))
}

// SaveRun stores a run record and indexes it by creation time.
func (s *Store) SaveRun(run RunRecord) error {
	if run.ID == "" {
		return errors.New("storage: run id is empty")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putJSON(tx, runsBucket, run.ID, run); err != nil {
			return err
		}
		return tx.Bucket([]byte(runIndexBucket)).Put(indexKey(run.CreatedAt), []byte(run.ID))
	})
}

// GetRun returns the run stored under id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, runsBucket, id, &run)
	})
	return run, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runIndexBucket)).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			var run RunRecord
			if err := getJSON(tx, runsBucket, string(id), &run); err != nil {
				continue // index entry without a record
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	return runs, err
}

// SavePredictions stores the exported predictions of a run.
func (s *Store) SavePredictions(runID string, preds []export.Prediction) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, predictionsBucket, runID, preds)
	})
}

// GetPredictions returns the predictions stored for a run.
func (s *Store) GetPredictions(runID string) ([]export.Prediction, error) {
	var preds []export.Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, predictionsBucket, runID, &preds)
	})
	return preds, err
}
