package receipt

import (
	"encoding/json"
	"time"

	"github.com/adrg/xdg"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Outcome values recorded on a receipt.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Receipt records one completed provisioning run.
type Receipt struct {
	ID            uint64 `json:"id" boltholdKey:"ID"`
	JobName       string `json:"jobName" boltholdIndex:"JobName"`
	ResourceGroup string `json:"resourceGroup"`
	Registry      string `json:"registry"`
	Image         string `json:"image"`
	Digest        string `json:"digest,omitempty"`
	Revision      string `json:"revision,omitempty"`
	Schedule      string `json:"schedule"`
	Updated       bool   `json:"updated"`
	Outcome       string `json:"outcome"`
	FailedStep    string `json:"failedStep,omitempty"`
	DurationMS    int64  `json:"durationMs"`
	CreatedAt     int64  `json:"createdAt" boltholdIndex:"CreatedAt"`
}

// Store persists receipts in a bolt database.
type Store struct {
	path string
}

// DefaultPath places the database under the user data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile("ls-azure-night-runner/deploys.db")
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) openDB() (*bolthold.Store, error) {
	return bolthold.Open(s.path, 0o644, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout:      5 * time.Second,
			NoGrowSync:   bbolt.DefaultOptions.NoGrowSync,
			FreelistType: bbolt.DefaultOptions.FreelistType,
		},
	})
}

// Record stores the receipt and fills in its ID and CreatedAt.
func (s *Store) Record(r *Receipt) error {
	db, err := s.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	r.CreatedAt = time.Now().Unix()
	if err := db.Insert(bolthold.NextSequence(), r); err != nil {
		return err
	}
	// write back id to db
	return db.Update(r.ID, r)
}

// List returns the most recent receipts, newest first.
func (s *Store) List(limit int) ([]*Receipt, error) {
	db, err := s.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := bolthold.Where("CreatedAt").Gt(int64(0)).SortBy("CreatedAt", "ID").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var receipts []*Receipt
	if err := db.Find(&receipts, query); err != nil {
		return nil, err
	}
	return receipts, nil
}
