package inmemdb

import (
	"sync"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

type (
	DB struct {
		savedProject *savedProjectTable
	}

	savedProjectTable struct {
		mutex   sync.RWMutex
		table   map[int64]preference.SavedProject
		pkCount int64

		// serializes transactions
		txMutex sync.Mutex
	}
)

func Open() *DB {
	return &DB{
		savedProject: &savedProjectTable{table: make(map[int64]preference.SavedProject)},
	}
}

// snapshot copies the committed rows.
func (t *savedProjectTable) snapshot() (map[int64]preference.SavedProject, int64) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	rows := make(map[int64]preference.SavedProject, len(t.table))
	for id, sp := range t.table {
		rows[id] = sp
	}
	return rows, t.pkCount
}

func (t *savedProjectTable) commit(rows map[int64]preference.SavedProject, pkCount int64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.table = rows
	t.pkCount = pkCount
}
