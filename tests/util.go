package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/services/logger"
)

// sqliteSchema mirrors the saved_projects migration, minus the deferred rank constraint SQLite lacks.
const sqliteSchema = `
CREATE TABLE saved_projects (
    save_id                INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id                INTEGER NOT NULL CHECK (user_id > 0),
    project_id             INTEGER NOT NULL CHECK (project_id > 0),
    rank_index             INTEGER NOT NULL CHECK (rank_index > 0),
    preference_description TEXT,
    created_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, project_id)
);`

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Capstone Portal",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			DisableReqLogs: true,
		},
		Preferences: core.PreferencesConfig{
			TopMovePolicy: string(preference.TopMoveRemove),
		},
	}
}

// NewLogger returns a logger whose entries are kept in the returned hook instead of being printed.
func NewLogger(conf *core.Config) (core.Logger, *test.Hook) {
	std, hook := test.NewNullLogger()
	std.SetLevel(logrus.DebugLevel)
	return logsvc.NewRollbarLogger(std, conf), hook
}

// NewSQLiteDB opens a private in-memory SQLite database holding the saved_projects table.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDB() failed: %v", err)
	}
	// every connection to ":memory:" is a distinct database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err = db.Exec(sqliteSchema); err != nil {
		t.Fatalf("NewSQLiteDB() failed: %v", err)
	}
	return db
}

// SaveProjects stores projectIDs for userID, ranked in the given order.
func SaveProjects(t *testing.T, repo preference.Repository, userID int64, projectIDs ...int64) []preference.SavedProject {
	t.Helper()

	count, err := repo.CountSavedProjects(context.Background(), userID)
	if err != nil {
		t.Fatalf("SaveProjects() failed: %v", err)
	}
	saved := make([]preference.SavedProject, 0, len(projectIDs))
	for i, projectID := range projectIDs {
		sp := CreateSavedProject(t, repo, userID, projectID, count+i+1)
		saved = append(saved, sp)
	}
	return saved
}

// CreateSavedProject stores a saved project at any rank, contiguous or not.
func CreateSavedProject(t *testing.T, repo preference.Repository, userID, projectID int64, rank int, desc ...string) preference.SavedProject {
	t.Helper()

	sp := preference.SavedProject{UserID: userID, ProjectID: projectID, RankIndex: rank}
	if len(desc) > 0 {
		sp.PreferenceDescription = &desc[0]
	}
	sp, err := repo.CreateSavedProject(context.Background(), sp)
	if err != nil {
		t.Fatalf("CreateSavedProject() failed: %v", err)
	}
	return sp
}

// Ranks maps the save IDs of saved to their ranks.
func Ranks(saved []preference.SavedProject) map[int64]int {
	ranks := make(map[int64]int, len(saved))
	for _, sp := range saved {
		ranks[sp.SaveID] = sp.RankIndex
	}
	return ranks
}

// ProjectIDs lists the project IDs of saved, in order.
func ProjectIDs(saved []preference.SavedProject) []int64 {
	ids := make([]int64, 0, len(saved))
	for _, sp := range saved {
		ids = append(ids, sp.ProjectID)
	}
	return ids
}
