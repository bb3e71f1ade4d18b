package preference

import (
	"github.com/go-playground/validator/v10"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

// Directions
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

var Directions = []Direction{DirectionUp, DirectionDown}

// Direction is where a saved project moves to in its owner's preference list.
// Up means more preferred (lower rank).
type Direction string

func (d Direction) IsValid() bool {
	return d == DirectionUp || d == DirectionDown
}

// SavedProject links a student to a project they wish to rank.
// RankIndex is 1-based: 1 is the most preferred project.
type SavedProject struct {
	SaveID                int64   `json:"save_id"`
	UserID                int64   `json:"user_id"`
	ProjectID             int64   `json:"project_id"`
	RankIndex             int     `json:"rank_index"`
	PreferenceDescription *string `json:"preference_description"`
}

// NewSavedProject contains information needed to save a project.
// RankIndex is optional: when set, it must be the user's next rank.
type NewSavedProject struct {
	UserID                int64   `json:"user_id" validate:"gt=0"`
	ProjectID             int64   `json:"project_id" validate:"gt=0"`
	RankIndex             int     `json:"rank_index" validate:"gte=0"`
	PreferenceDescription *string `json:"preference_description" validate:"omitempty,max=2000"`
}

func (nsp *NewSavedProject) Validate(validate *validator.Validate) error {
	nsp.PreferenceDescription = core.CleanStringPtr(nsp.PreferenceDescription)
	return validate.Struct(nsp)
}

// MoveSavedProject defines a request to move a saved project one rank up or down.
type MoveSavedProject struct {
	SaveID    int64     `json:"save_id" validate:"gt=0"`
	UserID    int64     `json:"user_id" validate:"gt=0"`
	Direction Direction `json:"direction" validate:"direction"`
}

func (msp *MoveSavedProject) Validate(validate *validator.Validate) error {
	msp.Direction = Direction(core.CleanString(string(msp.Direction), true /* lower */))
	return validate.Struct(msp)
}

// UpdateSavedProject defines what information may be provided to modify an existing SavedProject.
// Ranks are only changed through moves.
type UpdateSavedProject struct {
	PreferenceDescription *string `json:"preference_description" validate:"omitempty,max=2000"`
}

func (usp *UpdateSavedProject) Validate(validate *validator.Validate) error {
	usp.PreferenceDescription = core.CleanStringPtr(usp.PreferenceDescription)
	return validate.Struct(usp)
}

// MoveOutcome tells what a move did to the preference list.
type MoveOutcome int

const (
	MoveUnchanged MoveOutcome = iota
	MoveSwapped
	MoveRemoved
)

func (mo MoveOutcome) String() string {
	switch mo {
	case MoveSwapped:
		return "swapped"
	case MoveRemoved:
		return "removed"
	default:
		return "unchanged"
	}
}

// TopMovePolicy decides what moving the most preferred saved project up does.
type TopMovePolicy string

const (
	// TopMoveRemove deletes the saved project and renumbers the rest.
	TopMoveRemove TopMovePolicy = "remove"
	// TopMoveReject refuses the move with a validation error.
	TopMoveReject TopMovePolicy = "reject"
)

// ParseTopMovePolicy falls back to TopMoveRemove for unknown values.
func ParseTopMovePolicy(s string) TopMovePolicy {
	if TopMovePolicy(core.CleanString(s, true /* lower */)) == TopMoveReject {
		return TopMoveReject
	}
	return TopMoveRemove
}

// RankReport describes the rank integrity of one user's preference list.
type RankReport struct {
	UserID int64 `json:"user_id"`
	Count  int   `json:"count"`
	// Gaps holds the ranks in 1..Count that no row holds.
	Gaps []int `json:"gaps,omitempty"`
	// Duplicates holds the ranks held by more than one row.
	Duplicates []int `json:"duplicates,omitempty"`
	// OutOfRange holds the ranks outside 1..Count.
	OutOfRange []int `json:"out_of_range,omitempty"`
}

func (rr RankReport) IsContiguous() bool {
	return len(rr.Gaps) == 0 && len(rr.Duplicates) == 0 && len(rr.OutOfRange) == 0
}

// NewRankReport checks that the ranks of `saved` (all owned by userID) form exactly 1..len(saved).
func NewRankReport(userID int64, saved []SavedProject) RankReport {
	n := len(saved)
	rep := RankReport{UserID: userID, Count: n}
	seen := make(map[int]int, n)
	for _, sp := range saved {
		if sp.RankIndex < 1 || sp.RankIndex > n {
			rep.OutOfRange = append(rep.OutOfRange, sp.RankIndex)
			continue
		}
		seen[sp.RankIndex]++
		if seen[sp.RankIndex] == 2 {
			rep.Duplicates = append(rep.Duplicates, sp.RankIndex)
		}
	}
	for rank := 1; rank <= n; rank++ {
		if seen[rank] == 0 {
			rep.Gaps = append(rep.Gaps, rank)
		}
	}
	return rep
}
