package preference

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

func ranked(ranks ...int) []SavedProject {
	saved := make([]SavedProject, 0, len(ranks))
	for i, rank := range ranks {
		saved = append(saved, SavedProject{SaveID: int64(i + 1), UserID: 7, ProjectID: int64(100 + i), RankIndex: rank})
	}
	return saved
}

func TestNewRankReport(t *testing.T) {
	tests := []struct {
		name           string
		saved          []SavedProject
		want           RankReport
		wantContiguous bool
	}{
		{"empty", nil, RankReport{UserID: 7}, true},
		{"contiguous", ranked(1, 2, 3), RankReport{UserID: 7, Count: 3}, true},
		{"unordered", ranked(3, 1, 2), RankReport{UserID: 7, Count: 3}, true},
		{"gap", ranked(1, 2, 4), RankReport{UserID: 7, Count: 3, Gaps: []int{3}, OutOfRange: []int{4}}, false},
		{"duplicate", ranked(1, 1, 2), RankReport{UserID: 7, Count: 3, Gaps: []int{3}, Duplicates: []int{1}}, false},
		{"zero", ranked(0, 1), RankReport{UserID: 7, Count: 2, Gaps: []int{2}, OutOfRange: []int{0}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewRankReport(7, tc.saved)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantContiguous, got.IsContiguous())
		})
	}
}

func TestParseTopMovePolicy(t *testing.T) {
	assert.Equal(t, TopMoveReject, ParseTopMovePolicy(" Reject "))
	assert.Equal(t, TopMoveRemove, ParseTopMovePolicy("remove"))
	assert.Equal(t, TopMoveRemove, ParseTopMovePolicy(""))
	assert.Equal(t, TopMoveRemove, ParseTopMovePolicy("clamp"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantMsg  string
	}{
		{"nil", nil, KindNone, ""},
		{"validation", errors.Wrap(core.NewValidationError(nil, core.FieldError{Field: "save_id", Error: "must be a positive integer"}), "removing"), KindValidation, "save_id: must be a positive integer"},
		{"duplicate", errors.Wrap(ErrDuplicateSave, "saving project"), KindDuplicate, "project already saved"},
		{"not found", errors.Wrap(ErrNotFound, "finding saved project"), KindNotFound, "saved project not found"},
		{"storage", errors.New("pq: connection refused"), KindStorage, "something went wrong, please try again later"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantKind, KindOf(tc.err))
			assert.Equal(t, tc.wantMsg, Message(tc.err))
		})
	}
}

func Test_directionText(t *testing.T) {
	assert.Equal(t, "direction must be one of: up, down", directionText)
	for _, d := range Directions {
		assert.True(t, d.IsValid(), d)
	}
	assert.False(t, Direction("sideways").IsValid())
}
