package models

import (
	"errors"
	"strings"
	"time"
)

type Contest struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatorID   int       `db:"creator_id" json:"creatorId"`
	StartTime   time.Time `db:"start_time" json:"startTime"`
	EndTime     time.Time `db:"end_time" json:"endTime"`
}

// IsActive reports whether the contest window is open at the given instant.
func (c *Contest) IsActive(now time.Time) bool {
	return !now.Before(c.StartTime) && !now.After(c.EndTime)
}

type ContestListItem struct {
	Contest
	CreatorName string `db:"creator_name" json:"creatorName"`
}

type ContestDetail struct {
	Contest
	Mcqs        []McqQuestionView `json:"mcqs"`
	DsaProblems []DsaProblemView  `json:"dsaProblems"`
}

type CreateContestRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
}

func (r *CreateContestRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if !r.EndTime.After(r.StartTime) {
		return errors.New("endTime must be after startTime")
	}
	return nil
}

type LeaderboardEntry struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}
