package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-runebou/DD2480-CI-V/model"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"xorm.io/xorm"
)

var ErrDuplicateCommit = errors.New("build for commit already exists")
var ErrBuildNotFound = errors.New("build not found")

// BuildStore persists one build record per commit.
type BuildStore struct {
	DB *xorm.Engine
}

func NewBuildStore(engine *xorm.Engine) *BuildStore {
	return &BuildStore{DB: engine}
}

func (s *BuildStore) Sync() error {
	return s.DB.Sync2(new(model.Build))
}

// AddEntry inserts a new record. A second record for the same commit is
// rejected with ErrDuplicateCommit.
func (s *BuildStore) AddEntry(ctx context.Context, sha, branch string, outcome model.Outcome) error {
	build := model.Build{
		Sha:     sha,
		Branch:  branch,
		Outcome: outcome,
	}
	if _, err := s.DB.Context(ctx).Insert(&build); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateCommit, sha)
		}
		return err
	}
	return nil
}

// UpdateEntry sets the outcome and description of a commit's record. When
// no record exists yet it is created, so a terminal state is never lost
// because the pending insert failed.
func (s *BuildStore) UpdateEntry(ctx context.Context, sha, branch string, outcome model.Outcome, description string) error {
	build := model.Build{
		Sha:         sha,
		Branch:      branch,
		Outcome:     outcome,
		Description: description,
	}
	affected, err := s.DB.Context(ctx).
		Where("sha = ?", sha).
		Cols("branch", "outcome", "description").
		Update(&build)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if _, err := s.DB.Context(ctx).Insert(&build); err != nil {
		return err
	}
	return nil
}

func (s *BuildStore) Get(ctx context.Context, sha string) (*model.Build, error) {
	var build model.Build
	has, err := s.DB.Context(ctx).Where("sha = ?", sha).Get(&build)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrBuildNotFound
	}
	return &build, nil
}

// List returns builds newest first, restricted to branch unless it is
// empty. A limit <= 0 returns every build.
func (s *BuildStore) List(ctx context.Context, branch string, limit int) ([]model.Build, error) {
	session := s.DB.Context(ctx)
	if len(branch) > 0 {
		session = session.Where("branch = ?", branch)
	}
	if limit > 0 {
		session = session.Limit(limit)
	}

	builds := []model.Build{}
	if err := session.Desc("created_at", "id").Find(&builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (s *BuildStore) Delete(ctx context.Context, sha string) error {
	affected, err := s.DB.Context(ctx).Where("sha = ?", sha).Delete(&model.Build{})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBuildNotFound
	}
	return nil
}

// MarkStaleBuilds moves builds that stayed pending for longer than olderThan
// to the error outcome and returns how many were changed. Such builds belong
// to runs that died with a previous process.
func (s *BuildStore) MarkStaleBuilds(ctx context.Context, olderThan time.Duration) (int, error) {
	var pending []model.Build
	if err := s.searchPendingBuilds(ctx).Find(&pending); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	marked := 0
	for _, build := range pending {
		if !build.UpdatedAt.Before(cutoff) {
			continue
		}
		_, err := s.DB.Context(ctx).
			ID(build.Id).
			Where("outcome = ?", model.OUTCOME_PENDING).
			Cols("outcome", "description").
			Update(&model.Build{
				Outcome:     model.OUTCOME_ERROR,
				Description: fmt.Sprintf("abandoned: no result after %s", olderThan),
			})
		if err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// The cutoff is compared in Go since sqlite keeps timestamps as text.
func (s *BuildStore) searchPendingBuilds(ctx context.Context) *xorm.Session {
	return s.DB.Context(ctx).Table("build").
		Where("outcome = ?", model.OUTCOME_PENDING).
		Asc("updated_at")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
