package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

type masteryRepo struct {
	s *Store
}

func (r *masteryRepo) Mastered(ctx context.Context, learner string) (skillgraph.MasterySet, error) {
	query, args := r.s.builder().Select("skill_id").
		From(entsql.Table(tableLearnerSkills)).
		Where(entsql.EQ("learner", learner)).
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	set := skillgraph.NewSkillSet()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		set.Add(skillgraph.SkillID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery: %w", err)
	}
	return set, nil
}

func (r *masteryRepo) Commit(ctx context.Context, learner string, skill skillgraph.SkillID, reason string) (bool, error) {
	ins := r.s.builder().Insert(tableLearnerSkills).
		Columns("learner", "skill_id", "reason", "mastered_at").
		Values(learner, int(skill), reason, time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("learner", "skill_id"), entsql.DoNothing())

	res, err := r.s.exec(ctx, ins)
	if err != nil {
		return false, fmt.Errorf("commit mastery of skill %d: %w", skill, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit mastery of skill %d: %w", skill, err)
	}
	return n > 0, nil
}

func (r *masteryRepo) Reset(ctx context.Context, learner string) error {
	del := r.s.builder().Delete(tableLearnerSkills).Where(entsql.EQ("learner", learner))
	if _, err := r.s.exec(ctx, del); err != nil {
		return fmt.Errorf("reset mastery: %w", err)
	}
	return nil
}
