package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

type curriculumRepo struct {
	s *Store
}

func (r *curriculumRepo) Replace(ctx context.Context, skills []skillgraph.Skill) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin curriculum replace: %w", err)
	}
	defer tx.Rollback()

	b := r.s.builder()

	if err := execTx(ctx, tx, b.Delete(tablePrerequisites)); err != nil {
		return fmt.Errorf("clear prerequisites: %w", err)
	}

	if len(skills) == 0 {
		if err := execTx(ctx, tx, b.Delete(tableSkills)); err != nil {
			return fmt.Errorf("clear skills: %w", err)
		}
		return tx.Commit()
	}

	ids := make([]any, 0, len(skills))
	ins := b.Insert(tableSkills).
		Columns("id", "name", "subject", "stage", "explain_seed", "practice_seed", "assess_seed", "probe_question")
	for _, s := range skills {
		ids = append(ids, int(s.ID))
		ins.Values(int(s.ID), s.Name, s.Subject, s.Stage, s.ExplainSeed, s.PracticeSeed, s.AssessSeed, s.ProbeQuestion)
	}
	ins.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())
	if err := execTx(ctx, tx, ins); err != nil {
		return fmt.Errorf("upsert skills: %w", err)
	}

	if err := execTx(ctx, tx, b.Delete(tableSkills).Where(entsql.NotIn("id", ids...))); err != nil {
		return fmt.Errorf("remove stale skills: %w", err)
	}

	edges := b.Insert(tablePrerequisites).Columns("skill_id", "prerequisite_id")
	n := 0
	for _, s := range skills {
		seen := make(map[skillgraph.SkillID]bool, len(s.Prerequisites))
		for _, p := range s.Prerequisites {
			if seen[p] {
				continue
			}
			seen[p] = true
			edges.Values(int(s.ID), int(p))
			n++
		}
	}
	if n > 0 {
		if err := execTx(ctx, tx, edges); err != nil {
			return fmt.Errorf("insert prerequisites: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit curriculum replace: %w", err)
	}
	return nil
}

func (r *curriculumRepo) LoadSkills(ctx context.Context) ([]skillgraph.Skill, error) {
	b := r.s.builder()

	query, args := b.Select("id", "name", "subject", "stage", "explain_seed", "practice_seed", "assess_seed", "probe_question").
		From(entsql.Table(tableSkills)).
		OrderBy("id").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var skills []skillgraph.Skill
	index := make(map[skillgraph.SkillID]int)
	for rows.Next() {
		var (
			s  skillgraph.Skill
			id int
		)
		if err := rows.Scan(&id, &s.Name, &s.Subject, &s.Stage, &s.ExplainSeed, &s.PracticeSeed, &s.AssessSeed, &s.ProbeQuestion); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		s.ID = skillgraph.SkillID(id)
		index[s.ID] = len(skills)
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}

	query, args = b.Select("skill_id", "prerequisite_id").
		From(entsql.Table(tablePrerequisites)).
		OrderBy("skill_id", "prerequisite_id").
		Query()
	edges, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prerequisites: %w", err)
	}
	defer edges.Close()

	for edges.Next() {
		var skillID, prereqID int
		if err := edges.Scan(&skillID, &prereqID); err != nil {
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		i, ok := index[skillgraph.SkillID(skillID)]
		if !ok {
			continue
		}
		skills[i].Prerequisites = append(skills[i].Prerequisites, skillgraph.SkillID(prereqID))
	}
	if err := edges.Err(); err != nil {
		return nil, fmt.Errorf("iterate prerequisites: %w", err)
	}
	return skills, nil
}

// querier is satisfied by every ent SQL builder.
type querier interface {
	Query() (string, []any)
}

func execTx(ctx context.Context, tx *sql.Tx, q querier) error {
	query, args := q.Query()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) exec(ctx context.Context, q querier) (sql.Result, error) {
	query, args := q.Query()
	return s.db.ExecContext(ctx, query, args...)
}
