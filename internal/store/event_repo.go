package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

// eventRepo implements EventRepo on the ent SQL builder and the global
// sequence counter.
type eventRepo struct {
	s *Store
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.s.seq.Next(ctx)
	if err != nil {
		return err
	}

	ins := r.s.builder().Insert(tableLLMEvents).
		Columns("sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
			"latency_ms", "cost_usd", "success", "error_message", "created_at").
		Values(seqNum, data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.CostUSD, data.Success, data.ErrorMessage, time.Now().UTC())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendMasteryEvent(ctx context.Context, data MasteryEventData) error {
	seqNum, err := r.s.seq.Next(ctx)
	if err != nil {
		return err
	}

	ins := r.s.builder().Insert(tableMasteryEvents).
		Columns("sequence", "learner", "skill_id", "reason", "created_at").
		Values(seqNum, data.Learner, int(data.SkillID), data.Reason, time.Now().UTC())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("save mastery event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	sel := r.s.builder().Select("sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
		"latency_ms", "cost_usd", "success", "error_message", "created_at").
		From(entsql.Table(tableLLMEvents))
	applyQueryOpts(sel, opts, false)

	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		var e LLMRequestEvent
		if err := rows.Scan(&e.Sequence, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens, &e.OutputTokens,
			&e.LatencyMs, &e.CostUSD, &e.Success, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) QueryMasteryEvents(ctx context.Context, opts QueryOpts) ([]MasteryEvent, error) {
	sel := r.s.builder().Select("sequence", "learner", "skill_id", "reason", "created_at").
		From(entsql.Table(tableMasteryEvents))
	applyQueryOpts(sel, opts, true)

	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	defer rows.Close()

	var out []MasteryEvent
	for rows.Next() {
		var (
			e       MasteryEvent
			skillID int
		)
		if err := rows.Scan(&e.Sequence, &e.Learner, &skillID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mastery event: %w", err)
		}
		e.SkillID = skillgraph.SkillID(skillID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func applyQueryOpts(sel *entsql.Selector, opts QueryOpts, byLearner bool) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UTC()))
	}
	if byLearner && opts.Learner != "" {
		preds = append(preds, entsql.EQ("learner", opts.Learner))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy("sequence")
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
