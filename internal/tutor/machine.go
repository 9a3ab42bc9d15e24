// Package tutor is the tutoring session state machine. Step is a function
// of the stored session, the learner's message and a read-only snapshot of
// the curriculum and mastery; it returns the next session, one reply and
// the mastery commits for the caller to apply.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/abhisek/stepwise/internal/diagnostic"
	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/oracle"
	"github.com/abhisek/stepwise/internal/skillgraph"
)

// Oracle produces tutoring text and judges answers. *oracle.Service
// implements it.
type Oracle interface {
	Generate(ctx context.Context, p oracle.Prompt) (string, error)
	Evaluate(ctx context.Context, q oracle.Question) (oracle.Judgment, error)
}

// Snapshot is the read-only data one turn works against.
type Snapshot struct {
	Graph    *skillgraph.Graph
	Mastered skillgraph.MasterySet
}

// Trigger records why a skill was marked mastered.
type Trigger string

const (
	TriggerDiagnostic Trigger = "diagnostic"
	TriggerAssessment Trigger = "assessment"
)

// CommitMastery instructs the caller to mark a skill mastered.
type CommitMastery struct {
	Skill   skillgraph.SkillID
	Trigger Trigger
}

// Result is the outcome of one turn.
type Result struct {
	Session Session
	Reply   string
	Effects []CommitMastery

	// Path lists the phases visited, starting with the stored phase.
	Path []Phase

	// OracleErr is the oracle failure that was turned into a friendly
	// reply, if any.
	OracleErr error
}

// Options configure a Machine.
type Options struct {
	ProbeOrder diagnostic.Order

	// DefaultGoal is resolved when the learner says "continue" or
	// "default" while choosing a goal. Empty disables it.
	DefaultGoal string

	Log *logger.Logger
}

// Machine runs tutoring turns. It holds no per-learner state and is safe
// for concurrent use.
type Machine struct {
	oracle Oracle
	opts   Options
	log    *logger.Logger
}

// NewMachine creates a state machine backed by o.
func NewMachine(o Oracle, opts Options) *Machine {
	if opts.ProbeOrder == "" {
		opts.ProbeOrder = diagnostic.OrderDescendingID
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Machine{oracle: o, opts: opts, log: log}
}

const (
	replyApology   = "Sorry, I'm having trouble responding right now. Please send that again in a moment."
	replyMalformed = "I couldn't quite evaluate that answer. Could you try answering again, maybe with a little more detail?"
	replyRestart   = "Okay, let's start fresh."
)

var (
	resetPhrases       = []string{"reset", "start over", "new goal", "change topic"}
	defaultGoalPhrases = []string{"continue", "default"}
)

// maxSteps bounds the phases visited in one turn.
const maxSteps = 32

// Step advances sess by one learner message.
func (m *Machine) Step(ctx context.Context, sess Session, utterance string, snap Snapshot) (Result, error) {
	if snap.Graph == nil {
		return Result{}, errors.New("tutor: nil graph")
	}
	if err := sess.Validate(); err != nil {
		return Result{}, fmt.Errorf("tutor: inconsistent session: %w", err)
	}

	t := &turn{
		ctx:      ctx,
		m:        m,
		sess:     cloneSession(sess),
		graph:    snap.Graph,
		mastered: snap.Mastered.Clone(),
		input:    strings.TrimSpace(utterance),
		path:     []Phase{sess.Phase},
	}
	t.sess.Turns++

	if matchesPhrase(t.input, resetPhrases) {
		t.goTo(AwaitingGoal)
		t.sess.clear()
		t.say(replyRestart)
		t.say(t.goalPrompt())
	} else if err := t.run(); err != nil {
		return Result{}, err
	}

	reply := strings.Join(t.reply, "\n\n")
	t.sess.LastReply = reply
	return Result{
		Session:   t.sess,
		Reply:     reply,
		Effects:   t.effects,
		Path:      t.path,
		OracleErr: t.oracleErr,
	}, nil
}

// turn is the scratch state of a single Step.
type turn struct {
	ctx      context.Context
	m        *Machine
	sess     Session
	graph    *skillgraph.Graph
	mastered skillgraph.MasterySet

	input    string
	consumed bool

	reply     []string
	effects   []CommitMastery
	path      []Phase
	oracleErr error
	err       error
}

func (t *turn) run() error {
	for range maxSteps {
		// One learner message answers at most one waiting phase.
		if t.consumed && t.sess.Phase.waitsForLearner() {
			return nil
		}

		var yield bool
		switch t.sess.Phase {
		case AwaitingGoal:
			yield = t.awaitGoal()
		case StartAssessment:
			yield = t.startAssessment()
		case AssessmentAsk:
			yield = t.assessmentAsk()
		case AssessmentEvaluate:
			yield = t.assessmentEvaluate()
		case Crawl:
			yield = t.crawl()
		case WalkAsk:
			yield = t.ask(oracle.PurposePractice, WalkEvaluate)
		case WalkEvaluate:
			yield = t.evaluatePlanSkill(oracle.KindPractice, RunAsk)
		case RunAsk:
			yield = t.ask(oracle.PurposeAssess, RunEvaluate)
		case RunEvaluate:
			yield = t.evaluatePlanSkill(oracle.KindAssess, Summary)
		case Summary:
			yield = t.summary()
		}
		if t.err != nil {
			return t.err
		}
		if yield {
			return nil
		}
	}
	return fmt.Errorf("tutor: turn did not settle after %d phases", maxSteps)
}

func (t *turn) awaitGoal() bool {
	text := t.take()
	if text == "" {
		t.say(t.goalPrompt())
		return true
	}
	if t.m.opts.DefaultGoal != "" && matchesPhrase(text, defaultGoalPhrases) {
		text = t.m.opts.DefaultGoal
	}

	scope, err := t.graph.ResolveScope(text)
	var ambiguous *skillgraph.ErrAmbiguousGoal
	switch {
	case errors.As(err, &ambiguous):
		names := make([]string, len(ambiguous.Matches))
		for i, s := range ambiguous.Matches {
			names[i] = fmt.Sprintf("**%s** (#%d)", s.Name, s.ID)
		}
		t.say(fmt.Sprintf("%q could mean a few things: %s. Which one would you like?", text, strings.Join(names, ", ")))
		return true
	case err != nil:
		t.m.log.Debug("goal not resolved", "goal", text, "error", err)
		t.say(fmt.Sprintf("I couldn't find %q in the curriculum.", text))
		t.say(t.goalPrompt())
		return true
	}

	plan, err := t.graph.BuildPlan(scope.Skills, t.mastered)
	if err != nil {
		t.m.log.Warn("plan for resolved goal failed", "goal", scope.Label, "error", err)
		t.say(fmt.Sprintf("I couldn't find %q in the curriculum.", text))
		t.say(t.goalPrompt())
		return true
	}
	if len(plan) == 0 {
		t.say(fmt.Sprintf("You've already mastered everything in **%s**. Pick another goal?", scope.Label))
		return true
	}

	t.sess.Goal = &scope
	t.say(fmt.Sprintf("Great, let's work toward **%s**.", scope.Label))
	t.goTo(StartAssessment)
	return false
}

func (t *turn) startAssessment() bool {
	st, err := diagnostic.NewState(t.graph, t.sess.Goal.Skills, t.mastered)
	if err != nil {
		t.m.log.Warn("diagnostic skipped", "goal", t.sess.Goal.Label, "error", err)
	}
	if _, probe := diagnostic.SelectProbe(t.graph, st.Candidates(), t.m.opts.ProbeOrder); err != nil || !probe {
		t.resolvePlan()
		t.goTo(Crawl)
		return false
	}
	t.sess.Diagnostic = st
	t.say("First, a few quick questions to see what you already know.")
	t.goTo(AssessmentAsk)
	return false
}

func (t *turn) assessmentAsk() bool {
	id, ok := diagnostic.SelectProbe(t.graph, t.sess.Diagnostic.Candidates(), t.m.opts.ProbeOrder)
	if !ok {
		t.sess.Diagnostic = diagnostic.State{}
		t.sess.UnderTest = 0
		t.resolvePlan()
		t.goTo(Crawl)
		return false
	}
	s, _ := t.graph.Skill(id)
	t.sess.UnderTest = id
	t.sess.LastQuestion = s.ProbeQuestion
	t.say(s.ProbeQuestion)
	t.goTo(AssessmentEvaluate)
	return true
}

func (t *turn) assessmentEvaluate() bool {
	answer := t.take()
	id := t.sess.UnderTest
	skill, err := t.graph.Skill(id)
	if err != nil {
		// The curriculum changed under the session; drop the probe.
		t.sess.Diagnostic.Failed = append(t.sess.Diagnostic.Failed, id)
		t.goTo(AssessmentAsk)
		return false
	}
	if answer == "" {
		t.say("Take your time. " + t.sess.LastQuestion)
		return true
	}

	j, ok := t.evaluate(oracle.Question{Skill: skill, Kind: oracle.KindProbe, Text: t.sess.LastQuestion, Answer: answer})
	if !ok {
		return true
	}

	if j.Correct {
		commits, err := t.sess.Diagnostic.OnCorrect(t.graph, id, t.mastered)
		if err != nil {
			t.m.log.Warn("probe credit failed", "skill", id, "error", err)
		}
		for _, c := range commits {
			t.commit(c, TriggerDiagnostic)
		}
	} else {
		t.sess.Diagnostic.OnIncorrect(t.graph, id, t.mastered)
	}
	t.say(j.Feedback)
	t.sess.UnderTest = 0
	t.goTo(AssessmentAsk)
	return false
}

func (t *turn) crawl() bool {
	id, ok := t.nextPlanSkill()
	if !ok {
		label := "your goal"
		if t.sess.Goal != nil {
			label = t.sess.Goal.Label
		}
		t.finishGoal()
		t.say(fmt.Sprintf("You already know everything on the path to **%s**. Nicely done!", label))
		t.say(t.goalPrompt())
		return true
	}
	if id != t.sess.Current {
		t.sess.Current = id
		t.sess.LastFeedback = ""
	}

	skill, _ := t.graph.Skill(id)
	text, ok := t.generate(oracle.Prompt{
		Purpose:   oracle.PurposeExplain,
		Skill:     skill,
		Struggled: t.sess.Misses[id] > 0,
		Feedback:  t.sess.LastFeedback,
	})
	if !ok {
		return true
	}
	t.say(text)
	t.goTo(WalkAsk)
	return true
}

// ask poses a generated question on the current skill.
func (t *turn) ask(purpose oracle.Purpose, next Phase) bool {
	skill, err := t.graph.Skill(t.sess.Current)
	if err != nil {
		t.goTo(AwaitingGoal)
		t.sess.clear()
		t.say("That skill is no longer in the curriculum.")
		t.say(t.goalPrompt())
		return true
	}
	text, ok := t.generate(oracle.Prompt{Purpose: purpose, Skill: skill})
	if !ok {
		return true
	}
	t.sess.LastQuestion = text
	t.say(text)
	t.goTo(next)
	return true
}

// evaluatePlanSkill judges the answer to a practice or assessment question.
// A miss always sends the learner back to Crawl for the same skill.
func (t *turn) evaluatePlanSkill(kind oracle.QuestionKind, onCorrect Phase) bool {
	answer := t.take()
	skill, err := t.graph.Skill(t.sess.Current)
	if err != nil {
		t.goTo(AwaitingGoal)
		t.sess.clear()
		t.say("That skill is no longer in the curriculum.")
		t.say(t.goalPrompt())
		return true
	}
	if answer == "" {
		t.say("Take your time. " + t.sess.LastQuestion)
		return true
	}

	j, ok := t.evaluate(oracle.Question{Skill: skill, Kind: kind, Text: t.sess.LastQuestion, Answer: answer})
	if !ok {
		return true
	}
	t.say(j.Feedback)
	if j.Correct {
		t.goTo(onCorrect)
		return false
	}

	if t.sess.Misses == nil {
		t.sess.Misses = make(map[skillgraph.SkillID]int)
	}
	t.sess.Misses[skill.ID]++
	t.sess.LastFeedback = j.Feedback
	t.goTo(Crawl)
	return false
}

func (t *turn) summary() bool {
	id := t.sess.Current
	skill, _ := t.graph.Skill(id)
	t.commit(id, TriggerAssessment)
	delete(t.sess.Misses, id)
	t.sess.PlanIndex++
	t.sess.LastQuestion = ""
	t.sess.LastFeedback = ""

	next, more := t.peekPlanSkill()
	p := oracle.Prompt{Purpose: oracle.PurposeComplete, Skill: skill}
	if more {
		p.Purpose = oracle.PurposeSummary
		p.Next = &next
	}

	text, err := t.m.oracle.Generate(t.ctx, p)
	if err != nil {
		// Mastery is already earned; a canned message keeps the flow going.
		t.oracleErr = err
		t.m.log.Warn("summary generation failed", "skill", id, "error", err)
		if more {
			text = fmt.Sprintf("Well done, you've mastered **%s**! Next up is **%s**. Ready to continue?", skill.Name, next.Name)
		} else {
			text = fmt.Sprintf("Congratulations, you've mastered **%s** and completed the whole learning path!", skill.Name)
		}
	}
	t.say(text)

	if more {
		t.goTo(Crawl)
		return true
	}
	t.finishGoal()
	t.say(t.goalPrompt())
	return true
}

// nextPlanSkill advances the plan cursor past skills that are mastered or
// gone and returns the skill to teach.
func (t *turn) nextPlanSkill() (skillgraph.SkillID, bool) {
	for t.sess.PlanIndex < len(t.sess.Plan) {
		id := t.sess.Plan[t.sess.PlanIndex]
		if !t.mastered.Has(id) && t.graph.Has(id) {
			return id, true
		}
		t.sess.PlanIndex++
	}
	return 0, false
}

func (t *turn) peekPlanSkill() (skillgraph.Skill, bool) {
	for _, id := range t.sess.Remaining() {
		if t.mastered.Has(id) {
			continue
		}
		if s, err := t.graph.Skill(id); err == nil {
			return s, true
		}
	}
	return skillgraph.Skill{}, false
}

func (t *turn) resolvePlan() {
	var plan []skillgraph.SkillID
	if t.sess.Goal != nil {
		var err error
		plan, err = t.graph.BuildPlan(t.sess.Goal.Skills, t.mastered)
		if err != nil {
			t.m.log.Warn("plan build failed", "goal", t.sess.Goal.Label, "error", err)
		}
	}
	t.sess.Plan = t.startFromFoundation(plan)
	t.sess.PlanIndex = 0
	t.sess.Current = 0
}

// startFromFoundation moves the most foundational unmastered skill of a
// single-skill goal to the front of plan. Its prerequisites are all
// mastered, so the plan stays in prerequisite order.
func (t *turn) startFromFoundation(plan []skillgraph.SkillID) []skillgraph.SkillID {
	if t.sess.Goal == nil || len(t.sess.Goal.Skills) != 1 || len(plan) < 2 {
		return plan
	}
	id, ok, err := t.graph.NextUnmastered(t.mastered, t.sess.Goal.Skills[0])
	if err != nil || !ok {
		return plan
	}
	i := slices.Index(plan, id)
	if i <= 0 {
		return plan
	}
	out := make([]skillgraph.SkillID, 0, len(plan))
	out = append(out, id)
	out = append(out, plan[:i]...)
	return append(out, plan[i+1:]...)
}

func (t *turn) finishGoal() {
	t.goTo(AwaitingGoal)
	t.sess.clear()
}

func (t *turn) generate(p oracle.Prompt) (string, bool) {
	text, err := t.m.oracle.Generate(t.ctx, p)
	if err != nil {
		t.oracleErr = err
		t.say(replyApology)
		return "", false
	}
	return text, true
}

func (t *turn) evaluate(q oracle.Question) (oracle.Judgment, bool) {
	j, err := t.m.oracle.Evaluate(t.ctx, q)
	switch {
	case err == nil:
		return j, true
	case errors.Is(err, oracle.ErrMalformed):
		t.say(replyMalformed)
	default:
		t.say(replyApology)
	}
	t.oracleErr = err
	return oracle.Judgment{}, false
}

func (t *turn) commit(id skillgraph.SkillID, trigger Trigger) {
	if t.mastered.Has(id) {
		return
	}
	t.mastered.Add(id)
	t.effects = append(t.effects, CommitMastery{Skill: id, Trigger: trigger})
}

func (t *turn) take() string {
	if t.consumed {
		return ""
	}
	t.consumed = true
	return t.input
}

func (t *turn) goTo(p Phase) {
	from := t.sess.Phase
	if from == p {
		return
	}
	if !CanTransition(from, p) {
		t.err = fmt.Errorf("tutor: illegal transition %s -> %s", from, p)
		return
	}
	t.sess.Phase = p
	t.path = append(t.path, p)
	t.m.log.Debug("phase transition", "from", from, "to", p, "turn", t.sess.Turns)
}

func (t *turn) say(s string) {
	if s = strings.TrimSpace(s); s != "" {
		t.reply = append(t.reply, s)
	}
}

func (t *turn) goalPrompt() string {
	var b strings.Builder
	b.WriteString("What would you like to learn? Name a skill")
	if subjects := t.graph.Subjects(); len(subjects) > 0 {
		b.WriteString(" or pick a subject: ")
		b.WriteString(strings.Join(subjects, ", "))
	}
	b.WriteString(".")
	if t.m.opts.DefaultGoal != "" {
		b.WriteString(` Say "continue" to follow the default path.`)
	}
	return b.String()
}

func matchesPhrase(text string, phrases []string) bool {
	text = strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!"))
	return slices.Contains(phrases, text)
}

func cloneSession(s Session) Session {
	s.Plan = slices.Clone(s.Plan)
	s.Diagnostic.Queue = slices.Clone(s.Diagnostic.Queue)
	s.Diagnostic.Failed = slices.Clone(s.Diagnostic.Failed)
	s.Misses = maps.Clone(s.Misses)
	if s.Goal != nil {
		g := *s.Goal
		g.Skills = slices.Clone(g.Skills)
		s.Goal = &g
	}
	return s
}
