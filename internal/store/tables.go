package store

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the repositories.
const (
	tableSkills        = "skills"
	tablePrerequisites = "prerequisites"
	tableLearnerSkills = "learner_skills"
	tableSessions      = "sessions"
	tableMasteryEvents = "mastery_events"
	tableLLMEvents     = "llm_request_events"
	tableSequence      = "global_sequence"
)

// longText keeps large payloads out of Postgres varchar.
var longText = map[string]string{dialect.Postgres: "text"}

var (
	skillsID = &schema.Column{Name: "id", Type: field.TypeInt}

	// SkillsTable holds curriculum nodes.
	SkillsTable = schema.NewTable(tableSkills).
			AddPrimary(skillsID).
			AddColumn(&schema.Column{Name: "name", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "subject", Type: field.TypeString, Default: ""}).
			AddColumn(&schema.Column{Name: "stage", Type: field.TypeString, Default: ""}).
			AddColumn(&schema.Column{Name: "explain_seed", Type: field.TypeString, Default: "", SchemaType: longText}).
			AddColumn(&schema.Column{Name: "practice_seed", Type: field.TypeString, Default: "", SchemaType: longText}).
			AddColumn(&schema.Column{Name: "assess_seed", Type: field.TypeString, Default: "", SchemaType: longText}).
			AddColumn(&schema.Column{Name: "probe_question", Type: field.TypeString, Default: "", SchemaType: longText})

	prereqSkill = &schema.Column{Name: "skill_id", Type: field.TypeInt}
	prereqOn    = &schema.Column{Name: "prerequisite_id", Type: field.TypeInt}

	// PrerequisitesTable holds depends-on edges.
	PrerequisitesTable = schema.NewTable(tablePrerequisites).
				AddPrimary(prereqSkill).
				AddPrimary(prereqOn).
				AddIndex("prerequisites_prerequisite_id", false, []string{"prerequisite_id"})

	// LearnerSkillsTable holds the mastery set of each learner. Rows are
	// only ever inserted; the unique index makes commits idempotent.
	LearnerSkillsTable = schema.NewTable(tableLearnerSkills).
				AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true}).
				AddColumn(&schema.Column{Name: "learner", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "skill_id", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "reason", Type: field.TypeString, Default: ""}).
				AddColumn(&schema.Column{Name: "mastered_at", Type: field.TypeTime}).
				AddIndex("learner_skills_learner_skill_id", true, []string{"learner", "skill_id"})

	// SessionsTable holds serialized tutoring sessions keyed by learner token.
	SessionsTable = schema.NewTable(tableSessions).
			AddPrimary(&schema.Column{Name: "token", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "data", Type: field.TypeString, SchemaType: longText}).
			AddColumn(&schema.Column{Name: "updated_at", Type: field.TypeTime})

	// MasteryEventsTable is the append-only log of mastery commits.
	MasteryEventsTable = schema.NewTable(tableMasteryEvents).
				AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true}).
				AddColumn(&schema.Column{Name: "sequence", Type: field.TypeInt64, Unique: true}).
				AddColumn(&schema.Column{Name: "learner", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "skill_id", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "reason", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "created_at", Type: field.TypeTime}).
				AddIndex("mastery_events_learner", false, []string{"learner"})

	// LLMEventsTable records every model invocation.
	LLMEventsTable = schema.NewTable(tableLLMEvents).
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true}).
			AddColumn(&schema.Column{Name: "sequence", Type: field.TypeInt64, Unique: true}).
			AddColumn(&schema.Column{Name: "provider", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "model", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "purpose", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "input_tokens", Type: field.TypeInt, Default: 0}).
			AddColumn(&schema.Column{Name: "output_tokens", Type: field.TypeInt, Default: 0}).
			AddColumn(&schema.Column{Name: "latency_ms", Type: field.TypeInt64, Default: 0}).
			AddColumn(&schema.Column{Name: "cost_usd", Type: field.TypeFloat64, Default: 0}).
			AddColumn(&schema.Column{Name: "success", Type: field.TypeBool}).
			AddColumn(&schema.Column{Name: "error_message", Type: field.TypeString, Default: "", SchemaType: longText}).
			AddColumn(&schema.Column{Name: "created_at", Type: field.TypeTime})

	// SequenceTable is a single-row counter shared by every event table.
	SequenceTable = schema.NewTable(tableSequence).
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt}).
			AddColumn(&schema.Column{Name: "next_val", Type: field.TypeInt64, Default: 1})

	// Tables lists every table in migration order.
	Tables = []*schema.Table{
		SkillsTable,
		PrerequisitesTable,
		LearnerSkillsTable,
		SessionsTable,
		MasteryEventsTable,
		LLMEventsTable,
		SequenceTable,
	}
)

func init() {
	PrerequisitesTable.AddForeignKey(&schema.ForeignKey{
		Symbol:     "prerequisites_skills_skill",
		Columns:    []*schema.Column{prereqSkill},
		RefTable:   SkillsTable,
		RefColumns: []*schema.Column{skillsID},
		OnDelete:   schema.Cascade,
	})
	PrerequisitesTable.AddForeignKey(&schema.ForeignKey{
		Symbol:     "prerequisites_skills_prerequisite",
		Columns:    []*schema.Column{prereqOn},
		RefTable:   SkillsTable,
		RefColumns: []*schema.Column{skillsID},
		OnDelete:   schema.Cascade,
	})
}
