package models

import "time"

// Role is the duty a teacher holds on a slot.
type Role string

const (
	RoleInvigilator Role = "surveillant"
	RoleResponsible Role = "responsable"
)

// SlotRef points at a slot by value; assignments carry no slot id.
type SlotRef struct {
	Date   time.Time `json:"date"`
	Time   string    `json:"time"`
	Seance Seance    `json:"seance"`
}

// RoleAssignments groups a teacher's slot references by role, each list in supplied order.
type RoleAssignments map[Role][]SlotRef

// AssignmentIndex maps a teacher to their slot references per role.
type AssignmentIndex map[TeacherID]RoleAssignments

// AssignmentRow is the persisted form of one (teacher, role, slot reference).
type AssignmentRow struct {
	SessionID int64     `db:"session_id"`
	TeacherID TeacherID `db:"teacher_id"`
	Role      Role      `db:"role"`
	Date      time.Time `db:"exam_date"`
	StartTime string    `db:"start_time"`
	Seance    Seance    `db:"seance"`
}
