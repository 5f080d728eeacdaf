package models

// PreferenceRecord is one (day, seance) wish of a teacher. Rank keeps file order for first-come ordering.
type PreferenceRecord struct {
	ID        int64     `db:"id" json:"id"`
	SessionID int64     `db:"session_id" json:"session_id"`
	TeacherID TeacherID `db:"teacher_id" json:"teacher_id"`
	Day       string    `db:"day" json:"day"`
	Seance    Seance    `db:"seance" json:"seance"`
	Rank      int       `db:"rank" json:"rank"`
}
