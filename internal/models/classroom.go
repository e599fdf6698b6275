package models

import "time"

// Subject taught in a classroom.
type Subject struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Classroom as listed by the classroom backend.
type Classroom struct {
	ID              ID         `json:"id"`
	Name            string     `json:"name"`
	Subject         Subject    `json:"subject"`
	MeetLink        string     `json:"meetLink,omitempty"`
	IsPublic        bool       `json:"isPublic"`
	TeacherUsername string     `json:"teacherUsername,omitempty"`
	ClassCode       string     `json:"classCode,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// UserProfile describes a student enrolled in a classroom.
type UserProfile struct {
	ID       string `json:"id"`
	UserID   ID     `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	DOB      string `json:"dob,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// SubjectScore is one line of a student report card.
type SubjectScore struct {
	Subject     Subject  `json:"subject"`
	ClassroomID ID       `json:"classroomId"`
	Regular1    *float64 `json:"regular1"`
	Regular2    *float64 `json:"regular2"`
	Midterm     *float64 `json:"midterm"`
	Final       *float64 `json:"final"`
	Average     *float64 `json:"average"`
}

// StudentReportCard lists a student's strict composites per subject.
type StudentReportCard struct {
	Username string         `json:"username"`
	Subjects []SubjectScore `json:"subjects"`
}
