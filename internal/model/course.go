package model

import "time"

// Course is the root scope: every document, exam and problem hangs off one.
type Course struct {
	CourseID  string    `gorm:"primaryKey;size:64" json:"courseId"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Course) TableName() string {
	return "courses"
}

type Exam struct {
	ExamID    string    `gorm:"primaryKey;size:64" json:"examId"`
	CourseID  string    `gorm:"size:64;not null;index;uniqueIndex:idx_exam_course_name" json:"courseId"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_exam_course_name" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Exam) TableName() string {
	return "exams"
}

// Assignment is an optional grouping for problems within an exam.
type Assignment struct {
	AssignmentID string    `gorm:"primaryKey;size:64" json:"assignmentId"`
	ExamID       string    `gorm:"size:64;not null;index;uniqueIndex:idx_assignment_exam_name" json:"examId"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:idx_assignment_exam_name" json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Assignment) TableName() string {
	return "assignments"
}
