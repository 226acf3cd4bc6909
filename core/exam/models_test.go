package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func score(f float64) *float64 { return &f }

func TestGrade(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{100, "A+"}, {90, "A+"}, {89.99, "A"}, {80, "A"}, {75, "B+"},
		{60, "B"}, {55, "C"}, {40, "D"}, {39.99, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.avg), "Grade(%v)", tt.avg)
	}
}

func TestMarks_Average(t *testing.T) {
	avg, ok := Marks{}.Average()
	assert.False(t, ok)
	assert.Equal(t, 0.0, avg)

	avg, ok = Marks{Exam1: score(70), Exam3: score(85)}.Average()
	assert.True(t, ok)
	assert.Equal(t, 77.5, avg)

	avg, _ = Marks{Exam1: score(70), Exam2: score(80), Exam3: score(81)}.Average()
	assert.Equal(t, 77.0, avg)
}

func TestComputeFinalMarks(t *testing.T) {
	marks := []Marks{
		{StudentID: "s1", StudentName: "Hero", Class: "10A", CourseID: "c1", CourseName: "Math", Exam1: score(90), Exam2: score(94)},
		{StudentID: "s1", StudentName: "Hero", Class: "10A", CourseID: "c2", CourseName: "Art"},
		{StudentID: "s1", StudentName: "Hero", Class: "10A", CourseID: "c3", CourseName: "Physics", Exam1: score(50)},
	}
	fm := ComputeFinalMarks(marks)
	assert.Equal(t, FinalMarks{
		StudentID:   "s1",
		StudentName: "Hero",
		Class:       "10A",
		Courses: []CourseResult{
			{CourseID: "c1", CourseName: "Math", Average: 92, Grade: "A+"},
			{CourseID: "c3", CourseName: "Physics", Average: 50, Grade: "C"},
		},
		Average: 71,
		Grade:   "B+",
		Passed:  true,
	}, fm)

	empty := ComputeFinalMarks(nil)
	assert.False(t, empty.Passed)
	assert.Equal(t, "F", empty.Grade)
	assert.Empty(t, empty.Courses)
}
