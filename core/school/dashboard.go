package school

import (
	"context"

	"github.com/trezcool/edudesk/core/user"
)

// Dashboard is the role specific summary shown on the landing page.
// Only the part matching Role is set.
type Dashboard struct {
	Role user.Role

	// admin
	Counts Counts

	// teacher
	Teacher *Teacher

	// parent
	Student *Student
	Summary AttendanceSummary

	// teacher & parent
	Attendance []Attendance
	Marks      []Marks
}

// Dashboard builds the dashboard of caller.
// A teacher or parent without a matching profile gets ErrNotFound,
// any other role ErrRoleNotRecognized.
func (svc *Service) Dashboard(ctx context.Context, caller user.User) (Dashboard, error) {
	dash := Dashboard{Role: caller.Role}

	switch caller.Role {
	case user.RoleAdmin:
		counts, err := svc.repo.CountAll(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		dash.Counts = counts

	case user.RoleTeacher:
		t, err := svc.TeacherOf(ctx, caller)
		if err != nil {
			return Dashboard{}, err
		}
		filter := RecordFilter{ScopeCourses: true, CourseIDs: t.CourseIDs()}
		if dash.Attendance, err = svc.repo.QueryAttendance(ctx, filter, nil); err != nil {
			return Dashboard{}, err
		}
		if dash.Marks, err = svc.repo.QueryMarks(ctx, filter, nil); err != nil {
			return Dashboard{}, err
		}
		dash.Teacher = &t

	case user.RoleParent:
		s, err := svc.repo.GetStudent(ctx, ProfileFilter{UserID: caller.ID})
		if err != nil {
			return Dashboard{}, err
		}
		filter := RecordFilter{StudentID: s.ID}
		if dash.Marks, err = svc.repo.QueryMarks(ctx, filter, nil); err != nil {
			return Dashboard{}, err
		}
		if dash.Attendance, err = svc.repo.QueryAttendance(ctx, filter, nil); err != nil {
			return Dashboard{}, err
		}
		if dash.Summary, err = svc.repo.SummarizeAttendance(ctx, s.ID); err != nil {
			return Dashboard{}, err
		}
		dash.Student = &s

	default:
		return Dashboard{}, ErrRoleNotRecognized
	}

	return dash, nil
}
