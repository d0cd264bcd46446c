package school

import (
	"context"
	"net/mail"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
)

const absenceTemplate = "absence"

// AbsenceData is the data of the absence notification email.
type AbsenceData struct {
	StudentName string
	RollNumber  string
	CourseName  string
	Date        string
}

// notifyAbsence emails the user bound to the student of an absent attendance record.
// Failures are logged, never returned.
func (svc *Service) notifyAbsence(ctx context.Context, a Attendance) {
	if !svc.conf.NotifyAbsence || a.Status || svc.mailSvc == nil {
		return
	}

	s, err := svc.repo.GetStudent(ctx, ProfileFilter{ID: a.StudentID})
	if err != nil {
		svc.logger.Error("absence notification: loading student", err)
		return
	}
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: s.UserID})
	if err != nil {
		svc.logger.Error("absence notification: loading user", err)
		return
	}
	if usr.Email == "" {
		return
	}

	courseName := a.CourseName
	if courseName == "" {
		if c, err := svc.repo.GetCourse(ctx, a.CourseID); err == nil {
			courseName = c.Name
		}
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      "Absence: " + s.DisplayName(),
		TemplateName: absenceTemplate,
		TemplateData: AbsenceData{
			StudentName: s.DisplayName(),
			RollNumber:  s.RollNumber,
			CourseName:  courseName,
			Date:        a.Date.Format(DateLayout),
		},
	})
}
