package shared

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/exam"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/library"
	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/settings"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
	dummydb "github.com/trezcool/campus/storage/database/dummy"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

// Repos holds one repository per domain, backed by the same storage.
type Repos struct {
	Tx            core.TxRunner
	User          user.Repository
	Student       student.Repository
	Teacher       teacher.Repository
	Parent        parent.Repository
	Attendance    attendance.Repository
	Fee           fee.Repository
	Timetable     timetable.Repository
	Course        course.Repository
	Exam          exam.Repository
	Communication communication.Repository
	Library       library.Repository
	Settings      settings.Repository
}

// DummyRepos returns in-memory repositories.
func DummyRepos(db *dummydb.DB) Repos {
	return Repos{
		Tx:            dummydb.NewTxRunner(db),
		User:          dummydb.NewUserRepository(db),
		Student:       dummydb.NewStudentRepository(db),
		Teacher:       dummydb.NewTeacherRepository(db),
		Parent:        dummydb.NewParentRepository(db),
		Attendance:    dummydb.NewAttendanceRepository(db),
		Fee:           dummydb.NewFeeRepository(db),
		Timetable:     dummydb.NewTimetableRepository(db),
		Course:        dummydb.NewCourseRepository(db),
		Exam:          dummydb.NewExamRepository(db),
		Communication: dummydb.NewCommunicationRepository(db),
		Library:       dummydb.NewLibraryRepository(db),
		Settings:      dummydb.NewSettingsRepository(db),
	}
}

// PostgresRepos returns the postgres repositories.
func PostgresRepos(db *sqlx.DB) Repos {
	return Repos{
		Tx:            sqlxrepos.NewTxRunner(db),
		User:          sqlxrepos.NewUserRepository(db),
		Student:       sqlxrepos.NewStudentRepository(db),
		Teacher:       sqlxrepos.NewTeacherRepository(db),
		Parent:        sqlxrepos.NewParentRepository(db),
		Attendance:    sqlxrepos.NewAttendanceRepository(db),
		Fee:           sqlxrepos.NewFeeRepository(db),
		Timetable:     sqlxrepos.NewTimetableRepository(db),
		Course:        sqlxrepos.NewCourseRepository(db),
		Exam:          sqlxrepos.NewExamRepository(db),
		Communication: sqlxrepos.NewCommunicationRepository(db),
		Library:       sqlxrepos.NewLibraryRepository(db),
		Settings:      sqlxrepos.NewSettingsRepository(db),
	}
}

// Services holds the domain services.
type Services struct {
	User          user.Service
	Student       student.Service
	Teacher       teacher.Service
	Parent        parent.Service
	Attendance    attendance.Service
	Fee           fee.Service
	Timetable     timetable.Service
	Course        course.Service
	Exam          exam.Service
	Communication communication.Service
	Library       library.Service
	Settings      settings.Service
	Report        report.Service
}

func NewServices(conf *core.Config, logger core.Logger, repos Repos, mailSvc core.EmailService, broker core.EventBroker) *Services {
	svcs := new(Services)
	svcs.User = user.NewService(repos.User, mailSvc, conf)
	svcs.Teacher = teacher.NewService(repos.Teacher, svcs.User, repos.Tx)
	svcs.Parent = parent.NewService(repos.Parent, svcs.User, repos.Student, repos.Tx)
	svcs.Attendance = attendance.NewService(repos.Attendance, repos.Student, repos.Parent, repos.Teacher, repos.Tx, broker, logger)
	svcs.Student = student.NewService(repos.Student, svcs.User, svcs.Parent, svcs.Attendance, repos.Tx, broker, logger)
	svcs.Fee = fee.NewService(repos.Fee, repos.Student, repos.Parent, mailSvc, broker, logger)
	svcs.Timetable = timetable.NewService(repos.Timetable, repos.Teacher, broker, logger)
	svcs.Course = course.NewService(repos.Course, repos.Teacher, repos.Student, repos.Tx)
	svcs.Exam = exam.NewService(repos.Exam, svcs.Course, repos.Student, repos.Tx)
	svcs.Communication = communication.NewService(repos.Communication, repos.User, repos.Student, repos.Parent, broker, logger)
	svcs.Library = library.NewService(repos.Library, repos.User, conf, broker, logger)
	svcs.Settings = settings.NewService(repos.Settings)
	svcs.Report = report.NewService(svcs.Student, svcs.Teacher, svcs.Attendance, svcs.Fee, svcs.Exam)
	return svcs
}
