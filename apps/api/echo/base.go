package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/communication"
	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

// base holds what every API needs.
type base struct {
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
	svcs     *shared.Services
}

func (b *base) ctxUser(ctx echo.Context) (user.User, error) {
	usr, err := getContextUser(ctx, b.svcs.User)
	return usr, errors.Wrap(err, "getting context user")
}

// studentScope is the set of students a user may read: every student for staff,
// their own profile for a student, their children for a parent.
type studentScope struct {
	all      bool
	students []student.Student
}

func (sc studentScope) ids() []string {
	ids := make([]string, 0, len(sc.students))
	for _, s := range sc.students {
		ids = append(ids, s.ID)
	}
	return ids
}

func (sc studentScope) classes() []string {
	classes := make([]string, 0, len(sc.students))
	for _, s := range sc.students {
		if !core.ContainsString(classes, s.Class) {
			classes = append(classes, s.Class)
		}
	}
	return classes
}

func (sc studentScope) has(studentID string) bool {
	if sc.all {
		return true
	}
	for _, s := range sc.students {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

// restrict narrows `requested` student IDs to the scope; ok is false when nothing is left to query.
func (sc studentScope) restrict(requested []string) (ids []string, ok bool) {
	if sc.all {
		return requested, true
	}
	if len(requested) == 0 {
		ids = sc.ids()
	} else {
		for _, id := range requested {
			if sc.has(id) {
				ids = append(ids, id)
			}
		}
	}
	return ids, len(ids) > 0
}

func (b *base) studentScope(ctx echo.Context, usr user.User) (studentScope, error) {
	c := ctx.Request().Context()
	switch {
	case usr.IsAdmin() || usr.IsTeacher():
		return studentScope{all: true}, nil
	case usr.IsParent():
		p, err := b.svcs.Parent.GetByUserID(c, usr.ID)
		if err != nil {
			if errors.Cause(err) == parent.ErrNotFound {
				return studentScope{}, nil
			}
			return studentScope{}, errors.Wrap(err, "getting parent profile")
		}
		children, err := b.svcs.Student.Children(c, p.ID)
		return studentScope{students: children}, errors.Wrap(err, "getting children")
	case usr.IsStudent():
		s, err := b.svcs.Student.GetByUserID(c, usr.ID)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return studentScope{}, nil
			}
			return studentScope{}, errors.Wrap(err, "getting student profile")
		}
		return studentScope{students: []student.Student{s}}, nil
	}
	return studentScope{}, nil
}

// readableStudent returns the student `id` if the context user may read it.
func (b *base) readableStudent(ctx echo.Context, id string) (student.Student, error) {
	usr, err := b.ctxUser(ctx)
	if err != nil {
		return student.Student{}, err
	}
	sc, err := b.studentScope(ctx, usr)
	if err != nil {
		return student.Student{}, err
	}
	if !sc.has(id) {
		return student.Student{}, errHttpNotFound
	}
	s, err := b.svcs.Student.GetByID(ctx.Request().Context(), id)
	return s, errors.Wrap(err, "getting student")
}

// viewer returns the context user with the classes their announcements are filtered on.
func (b *base) viewer(ctx echo.Context) (communication.Viewer, error) {
	usr, err := b.ctxUser(ctx)
	if err != nil {
		return communication.Viewer{}, err
	}
	v := communication.Viewer{User: usr}
	if usr.IsAdmin() || usr.IsTeacher() {
		return v, nil
	}
	sc, err := b.studentScope(ctx, usr)
	if err != nil {
		return communication.Viewer{}, err
	}
	if usr.IsStudent() && len(sc.students) > 0 {
		v.Class = sc.students[0].Class
	}
	if usr.IsParent() {
		v.ChildClasses = sc.classes()
	}
	return v, nil
}
