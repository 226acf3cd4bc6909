package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	invalidValue = "invalid value"
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user holds `username` or `email`.
		// Empty values are not checked.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsers(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		// CreateAccount opens the login account of a student, teacher or parent.
		// The caller sends the welcome email, with SendWelcomeMails, once its unit of work is committed.
		CreateAccount(ctx context.Context, na NewAccount, exec ...core.DBExecutor) (User, error)
		SendWelcomeMails(usrs ...User)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error)
		SetActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc().UTC()
	usr := User{
		ID:        core.NewID(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) CreateAccount(ctx context.Context, na NewAccount, exec ...core.DBExecutor) (User, error) {
	email := core.CleanString(na.Email, true /* lower */)
	if err := svc.repo.CheckUniqueness(ctx, "", email, nil, exec...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "checking email uniqueness")
	}

	pwd, err := randomPassword()
	if err != nil {
		return User{}, errors.Wrap(err, "generating password")
	}

	now := core.NowFunc().UTC()
	usr := User{
		ID:        core.NewID(),
		Name:      core.CleanString(na.Name),
		Email:     email,
		Roles:     []string{na.Role},
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr, exec...)
}

func (svc *service) SendWelcomeMails(usrs ...User) {
	msgs := make([]*core.EmailMessage, 0, len(usrs))
	for _, usr := range usrs {
		link, err := svc.passwordResetLink(usr)
		if err != nil {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{usr.Address()},
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: map[string]interface{}{
				"Name":  usr.Name,
				"Email": usr.Email,
				"Role":  usr.MainRole(),
				"Link":  link,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, core.FilterOrdering(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname, uname}})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.SetActive(*uu.IsActive)
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id}, exec...)
	if err != nil {
		return err
	}
	usr.SetActive(active)
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, exec...)
	return err
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.Active() {
		return nil
	}

	link, err := svc.passwordResetLink(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset link")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.Address()},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"Link":  link,
			"Hours": int(svc.conf.PasswordResetTimeoutDelta / time.Hour),
		},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uidErr := core.NewValidationError(nil, core.FieldError{Field: "uid", Error: invalidValue})

	id, err := decodeUID(rp.UID)
	if err != nil || !core.IsID(id) {
		return uidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return uidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}

	if err = verifyToken(svc.conf, usr, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: invalidValue})
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) passwordResetLink(usr User) (string, error) {
	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return "", err
	}
	return svc.conf.FrontendBaseURL + "/password-reset/" + EncodeUID(usr) + "/" + token, nil
}

func randomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
