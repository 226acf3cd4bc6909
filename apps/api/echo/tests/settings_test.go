package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/settings"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/testutil"
)

func Test_settingsApi(t *testing.T) {
	resetDB(t)

	usr := testutil.CreateUser(t, repos.User, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, repos.User, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, conf, usr)

	dark := settings.Preferences{
		Theme:           "Dark",
		Language:        "FR",
		Notifications:   settings.NotificationPrefs{Email: false, SMS: true},
		DashboardLayout: map[string]interface{}{"widgets": []interface{}{"fees", "attendance"}},
	}
	saved := settings.Preferences{
		UserID:          usr.ID,
		Theme:           "dark",
		Language:        "fr",
		Notifications:   settings.NotificationPrefs{Email: false, SMS: true},
		DashboardLayout: map[string]interface{}{"widgets": []interface{}{"fees", "attendance"}},
	}

	tests := []httpTest{
		{name: "defaults", method: http.MethodGet, path: "/api/settings", token: token, wantData: marchallObj(t, settings.Defaults(usr.ID))},
		{name: "invalid theme", method: http.MethodPut, path: "/api/settings", token: token, body: marchallObj(t, settings.Preferences{Theme: "neon", Language: "en"}), wantCode: http.StatusBadRequest},
		{name: "save", method: http.MethodPut, path: "/api/settings", token: token, body: marchallObj(t, dark)},
		{name: "saved", method: http.MethodGet, path: "/api/settings", token: token, extra: saved},
		{name: "others keep the defaults", method: http.MethodGet, path: "/api/settings", token: getToken(t, conf, other), wantData: marchallObj(t, settings.Defaults(other.ID))},
		{name: "reset", method: http.MethodDelete, path: "/api/settings", token: token, wantData: marchallObj(t, settings.Defaults(usr.ID))},
		{name: "reset again", method: http.MethodDelete, path: "/api/settings", token: token, wantData: marchallObj(t, settings.Defaults(usr.ID))},
		{name: "defaults after reset", method: http.MethodGet, path: "/api/settings", token: token, wantData: marchallObj(t, settings.Defaults(usr.ID))},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if want, ok := tt.extra.(settings.Preferences); ok {
				var got settings.Preferences
				decode(t, rec, &got)
				assert.False(t, got.UpdatedAt.IsZero())
				got.UpdatedAt = want.UpdatedAt
				assert.Equal(t, want, got)
			}
		})
	}
}
