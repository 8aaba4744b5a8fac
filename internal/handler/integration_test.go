package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/repository/disk"
	"github.com/msomdec/feedline/internal/repository/sqlite"
)

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // don't follow redirects automatically
		},
	}
}

func do(t *testing.T, client *http.Client, method, target string, form url.Values) (int, string, http.Header) {
	t.Helper()
	var resp *http.Response
	var err error
	if method == http.MethodPost {
		resp, err = client.PostForm(target, form)
	} else {
		resp, err = client.Get(target)
	}
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header
}

func signupForm(nickname, email, pw, confirm string) url.Values {
	return url.Values{
		"nickname":      {nickname},
		"email":         {email},
		"passwd":        {pw},
		"confirm":       {confirm},
		"signup_submit": {"1"},
	}
}

func integrationBackends(t *testing.T) map[string]domain.RecordRepository {
	t.Helper()
	store, err := disk.New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("disk.New: %v", err)
	}
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]domain.RecordRepository{"disk": store, "sqlite": db.Records()}
}

func TestIntegration_SignupFollowPostFeedLogout(t *testing.T) {
	for name, records := range integrationBackends(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestServicesWith(t, records)
			srv := httptest.NewServer(svc.mux())
			defer srv.Close()

			amy := newClient(t)
			bob := newClient(t)

			// 1. Both users sign up and land on /home.
			for _, c := range []struct {
				client *http.Client
				form   url.Values
			}{
				{amy, signupForm("Amy", "amy@x.com", "pw", "pw")},
				{bob, signupForm("Bob", "bob@x.com", "pw", "pw")},
			} {
				status, _, hdr := do(t, c.client, http.MethodPost, srv.URL+"/signup", c.form)
				if status != http.StatusSeeOther || hdr.Get("Location") != "/home" {
					t.Fatalf("signup: expected 303 to /home, got %d %s", status, hdr.Get("Location"))
				}
			}

			// 2. Bob posts a message; an empty post is ignored.
			status, _, _ := do(t, bob, http.MethodPost, srv.URL+"/home", url.Values{"message": {"hello from bob"}})
			if status != http.StatusSeeOther {
				t.Fatalf("post: expected 303, got %d", status)
			}
			status, _, _ = do(t, bob, http.MethodPost, srv.URL+"/home", url.Values{"message": {""}})
			if status != http.StatusSeeOther {
				t.Fatalf("empty post: expected 303, got %d", status)
			}
			bobRec, err := records.Load(context.Background(), "bob@x.com")
			if err != nil {
				t.Fatalf("Load bob: %v", err)
			}
			if len(bobRec.Messages) != 1 || bobRec.Messages[0].Text != "hello from bob" {
				t.Fatalf("expected one flushed message, got %+v", bobRec.Messages)
			}

			// 3. Amy sees Bob in the directory and follows him plus a ghost.
			status, body, _ := do(t, amy, http.MethodGet, srv.URL+"/profile", nil)
			if status != http.StatusOK || !strings.Contains(body, "bob@x.com") {
				t.Fatalf("profile: expected 200 listing bob, got %d", status)
			}
			if strings.Contains(body, `value="amy@x.com"`) {
				t.Fatal("profile should not offer amy to herself")
			}
			status, _, hdr := do(t, amy, http.MethodPost, srv.URL+"/profile", url.Values{
				"nickname": {"Amy A"},
				"passwd":   {"pw"},
				"friends":  {" bob@x.com ", "ghost@x.com"},
			})
			if status != http.StatusSeeOther || hdr.Get("Location") != "/home" {
				t.Fatalf("profile update: expected 303 to /home, got %d", status)
			}
			amyRec, err := records.Load(context.Background(), "amy@x.com")
			if err != nil {
				t.Fatalf("Load amy: %v", err)
			}
			if amyRec.DisplayName != "Amy A" || !reflect.DeepEqual(amyRec.Follows, []string{"bob@x.com", "ghost@x.com"}) {
				t.Fatalf("profile update not flushed: %+v", amyRec)
			}

			// 4. Amy's home and live feed show Bob's message.
			status, body, _ = do(t, amy, http.MethodGet, srv.URL+"/home", nil)
			if status != http.StatusOK || !strings.Contains(body, "hello from bob") {
				t.Fatalf("home: expected 200 with bob's message, got %d", status)
			}
			status, body, hdr = do(t, amy, http.MethodGet, srv.URL+"/feed", nil)
			if status != http.StatusOK || !strings.Contains(body, "hello from bob") {
				t.Fatalf("feed: expected 200 with bob's message, got %d: %s", status, body)
			}
			if !strings.HasPrefix(hdr.Get("Content-Type"), "text/event-stream") {
				t.Fatalf("feed: expected event stream, got %s", hdr.Get("Content-Type"))
			}

			// 5. Logout redirects to /index and ends the session.
			status, _, hdr = do(t, amy, http.MethodGet, srv.URL+"/logout", nil)
			if status != http.StatusSeeOther || hdr.Get("Location") != "/index" {
				t.Fatalf("logout: expected 303 to /index, got %d", status)
			}
			status, _, _ = do(t, amy, http.MethodGet, srv.URL+"/home", nil)
			if status != http.StatusUnauthorized {
				t.Fatalf("home after logout: expected 401, got %d", status)
			}

			// 6. Login again with the stored credential.
			status, _, _ = do(t, amy, http.MethodPost, srv.URL+"/login", url.Values{
				"email": {"amy@x.com"}, "passwd": {"wrong"}, "login_submit": {"1"},
			})
			if status != http.StatusUnauthorized {
				t.Fatalf("login with wrong password: expected 401, got %d", status)
			}
			status, _, hdr = do(t, amy, http.MethodPost, srv.URL+"/login", url.Values{
				"email": {"amy@x.com"}, "passwd": {"pw"}, "login_submit": {"1"},
			})
			if status != http.StatusSeeOther || hdr.Get("Location") != "/home" {
				t.Fatalf("login: expected 303 to /home, got %d", status)
			}
			status, body, _ = do(t, amy, http.MethodGet, srv.URL+"/", nil)
			if status != http.StatusOK || !strings.Contains(body, "Amy A") {
				t.Fatalf("index: expected nickname after login, got %d", status)
			}
		})
	}
}

func TestIntegration_SignupErrors(t *testing.T) {
	svc := newTestServices(t)
	srv := httptest.NewServer(svc.mux())
	defer srv.Close()
	client := newClient(t)

	status, body, _ := do(t, client, http.MethodPost, srv.URL+"/signup", url.Values{"email": {"a@x.com"}})
	if status != http.StatusUnprocessableEntity || !strings.Contains(body, "nickname") || !strings.Contains(body, "confirm") {
		t.Fatalf("missing fields: expected 422 listing fields, got %d", status)
	}

	status, _, _ = do(t, client, http.MethodPost, srv.URL+"/signup", signupForm("A", "a@x.com", "pw", "nope"))
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("mismatch: expected 422, got %d", status)
	}

	status, _, _ = do(t, newClient(t), http.MethodPost, srv.URL+"/signup", signupForm("A", "a@x.com", "pw", "pw"))
	if status != http.StatusSeeOther {
		t.Fatalf("signup: expected 303, got %d", status)
	}

	// Taken identity wins over a confirmation mismatch.
	status, body, _ = do(t, client, http.MethodPost, srv.URL+"/signup", signupForm("B", "a@x.com", "pw", "nope"))
	if status != http.StatusConflict || !strings.Contains(body, "already used") {
		t.Fatalf("taken: expected 409, got %d", status)
	}
}

func TestIntegration_LoginErrors(t *testing.T) {
	svc := newTestServices(t)
	srv := httptest.NewServer(svc.mux())
	defer srv.Close()
	client := newClient(t)

	status, _, _ := do(t, client, http.MethodPost, srv.URL+"/login", url.Values{"email": {"a@x.com"}})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("missing fields: expected 422, got %d", status)
	}

	status, body, _ := do(t, client, http.MethodPost, srv.URL+"/login", url.Values{
		"email": {"nobody@x.com"}, "passwd": {"pw"}, "login_submit": {"1"},
	})
	if status != http.StatusUnauthorized || !strings.Contains(body, "User not found") {
		t.Fatalf("unknown user: expected 401, got %d", status)
	}
}

func TestIntegration_LoginThrottled(t *testing.T) {
	svc := newTestServices(t)
	srv := httptest.NewServer(svc.mux())
	defer srv.Close()
	client := newClient(t)

	form := url.Values{"email": {"amy@x.com"}, "passwd": {"wrong"}, "login_submit": {"1"}}
	// The test throttle allows a burst of five attempts.
	for i := 0; i < 5; i++ {
		status, _, _ := do(t, client, http.MethodPost, srv.URL+"/login", form)
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, status)
		}
	}
	status, _, _ := do(t, client, http.MethodPost, srv.URL+"/login", form)
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is used, got %d", status)
	}
}

func TestIntegration_PagesWithoutSession(t *testing.T) {
	svc := newTestServices(t)
	srv := httptest.NewServer(svc.mux())
	defer srv.Close()
	client := newClient(t)

	for _, path := range []string{"/", "/index", "/login", "/signup"} {
		status, _, _ := do(t, client, http.MethodGet, srv.URL+path, nil)
		if status != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, status)
		}
	}
	for _, path := range []string{"/home", "/profile", "/feed"} {
		status, _, _ := do(t, client, http.MethodGet, srv.URL+path, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("GET %s: expected 401, got %d", path, status)
		}
	}
	status, _, _ := do(t, client, http.MethodGet, srv.URL+"/nonexistent", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}
