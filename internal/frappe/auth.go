package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Credentials are passed through to the site. Token credentials win when both
// pairs are set.
type Credentials struct {
	Username  string
	Password  string
	APIKey    string
	APISecret string
}

func (c Credentials) usesToken() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Validate reports whether a usable credential pair is present.
func (c Credentials) Validate() error {
	if c.usesToken() || (c.Username != "" && c.Password != "") {
		return nil
	}
	return errors.New("either username and password or api key and secret are required")
}

// Session identifies the logged in user and the employee linked to it.
type Session struct {
	User         string
	Employee     string
	EmployeeName string
}

// Login authenticates and resolves the employee record of the user.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(); err != nil {
		return Session{}, wrapError(ErrLogin, "", "", err)
	}

	if creds.usesToken() {
		c.token = fmt.Sprintf("token %s:%s", creds.APIKey, creds.APISecret)
	} else {
		c.token = ""
		_, err := c.doRequest(ctx, ErrLogin, "", "", http.MethodPost,
			c.endpoint(methodPath, "login"), nil, map[string]string{"usr": creds.Username, "pwd": creds.Password})
		if err != nil {
			return Session{}, err
		}
	}

	user, err := c.loggedUser(ctx)
	if err != nil {
		return Session{}, err
	}

	employees, err := c.Resource(DoctypeEmployee).Read(ctx, Query{
		Fields:  []string{"name", "employee_name"},
		Filters: []Filter{{Field: "user_id", Op: OpEq, Value: user}},
		Limit:   1,
	})
	if err != nil {
		return Session{}, wrapError(ErrLogin, DoctypeEmployee, "", err)
	}
	if len(employees) == 0 {
		return Session{}, wrapError(ErrLogin, DoctypeEmployee, "", fmt.Errorf("no employee is linked to user %q", user))
	}

	return Session{
		User:         user,
		Employee:     employees[0].Name(),
		EmployeeName: employees[0].String("employee_name"),
	}, nil
}

func (c *Client) loggedUser(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, ErrLogin, "", "", http.MethodGet,
		c.endpoint(methodPath, "frappe.auth.get_logged_user"), nil, nil)
	if err != nil {
		return "", err
	}

	var env messageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", wrapError(ErrLogin, "", "", fmt.Errorf("could not parse response data: %w", err))
	}

	var user string
	if err := json.Unmarshal(env.Message, &user); err != nil || user == "" {
		return "", wrapError(ErrLogin, "", "", fmt.Errorf("could not determine logged in user"))
	}

	return user, nil
}
