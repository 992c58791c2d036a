// Wire schemas for the backend's JSON payloads. Everything crossing the
// boundary is validated and coerced here so loosely-shaped data never reaches
// the aggregation layer: amounts arrive as strings or numbers and leave as
// two-decimal strings, dates are bare ISO days, malformed entries are dropped
// by the callers.
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"financeflow/internal/core"
)

// wireAmount accepts both string and numeric JSON amounts on ingress and
// always serializes as a quoted two-decimal string on egress.
type wireAmount float64

func (a *wireAmount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = wireAmount(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v < 0 {
		return core.ErrInvalidAmount
	}
	*a = wireAmount(v)
	return nil
}

func (a wireAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(core.FormatAmount(float64(a)))
}

// wireID accepts string and numeric identifiers (the backend serializes user
// IDs as integers, everything else as UUID strings).
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = wireID(n.String())
	return nil
}

type wireProject struct {
	ID          wireID `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (w wireProject) toProject() (core.Project, error) {
	p := core.Project{
		ID:          string(w.ID),
		Name:        w.Name,
		Description: w.Description,
		Color:       w.Color,
		Icon:        w.Icon,
	}
	if w.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, w.CreatedAt)
		if err != nil {
			return core.Project{}, fmt.Errorf("parse created_at: %w", err)
		}
		p.CreatedAt = ts
	}
	return p, p.Validate()
}

func wireFromProject(p core.Project) wireProject {
	w := wireProject{
		ID:          wireID(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		Icon:        p.Icon,
	}
	if !p.CreatedAt.IsZero() {
		w.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return w
}

type wireTransaction struct {
	ID      wireID     `json:"id,omitempty"`
	Project string     `json:"project,omitempty"`
	Type    string     `json:"type"`
	Amount  wireAmount `json:"amount"`
	Date    string     `json:"date"`
	Note    string     `json:"note"`
}

func (w wireTransaction) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(w.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:        string(w.ID),
		ProjectID: w.Project,
		Type:      core.TransactionType(w.Type),
		Amount:    float64(w.Amount),
		Date:      date,
		Note:      w.Note,
	}
	return t, t.Validate()
}

func wireFromTransaction(t core.Transaction) wireTransaction {
	return wireTransaction{
		ID:      wireID(t.ID),
		Project: t.ProjectID,
		Type:    string(t.Type),
		Amount:  wireAmount(t.Amount),
		Date:    t.Date.Key(),
		Note:    t.Note,
	}
}

type wireUser struct {
	ID          wireID          `json:"id,omitempty"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Role        string          `json:"role,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
	Password    string          `json:"password,omitempty"`
}

func (w wireUser) toUser() core.User {
	u := core.User{
		ID:    string(w.ID),
		Email: w.Email,
		Name:  w.Name,
		Role:  core.Role(w.Role),
	}
	if len(w.Permissions) > 0 {
		u.Permissions = toPermissions(w.Permissions)
	}
	return u
}

func wireFromUser(u core.User, password string) wireUser {
	w := wireUser{
		ID:       wireID(u.ID),
		Email:    u.Email,
		Name:     u.Name,
		Role:     string(u.Role),
		Password: password,
	}
	if len(u.Permissions) > 0 {
		w.Permissions = make(map[string]bool, len(u.Permissions))
		for k, v := range u.Permissions {
			w.Permissions[string(k)] = v
		}
	}
	return w
}

func toPermissions(m map[string]bool) core.Permissions {
	perms := make(core.Permissions, len(m))
	for k, v := range m {
		perms[core.Capability(k)] = v
	}
	return perms
}

// decodeProjects converts a wire list, dropping malformed entries instead of
// propagating them. The dropped count lets callers log the condition.
func decodeProjects(body []byte) ([]core.Project, int, error) {
	if len(body) == 0 {
		return []core.Project{}, 0, nil
	}
	var wires []wireProject
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, 0, shapeError(err)
	}
	projects := make([]core.Project, 0, len(wires))
	dropped := 0
	for _, w := range wires {
		p, err := w.toProject()
		if err != nil {
			dropped++
			continue
		}
		projects = append(projects, p)
	}
	return projects, dropped, nil
}

func decodeTransactions(body []byte) ([]core.Transaction, int, error) {
	if len(body) == 0 {
		return []core.Transaction{}, 0, nil
	}
	var wires []json.RawMessage
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, 0, shapeError(err)
	}
	transactions := make([]core.Transaction, 0, len(wires))
	dropped := 0
	for _, raw := range wires {
		var w wireTransaction
		if err := json.Unmarshal(raw, &w); err != nil {
			dropped++
			continue
		}
		t, err := w.toTransaction()
		if err != nil {
			dropped++
			continue
		}
		transactions = append(transactions, t)
	}
	return transactions, dropped, nil
}

func decodeUsers(body []byte) ([]core.User, int, error) {
	if len(body) == 0 {
		return []core.User{}, 0, nil
	}
	var wires []wireUser
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, 0, shapeError(err)
	}
	users := make([]core.User, 0, len(wires))
	for _, w := range wires {
		users = append(users, w.toUser())
	}
	return users, 0, nil
}
