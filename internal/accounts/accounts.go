package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"copytrader/internal/models"
)

// Account is one row of the credential sheet. The directory is loaded once
// before the engine starts and never mutated afterwards.
type Account struct {
	Name        string
	ClientID    string
	AccessToken string
	Role        models.Role
	// Multiplier scales master order quantity onto this child. Only
	// meaningful for child accounts.
	Multiplier float64
}

// Directory holds the master account and its children.
type Directory struct {
	Master   Account
	Children []Account
}

// ValidationError means the sheet cannot drive replication at all. It is the
// only error class that is allowed to stop the process.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid account sheet: " + e.Reason
}

// Load reads the account sheet CSV. Expected header columns:
// name, client_id, access_token, type, multiplier. The type column is
// normalized with trim+lowercase; the first master row wins, every child
// row is kept.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("accounts.Load: open %q: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("accounts.Parse: read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "client_id", "access_token", "type"} {
		if _, ok := cols[required]; !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("missing column %q", required)}
		}
	}

	dir := &Directory{}
	haveMaster := false
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("accounts.Parse: read row: %w", err)
		}
		line++

		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		acc := Account{
			Name:        field("name"),
			ClientID:    field("client_id"),
			AccessToken: field("access_token"),
		}
		if acc.Name == "" || acc.ClientID == "" || acc.AccessToken == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("row %d: empty name, client_id or access_token", line)}
		}

		switch strings.ToLower(field("type")) {
		case "master":
			if haveMaster {
				continue
			}
			acc.Role = models.RoleMaster
			dir.Master = acc
			haveMaster = true
		case "child":
			acc.Role = models.RoleChild
			mult, err := strconv.ParseFloat(field("multiplier"), 64)
			if err != nil {
				return nil, &ValidationError{Reason: fmt.Sprintf("row %d: bad multiplier %q", line, field("multiplier"))}
			}
			if mult < 1 {
				return nil, &ValidationError{Reason: fmt.Sprintf("row %d: multiplier %v below 1", line, mult)}
			}
			acc.Multiplier = mult
			dir.Children = append(dir.Children, acc)
		default:
			return nil, &ValidationError{Reason: fmt.Sprintf("row %d: unknown account type %q", line, field("type"))}
		}
	}

	if !haveMaster {
		return nil, &ValidationError{Reason: "no master account"}
	}
	if len(dir.Children) == 0 {
		return nil, &ValidationError{Reason: "no child accounts"}
	}

	return dir, nil
}

// All returns master plus children, master first. Used by the dashboard
// snapshot collector which polls every account.
func (d *Directory) All() []Account {
	out := make([]Account, 0, len(d.Children)+1)
	out = append(out, d.Master)
	out = append(out, d.Children...)
	return out
}
