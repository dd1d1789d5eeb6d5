package role

import (
	"context"
	"fmt"
	"strings"
)

// Level is ordered: a higher value carries every permission of a lower one.
type Level int

const (
	LevelNone Level = iota
	LevelEditor
	LevelAdmin
)

// Levels lists the grantable levels from least to most privileged.
var Levels = []Level{LevelEditor, LevelAdmin}

func (l Level) String() string {
	switch l {
	case LevelEditor:
		return "editor"
	case LevelAdmin:
		return "admin"
	default:
		return "none"
	}
}

func (l Level) Grantable() bool {
	return l == LevelEditor || l == LevelAdmin
}

func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "editor":
		return LevelEditor, nil
	case "admin":
		return LevelAdmin, nil
	case "", "none":
		return LevelNone, nil
	default:
		return LevelNone, fmt.Errorf("role: unknown level %q", raw)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

type Grant struct {
	UserID int64 `json:"userId" yaml:"user_id"`
	OrgID  int64 `json:"orgId" yaml:"org_id"`
	Level  Level `json:"roleLevel" yaml:"level"`
}

// Repository stores at most one grant per (user, org).
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]Grant, error)
	Upsert(ctx context.Context, grant Grant) error
	Delete(ctx context.Context, userID, orgID int64) (bool, error)
}
