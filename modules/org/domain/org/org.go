package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("org: not found")

type Type string

const (
	TypeNation Type = "nation"
	TypeSector Type = "sector"
	TypeArea   Type = "area"
	TypeRegion Type = "region"
	TypeAO     Type = "ao"
)

var AllTypes = []Type{TypeNation, TypeSector, TypeArea, TypeRegion, TypeAO}

// Rank orders types from the leaves (ao = 1) to the root (nation = 5).
// Unknown types rank 0.
func (t Type) Rank() int {
	switch t {
	case TypeNation:
		return 5
	case TypeSector:
		return 4
	case TypeArea:
		return 3
	case TypeRegion:
		return 2
	case TypeAO:
		return 1
	default:
		return 0
	}
}

func (t Type) Valid() bool {
	return t.Rank() > 0
}

func ParseType(raw string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("org: unknown type %q", raw)
	}
	return t, nil
}

// CanParent reports whether a node of type t may hold a child of type child.
func (t Type) CanParent(child Type) bool {
	return child.Valid() && t.Rank() > child.Rank()
}

type Node struct {
	ID          int64     `json:"id"`
	Type        Type      `json:"orgType"`
	ParentID    *int64    `json:"parentId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	IsActive    bool      `json:"isActive"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// Repository reads and writes org nodes. Reads include inactive nodes; the
// caller filters.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Node, error)
	// ListAncestors returns the node itself first and the root last.
	ListAncestors(ctx context.Context, id int64) ([]Node, error)
	// ListDescendants returns every node below id, parents before children.
	ListDescendants(ctx context.Context, id int64) ([]Node, error)
	ListChildren(ctx context.Context, parentID int64) ([]Node, error)
	Create(ctx context.Context, node *Node) (int64, error)
	Update(ctx context.Context, node *Node) error
	SetActive(ctx context.Context, id int64, active bool) error
	// TreeVersion changes with every committed org write, in the same
	// transaction as the write. Values are never reused, even after a
	// rollback.
	TreeVersion(ctx context.Context) (int64, error)
}
