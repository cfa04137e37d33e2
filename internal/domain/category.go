package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RootLineage is the lineage of a category without parent.
const RootLineage = ","

const MaxNameLength = 127

// ItemCategory is a node of the category tree. Lineage holds the ids of all
// ancestors, root first, wrapped in commas: ",1,5,".
type ItemCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	Lineage  string `json:"lineage"`
}

func (c *ItemCategory) ChildLineage() string {
	return c.Lineage + strconv.FormatInt(c.ID, 10) + ","
}

// AncestorIDs returns the ids stored in the lineage, root first.
func (c *ItemCategory) AncestorIDs() ([]int64, error) {
	return ParseLineage(c.Lineage)
}

// Chain returns the ancestor ids followed by the category's own id.
func (c *ItemCategory) Chain() ([]int64, error) {
	ids, err := c.AncestorIDs()
	if err != nil {
		return nil, err
	}
	return append(ids, c.ID), nil
}

func (c *ItemCategory) IsAncestorOf(other *ItemCategory) bool {
	return strings.Contains(other.Lineage, ","+strconv.FormatInt(c.ID, 10)+",")
}

// LineageFor returns the lineage a category gets when placed under parent.
func LineageFor(parent *ItemCategory) string {
	if parent == nil {
		return RootLineage
	}
	return parent.ChildLineage()
}

func ParseLineage(lineage string) ([]int64, error) {
	if !strings.HasPrefix(lineage, ",") || !strings.HasSuffix(lineage, ",") {
		return nil, fmt.Errorf("malformed lineage %q", lineage)
	}
	trimmed := strings.Trim(lineage, ",")
	if trimmed == "" {
		return []int64{}, nil
	}
	parts := strings.Split(trimmed, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed lineage %q: %w", lineage, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}
	return nil
}
